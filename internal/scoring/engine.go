// Package scoring は出品の「お得度」ヒューリスティックを提供する。
// I/Oや可変状態を持たない純粋な計算で、現在時刻は引数として受け取る。
package scoring

import (
	"fmt"
	"math"
	"slices"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hitoshi/dealwatch/internal/model"
)

// defaultCategory はプロファイルのどのカテゴリにも基準価格がない場合のカテゴリ。
const defaultCategory = "default"

var printer = message.NewPrinter(language.English)

// Engine はスコアリングエンジン。
type Engine struct {
	cfg Config
}

// NewEngine は指定テーブルでEngineを生成する。
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// MinScore は通知対象とする最小スコアを返す。
func (e *Engine) MinScore() float64 {
	return e.cfg.MinScore
}

// Analyze は各出品をスコアリングし、MinScore以上のものをスコア降順で返す。
// 同点の場合は入力順を維持する（安定ソート）。
func (e *Engine) Analyze(listings []model.Listing, profile *model.FilterProfile, now time.Time) []model.Deal {
	deals := make([]model.Deal, 0, len(listings))
	for i := range listings {
		res := e.Score(&listings[i], profile, now)
		if res.Score >= e.cfg.MinScore {
			deals = append(deals, model.Deal{Listing: listings[i], Result: res})
		}
	}

	slices.SortStableFunc(deals, func(a, b model.Deal) int {
		switch {
		case a.Result.Score > b.Result.Score:
			return -1
		case a.Result.Score < b.Result.Score:
			return 1
		default:
			return 0
		}
	})
	return deals
}

// Score は出品1件のスコア、理由、値引き見込みを計算する。
func (e *Engine) Score(l *model.Listing, profile *model.FilterProfile, now time.Time) model.ScoreResult {
	category := e.resolveCategory(l, profile)
	expected := e.ExpectedPrice(l, category)

	var score float64
	var reasons []string

	// 期待価格が0の場合は価格段階の加点をしない
	if expected > 0 {
		ratio := l.Price / expected
		for _, tier := range e.cfg.PriceTiers {
			if ratio < tier.Below {
				score += tier.Points
				if tier.ShowPercent {
					reasons = append(reasons, fmt.Sprintf("Price %d%% below average", int(math.Round((1-ratio)*100))))
				} else {
					reasons = append(reasons, "Price slightly below average")
				}
				break
			}
		}
	}

	var bonus float64
	var extra []string
	if category == model.CategoryTarkov {
		bonus, extra = e.primaryBonus(l)
	} else {
		bonus, extra = e.genericBonus(l, profile, now)
	}
	score += bonus
	reasons = append(reasons, extra...)

	return model.ScoreResult{
		Score:             math.Max(0, math.Min(score, e.cfg.MaxScore)),
		Reasons:           reasons,
		DiscountPotential: e.discountPotential(l),
	}
}

// resolveCategory はスコアリングに使うカテゴリを決定する。
// プライマリ属性を持つ出品は要求カテゴリに関係なくプライマリとして扱う。
func (e *Engine) resolveCategory(l *model.Listing, profile *model.FilterProfile) string {
	if l.IsPrimary() {
		return model.CategoryTarkov
	}
	if profile != nil {
		for _, c := range profile.Categories {
			if e.hasBaseline(c) {
				return c
			}
		}
	}
	return defaultCategory
}

func (e *Engine) hasBaseline(category string) bool {
	if category == model.CategoryTarkov {
		return true
	}
	_, ok := e.cfg.CategoryPrices[category]
	return ok
}

// ExpectedPrice はカテゴリの基準価格から出品の期待価格を計算する。
func (e *Engine) ExpectedPrice(l *model.Listing, category string) float64 {
	if category != model.CategoryTarkov {
		if p, ok := e.cfg.CategoryPrices[category]; ok {
			return p
		}
		return e.cfg.DefaultCategoryPrice
	}

	attrs := tarkovAttrs(l)
	base, ok := e.cfg.EditionPrices[attrs.Edition]
	if !ok {
		base = e.cfg.DefaultEditionPrice
	}
	base *= e.cfg.levelMultiplier(attrs.Level)

	w := e.cfg.Primary
	if attrs.Rubles > w.SurchargeThreshold {
		base += float64(attrs.Rubles) / 100000 * w.SurchargePer100k
	}
	if l.NeverSold {
		base *= 1 + w.NeverSoldSurcharge
	}
	return base
}

func (e *Engine) primaryBonus(l *model.Listing) (float64, []string) {
	attrs := tarkovAttrs(l)
	w := e.cfg.Primary
	var score float64
	var reasons []string

	if attrs.Level > 0 {
		score += math.Min(float64(attrs.Level)*w.PointsPerLevel, w.LevelCap)
		switch {
		case attrs.Level >= w.HighLevel:
			reasons = append(reasons, fmt.Sprintf("High level (%d)", attrs.Level))
		case attrs.Level >= w.MidLevel:
			reasons = append(reasons, fmt.Sprintf("Mid level (%d)", attrs.Level))
		}
	}
	if attrs.Rubles > w.CurrencyThreshold {
		score += math.Min(float64(attrs.Rubles)/100000*w.CurrencyPer100k, w.CurrencyCap)
		reasons = append(reasons, printer.Sprintf("Lots of roubles (%d)", attrs.Rubles))
	}
	if attrs.Dollars > w.ForeignThreshold || attrs.Euros > w.ForeignThreshold {
		score += w.ForeignPoints
		reasons = append(reasons, fmt.Sprintf("Foreign currency: $%d, €%d", attrs.Dollars, attrs.Euros))
	}
	if attrs.PVEAccess {
		score += w.PerkPoints
		reasons = append(reasons, "PVE access")
	}
	if e.cfg.isPremium(attrs.Edition) {
		score += w.PremiumPoints
		reasons = append(reasons, fmt.Sprintf("Premium edition (%s)", model.EditionName(attrs.Edition)))
	}
	return score, reasons
}

func (e *Engine) genericBonus(l *model.Listing, profile *model.FilterProfile, now time.Time) (float64, []string) {
	w := e.cfg.Generic
	var score float64
	var reasons []string

	if l.NeverSold {
		score += w.NeverSoldPoints
		reasons = append(reasons, "Never sold before")
	}

	threshold := model.DefaultDiscountThreshold
	if profile != nil {
		threshold = profile.DiscountThreshold
	}
	if l.AllowAskDiscount && l.MaxDiscountPercent > threshold {
		score += math.Min(float64(l.MaxDiscountPercent)*w.DiscountFactor, w.DiscountCap)
		reasons = append(reasons, fmt.Sprintf("Discount up to %d%%", l.MaxDiscountPercent))
	}

	trust := e.trustScore(l)
	score += trust
	if trust > w.TrustReasonAbove {
		reasons = append(reasons, "Trusted seller")
	}

	fresh := e.freshnessScore(l, now)
	score += fresh
	if fresh > w.FreshReasonAbove {
		reasons = append(reasons, "Fresh listing")
	}
	return score, reasons
}

// trustScore は販売件数と返品率から出品者の信頼度を計算する。
func (e *Engine) trustScore(l *model.Listing) float64 {
	w := e.cfg.Generic
	var score float64
	for _, t := range w.SellerTiers {
		if l.Seller.SoldItems > t.Above {
			score += t.Points
			break
		}
	}
	if l.Seller.RestorePercent != nil {
		for _, t := range w.RestoreTiers {
			if *l.Seller.RestorePercent <= t.AtMost {
				score += t.Points
				break
			}
		}
	}
	return math.Min(score, w.TrustCap)
}

func (e *Engine) freshnessScore(l *model.Listing, now time.Time) float64 {
	if l.PublishedAt.IsZero() {
		return 0
	}
	hours := now.Sub(l.PublishedAt).Hours()
	for _, t := range e.cfg.Generic.FreshnessTiers {
		if hours < t.UnderHours {
			return t.Points
		}
	}
	return 0
}

// discountPotential は値引き交渉で見込める割引率を返す。
func (e *Engine) discountPotential(l *model.Listing) int {
	if !l.AllowAskDiscount {
		return 0
	}
	d := e.cfg.Discount
	potential := l.MaxDiscountPercent
	if l.Seller.SoldItems > d.SoldItemsAbove {
		potential = min(potential+d.Boost, d.Cap)
	}
	return potential
}

func tarkovAttrs(l *model.Listing) model.TarkovAttributes {
	if l.Tarkov == nil {
		return model.TarkovAttributes{}
	}
	return *l.Tarkov
}
