package scoring

import (
	"errors"
	"fmt"
)

// LevelBracket はレベル範囲 [Min, Max) と期待価格の倍率。
// 最後の帯に限りMaxを0にすると上限なしになる。
type LevelBracket struct {
	Min        int     `koanf:"min"`
	Max        int     `koanf:"max"`
	Multiplier float64 `koanf:"multiplier"`
}

// PriceTier は価格比がBelow未満のときに加点する段階。
// ShowPercentがtrueの場合は理由に下落率を表示する。
type PriceTier struct {
	Below       float64 `koanf:"below"`
	Points      float64 `koanf:"points"`
	ShowPercent bool    `koanf:"show_percent"`
}

// CountTier は件数がAbove超のときに加点する段階。
type CountTier struct {
	Above  int     `koanf:"above"`
	Points float64 `koanf:"points"`
}

// PercentTier は率がAtMost以下のときに加点する段階。
type PercentTier struct {
	AtMost int     `koanf:"at_most"`
	Points float64 `koanf:"points"`
}

// AgeTier は経過時間がUnderHours未満のときに加点する段階。
type AgeTier struct {
	UnderHours float64 `koanf:"under_hours"`
	Points     float64 `koanf:"points"`
}

// PrimaryWeights はプライマリカテゴリの重みと閾値。
type PrimaryWeights struct {
	PointsPerLevel float64 `koanf:"points_per_level"`
	LevelCap       float64 `koanf:"level_cap"`
	HighLevel      int     `koanf:"high_level"`
	MidLevel       int     `koanf:"mid_level"`

	CurrencyThreshold int64   `koanf:"currency_threshold"`
	CurrencyPer100k   float64 `koanf:"currency_per_100k"`
	CurrencyCap       float64 `koanf:"currency_cap"`

	ForeignThreshold int64   `koanf:"foreign_threshold"`
	ForeignPoints    float64 `koanf:"foreign_points"`

	PerkPoints float64 `koanf:"perk_points"`

	PremiumEditions []string `koanf:"premium_editions"`
	PremiumPoints   float64  `koanf:"premium_points"`

	// 期待価格への加算
	SurchargeThreshold int64   `koanf:"surcharge_threshold"`
	SurchargePer100k   float64 `koanf:"surcharge_per_100k"`
	NeverSoldSurcharge float64 `koanf:"never_sold_surcharge"`
}

// GenericWeights はプライマリ以外のカテゴリの重みと閾値。
type GenericWeights struct {
	NeverSoldPoints float64 `koanf:"never_sold_points"`

	DiscountFactor float64 `koanf:"discount_factor"`
	DiscountCap    float64 `koanf:"discount_cap"`

	SellerTiers      []CountTier   `koanf:"seller_tiers"`
	RestoreTiers     []PercentTier `koanf:"restore_tiers"`
	TrustCap         float64       `koanf:"trust_cap"`
	TrustReasonAbove float64       `koanf:"trust_reason_above"`

	FreshnessTiers   []AgeTier `koanf:"freshness_tiers"`
	FreshReasonAbove float64   `koanf:"fresh_reason_above"`
}

// DiscountBoost は値引き見込みの上乗せ規則。
type DiscountBoost struct {
	SoldItemsAbove int `koanf:"sold_items_above"`
	Boost          int `koanf:"boost"`
	Cap            int `koanf:"cap"`
}

// Config はスコアリングエンジンの全パラメータ。
// コードを変更せずに調整できるよう、YAMLから上書き可能。
type Config struct {
	MinScore float64 `koanf:"min_score"`
	MaxScore float64 `koanf:"max_score"`

	EditionPrices        map[string]float64 `koanf:"edition_prices"`
	DefaultEditionPrice  float64            `koanf:"default_edition_price"`
	CategoryPrices       map[string]float64 `koanf:"category_prices"`
	DefaultCategoryPrice float64            `koanf:"default_category_price"`

	LevelBrackets []LevelBracket `koanf:"level_brackets"`
	PriceTiers    []PriceTier    `koanf:"price_tiers"`

	Primary  PrimaryWeights `koanf:"primary"`
	Generic  GenericWeights `koanf:"generic"`
	Discount DiscountBoost  `koanf:"discount"`
}

// DefaultConfig は組み込みのスコアリングテーブルを返す。
func DefaultConfig() Config {
	return Config{
		MinScore: 60,
		MaxScore: 100,
		EditionPrices: map[string]float64{
			"standard":           1800,
			"left_behind":        2500,
			"prepare_for_escape": 3200,
			"edge_of_darkness":   4500,
			"unheard_edition":    6000,
		},
		DefaultEditionPrice: 2000,
		CategoryPrices: map[string]float64{
			"steam": 500, "fortnite": 300, "riot": 400, "telegram": 50,
			"supercell": 200, "epic_games": 300, "social_club": 800, "uplay": 400,
			"discord": 100, "battlenet": 600, "roblox": 150, "minecraft": 200,
			"chatgpt": 300, "mihoyo": 500, "world_of_tanks": 300, "wot_blitz": 200,
			"ea_origin": 400,
		},
		DefaultCategoryPrice: 500,
		LevelBrackets: []LevelBracket{
			{Min: 0, Max: 10, Multiplier: 1.0},
			{Min: 10, Max: 20, Multiplier: 1.1},
			{Min: 20, Max: 30, Multiplier: 1.2},
			{Min: 30, Max: 40, Multiplier: 1.3},
			{Min: 40, Max: 50, Multiplier: 1.4},
			{Min: 50, Multiplier: 1.5},
		},
		PriceTiers: []PriceTier{
			{Below: 0.70, Points: 30, ShowPercent: true},
			{Below: 0.80, Points: 20, ShowPercent: true},
			{Below: 0.90, Points: 10},
		},
		Primary: PrimaryWeights{
			PointsPerLevel:     0.5,
			LevelCap:           15,
			HighLevel:          30,
			MidLevel:           15,
			CurrencyThreshold:  500000,
			CurrencyPer100k:    2,
			CurrencyCap:        15,
			ForeignThreshold:   1000,
			ForeignPoints:      8,
			PerkPoints:         5,
			PremiumEditions:    []string{"edge_of_darkness", "unheard_edition"},
			PremiumPoints:      8,
			SurchargeThreshold: 1000000,
			SurchargePer100k:   50,
			NeverSoldSurcharge: 0.10,
		},
		Generic: GenericWeights{
			NeverSoldPoints: 12,
			DiscountFactor:  0.3,
			DiscountCap:     15,
			SellerTiers: []CountTier{
				{Above: 1000, Points: 8},
				{Above: 500, Points: 5},
				{Above: 100, Points: 3},
			},
			RestoreTiers: []PercentTier{
				{AtMost: 5, Points: 5},
				{AtMost: 10, Points: 2},
			},
			TrustCap:         10,
			TrustReasonAbove: 5,
			FreshnessTiers: []AgeTier{
				{UnderHours: 1, Points: 8},
				{UnderHours: 6, Points: 5},
				{UnderHours: 24, Points: 3},
			},
			FreshReasonAbove: 3,
		},
		Discount: DiscountBoost{
			SoldItemsAbove: 1000,
			Boost:          5,
			Cap:            50,
		},
	}
}

// Validate はテーブルの整合性を検証する。
// レベル帯は昇順かつ重複なし、価格段階は閾値の昇順でなければならない。
func (c Config) Validate() error {
	var errs []error

	if c.MaxScore <= 0 {
		errs = append(errs, fmt.Errorf("max_score must be positive, got %v", c.MaxScore))
	}
	if c.MinScore < 0 || c.MinScore > c.MaxScore {
		errs = append(errs, fmt.Errorf("min_score must be within [0, max_score], got %v", c.MinScore))
	}
	for i, b := range c.LevelBrackets {
		if b.openEnded() {
			if i != len(c.LevelBrackets)-1 {
				errs = append(errs, fmt.Errorf("level_brackets[%d]: only the last bracket may omit max", i))
			}
		} else if b.Min >= b.Max {
			errs = append(errs, fmt.Errorf("level_brackets[%d]: min %d must be below max %d", i, b.Min, b.Max))
		}
		if i > 0 && b.Min < c.LevelBrackets[i-1].Max {
			errs = append(errs, fmt.Errorf("level_brackets[%d] overlaps the previous bracket", i))
		}
	}
	for i, t := range c.PriceTiers {
		if i > 0 && t.Below <= c.PriceTiers[i-1].Below {
			errs = append(errs, fmt.Errorf("price_tiers[%d]: thresholds must be strictly ascending", i))
		}
	}
	if c.Primary.LevelCap < 0 || c.Primary.CurrencyCap < 0 || c.Generic.DiscountCap < 0 || c.Generic.TrustCap < 0 {
		errs = append(errs, errors.New("caps must not be negative"))
	}

	return errors.Join(errs...)
}

// levelMultiplier はレベルを含む帯の倍率を返す。どの帯にも含まれない場合は1.0。
// 帯は昇順のため二分探索で検索する。
func (c *Config) levelMultiplier(level int) float64 {
	lo, hi := 0, len(c.LevelBrackets)
	for lo < hi {
		mid := (lo + hi) / 2
		b := c.LevelBrackets[mid]
		switch {
		case level < b.Min:
			hi = mid
		case !b.openEnded() && level >= b.Max:
			lo = mid + 1
		default:
			return b.Multiplier
		}
	}
	return 1.0
}

func (b LevelBracket) openEnded() bool {
	return b.Max == 0
}

func (c *Config) isPremium(edition string) bool {
	for _, e := range c.Primary.PremiumEditions {
		if e == edition {
			return true
		}
	}
	return false
}
