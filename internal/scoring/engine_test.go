package scoring

import (
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/dealwatch/internal/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func steamProfile() *model.FilterProfile {
	p := model.NewFilterProfile(42)
	p.Categories = []string{"steam"}
	return p
}

// genericListing はsteamカテゴリ（基準価格500）の出品を生成する。
func genericListing(id int64, price float64) model.Listing {
	return model.Listing{ID: id, Price: price, Category: "steam"}
}

func hasReason(reasons []string, substr string) bool {
	for _, r := range reasons {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}

func TestScore_PriceTiers(t *testing.T) {
	e := NewEngine(DefaultConfig())

	tests := []struct {
		name       string
		price      float64
		wantScore  float64
		wantReason string
	}{
		{name: "ratio 0.40", price: 200, wantScore: 30, wantReason: "Price 60% below average"},
		{name: "ratio 0.673 rounds", price: 336.5, wantScore: 30, wantReason: "Price 33% below average"},
		{name: "ratio 0.75", price: 375, wantScore: 20, wantReason: "Price 25% below average"},
		{name: "ratio 0.85", price: 425, wantScore: 10, wantReason: "Price slightly below average"},
		{name: "ratio 0.90", price: 450, wantScore: 0},
		{name: "ratio 1.20", price: 600, wantScore: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := genericListing(1, tt.price)
			res := e.Score(&l, steamProfile(), testNow)

			if res.Score != tt.wantScore {
				t.Errorf("Score = %v, want %v", res.Score, tt.wantScore)
			}
			if tt.wantReason == "" {
				if len(res.Reasons) != 0 {
					t.Errorf("Reasons = %v, want none", res.Reasons)
				}
				return
			}
			if len(res.Reasons) == 0 || res.Reasons[0] != tt.wantReason {
				t.Errorf("Reasons = %v, want first %q", res.Reasons, tt.wantReason)
			}
		})
	}
}

func TestScore_ZeroExpectedPriceSkipsPriceTier(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CategoryPrices["steam"] = 0
	e := NewEngine(cfg)

	l := genericListing(1, 100)
	res := e.Score(&l, steamProfile(), testNow)

	if res.Score != 0 {
		t.Errorf("Score = %v, want 0", res.Score)
	}
	if hasReason(res.Reasons, "below average") {
		t.Errorf("price reason must not be present: %v", res.Reasons)
	}
}

func TestScore_PrimaryEndToEnd(t *testing.T) {
	e := NewEngine(DefaultConfig())

	l := model.Listing{
		ID:        7,
		Category:  model.CategoryTarkov,
		NeverSold: true,
		Tarkov: &model.TarkovAttributes{
			Edition: "edge_of_darkness",
			Level:   35,
			Rubles:  600000,
		},
	}
	expected := e.ExpectedPrice(&l, model.CategoryTarkov)
	// 4500 * 1.3（30-40帯）* 1.1（未販売）
	if diff := expected - 6435; diff > 0.001 || diff < -0.001 {
		t.Fatalf("ExpectedPrice = %v, want 6435", expected)
	}
	l.Price = expected * 0.5

	profile := model.NewFilterProfile(1)
	profile.Categories = []string{"steam"}

	res := e.Score(&l, profile, testNow)

	// 30（価格）+ 15（レベル上限）+ 12（ルーブル）+ 8（プレミアム）
	if res.Score != 65 {
		t.Errorf("Score = %v, want 65", res.Score)
	}
	if res.DiscountPotential != 0 {
		t.Errorf("DiscountPotential = %d, want 0", res.DiscountPotential)
	}
	for _, want := range []string{
		"Price 50% below average",
		"High level (35)",
		"Lots of roubles (600,000)",
		"Premium edition (Edge of Darkness Edition)",
	} {
		if !slices.Contains(res.Reasons, want) {
			t.Errorf("Reasons = %v, missing %q", res.Reasons, want)
		}
	}

	deals := e.Analyze([]model.Listing{l}, profile, testNow)
	if len(deals) != 1 {
		t.Fatalf("Analyze returned %d deals, want 1", len(deals))
	}
}

func TestScore_PrimaryUnknownEditionUsesDefaultPrice(t *testing.T) {
	e := NewEngine(DefaultConfig())

	l := model.Listing{
		ID:     8,
		Price:  1000,
		Tarkov: &model.TarkovAttributes{Edition: "collectors_box", Level: 5},
	}

	if got := e.ExpectedPrice(&l, model.CategoryTarkov); got != 2000 {
		t.Errorf("ExpectedPrice = %v, want 2000", got)
	}

	res := e.Score(&l, steamProfile(), testNow)
	// 30（価格比0.5）+ 2.5（レベル5）
	if res.Score != 32.5 {
		t.Errorf("Score = %v, want 32.5", res.Score)
	}
	if hasReason(res.Reasons, "level") {
		t.Errorf("level below mid threshold must not add a reason: %v", res.Reasons)
	}
	if hasReason(res.Reasons, "Premium") {
		t.Errorf("unknown edition must not count as premium: %v", res.Reasons)
	}
}

func TestScore_PrimaryCurrencySurchargeAndPerks(t *testing.T) {
	e := NewEngine(DefaultConfig())

	l := model.Listing{
		Tarkov: &model.TarkovAttributes{
			Edition:   "standard",
			Level:     20,
			Rubles:    2000000,
			Dollars:   1500,
			PVEAccess: true,
		},
	}
	// 1800 * 1.2 + 2000000/100000*50
	expected := e.ExpectedPrice(&l, model.CategoryTarkov)
	if diff := expected - 3160; diff > 0.001 || diff < -0.001 {
		t.Fatalf("ExpectedPrice = %v, want 3160", expected)
	}
	l.Price = expected

	res := e.Score(&l, steamProfile(), testNow)
	// 10（レベル20）+ 15（ルーブル上限）+ 8（外貨）+ 5（PVE）
	if res.Score != 38 {
		t.Errorf("Score = %v, want 38", res.Score)
	}
	for _, want := range []string{"Mid level (20)", "Foreign currency: $1500, €0", "PVE access"} {
		if !slices.Contains(res.Reasons, want) {
			t.Errorf("Reasons = %v, missing %q", res.Reasons, want)
		}
	}
}

func TestScore_ClampedToMaxScore(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Primary.PremiumPoints = 80
	e := NewEngine(cfg)

	l := model.Listing{
		Price: 10,
		Tarkov: &model.TarkovAttributes{
			Edition:   "unheard_edition",
			Level:     60,
			Rubles:    5000000,
			Dollars:   5000,
			PVEAccess: true,
		},
	}

	res := e.Score(&l, steamProfile(), testNow)
	if res.Score != 100 {
		t.Errorf("Score = %v, want 100", res.Score)
	}
}

func TestScore_GenericBonuses(t *testing.T) {
	e := NewEngine(DefaultConfig())

	l := genericListing(1, 480)
	l.NeverSold = true
	l.AllowAskDiscount = true
	l.MaxDiscountPercent = 30
	l.Seller = model.Seller{SoldItems: 600, RestorePercent: intPtr(4)}
	l.PublishedAt = testNow.Add(-30 * time.Minute)

	res := e.Score(&l, steamProfile(), testNow)

	// 12（未販売）+ 9（値引き30%*0.3）+ 10（信頼度 5+5）+ 8（鮮度）
	if res.Score != 39 {
		t.Errorf("Score = %v, want 39", res.Score)
	}
	want := []string{"Never sold before", "Discount up to 30%", "Trusted seller", "Fresh listing"}
	if !slices.Equal(res.Reasons, want) {
		t.Errorf("Reasons = %v, want %v", res.Reasons, want)
	}
}

func TestScore_DiscountRequiresThresholdExceeded(t *testing.T) {
	e := NewEngine(DefaultConfig())

	l := genericListing(1, 1000)
	l.AllowAskDiscount = true
	l.MaxDiscountPercent = 20

	res := e.Score(&l, steamProfile(), testNow)
	if res.Score != 0 {
		t.Errorf("Score = %v, want 0 (discount equal to threshold)", res.Score)
	}

	profile := steamProfile()
	profile.DiscountThreshold = 10
	res = e.Score(&l, profile, testNow)
	if res.Score != 6 {
		t.Errorf("Score = %v, want 6", res.Score)
	}
}

func TestTrustScore_Tiers(t *testing.T) {
	e := NewEngine(DefaultConfig())

	tests := []struct {
		sold    int
		restore *int
		want    float64
	}{
		{sold: 2000, restore: intPtr(1), want: 10},
		{sold: 2000, restore: nil, want: 8},
		{sold: 1000, restore: intPtr(10), want: 7},
		{sold: 101, restore: intPtr(50), want: 3},
		{sold: 100, restore: intPtr(5), want: 5},
		{sold: 0, restore: nil, want: 0},
	}
	for _, tt := range tests {
		l := model.Listing{Seller: model.Seller{SoldItems: tt.sold, RestorePercent: tt.restore}}
		if got := e.trustScore(&l); got != tt.want {
			t.Errorf("trustScore(sold=%d) = %v, want %v", tt.sold, got, tt.want)
		}
	}
}

func TestFreshnessScore_Tiers(t *testing.T) {
	e := NewEngine(DefaultConfig())

	tests := []struct {
		age  time.Duration
		want float64
	}{
		{age: 59 * time.Minute, want: 8},
		{age: time.Hour, want: 5},
		{age: 5 * time.Hour, want: 5},
		{age: 6 * time.Hour, want: 3},
		{age: 23 * time.Hour, want: 3},
		{age: 24 * time.Hour, want: 0},
	}
	for _, tt := range tests {
		l := model.Listing{PublishedAt: testNow.Add(-tt.age)}
		if got := e.freshnessScore(&l, testNow); got != tt.want {
			t.Errorf("freshnessScore(age=%v) = %v, want %v", tt.age, got, tt.want)
		}
	}

	if got := e.freshnessScore(&model.Listing{}, testNow); got != 0 {
		t.Errorf("freshnessScore(zero time) = %v, want 0", got)
	}
}

func TestDiscountPotential(t *testing.T) {
	e := NewEngine(DefaultConfig())

	tests := []struct {
		name  string
		allow bool
		max   int
		sold  int
		want  int
	}{
		{name: "not eligible", allow: false, max: 40, sold: 5000, want: 0},
		{name: "eligible", allow: true, max: 30, sold: 10, want: 30},
		{name: "boosted", allow: true, max: 30, sold: 1001, want: 35},
		{name: "boost capped", allow: true, max: 48, sold: 2000, want: 50},
		{name: "exactly 1000 sales", allow: true, max: 30, sold: 1000, want: 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := model.Listing{AllowAskDiscount: tt.allow, MaxDiscountPercent: tt.max, Seller: model.Seller{SoldItems: tt.sold}}
			if got := e.discountPotential(&l); got != tt.want {
				t.Errorf("discountPotential = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestResolveCategory(t *testing.T) {
	e := NewEngine(DefaultConfig())

	primary := model.Listing{Category: "steam", Tarkov: &model.TarkovAttributes{Edition: "standard"}}
	profile := model.NewFilterProfile(1)
	profile.Categories = []string{"steam"}
	if got := e.resolveCategory(&primary, profile); got != model.CategoryTarkov {
		t.Errorf("primary attributes: category = %q, want %q", got, model.CategoryTarkov)
	}

	plain := model.Listing{Category: "gifts"}
	profile.Categories = []string{"gifts", "riot", "steam"}
	if got := e.resolveCategory(&plain, profile); got != "riot" {
		t.Errorf("first category with baseline = %q, want %q", got, "riot")
	}

	profile.Categories = []string{"gifts", "vpn"}
	if got := e.resolveCategory(&plain, profile); got != defaultCategory {
		t.Errorf("fallback category = %q, want %q", got, defaultCategory)
	}
	if got := e.ExpectedPrice(&plain, defaultCategory); got != 500 {
		t.Errorf("default expected price = %v, want 500", got)
	}
}

func TestAnalyze_FiltersAndSortsStably(t *testing.T) {
	e := NewEngine(DefaultConfig())

	strong := func(id int64) model.Listing {
		l := genericListing(id, 200)
		l.NeverSold = true
		l.AllowAskDiscount = true
		l.MaxDiscountPercent = 50
		l.Seller = model.Seller{SoldItems: 2000, RestorePercent: intPtr(3)}
		l.PublishedAt = testNow.Add(-30 * time.Minute)
		return l // 30 + 12 + 15 + 10 + 8 = 75
	}
	medium := genericListing(2, 200)
	medium.NeverSold = true
	medium.AllowAskDiscount = true
	medium.MaxDiscountPercent = 30
	medium.Seller = model.Seller{SoldItems: 600}
	medium.PublishedAt = testNow.Add(-2 * time.Hour) // 30 + 12 + 9 + 5 + 5 = 61

	weak := genericListing(4, 200)
	weak.NeverSold = true
	weak.PublishedAt = testNow.Add(-10 * time.Hour) // 30 + 12 + 3 = 45

	deals := e.Analyze([]model.Listing{medium, strong(1), weak, strong(3)}, steamProfile(), testNow)

	var ids []int64
	for _, d := range deals {
		ids = append(ids, d.Listing.ID)
		if d.Result.Score < 60 {
			t.Errorf("listing %d has score %v below the threshold", d.Listing.ID, d.Result.Score)
		}
	}
	if !slices.Equal(ids, []int64{1, 3, 2}) {
		t.Errorf("order = %v, want [1 3 2]", ids)
	}
	for i := 1; i < len(deals); i++ {
		if deals[i].Result.Score > deals[i-1].Result.Score {
			t.Errorf("scores not non-increasing at %d: %v > %v", i, deals[i].Result.Score, deals[i-1].Result.Score)
		}
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	e := NewEngine(DefaultConfig())
	if deals := e.Analyze(nil, steamProfile(), testNow); len(deals) != 0 {
		t.Errorf("Analyze(nil) returned %d deals, want 0", len(deals))
	}
}
