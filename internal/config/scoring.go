package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/hitoshi/dealwatch/internal/scoring"
)

// listKeys はYAMLに指定された場合にデフォルトを置き換えるリスト項目。
// マップ項目はデフォルトにマージされる。
var listKeys = map[string]func(*scoring.Config){
	"level_brackets":           func(c *scoring.Config) { c.LevelBrackets = nil },
	"price_tiers":              func(c *scoring.Config) { c.PriceTiers = nil },
	"primary.premium_editions": func(c *scoring.Config) { c.Primary.PremiumEditions = nil },
	"generic.seller_tiers":     func(c *scoring.Config) { c.Generic.SellerTiers = nil },
	"generic.restore_tiers":    func(c *scoring.Config) { c.Generic.RestoreTiers = nil },
	"generic.freshness_tiers":  func(c *scoring.Config) { c.Generic.FreshnessTiers = nil },
}

// LoadScoring はスコアリングテーブルを読み込む。
// pathが空の場合は組み込みテーブルを返す。
func LoadScoring(path string) (scoring.Config, error) {
	if path == "" {
		return scoring.DefaultConfig(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return scoring.Config{}, fmt.Errorf("reading scoring config: %w", err)
	}
	return ParseScoring(data)
}

// ParseScoring はYAMLを組み込みテーブルに上書きして検証する。
func ParseScoring(data []byte) (scoring.Config, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return scoring.Config{}, fmt.Errorf("parsing scoring config: %w", err)
	}

	cfg := scoring.DefaultConfig()
	for key, reset := range listKeys {
		if k.Exists(key) {
			reset(&cfg)
		}
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return scoring.Config{}, fmt.Errorf("decoding scoring config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return scoring.Config{}, fmt.Errorf("invalid scoring config: %w", err)
	}
	return cfg, nil
}
