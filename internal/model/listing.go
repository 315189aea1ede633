// Package model はドメインモデルを定義する。
package model

import "time"

// Listing はフェッチ時点のマーケットプレイス出品1件を表す。
// 共通エンベロープ（ID、価格、カテゴリ、出品者統計）と、
// カテゴリ固有のペイロード（Tarkov）で構成される。生成後は変更しない。
type Listing struct {
	ID       int64
	Title    string
	Price    float64
	Category string
	URL      string
	Origin   string

	// NeverSold は過去に一度も販売されていない出品であることを示す。
	NeverSold bool
	// AllowAskDiscount は値引き交渉が可能であることを示す。
	AllowAskDiscount   bool
	MaxDiscountPercent int
	PublishedAt        time.Time

	EmailType     string
	EmailProvider string

	Seller Seller

	// Tarkov はプライマリカテゴリの属性。他カテゴリではnil。
	Tarkov *TarkovAttributes
}

// Seller は出品者の評判指標を表す。
type Seller struct {
	Username  string
	SoldItems int
	// RestorePercent は返品率（%）。上流が値を返さない場合はnil。
	RestorePercent *int
}

// TarkovAttributes はプライマリカテゴリ（Escape from Tarkov）固有の属性。
type TarkovAttributes struct {
	Edition      string
	Level        int
	Region       string
	Rubles       int64
	Dollars      int64
	Euros        int64
	PVEAccess    bool
	LastActivity time.Time
}

// IsPrimary はプライマリカテゴリの属性を持つかを返す。
// エディションまたはレベルが設定されている場合にプライマリとみなす。
func (l *Listing) IsPrimary() bool {
	if l.Tarkov == nil {
		return false
	}
	return l.Tarkov.Edition != "" || l.Tarkov.Level > 0
}
