package model

// 並び順のデフォルト値。
const (
	DefaultOrderBy           = "price_to_up"
	DefaultShow              = "active"
	DefaultDiscountThreshold = 20
)

// FilterProfile は購読者1人の検索・通知設定を表す。
// 購読者の明示的な操作でのみ更新され、サイクル中は読み取り専用のスナップショットとして扱う。
type FilterProfile struct {
	SubscriberID int64    `json:"subscriber_id"`
	Categories   []string `json:"categories"`

	MinPrice *int `json:"min_price,omitempty"`
	MaxPrice *int `json:"max_price,omitempty"`
	MinLevel *int `json:"min_level,omitempty"`
	MaxLevel *int `json:"max_level,omitempty"`

	Editions []string `json:"editions,omitempty"`
	Regions  []string `json:"regions,omitempty"`
	Origins  []string `json:"origins,omitempty"`

	OrderBy  string `json:"order_by"`
	Show     string `json:"show"`
	PageSize int    `json:"page_size,omitempty"`

	NeverSold      *bool  `json:"nsb,omitempty"`
	SoldBefore     *bool  `json:"sb,omitempty"`
	EmailLoginData *bool  `json:"email_login_data,omitempty"`
	PVEAccess      string `json:"pve_access,omitempty"`

	NotificationsEnabled bool `json:"notifications_enabled"`
	// DiscountThreshold は値引きボーナスを加点する最小の値引き上限（%）。
	DiscountThreshold int `json:"discount_threshold"`
}

// NewFilterProfile はデフォルト値で初期化したFilterProfileを返す。
func NewFilterProfile(subscriberID int64) *FilterProfile {
	return &FilterProfile{
		SubscriberID:         subscriberID,
		OrderBy:              DefaultOrderBy,
		Show:                 DefaultShow,
		NotificationsEnabled: true,
		DiscountThreshold:    DefaultDiscountThreshold,
	}
}

// Clone はスライスとポインタを複製したコピーを返す。
func (p *FilterProfile) Clone() *FilterProfile {
	c := *p
	c.Categories = append([]string(nil), p.Categories...)
	c.Editions = append([]string(nil), p.Editions...)
	c.Regions = append([]string(nil), p.Regions...)
	c.Origins = append([]string(nil), p.Origins...)
	c.MinPrice = cloneInt(p.MinPrice)
	c.MaxPrice = cloneInt(p.MaxPrice)
	c.MinLevel = cloneInt(p.MinLevel)
	c.MaxLevel = cloneInt(p.MaxLevel)
	c.NeverSold = cloneBool(p.NeverSold)
	c.SoldBefore = cloneBool(p.SoldBefore)
	c.EmailLoginData = cloneBool(p.EmailLoginData)
	return &c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	return &n
}

func cloneBool(v *bool) *bool {
	if v == nil {
		return nil
	}
	b := *v
	return &b
}
