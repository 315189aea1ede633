package market

import (
	"net/url"
	"strconv"

	"github.com/hitoshi/dealwatch/internal/model"
)

// BuildQuery は購読者のフィルタ設定を上流の検索パラメータに変換する。
// 未設定の値は送信しない。プライマリカテゴリのみレベル・エディション・リージョン条件を付与する。
func BuildQuery(category string, p *model.FilterProfile) url.Values {
	q := url.Values{}

	setInt(q, "pmin", p.MinPrice)
	setInt(q, "pmax", p.MaxPrice)
	if p.OrderBy != "" {
		q.Set("order_by", p.OrderBy)
	}
	if p.Show != "" {
		q.Set("show", p.Show)
	}
	if p.PageSize > 0 {
		q.Set("per_page", strconv.Itoa(p.PageSize))
	}
	setBool(q, "nsb", p.NeverSold)
	setBool(q, "sb", p.SoldBefore)
	setBool(q, "email_login_data", p.EmailLoginData)

	if category == model.CategoryTarkov {
		setInt(q, "lmin", p.MinLevel)
		setInt(q, "lmax", p.MaxLevel)
		if p.PVEAccess != "" {
			q.Set("pve", p.PVEAccess)
		}
		for _, v := range p.Editions {
			q.Add("version[]", v)
		}
		for _, r := range p.Regions {
			q.Add("region[]", r)
		}
	}

	for _, o := range p.Origins {
		q.Add("origin[]", o)
	}

	return q
}

// setInt は0より大きい値のみ設定する。
func setInt(q url.Values, key string, v *int) {
	if v != nil && *v > 0 {
		q.Set(key, strconv.Itoa(*v))
	}
}

func setBool(q url.Values, key string, v *bool) {
	if v != nil {
		q.Set(key, strconv.FormatBool(*v))
	}
}
