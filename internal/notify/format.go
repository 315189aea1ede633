// Package notify は検出したディールの通知メッセージを組み立て、チャットへ送信する。
package notify

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hitoshi/dealwatch/internal/model"
	"github.com/hitoshi/dealwatch/internal/security"
)

const (
	buttonText        = "Open listing"
	unknownCategory   = "Unknown category"
	detailsFirstLine  = 4
	detailSeparator   = " • "
	reasonsSeparator  = "; "
	noDealsText       = "No matching offers right now. We will keep watching."
	previewHeaderText = "🔎 <b>Preview</b>"
)

// Message は送信するメッセージ。Text はHTMLパースモードで解釈される。
// ButtonURL が空の場合はボタンを付けない。
type Message struct {
	Text       string
	ButtonText string
	ButtonURL  string
}

type listingURLValidator interface {
	ValidateListingURL(rawURL string) error
}

// Renderer はディールをHTMLメッセージに変換する。
// 上流由来の文字列はすべてサニタイズしてから埋め込む。
type Renderer struct {
	sanitizer security.MessageSanitizer
	urls      listingURLValidator
	printer   *message.Printer
}

// NewRenderer はRendererの新しいインスタンスを生成する。
func NewRenderer(sanitizer security.MessageSanitizer, urls listingURLValidator) *Renderer {
	return &Renderer{
		sanitizer: sanitizer,
		urls:      urls,
		printer:   message.NewPrinter(language.English),
	}
}

// Render はディール1件のメッセージを組み立てる。
func (r *Renderer) Render(d model.Deal) Message {
	l := d.Listing
	var b strings.Builder

	fmt.Fprintf(&b, "🎯 <b>Good deal!</b>\n\n<b>%s</b>\n<b>Price:</b> %s ₽",
		r.text(categoryName(l.Category)), r.printer.Sprintf("%d", int64(l.Price)))

	details := r.details(&l)
	if len(details) > 0 {
		b.WriteString("\n\n")
		b.WriteString(strings.Join(details[:min(len(details), detailsFirstLine)], detailSeparator))
		if len(details) > detailsFirstLine {
			b.WriteString("\n")
			b.WriteString(strings.Join(details[detailsFirstLine:], detailSeparator))
		}
	}

	fmt.Fprintf(&b, "\n\n<b>Seller:</b> %s (%s sales",
		r.text(l.Seller.Username), r.printer.Sprintf("%d", l.Seller.SoldItems))
	if l.Seller.RestorePercent != nil {
		fmt.Fprintf(&b, ", %d%% returns", *l.Seller.RestorePercent)
	}
	b.WriteString(")")

	fmt.Fprintf(&b, "\n<b>Score:</b> %.1f/100", d.Result.Score)
	if len(d.Result.Reasons) > 0 {
		fmt.Fprintf(&b, "\n<b>Reasons:</b> %s", r.text(strings.Join(d.Result.Reasons, reasonsSeparator)))
	}
	if d.Result.DiscountPotential > 0 {
		fmt.Fprintf(&b, "\n<b>Discount potential:</b> %d%%", d.Result.DiscountPotential)
	}

	msg := Message{Text: b.String()}
	if err := r.urls.ValidateListingURL(l.URL); err == nil {
		msg.ButtonText = buttonText
		msg.ButtonURL = l.URL
	}
	return msg
}

// RenderPreview はプレビュー用の見出しを付けてディールを描画する。
func (r *Renderer) RenderPreview(d model.Deal) Message {
	msg := r.Render(d)
	msg.Text = previewHeaderText + "\n\n" + msg.Text
	return msg
}

// NoDeals は条件に合う出品がない場合のメッセージを返す。
func (r *Renderer) NoDeals() Message {
	return Message{Text: noDealsText}
}

func (r *Renderer) details(l *model.Listing) []string {
	var details []string
	if t := l.Tarkov; t != nil {
		if t.Edition != "" {
			details = append(details, "Edition: "+r.text(model.EditionName(t.Edition)))
		}
		if t.Level > 0 {
			details = append(details, fmt.Sprintf("Level: %d", t.Level))
		}
		if t.Region != "" {
			details = append(details, "Region: "+r.text(model.RegionName(t.Region)))
		}
	}
	if l.Origin != "" {
		details = append(details, "Origin: "+r.text(model.OriginName(l.Origin)))
	}
	if t := l.Tarkov; t != nil {
		if t.Rubles > 0 {
			details = append(details, r.printer.Sprintf("In game: %d ₽", t.Rubles))
		}
		if t.Dollars > 0 || t.Euros > 0 {
			details = append(details, fmt.Sprintf("Currency: $%d, €%d", t.Dollars, t.Euros))
		}
	}
	if l.NeverSold {
		details = append(details, "Never sold before")
	}
	if l.Tarkov != nil && l.Tarkov.PVEAccess {
		details = append(details, "PVE access")
	}
	if l.AllowAskDiscount && l.MaxDiscountPercent > 0 {
		details = append(details, fmt.Sprintf("Discount up to %d%%", l.MaxDiscountPercent))
	}
	return details
}

func (r *Renderer) text(s string) string {
	return r.sanitizer.Text(s)
}

func categoryName(key string) string {
	if c, ok := model.LookupCategory(key); ok {
		return c.Name
	}
	return unknownCategory
}
