package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender はTelegram Bot APIへの送信を抽象化する。*tgbotapi.BotAPI が満たす。
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier は購読者のチャットにメッセージを送信する。
// 購読者IDはそのままチャットIDとして扱う。
type TelegramNotifier struct {
	bot    Sender
	logger *slog.Logger
}

// NewTelegramNotifier はTelegramNotifierの新しいインスタンスを生成する。
func NewTelegramNotifier(bot Sender, logger *slog.Logger) *TelegramNotifier {
	return &TelegramNotifier{bot: bot, logger: logger}
}

// NewBot はトークンからBot APIクライアントを生成する。
// 生成時にgetMeを呼ぶため、不正なトークンはここでエラーになる。
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("Telegram Botの初期化に失敗: %w", err)
	}
	return bot, nil
}

// Notify はメッセージを送信する。送信に失敗した場合はエラーを返し、呼び出し元は既読にしない。
func (n *TelegramNotifier) Notify(ctx context.Context, subscriberID int64, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := tgbotapi.NewMessage(subscriberID, msg.Text)
	cfg.ParseMode = tgbotapi.ModeHTML
	cfg.DisableWebPagePreview = true
	if msg.ButtonURL != "" {
		cfg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(msg.ButtonText, msg.ButtonURL),
			),
		)
	}

	sent, err := n.bot.Send(cfg)
	if err != nil {
		return fmt.Errorf("メッセージ送信に失敗: %w", err)
	}

	n.logger.Debug("メッセージを送信しました",
		slog.Int64("subscriber_id", subscriberID),
		slog.Int("message_id", sent.MessageID),
	)
	return nil
}
