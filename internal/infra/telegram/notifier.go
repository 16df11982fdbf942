// Package telegram implements the fulfillment side of a confirmed payment:
// recording the purchase against the customer and telling them about it.
package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-vpn-shop/internal/config"
	"telegram-vpn-shop/internal/domain/model"
	"telegram-vpn-shop/internal/domain/ports/repository"
	"telegram-vpn-shop/internal/infra/logging"
)

// botAPI is the slice of tgbotapi.BotAPI the notifier uses, kept narrow so
// tests can stub the wire.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier delivers a confirmed payment: it books the purchase on the user
// record and sends the confirmation message. Deliveries run on the
// fulfillment queue, never on the webhook request path.
type Notifier struct {
	bot     botAPI
	botName string // public @handle, shown in the confirmation footer
	users   repository.UserRepository
	plans   repository.PlanRepository
	log     *zerolog.Logger
}

func NewNotifier(bot botAPI, botName string, users repository.UserRepository, plans repository.PlanRepository, logger *zerolog.Logger) (*Notifier, error) {
	if bot == nil {
		return nil, errors.New("bot api is nil")
	}
	if users == nil {
		return nil, errors.New("user repository is nil")
	}
	nLog := logger.With().Str("component", "FulfillmentNotifier").Logger()
	return &Notifier{bot: bot, botName: botName, users: users, plans: plans, log: &nLog}, nil
}

// NewBotNotifier dials Telegram and wraps the resulting client in a Notifier.
func NewBotNotifier(cfg config.BotConfig, users repository.UserRepository, plans repository.PlanRepository, logger *zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram dial: %w", err)
	}
	return NewNotifier(bot, cfg.Username, users, plans, logger)
}

// Deliver implements adapter.Deliverer.
func (n *Notifier) Deliver(ctx context.Context, meta *model.PaymentMetadata) error {
	log := logging.With(ctx, n.log)

	if err := n.users.AddSpent(ctx, repository.NoTX, meta.UserID, meta.Price, meta.Months); err != nil {
		return fmt.Errorf("book purchase for user %d: %w", meta.UserID, err)
	}

	msg := tgbotapi.NewMessage(meta.UserID, n.confirmationText(ctx, meta))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := n.bot.Send(msg); err != nil {
		// The purchase is booked; a failed message is a notification problem,
		// not a fulfillment rollback.
		log.Error().Err(err).Int64("user_id", meta.UserID).Msg("confirmation message failed")
		return fmt.Errorf("send confirmation to %d: %w", meta.UserID, err)
	}

	log.Info().
		Int64("user_id", meta.UserID).
		Str("action", meta.Action).
		Str("host", meta.HostName).
		Msg("payment delivered")
	return nil
}

func (n *Notifier) confirmationText(ctx context.Context, meta *model.PaymentMetadata) string {
	planName := ""
	if n.plans != nil && meta.PlanID > 0 {
		if plan, err := n.plans.FindByID(ctx, repository.NoTX, meta.PlanID); err == nil {
			planName = plan.Name
		}
	}

	var verb string
	switch meta.Action {
	case "extend":
		verb = "Your key has been extended"
	default:
		verb = "Your purchase is confirmed"
	}

	text := fmt.Sprintf("✅ Payment received!\n%s: <b>%d month(s)</b> on <b>%s</b>.", verb, meta.Months, meta.HostName)
	if planName != "" {
		text += fmt.Sprintf("\nPlan: %s", planName)
	}
	if n.botName != "" {
		text += fmt.Sprintf("\nManage your keys: @%s", n.botName)
	}
	return text
}
