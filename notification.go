package pairwatch

import (
	"fmt"

	"github.com/raykavin/pairwatch/internal/config"
	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/logger"
	"github.com/raykavin/pairwatch/pkg/notification"
)

// buildNotifier creates the sinks selected by the alert configuration.
// The telegram bot is returned separately so that it can be started.
func buildNotifier(cfg config.AlertConfig, store core.StateStore, log logger.Logger) (core.Notifier, *notification.Telegram, error) {
	var (
		notifier core.Notifier
		telegram *notification.Telegram
	)

	switch cfg.Driver {
	case config.AlertWebhook:
		webhook, err := notification.NewWebhook(log, notification.WebhookParams{
			URL:     cfg.Webhook.URL,
			ChatID:  cfg.Webhook.ChatID,
			Timeout: cfg.Webhook.Timeout,
		})
		if err != nil {
			return nil, nil, err
		}
		notifier = webhook
	case config.AlertTelegram:
		bot, err := notification.NewTelegram(log, notification.TelegramParams{
			Token:   cfg.Telegram.Token,
			ChatIDs: cfg.Telegram.ChatIDs,
		}, notification.WithStateStore(store))
		if err != nil {
			return nil, nil, err
		}
		notifier, telegram = bot, bot
	case config.AlertLog:
		notifier = notification.NewLog(log)
	default:
		return nil, nil, fmt.Errorf("unsupported alert driver: %s", cfg.Driver)
	}

	if cfg.Mail.Enabled {
		mail := notification.NewMail(log, notification.MailParams{
			SMTPServerPort:    cfg.Mail.Port,
			SMTPServerAddress: cfg.Mail.Host,
			To:                cfg.Mail.To,
			From:              cfg.Mail.From,
			Password:          cfg.Mail.Password,
		})
		notifier = notification.NewFanout(notifier, mail)
	}

	log.Infof("[SETUP] Sending alerts through %s (mail: %t)", cfg.Driver, cfg.Mail.Enabled)
	return notifier, telegram, nil
}
