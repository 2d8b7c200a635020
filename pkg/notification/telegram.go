package notification

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/logger"
	tb "gopkg.in/tucnak/telebot.v2"
)

// TelegramParams contains all parameters needed to initialize a Telegram bot
type TelegramParams struct {
	Token   string
	ChatIDs []int64
	// URL overrides the Bot API endpoint
	URL string
}

// Telegram delivers alerts to a fixed set of chats through a Telegram bot
// and answers /status with the recorded signal states
type Telegram struct {
	client  *tb.Bot
	chatIDs []int64
	store   core.StateStore
	log     logger.Logger
}

// TelegramOption is a function that configures a Telegram instance
type TelegramOption func(*Telegram)

// WithStateStore lets /status report the recorded signal states
func WithStateStore(store core.StateStore) TelegramOption {
	return func(t *Telegram) {
		t.store = store
	}
}

// NewTelegram creates and initializes a new Telegram service. It checks the
// token against the Bot API.
func NewTelegram(log logger.Logger, params TelegramParams, options ...TelegramOption) (*Telegram, error) {
	if params.Token == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	if len(params.ChatIDs) == 0 {
		return nil, fmt.Errorf("at least one telegram chat id is required")
	}

	bot := &Telegram{
		chatIDs: params.ChatIDs,
		log:     log.WithField("sink", "telegram"),
	}

	poller := &tb.LongPoller{Timeout: 10 * time.Second}

	client, err := tb.NewBot(tb.Settings{
		URL:    params.URL,
		Token:  params.Token,
		Poller: bot.authMiddleware(poller),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	bot.client = client

	for _, option := range options {
		option(bot)
	}

	client.Handle("/help", bot.HelpHandle)
	client.Handle("/status", bot.StatusHandle)

	return bot, nil
}

// authMiddleware drops updates that do not come from a configured chat
func (t *Telegram) authMiddleware(poller *tb.LongPoller) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			return false
		}

		if slices.Contains(t.chatIDs, u.Message.Sender.ID) {
			return true
		}

		t.log.Warnf("unauthorized user %d", u.Message.Sender.ID)
		return false
	})
}

// Start polls for commands in the background
func (t *Telegram) Start() {
	go t.client.Start()
}

// Stop ends command polling
func (t *Telegram) Stop() {
	t.client.Stop()
}

// Notify sends a message to all configured chats
func (t *Telegram) Notify(text string) {
	for _, id := range t.chatIDs {
		if _, err := t.client.Send(&tb.User{ID: id}, text); err != nil {
			t.log.WithError(err).WithField("chat_id", id).Error("failed to send notification")
		}
	}
}

// OnError notifies the chats about errors
func (t *Telegram) OnError(err error) {
	t.Notify(formatError(err))
}

func (t *Telegram) reply(to *tb.User, text string) {
	if _, err := t.client.Send(to, text); err != nil {
		t.log.WithError(err).Error("failed to send message")
	}
}

// HelpHandle lists the available commands
func (t *Telegram) HelpHandle(m *tb.Message) {
	t.reply(m.Sender, "/status - last signal of every pair\n/help - this message")
}

// StatusHandle replies with the recorded state of every pair
func (t *Telegram) StatusHandle(m *tb.Message) {
	if t.store == nil {
		t.reply(m.Sender, "no state store attached")
		return
	}

	states, err := t.store.States()
	if err != nil {
		t.log.WithError(err).Error("failed to read states")
		t.reply(m.Sender, "failed to read states")
		return
	}

	t.reply(m.Sender, formatStates(states))
}

func formatStates(states map[string]core.SignalState) string {
	if len(states) == 0 {
		return "no pair checked yet"
	}

	pairs := make([]string, 0, len(states))
	for pair := range states {
		pairs = append(pairs, pair)
	}
	sort.Strings(pairs)

	var sb strings.Builder
	sb.WriteString("STATUS\n")
	for _, pair := range pairs {
		fmt.Fprintf(&sb, "%s: %s\n", pair, states[pair])
	}
	return strings.TrimSuffix(sb.String(), "\n")
}
