package notification

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/raykavin/pairwatch/pkg/core"
	"github.com/raykavin/pairwatch/pkg/logger/zerolog"
	"github.com/raykavin/pairwatch/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotAPI struct {
	mu   sync.Mutex
	sent []map[string]any
}

func (f *fakeBotAPI) handler(token string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimPrefix(r.URL.Path, "/bot"+token+"/")
		w.Header().Set("Content-Type", "application/json")

		switch method {
		case "getMe":
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"pairwatch","username":"pairwatch_bot"}}`)
		case "sendMessage":
			var params map[string]any
			_ = json.NewDecoder(r.Body).Decode(&params)

			f.mu.Lock()
			f.sent = append(f.sent, params)
			f.mu.Unlock()

			fmt.Fprintf(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":%v,"type":"private"},"text":"ok"}}`,
				params["chat_id"])
		default:
			fmt.Fprint(w, `{"ok":true,"result":true}`)
		}
	}
}

func newTestTelegram(t *testing.T, options ...TelegramOption) (*Telegram, *fakeBotAPI) {
	t.Helper()

	api := &fakeBotAPI{}
	server := httptest.NewServer(api.handler("TOKEN"))
	t.Cleanup(server.Close)

	bot, err := NewTelegram(zerolog.Nop(), TelegramParams{
		Token:   "TOKEN",
		ChatIDs: []int64{11, 22},
		URL:     server.URL,
	}, options...)
	require.NoError(t, err)

	return bot, api
}

func TestTelegram_Notify(t *testing.T) {
	bot, api := newTestTelegram(t)

	bot.Notify("🚀 BUY SIGNAL")

	require.Len(t, api.sent, 2)
	assert.Equal(t, "11", fmt.Sprint(api.sent[0]["chat_id"]))
	assert.Equal(t, "22", fmt.Sprint(api.sent[1]["chat_id"]))
	assert.Equal(t, "🚀 BUY SIGNAL", api.sent[0]["text"])
}

func TestTelegram_Validation(t *testing.T) {
	_, err := NewTelegram(zerolog.Nop(), TelegramParams{ChatIDs: []int64{1}})
	require.Error(t, err)

	_, err = NewTelegram(zerolog.Nop(), TelegramParams{Token: "TOKEN"})
	require.Error(t, err)
}

func TestFormatStates(t *testing.T) {
	store := storage.NewMemoryStorage()
	require.NoError(t, store.SetState("ETH/USDT", core.SignalSell))
	require.NoError(t, store.SetState("BTC/USDT", core.SignalNeutral))

	states, err := store.States()
	require.NoError(t, err)

	assert.Equal(t, "STATUS\nBTC/USDT: neutral\nETH/USDT: sell", formatStates(states))
	assert.Equal(t, "no pair checked yet", formatStates(nil))
}
