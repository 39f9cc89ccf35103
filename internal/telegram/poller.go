package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fetchbot/internal/bot"
	"fetchbot/internal/logging"
)

// Dispatcher receives converted updates.
type Dispatcher interface {
	Dispatch(ctx context.Context, u bot.Update)
}

// Poller long-polls the Bot API and dispatches updates.
type Poller struct {
	api     *tgbotapi.BotAPI
	timeout int
	log     logging.Logger
}

// Connect authenticates with token and returns the API client.
func Connect(token string, debug bool) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connecting to telegram: %w", err)
	}
	api.Debug = debug
	return api, nil
}

// NewPoller creates a poller using a long-poll timeout in seconds.
func NewPoller(api *tgbotapi.BotAPI, timeout int, log logging.Logger) *Poller {
	return &Poller{api: api, timeout: timeout, log: log.With().Str("component", "poller").Logger()}
}

// Run dispatches updates until ctx is cancelled.
func (p *Poller) Run(ctx context.Context, d Dispatcher) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = p.timeout
	cfg.AllowedUpdates = []string{"message", "callback_query"}

	updates := p.api.GetUpdatesChan(cfg)
	defer p.api.StopReceivingUpdates()

	p.log.Info().Str("bot", p.api.Self.UserName).Msg("polling for updates")
	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if ev, ok := Convert(u); ok {
				d.Dispatch(ctx, ev)
			}
		}
	}
}

// Convert maps a Bot API update onto a handler event. Updates other than
// text messages and callback queries are dropped.
func Convert(u tgbotapi.Update) (bot.Update, bool) {
	switch {
	case u.Message != nil && u.Message.From != nil && u.Message.Chat != nil && u.Message.Text != "":
		m := u.Message
		return bot.Update{Message: &bot.Message{
			ChatID: m.Chat.ID,
			From:   user(m.From),
			Text:   m.Text,
		}}, true
	case u.CallbackQuery != nil && u.CallbackQuery.From != nil:
		q := u.CallbackQuery
		cb := &bot.Callback{ID: q.ID, From: user(q.From), Data: q.Data}
		if q.Message != nil && q.Message.Chat != nil {
			cb.Message = bot.MessageRef{ChatID: q.Message.Chat.ID, MessageID: q.Message.MessageID}
		} else {
			cb.Message = bot.MessageRef{ChatID: q.From.ID}
		}
		return bot.Update{Callback: cb}, true
	default:
		return bot.Update{}, false
	}
}

func user(u *tgbotapi.User) bot.User {
	return bot.User{ID: u.ID, Username: u.UserName, FirstName: u.FirstName, LastName: u.LastName}
}
