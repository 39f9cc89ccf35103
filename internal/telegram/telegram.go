// Package telegram connects the bot handler to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fetchbot/internal/bot"
	"fetchbot/internal/deliver"
	"fetchbot/internal/logging"
)

// API is the subset of *tgbotapi.BotAPI used for outbound calls.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Transport implements bot.Transport over the Bot API.
type Transport struct {
	api API
	log logging.Logger
}

var _ bot.Transport = (*Transport)(nil)

// NewTransport wraps api.
func NewTransport(api API, log logging.Logger) *Transport {
	return &Transport{api: api, log: log.With().Str("component", "telegram").Logger()}
}

// SendText posts text with an optional inline keyboard.
func (t *Transport) SendText(ctx context.Context, chatID int64, text string, keyboard [][]bot.Button) (bot.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return bot.MessageRef{}, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = markup(keyboard)
	}
	sent, err := t.api.Send(msg)
	if err != nil {
		return bot.MessageRef{}, fmt.Errorf("sending message: %w", err)
	}
	return bot.MessageRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

// EditText replaces the text and keyboard of ref.
func (t *Transport) EditText(ctx context.Context, ref bot.MessageRef, text string, keyboard [][]bot.Button) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	if keyboard != nil {
		m := markup(keyboard)
		edit.ReplyMarkup = &m
	}
	if _, err := t.api.Send(edit); err != nil && !notModified(err) {
		return fmt.Errorf("editing message %d: %w", ref.MessageID, err)
	}
	return nil
}

// AnswerCallback acknowledges a button press, optionally as an alert.
func (t *Transport) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := tgbotapi.NewCallback(callbackID, text)
	if alert {
		cfg = tgbotapi.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := t.api.Request(cfg); err != nil {
		return fmt.Errorf("answering callback: %w", err)
	}
	return nil
}

// SendVideo uploads a local file or hands a remote URL to Telegram, with
// the streaming hint set.
func (t *Transport) SendVideo(ctx context.Context, v deliver.Video) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.chatAction(v.ChatID, tgbotapi.ChatUploadVideo)

	var file tgbotapi.RequestFileData = tgbotapi.FilePath(v.Path)
	if v.URL != "" {
		file = tgbotapi.FileURL(v.URL)
	}
	cfg := tgbotapi.NewVideo(v.ChatID, file)
	cfg.Caption = v.Caption
	cfg.Duration = v.Duration
	cfg.SupportsStreaming = true

	if _, err := t.api.Send(cfg); err != nil {
		return fmt.Errorf("sending video: %w", err)
	}
	return nil
}

// SendAudio uploads a local audio file.
func (t *Transport) SendAudio(ctx context.Context, a deliver.Audio) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.chatAction(a.ChatID, tgbotapi.ChatUploadVoice)

	cfg := tgbotapi.NewAudio(a.ChatID, tgbotapi.FilePath(a.Path))
	cfg.Caption = a.Caption
	if _, err := t.api.Send(cfg); err != nil {
		return fmt.Errorf("sending audio: %w", err)
	}
	return nil
}

// Progress posts a status line, ignoring failures.
func (t *Transport) Progress(ctx context.Context, chatID int64, text string) {
	if _, err := t.SendText(ctx, chatID, text, nil); err != nil {
		t.log.Debug().Err(err).Msg("progress message")
	}
}

func (t *Transport) chatAction(chatID int64, action string) {
	if _, err := t.api.Request(tgbotapi.NewChatAction(chatID, action)); err != nil {
		t.log.Debug().Err(err).Str("action", action).Msg("chat action")
	}
}

func markup(keyboard [][]bot.Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(keyboard))
	for _, r := range keyboard {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// notModified reports Telegram's refusal to apply an edit that changes nothing.
func notModified(err error) bool {
	return strings.Contains(err.Error(), "message is not modified")
}
