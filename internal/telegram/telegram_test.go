package telegram

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fetchbot/internal/bot"
	"fetchbot/internal/deliver"
	"fetchbot/internal/logging"
)

type fakeAPI struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	sendErr  error
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	if f.sendErr != nil {
		return tgbotapi.Message{}, f.sendErr
	}
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestSendTextWithKeyboard(t *testing.T) {
	api := &fakeAPI{}
	tr := NewTransport(api, logging.Nop())

	ref, err := tr.SendText(context.Background(), 5, "pick", [][]bot.Button{{{Text: "🎬 Video", Data: "type_video"}}})
	if err != nil {
		t.Fatalf("SendText() error: %v", err)
	}
	if ref.ChatID != 5 || ref.MessageID != 1 {
		t.Errorf("ref = %+v", ref)
	}
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("sent %T, want MessageConfig", api.sent[0])
	}
	kb, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok || len(kb.InlineKeyboard) != 1 || *kb.InlineKeyboard[0][0].CallbackData != "type_video" {
		t.Errorf("markup = %+v", msg.ReplyMarkup)
	}
}

func TestEditIgnoresNotModified(t *testing.T) {
	api := &fakeAPI{sendErr: errors.New("Bad Request: message is not modified")}
	tr := NewTransport(api, logging.Nop())

	if err := tr.EditText(context.Background(), bot.MessageRef{ChatID: 1, MessageID: 2}, "same", nil); err != nil {
		t.Errorf("EditText() error = %v, want nil", err)
	}

	api.sendErr = errors.New("Bad Request: message to edit not found")
	if err := tr.EditText(context.Background(), bot.MessageRef{ChatID: 1, MessageID: 2}, "x", nil); err == nil {
		t.Error("EditText() should report other errors")
	}
}

func TestSendVideo(t *testing.T) {
	api := &fakeAPI{}
	tr := NewTransport(api, logging.Nop())

	err := tr.SendVideo(context.Background(), deliver.Video{ChatID: 3, URL: "https://cdn.test/a.mp4", Caption: "c", Duration: 42})
	if err != nil {
		t.Fatalf("SendVideo() error: %v", err)
	}

	action, ok := api.requests[0].(tgbotapi.ChatActionConfig)
	if !ok || action.Action != tgbotapi.ChatUploadVideo {
		t.Errorf("chat action = %+v", api.requests[0])
	}
	v, ok := api.sent[0].(tgbotapi.VideoConfig)
	if !ok {
		t.Fatalf("sent %T, want VideoConfig", api.sent[0])
	}
	if !v.SupportsStreaming || v.Duration != 42 || v.Caption != "c" {
		t.Errorf("video = %+v", v)
	}
	if _, ok := v.File.(tgbotapi.FileURL); !ok {
		t.Errorf("file = %T, want FileURL", v.File)
	}
}

func TestSendAudio(t *testing.T) {
	api := &fakeAPI{}
	tr := NewTransport(api, logging.Nop())

	if err := tr.SendAudio(context.Background(), deliver.Audio{ChatID: 3, Path: "/tmp/a.m4a", Caption: "c"}); err != nil {
		t.Fatalf("SendAudio() error: %v", err)
	}
	if action := api.requests[0].(tgbotapi.ChatActionConfig); action.Action != tgbotapi.ChatUploadVoice {
		t.Errorf("chat action = %q", action.Action)
	}
	a := api.sent[0].(tgbotapi.AudioConfig)
	if p, ok := a.File.(tgbotapi.FilePath); !ok || string(p) != "/tmp/a.m4a" {
		t.Errorf("file = %#v", a.File)
	}
}

func TestCancelledContext(t *testing.T) {
	api := &fakeAPI{}
	tr := NewTransport(api, logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := tr.SendText(ctx, 1, "x", nil); err == nil {
		t.Error("SendText() should fail on a cancelled context")
	}
	if len(api.sent) != 0 {
		t.Error("nothing should be sent after cancellation")
	}
}

func TestConvert(t *testing.T) {
	from := &tgbotapi.User{ID: 9, UserName: "neo", FirstName: "N"}
	chat := &tgbotapi.Chat{ID: 77}

	u, ok := Convert(tgbotapi.Update{Message: &tgbotapi.Message{From: from, Chat: chat, Text: "https://x.test"}})
	if !ok || u.Message == nil || u.Message.ChatID != 77 || u.Message.From.Username != "neo" {
		t.Errorf("message update = %+v, %v", u, ok)
	}

	u, ok = Convert(tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "q1",
		From:    from,
		Data:    "q_720",
		Message: &tgbotapi.Message{MessageID: 4, Chat: chat},
	}})
	if !ok || u.Callback == nil || u.Callback.Message.MessageID != 4 || u.Callback.Data != "q_720" {
		t.Errorf("callback update = %+v, %v", u, ok)
	}

	if _, ok := Convert(tgbotapi.Update{Message: &tgbotapi.Message{From: from, Chat: chat}}); ok {
		t.Error("messages without text should be dropped")
	}
	if _, ok := Convert(tgbotapi.Update{}); ok {
		t.Error("empty updates should be dropped")
	}
}
