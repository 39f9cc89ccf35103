// Package bot implements the chat dialogue: admission, resolution, the
// type and quality choices, delivery and the admin commands.
package bot

import (
	"context"

	"fetchbot/internal/deliver"
)

// User is the sender of an inbound event.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// MessageRef identifies a sent message so it can be edited.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Message is an inbound text message.
type Message struct {
	ChatID int64
	From   User
	Text   string
}

// Callback is an inbound button press.
type Callback struct {
	ID      string
	From    User
	Message MessageRef // Message carrying the pressed button
	Data    string
}

// Update is one inbound event; exactly one field is set.
type Update struct {
	Message  *Message
	Callback *Callback
}

// Button is an inline keyboard button carrying an opaque token.
type Button struct {
	Text string
	Data string
}

// Transport is the chat transport used by the handler.
type Transport interface {
	deliver.Transport
	// SendText posts text with an optional inline keyboard.
	SendText(ctx context.Context, chatID int64, text string, keyboard [][]Button) (MessageRef, error)
	// EditText replaces the text of ref. A nil keyboard removes the buttons.
	EditText(ctx context.Context, ref MessageRef, text string, keyboard [][]Button) error
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
}
