// Package bot implements the message-handling pipeline: a prioritized
// handler chain over a chat transport, with command handlers for face
// management, the destination handshake, training, forwarding and bot
// administration.
package bot

import (
	"context"
	"errors"
	"strings"
)

// ErrStop is returned by a handler to request a graceful shutdown of
// the whole bot.
var ErrStop = errors.New("bot: stop requested")

// Transport is the chat connection the bot runs on. Implemented by the
// websocket bridge; tests substitute a fake.
type Transport interface {
	OnMessage(fn func(Message))
	OnReady(fn func())
	OnQR(fn func(code string))
	// Start connects and blocks until the context is cancelled or the
	// connection fails.
	Start(ctx context.Context) error
	Chats(ctx context.Context) ([]Chat, error)
	// ChatByID returns nil, nil when no such chat exists.
	ChatByID(ctx context.Context, id string) (*Chat, error)
	SendMessage(ctx context.Context, chatID, text string) error
	Destroy(ctx context.Context) error
}

// Message is one inbound chat message.
type Message interface {
	// From is the chat the message arrived in.
	From() string
	// Author is the sending contact inside a group chat; empty for
	// direct messages.
	Author() string
	Body() string
	FromMe() bool
	HasMedia() bool
	DownloadMedia(ctx context.Context) (*Media, error)
	Reply(ctx context.Context, text string) error
	Forward(ctx context.Context, chatID string) error
}

// Media is a downloaded message attachment.
type Media struct {
	MimeType string
	Data     []byte
}

// IsImage reports whether the attachment is a still image.
func (m *Media) IsImage() bool {
	return m != nil && strings.HasPrefix(m.MimeType, "image/")
}

// Chat is a conversation known to the transport.
type Chat struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsGroup bool   `json:"isGroup"`
}

// SenderID identifies who sent the message: the author inside a group
// chat, otherwise the chat itself.
func SenderID(msg Message) string {
	if author := msg.Author(); author != "" {
		return author
	}
	return msg.From()
}

// ContactID derives the transport contact id for a phone number.
func ContactID(number string) string {
	return number + "@c.us"
}
