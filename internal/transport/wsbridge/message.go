package wsbridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"facerelay/internal/bot"
)

type messagePayload struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	Author   string `json:"author"`
	Body     string `json:"body"`
	FromMe   bool   `json:"fromMe"`
	HasMedia bool   `json:"hasMedia"`
}

// message adapts a bridge message frame to bot.Message. Reply, forward
// and media download go back through the bridge, addressed by the
// message id.
type message struct {
	bridge  *Bridge
	payload messagePayload
}

func (m *message) From() string   { return m.payload.From }
func (m *message) Author() string { return m.payload.Author }
func (m *message) Body() string   { return m.payload.Body }
func (m *message) FromMe() bool   { return m.payload.FromMe }
func (m *message) HasMedia() bool { return m.payload.HasMedia }

func (m *message) DownloadMedia(ctx context.Context) (*bot.Media, error) {
	result, err := m.bridge.request(ctx, "download_media", map[string]string{"messageId": m.payload.ID})
	if err != nil {
		return nil, err
	}

	var media struct {
		MimeType string `json:"mimetype"`
		Data     string `json:"data"` // base64
	}
	if err := json.Unmarshal(result, &media); err != nil {
		return nil, fmt.Errorf("unmarshal media: %w", err)
	}
	data, err := base64.StdEncoding.DecodeString(media.Data)
	if err != nil {
		return nil, fmt.Errorf("decode media data: %w", err)
	}
	return &bot.Media{MimeType: media.MimeType, Data: data}, nil
}

func (m *message) Reply(ctx context.Context, text string) error {
	_, err := m.bridge.request(ctx, "reply", map[string]string{
		"messageId": m.payload.ID,
		"text":      text,
	})
	return err
}

func (m *message) Forward(ctx context.Context, chatID string) error {
	_, err := m.bridge.request(ctx, "forward", map[string]string{
		"messageId": m.payload.ID,
		"chatId":    chatID,
	})
	return err
}
