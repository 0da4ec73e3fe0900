// Package wsbridge connects the bot to a chat-bridge service over a
// websocket. The bridge owns the actual chat session; this client
// receives event frames (qr, ready, message) and issues request frames
// with correlation ids for outbound actions.
package wsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"facerelay/internal/bot"
)

const requestTimeout = 30 * time.Second

// frame is the wire envelope in both directions.
type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Action  string          `json:"action,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
}

// Bridge implements bot.Transport over a websocket connection.
type Bridge struct {
	url   string
	token string

	conn    *websocket.Conn
	writeMu sync.Mutex

	pendingMu sync.Mutex
	pending   map[string]chan frame

	onMessage func(bot.Message)
	onReady   func()
	onQR      func(string)
}

func New(url, token string) *Bridge {
	return &Bridge{
		url:     url,
		token:   token,
		pending: make(map[string]chan frame),
	}
}

func (b *Bridge) OnMessage(fn func(bot.Message)) { b.onMessage = fn }
func (b *Bridge) OnReady(fn func())              { b.onReady = fn }
func (b *Bridge) OnQR(fn func(string))           { b.onQR = fn }

// Start dials the bridge and reads frames until the connection closes
// or the context is cancelled.
func (b *Bridge) Start(ctx context.Context) error {
	header := http.Header{}
	if b.token != "" {
		header.Set("Authorization", "Bearer "+b.token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.url, header)
	if err != nil {
		return fmt.Errorf("dial bridge: %w", err)
	}
	b.conn = conn

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			b.failPending(err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read frame: %w", err)
		}
		b.handleFrame(f)
	}
}

func (b *Bridge) handleFrame(f frame) {
	switch f.Type {
	case "qr":
		if b.onQR != nil {
			b.onQR(f.Code)
		}
	case "ready":
		if b.onReady != nil {
			b.onReady()
		}
	case "message":
		if b.onMessage == nil {
			return
		}
		var payload messagePayload
		if err := json.Unmarshal(f.Message, &payload); err != nil {
			log.Printf("Dropping malformed message frame: %v", err)
			return
		}
		b.onMessage(&message{bridge: b, payload: payload})
	case "response":
		b.pendingMu.Lock()
		ch, ok := b.pending[f.ID]
		delete(b.pending, f.ID)
		b.pendingMu.Unlock()
		if ok {
			ch <- f
		}
	default:
		log.Printf("Ignoring unknown frame type %q", f.Type)
	}
}

func (b *Bridge) failPending(err error) {
	b.pendingMu.Lock()
	defer b.pendingMu.Unlock()
	for id, ch := range b.pending {
		ch <- frame{Type: "response", ID: id, Error: err.Error()}
		delete(b.pending, id)
	}
}

// request sends an action frame and waits for the correlated response.
func (b *Bridge) request(ctx context.Context, action string, params any) (json.RawMessage, error) {
	if b.conn == nil {
		return nil, fmt.Errorf("bridge not connected")
	}

	encoded, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}

	id := uuid.NewString()
	ch := make(chan frame, 1)
	b.pendingMu.Lock()
	b.pending[id] = ch
	b.pendingMu.Unlock()

	b.writeMu.Lock()
	err = b.conn.WriteJSON(frame{Type: "request", ID: id, Action: action, Params: encoded})
	b.writeMu.Unlock()
	if err != nil {
		b.pendingMu.Lock()
		delete(b.pending, id)
		b.pendingMu.Unlock()
		return nil, fmt.Errorf("send request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		b.pendingMu.Lock()
		delete(b.pending, id)
		b.pendingMu.Unlock()
		return nil, ctx.Err()
	case resp := <-ch:
		if resp.Error != "" {
			return nil, fmt.Errorf("bridge: %s", resp.Error)
		}
		return resp.Result, nil
	}
}

func (b *Bridge) Chats(ctx context.Context) ([]bot.Chat, error) {
	result, err := b.request(ctx, "chats", struct{}{})
	if err != nil {
		return nil, err
	}
	var chats []bot.Chat
	if err := json.Unmarshal(result, &chats); err != nil {
		return nil, fmt.Errorf("unmarshal chats: %w", err)
	}
	return chats, nil
}

func (b *Bridge) ChatByID(ctx context.Context, id string) (*bot.Chat, error) {
	result, err := b.request(ctx, "chat_by_id", map[string]string{"chatId": id})
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || string(result) == "null" {
		return nil, nil
	}
	var chat bot.Chat
	if err := json.Unmarshal(result, &chat); err != nil {
		return nil, fmt.Errorf("unmarshal chat: %w", err)
	}
	return &chat, nil
}

func (b *Bridge) SendMessage(ctx context.Context, chatID, text string) error {
	_, err := b.request(ctx, "send", map[string]string{"chatId": chatID, "text": text})
	return err
}

func (b *Bridge) Destroy(ctx context.Context) error {
	_, err := b.request(ctx, "destroy", struct{}{})
	return err
}
