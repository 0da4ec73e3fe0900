package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"facerelay/internal/recognition"
	"facerelay/internal/store"
)

// Bot wires the transport to the handler chain and tracks connection
// state. Messages are dispatched concurrently; the only cross-message
// serialization is the descriptor training lock.
type Bot struct {
	transport Transport
	scopes    store.ScopeRepository
	chain     *Chain

	mu       sync.RWMutex
	ready    bool
	lastQR   string
	stopping bool
}

// New assembles the standard pipeline in its fixed priority order.
func New(transport Transport, scopes store.ScopeRepository, faces store.FaceRepository, backend recognition.Client) *Bot {
	commands := NewCommands(scopes, faces, backend)
	chain := NewChain(
		NewFaceManageHandler(commands, transport),
		NewHandshakeHandler(faces),
		NewTrainingHandler(faces, backend),
		NewForwardingHandler(faces, backend, transport),
		NewManagementHandler(scopes, transport),
	)
	return &Bot{transport: transport, scopes: scopes, chain: chain}
}

// Run connects the transport and blocks until the context is cancelled,
// the connection fails, or a handler requests a shutdown. A
// handler-initiated shutdown is a clean exit, not an error.
func (b *Bot) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := func() {
		b.mu.Lock()
		b.stopping = true
		b.mu.Unlock()
		cancel()
	}

	b.transport.OnReady(func() {
		b.mu.Lock()
		b.ready = true
		b.mu.Unlock()
		log.Printf("Bot connected and ready")
	})
	b.transport.OnQR(func(code string) {
		b.mu.Lock()
		b.lastQR = code
		b.mu.Unlock()
		log.Printf("New login QR code: %s", code)
	})
	b.transport.OnMessage(func(msg Message) {
		go b.dispatch(ctx, msg, stop)
	})

	err := b.transport.Start(ctx)
	if errors.Is(err, context.Canceled) && b.stopRequested() {
		return nil
	}
	return err
}

func (b *Bot) stopRequested() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stopping
}

func (b *Bot) dispatch(ctx context.Context, msg Message, stop func()) {
	scope, err := b.resolveScope(ctx, msg)
	if err != nil {
		log.Printf("Failed to resolve scope for message: %v", err)
		return
	}

	if err := b.chain.Handle(ctx, msg, scope); err != nil {
		if errors.Is(err, ErrStop) {
			log.Printf("Shutdown requested by handler")
			stop()
			return
		}
		log.Printf("Message handling failed: %v", err)
	}
}

// resolveScope merges the capabilities of the chat and of the sending
// contact. Chat-level capabilities (face-recognition on a source chat)
// and contact-level ones (face-owner, bot-management) both apply to a
// group message.
func (b *Bot) resolveScope(ctx context.Context, msg Message) (*store.CapabilityScope, error) {
	chatScope, err := b.scopes.Get(ctx, msg.From())
	if err != nil {
		return nil, fmt.Errorf("load chat scope: %w", err)
	}

	sender := SenderID(msg)
	if sender == msg.From() {
		return chatScope, nil
	}

	senderScope, err := b.scopes.Get(ctx, sender)
	if err != nil {
		return nil, fmt.Errorf("load sender scope: %w", err)
	}

	if chatScope == nil {
		return senderScope, nil
	}
	if senderScope == nil {
		return chatScope, nil
	}

	merged := &store.CapabilityScope{
		SourceID:     sender,
		Capabilities: append([]store.Capability(nil), chatScope.Capabilities...),
	}
	for _, c := range senderScope.Capabilities {
		if !merged.Has(c) {
			merged.Capabilities = append(merged.Capabilities, c)
		}
	}
	return merged, nil
}

// Ready reports whether the transport has finished connecting.
func (b *Bot) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready
}

// LastQR returns the most recent login QR code, empty once connected.
func (b *Bot) LastQR() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.ready {
		return ""
	}
	return b.lastQR
}
