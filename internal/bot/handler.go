package bot

import (
	"context"

	"facerelay/internal/store"
)

// Handler is one stage of the message pipeline. TryHandle reports
// whether it claimed the message; a claimed message stops the chain.
type Handler interface {
	TryHandle(ctx context.Context, msg Message, scope *store.CapabilityScope) (bool, error)
}

// Chain runs handlers in fixed priority order until one claims the
// message. Unclaimed messages are dropped.
type Chain struct {
	handlers []Handler
}

func NewChain(handlers ...Handler) *Chain {
	return &Chain{handlers: handlers}
}

func (c *Chain) Handle(ctx context.Context, msg Message, scope *store.CapabilityScope) error {
	for _, h := range c.handlers {
		handled, err := h.TryHandle(ctx, msg, scope)
		if err != nil {
			return err
		}
		if handled {
			return nil
		}
	}
	return nil
}
