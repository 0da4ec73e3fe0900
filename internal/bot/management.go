package bot

import (
	"context"
	"fmt"
	"strings"

	"facerelay/internal/store"
)

// ManagementHandler serves bot administration commands. Restricted to
// the bot account itself and identities with the bot-management
// capability.
type ManagementHandler struct {
	scopes    store.ScopeRepository
	transport Transport
}

func NewManagementHandler(scopes store.ScopeRepository, transport Transport) *ManagementHandler {
	return &ManagementHandler{scopes: scopes, transport: transport}
}

func (h *ManagementHandler) TryHandle(ctx context.Context, msg Message, scope *store.CapabilityScope) (bool, error) {
	if !msg.FromMe() && !scope.Has(store.CapBotManagement) {
		return false, nil
	}

	fields := strings.Fields(msg.Body())
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "!ping":
		return true, msg.Reply(ctx, "pong")
	case "!kill":
		if err := msg.Reply(ctx, "Shutting down."); err != nil {
			return true, err
		}
		if err := h.transport.Destroy(ctx); err != nil {
			return true, fmt.Errorf("destroy transport: %w", err)
		}
		return true, ErrStop
	case "!searchchat":
		return true, h.searchChat(ctx, msg, strings.Join(fields[1:], " "))
	case "!addmanager":
		if len(fields) < 2 {
			return true, msg.Reply(ctx, "Usage: !addmanager <number>")
		}
		return true, h.addManager(ctx, msg, fields[1])
	}
	return false, nil
}

func (h *ManagementHandler) searchChat(ctx context.Context, msg Message, query string) error {
	chats, err := h.transport.Chats(ctx)
	if err != nil {
		return fmt.Errorf("list chats: %w", err)
	}

	needle := strings.ToLower(query)
	var lines []string
	for _, chat := range chats {
		if strings.Contains(strings.ToLower(chat.Name), needle) ||
			strings.Contains(strings.ToLower(chat.ID), needle) {
			lines = append(lines, fmt.Sprintf("%s (%s)", chat.Name, chat.ID))
		}
	}
	if len(lines) == 0 {
		return msg.Reply(ctx, "No chats found.")
	}
	return msg.Reply(ctx, strings.Join(lines, "\n"))
}

func (h *ManagementHandler) addManager(ctx context.Context, msg Message, number string) error {
	contactID := ContactID(number)
	if err := store.EnsureCapability(ctx, h.scopes, contactID, store.CapBotManagement); err != nil {
		return fmt.Errorf("grant management capability: %w", err)
	}
	return msg.Reply(ctx, fmt.Sprintf("%s is now a bot manager.", contactID))
}
