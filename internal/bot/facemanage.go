package bot

import (
	"context"
	"fmt"
	"strings"

	"facerelay/internal/store"
)

const faceManagePrefix = "!fmanage"

// FaceManageHandler serves the !fmanage command family: registering,
// removing and wiping face bindings from chat. Restricted to the bot
// account itself and identities with the bot-management capability.
type FaceManageHandler struct {
	commands  *Commands
	transport Transport
}

func NewFaceManageHandler(commands *Commands, transport Transport) *FaceManageHandler {
	return &FaceManageHandler{commands: commands, transport: transport}
}

func (h *FaceManageHandler) TryHandle(ctx context.Context, msg Message, scope *store.CapabilityScope) (bool, error) {
	if !strings.HasPrefix(msg.Body(), faceManagePrefix) {
		return false, nil
	}
	if !msg.FromMe() && !scope.Has(store.CapBotManagement) {
		return false, nil
	}

	fields := strings.Fields(msg.Body())
	if len(fields) < 2 {
		return true, msg.Reply(ctx, "Usage: !fmanage add|delete|delete_all")
	}

	switch fields[1] {
	case "add":
		return true, h.add(ctx, msg, fields[2:])
	case "delete":
		return true, h.delete(ctx, msg, fields[2:])
	case "delete_all":
		return true, h.deleteAll(ctx, msg)
	default:
		return true, msg.Reply(ctx, fmt.Sprintf("Unknown subcommand %q", fields[1]))
	}
}

// add registers a face against an explicit source chat. Without a
// destination argument a handshake command is sent to the owner so they
// can post it in the destination chat; with one the binding is complete
// immediately.
func (h *FaceManageHandler) add(ctx context.Context, msg Message, args []string) error {
	if len(args) < 3 || len(args) > 4 {
		return msg.Reply(ctx, "Usage: !fmanage add <number> <faceName> <sourceChatId> [destinationChatId]")
	}
	number, faceName, sourceID := args[0], args[1], args[2]
	var destinationID string
	if len(args) == 4 {
		destinationID = args[3]
	}

	face, err := h.commands.Add(ctx, number, faceName, sourceID, destinationID)
	if err != nil {
		return fmt.Errorf("add face %q: %w", faceName, err)
	}

	if face.AuthCode == "" {
		return msg.Reply(ctx, fmt.Sprintf(
			"Face %q registered and bound to the destination chat.", face.FaceName))
	}

	handshake := fmt.Sprintf("!fconnect %s %s", face.FaceName, face.AuthCode)
	if err := h.transport.SendMessage(ctx, face.OwnerID, handshake); err != nil {
		return fmt.Errorf("send handshake command: %w", err)
	}
	return msg.Reply(ctx, fmt.Sprintf(
		"Face %q registered. The owner received a handshake command to post in the destination chat.",
		face.FaceName))
}

func (h *FaceManageHandler) delete(ctx context.Context, msg Message, args []string) error {
	if len(args) < 2 {
		return msg.Reply(ctx, "Usage: !fmanage delete <number> <face name>")
	}
	ownerID := ContactID(args[0])
	faceName := strings.Join(args[1:], " ")

	if err := h.commands.Delete(ctx, ownerID, faceName); err != nil {
		return fmt.Errorf("delete face %q: %w", faceName, err)
	}
	return msg.Reply(ctx, fmt.Sprintf("Face %q deleted.", faceName))
}

func (h *FaceManageHandler) deleteAll(ctx context.Context, msg Message) error {
	if err := h.commands.DeleteAll(ctx, nil); err != nil {
		return fmt.Errorf("delete all faces: %w", err)
	}
	return msg.Reply(ctx, "All faces deleted.")
}
