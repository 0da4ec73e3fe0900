package handlers

import (
	"context"

	"facerelay/internal/bot"
	"facerelay/internal/recognition"
	"facerelay/internal/store"
	"facerelay/internal/store/mock"
)

// nopBackend is a recognition.Client that succeeds without doing
// anything; handler tests only care about the stores.
type nopBackend struct {
	faceCounter int
}

func (b *nopBackend) CreateGroupIfAbsent(ctx context.Context, groupID string) error { return nil }

func (b *nopBackend) CreateFace(ctx context.Context, groupID string) (string, error) {
	b.faceCounter++
	return "face-" + string(rune('0'+b.faceCounter)), nil
}

func (b *nopBackend) Train(ctx context.Context, groupID, faceID string, image []byte) (bool, error) {
	return true, nil
}

func (b *nopBackend) Detect(ctx context.Context, image []byte, groupID string) ([]string, error) {
	return nil, nil
}

func (b *nopBackend) DeleteFace(ctx context.Context, groupID, faceID string) error { return nil }
func (b *nopBackend) DeleteGroup(ctx context.Context, groupID string) error        { return nil }
func (b *nopBackend) DeleteAll(ctx context.Context) error                          { return nil }

var _ recognition.Client = (*nopBackend)(nil)

// stubTransport serves canned chats; handler tests never start it.
type stubTransport struct {
	chats    []bot.Chat
	chatsErr error
}

func (t *stubTransport) OnMessage(fn func(bot.Message)) {}
func (t *stubTransport) OnReady(fn func())              {}
func (t *stubTransport) OnQR(fn func(string))           {}

func (t *stubTransport) Start(ctx context.Context) error { return nil }

func (t *stubTransport) Chats(ctx context.Context) ([]bot.Chat, error) {
	return t.chats, t.chatsErr
}

func (t *stubTransport) ChatByID(ctx context.Context, id string) (*bot.Chat, error) {
	for _, chat := range t.chats {
		if chat.ID == id {
			copied := chat
			return &copied, nil
		}
	}
	return nil, nil
}

func (t *stubTransport) SendMessage(ctx context.Context, chatID, text string) error { return nil }
func (t *stubTransport) Destroy(ctx context.Context) error                          { return nil }

type fixture struct {
	scopes    *mock.ScopeRepository
	faces     *mock.FaceRepository
	commands  *bot.Commands
	transport *stubTransport
}

func newFixture() *fixture {
	scopes := mock.NewScopeRepository()
	faces := mock.NewFaceRepository()
	return &fixture{
		scopes:    scopes,
		faces:     faces,
		commands:  bot.NewCommands(scopes, faces, &nopBackend{}),
		transport: &stubTransport{},
	}
}

// seedFace inserts a bound face directly into the store.
func (f *fixture) seedFace(ownerID, faceName, sourceID, destinationID string) {
	f.faces.Add(context.Background(), &store.RecognizedFace{
		OwnerID:       ownerID,
		FaceName:      faceName,
		SourceID:      sourceID,
		DestinationID: destinationID,
		FaceID:        "face-" + faceName,
	})
}
