package bot

import (
	"context"
	"fmt"
	"sync"
)

// fakeMessage implements Message for handler tests.
type fakeMessage struct {
	from     string
	author   string
	body     string
	fromMe   bool
	media    *Media
	mediaErr error

	replies  []string
	forwards []string
	replyErr error
}

func (m *fakeMessage) From() string   { return m.from }
func (m *fakeMessage) Author() string { return m.author }
func (m *fakeMessage) Body() string   { return m.body }
func (m *fakeMessage) FromMe() bool   { return m.fromMe }
func (m *fakeMessage) HasMedia() bool { return m.media != nil || m.mediaErr != nil }

func (m *fakeMessage) DownloadMedia(ctx context.Context) (*Media, error) {
	return m.media, m.mediaErr
}

func (m *fakeMessage) Reply(ctx context.Context, text string) error {
	if m.replyErr != nil {
		return m.replyErr
	}
	m.replies = append(m.replies, text)
	return nil
}

func (m *fakeMessage) Forward(ctx context.Context, chatID string) error {
	m.forwards = append(m.forwards, chatID)
	return nil
}

type sentMessage struct {
	chatID string
	text   string
}

// fakeTransport implements Transport for handler tests.
type fakeTransport struct {
	mu        sync.Mutex
	sent      []sentMessage
	chats     []Chat
	destroyed bool

	onMessage func(Message)
	onReady   func()
	onQR      func(string)
	startErr  error
	started   chan struct{}
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{started: make(chan struct{})}
}

func (t *fakeTransport) OnMessage(fn func(Message)) { t.onMessage = fn }
func (t *fakeTransport) OnReady(fn func())          { t.onReady = fn }
func (t *fakeTransport) OnQR(fn func(string))       { t.onQR = fn }

func (t *fakeTransport) Start(ctx context.Context) error {
	close(t.started)
	if t.startErr != nil {
		return t.startErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func (t *fakeTransport) Chats(ctx context.Context) ([]Chat, error) {
	return t.chats, nil
}

func (t *fakeTransport) ChatByID(ctx context.Context, id string) (*Chat, error) {
	for _, chat := range t.chats {
		if chat.ID == id {
			copied := chat
			return &copied, nil
		}
	}
	return nil, nil
}

func (t *fakeTransport) SendMessage(ctx context.Context, chatID, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

func (t *fakeTransport) Destroy(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.destroyed = true
	return nil
}

type trainCall struct {
	groupID string
	faceID  string
}

// fakeBackend implements recognition.Client for handler tests.
type fakeBackend struct {
	mu            sync.Mutex
	groups        []string
	faceCounter   int
	trained       []trainCall
	trainOK       bool
	trainErr      error
	detectIDs     []string
	detectErr     error
	deletedFaces  []trainCall
	deletedGroups []string
	deletedAll    bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{trainOK: true}
}

func (b *fakeBackend) CreateGroupIfAbsent(ctx context.Context, groupID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.groups = append(b.groups, groupID)
	return nil
}

func (b *fakeBackend) CreateFace(ctx context.Context, groupID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faceCounter++
	return fmt.Sprintf("face-%d", b.faceCounter), nil
}

func (b *fakeBackend) Train(ctx context.Context, groupID, faceID string, image []byte) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.trainErr != nil {
		return false, b.trainErr
	}
	if b.trainOK {
		b.trained = append(b.trained, trainCall{groupID: groupID, faceID: faceID})
	}
	return b.trainOK, nil
}

func (b *fakeBackend) Detect(ctx context.Context, image []byte, groupID string) ([]string, error) {
	return b.detectIDs, b.detectErr
}

func (b *fakeBackend) DeleteFace(ctx context.Context, groupID, faceID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletedFaces = append(b.deletedFaces, trainCall{groupID: groupID, faceID: faceID})
	return nil
}

func (b *fakeBackend) DeleteGroup(ctx context.Context, groupID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletedGroups = append(b.deletedGroups, groupID)
	return nil
}

func (b *fakeBackend) DeleteAll(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deletedAll = true
	return nil
}
