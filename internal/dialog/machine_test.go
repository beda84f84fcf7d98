package dialog

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/akorchev/gptbot/internal/credentials"
)

const testEncryptionKey = "0123456789abcdef0123456789abcdef"

type stubConversation struct {
	reply  string
	askErr error
	asked  []string
	closed bool
}

func (c *stubConversation) Ask(_ context.Context, message string) (string, error) {
	c.asked = append(c.asked, message)
	if c.askErr != nil {
		return "", c.askErr
	}
	return c.reply, nil
}

func (c *stubConversation) Close() { c.closed = true }

type stubAssistant struct {
	askReply string
	askErr   error
	asked    []string

	conv    *stubConversation
	openErr error
	role    string

	images      []string
	imagesErr   error
	imagePrompt string
	imageCount  int
	imageSize   string

	transcript    string
	transcribeErr error
	transcribed   int
}

func (a *stubAssistant) Ask(_ context.Context, _, prompt string) (string, error) {
	a.asked = append(a.asked, prompt)
	if a.askErr != nil {
		return "", a.askErr
	}
	return a.askReply, nil
}

func (a *stubAssistant) OpenConversation(_ context.Context, _, role string) (Conversation, error) {
	a.role = role
	if a.openErr != nil {
		return nil, a.openErr
	}
	return a.conv, nil
}

func (a *stubAssistant) GenerateImages(_ context.Context, _, prompt string, count int, size string) ([]string, error) {
	a.imagePrompt, a.imageCount, a.imageSize = prompt, count, size
	return a.images, a.imagesErr
}

func (a *stubAssistant) Transcribe(_ context.Context, _ string, _ io.Reader, _ string) (string, error) {
	a.transcribed++
	if a.transcribeErr != nil {
		return "", a.transcribeErr
	}
	return a.transcript, nil
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, int64) (string, bool, error) {
	return "", false, credentials.ErrUnavailable
}

func (brokenStore) Put(context.Context, int64, string) error {
	return credentials.ErrUnavailable
}

func newMemoryStore(t *testing.T) *credentials.Memory {
	t.Helper()
	cipher, err := credentials.NewCipher(testEncryptionKey)
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	store, err := credentials.NewMemory(cipher)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return store
}

// step runs one text event and checks the conversation-handle invariant.
func step(t *testing.T, m *Machine, sess *Session, text string) Reply {
	t.Helper()
	reply := m.Handle(context.Background(), sess, TextEvent(text))
	checkInvariant(t, sess)
	return reply
}

func checkInvariant(t *testing.T, sess *Session) {
	t.Helper()
	if (sess.State() == StateHavingConversation) != sess.HasConversation() {
		t.Fatalf("invariant broken: state=%s hasConversation=%v", sess.State(), sess.HasConversation())
	}
}

func TestOnboardingStoresKey(t *testing.T) {
	store := newMemoryStore(t)
	ai := &stubAssistant{}
	m := NewMachine(store, ai)
	sess := newSession(100)

	reply := m.Handle(context.Background(), sess, Event{Kind: KindStart})
	if reply.Menu != MenuSetup {
		t.Fatalf("expected setup menu for a new user, got %v", reply.Menu)
	}
	if !strings.Contains(reply.Text, msgAPIKeyRequest) {
		t.Fatalf("expected key request, got %q", reply.Text)
	}

	reply = step(t, m, sess, LabelSetKey)
	if sess.State() != StateProvidingAPIKey {
		t.Fatalf("state = %s", sess.State())
	}
	if reply.Menu != MenuCancel {
		t.Fatalf("expected cancel menu, got %v", reply.Menu)
	}

	reply = step(t, m, sess, "sk-test-123")
	if reply.Text != msgAPIKeySaved || reply.Menu != MenuMain {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if sess.State() != StateMain {
		t.Fatalf("state = %s", sess.State())
	}
	secret, ok, err := store.Get(context.Background(), 100)
	if err != nil || !ok || secret != "sk-test-123" {
		t.Fatalf("stored secret = %q ok=%v err=%v", secret, ok, err)
	}
}

func TestStoreFailureKeepsKeyState(t *testing.T) {
	m := NewMachine(brokenStore{}, &stubAssistant{})
	sess := newSession(100)
	sess.state = StateProvidingAPIKey

	reply := step(t, m, sess, "sk-test-123")
	if reply.Text != msgWentWrong {
		t.Fatalf("reply = %q", reply.Text)
	}
	if sess.State() != StateProvidingAPIKey {
		t.Fatalf("state advanced despite store failure: %s", sess.State())
	}
}

func TestStoreOutageIsNotMissingKey(t *testing.T) {
	m := NewMachine(brokenStore{}, &stubAssistant{})
	sess := newSession(100)

	reply := step(t, m, sess, "hello")
	if reply.Text != msgWentWrong {
		t.Fatalf("outage must read as a generic failure, got %q", reply.Text)
	}
	if reply.Text == msgAPIKeyRequest {
		t.Fatal("outage must not be reported as a missing key")
	}
}

func TestMissingKeyPromptsSetup(t *testing.T) {
	m := NewMachine(newMemoryStore(t), &stubAssistant{})
	sess := newSession(100)

	reply := step(t, m, sess, LabelStartChat)
	if reply.Text != msgAPIKeyRequest || reply.Menu != MenuSetup {
		t.Fatalf("unexpected reply %+v", reply)
	}
	if sess.State() != StateMain {
		t.Fatalf("state = %s", sess.State())
	}
}

func TestConversationLifecycle(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	conv := &stubConversation{reply: "sure"}
	ai := &stubAssistant{conv: conv}
	m := NewMachine(store, ai)
	sess := newSession(100)

	step(t, m, sess, LabelStartChat)
	if sess.State() != StateSelectingAssistantRole {
		t.Fatalf("state = %s", sess.State())
	}

	reply := step(t, m, sess, "a pirate")
	if sess.State() != StateHavingConversation {
		t.Fatalf("state = %s", sess.State())
	}
	if ai.role != "a pirate" {
		t.Fatalf("role = %q", ai.role)
	}
	if reply.Menu != MenuConversation {
		t.Fatalf("menu = %v", reply.Menu)
	}

	reply = step(t, m, sess, "tell me a story")
	if reply.Text != "sure" {
		t.Fatalf("reply = %q", reply.Text)
	}
	if len(conv.asked) != 1 || conv.asked[0] != "tell me a story" {
		t.Fatalf("relayed %v", conv.asked)
	}

	reply = step(t, m, sess, LabelEndChat)
	if sess.State() != StateMain {
		t.Fatalf("state = %s", sess.State())
	}
	if !conv.closed {
		t.Fatal("conversation not closed")
	}
	if reply.Text != msgConversationDone {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestConversationAskFailureRetainsHandle(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	conv := &stubConversation{askErr: errors.New("rate limited")}
	m := NewMachine(store, &stubAssistant{conv: conv})
	sess := newSession(100)
	step(t, m, sess, LabelStartChat)
	step(t, m, sess, "a pirate")

	reply := step(t, m, sess, "hello?")
	if reply.Text != msgWentWrong {
		t.Fatalf("reply = %q", reply.Text)
	}
	if sess.State() != StateHavingConversation || !sess.HasConversation() {
		t.Fatal("failed turn must leave the conversation open")
	}
	if conv.closed {
		t.Fatal("conversation must survive a failed turn")
	}
}

func TestOpenConversationFailureKeepsRoleState(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	m := NewMachine(store, &stubAssistant{openErr: errors.New("boom")})
	sess := newSession(100)
	step(t, m, sess, LabelStartChat)

	reply := step(t, m, sess, "a pirate")
	if reply.Text != msgWentWrong {
		t.Fatalf("reply = %q", reply.Text)
	}
	if sess.State() != StateSelectingAssistantRole {
		t.Fatalf("state = %s", sess.State())
	}
}

func TestImageGenerationFlow(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	ai := &stubAssistant{images: []string{"https://img/1", "https://img/2"}}
	m := NewMachine(store, ai)
	sess := newSession(100)

	step(t, m, sess, LabelGenerateImage)
	if sess.State() != StateProvidingImagesDescription {
		t.Fatalf("state = %s", sess.State())
	}
	step(t, m, sess, "a red bicycle")
	if sess.State() != StateSelectingImagesCount {
		t.Fatalf("state = %s", sess.State())
	}
	reply := step(t, m, sess, "2")
	if sess.State() != StateSelectingImagesSize || reply.Menu != MenuSizes {
		t.Fatalf("state = %s menu = %v", sess.State(), reply.Menu)
	}

	reply = step(t, m, sess, "medium")
	if ai.imagePrompt != "a red bicycle" || ai.imageCount != 2 || ai.imageSize != "512x512" {
		t.Fatalf("collaborator call = %q %d %q", ai.imagePrompt, ai.imageCount, ai.imageSize)
	}
	if len(reply.ImageURLs) != 2 {
		t.Fatalf("image urls = %v", reply.ImageURLs)
	}
	if sess.State() != StateMain {
		t.Fatalf("state = %s", sess.State())
	}
	if sess.PendingImage() != (ImageRequest{}) {
		t.Fatalf("pending form not cleared: %+v", sess.PendingImage())
	}
}

func TestImageGenerationFailure(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	for name, ai := range map[string]*stubAssistant{
		"error": {imagesErr: errors.New("bad prompt")},
		"empty": {images: nil},
	} {
		t.Run(name, func(t *testing.T) {
			m := NewMachine(store, ai)
			sess := newSession(100)
			step(t, m, sess, LabelGenerateImage)
			step(t, m, sess, "something unsafe")
			step(t, m, sess, "1")

			reply := step(t, m, sess, "small")
			if reply.Text != msgImagesFailed {
				t.Fatalf("reply = %q", reply.Text)
			}
			if sess.State() != StateMain {
				t.Fatalf("state = %s", sess.State())
			}
			if sess.PendingImage() != (ImageRequest{}) {
				t.Fatalf("pending form not cleared: %+v", sess.PendingImage())
			}
		})
	}
}

func TestMalformedCountFallsThroughToFreeText(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	ai := &stubAssistant{askReply: "seven is a lot"}
	m := NewMachine(store, ai)
	sess := newSession(100)
	step(t, m, sess, LabelGenerateImage)
	step(t, m, sess, "a red bicycle")

	reply := step(t, m, sess, "7")
	if sess.State() != StateMain {
		t.Fatalf("state = %s", sess.State())
	}
	if sess.PendingImage() != (ImageRequest{}) {
		t.Fatalf("pending form not cleared: %+v", sess.PendingImage())
	}
	if len(ai.asked) != 1 || ai.asked[0] != "7" {
		t.Fatalf("free-text handling not applied: %v", ai.asked)
	}
	if reply.Text != "seven is a lot" {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestMalformedCountMenuLabelStillWorks(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	conv := &stubConversation{}
	m := NewMachine(store, &stubAssistant{conv: conv})
	sess := newSession(100)
	step(t, m, sess, LabelGenerateImage)
	step(t, m, sess, "a red bicycle")

	// A menu press instead of a count abandons the form and acts normally.
	step(t, m, sess, LabelStartChat)
	if sess.State() != StateSelectingAssistantRole {
		t.Fatalf("state = %s", sess.State())
	}
	if sess.PendingImage() != (ImageRequest{}) {
		t.Fatalf("pending form not cleared: %+v", sess.PendingImage())
	}
}

func TestEndChatOutsideConversationIsFreeText(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	ai := &stubAssistant{askReply: "ok"}
	m := NewMachine(store, ai)
	sess := newSession(100)

	reply := step(t, m, sess, LabelEndChat)
	if sess.State() != StateMain {
		t.Fatalf("state = %s", sess.State())
	}
	if len(ai.asked) != 1 || ai.asked[0] != LabelEndChat {
		t.Fatalf("expected ordinary completion, got %v", ai.asked)
	}
	if reply.Text != "ok" {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestCancelClearsEverything(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	conv := &stubConversation{}
	m := NewMachine(store, &stubAssistant{conv: conv})
	sess := newSession(100)
	step(t, m, sess, LabelStartChat)
	step(t, m, sess, "a pirate")

	reply := step(t, m, sess, LabelCancel)
	if sess.State() != StateMain {
		t.Fatalf("state = %s", sess.State())
	}
	if !conv.closed {
		t.Fatal("conversation not closed on cancel")
	}
	if reply.Text != msgCancelled || reply.Menu != MenuMain {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestVoiceChainedDispatch(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	ai := &stubAssistant{transcript: "what is the capital of France", askReply: "Paris"}
	m := NewMachine(store, ai)
	sess := newSession(100)

	reply := m.Handle(context.Background(), sess, Event{Kind: KindVoice, Media: strings.NewReader("ogg"), MediaName: "note.ogg"})
	checkInvariant(t, sess)
	if ai.transcribed != 1 {
		t.Fatalf("transcribed %d times", ai.transcribed)
	}
	if len(ai.asked) != 1 || ai.asked[0] != "what is the capital of France" {
		t.Fatalf("transcript not re-dispatched: %v", ai.asked)
	}
	if reply.Text != "Paris" {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestVoiceInConversationGoesToAssistant(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	conv := &stubConversation{reply: "aye"}
	ai := &stubAssistant{conv: conv, transcript: "tell me more"}
	m := NewMachine(store, ai)
	sess := newSession(100)
	step(t, m, sess, LabelStartChat)
	step(t, m, sess, "a pirate")

	reply := m.Handle(context.Background(), sess, Event{Kind: KindVoice, Media: strings.NewReader("ogg"), MediaName: "note.ogg"})
	checkInvariant(t, sess)
	if len(conv.asked) != 1 || conv.asked[0] != "tell me more" {
		t.Fatalf("transcript not relayed to conversation: %v", conv.asked)
	}
	if reply.Text != "aye" {
		t.Fatalf("reply = %q", reply.Text)
	}
}

func TestVoiceInFormStateAsksForText(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	ai := &stubAssistant{transcript: "unused"}
	m := NewMachine(store, ai)
	sess := newSession(100)
	step(t, m, sess, LabelSetKey)

	reply := m.Handle(context.Background(), sess, Event{Kind: KindVoice, Media: strings.NewReader("ogg"), MediaName: "note.ogg"})
	checkInvariant(t, sess)
	if reply.Text != msgTextExpected {
		t.Fatalf("reply = %q", reply.Text)
	}
	if sess.State() != StateProvidingAPIKey {
		t.Fatalf("state = %s", sess.State())
	}
	if ai.transcribed != 0 {
		t.Fatal("voice must not be transcribed in a form state")
	}
}

func TestMediaTranscription(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	ai := &stubAssistant{transcript: "meeting notes"}
	m := NewMachine(store, ai)
	sess := newSession(100)
	step(t, m, sess, LabelTranscript)
	if sess.State() != StateProvidingMediaFile {
		t.Fatalf("state = %s", sess.State())
	}

	reply := m.Handle(context.Background(), sess, Event{Kind: KindMedia, Media: strings.NewReader("mp3"), MediaName: "memo.mp3"})
	checkInvariant(t, sess)
	if reply.Text != "meeting notes" {
		t.Fatalf("reply = %q", reply.Text)
	}
	if sess.State() != StateMain {
		t.Fatalf("state = %s", sess.State())
	}
}

func TestMediaTranscriptionFailureAllowsRetry(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	m := NewMachine(store, &stubAssistant{transcribeErr: errors.New("unsupported codec")})
	sess := newSession(100)
	step(t, m, sess, LabelTranscript)

	reply := m.Handle(context.Background(), sess, Event{Kind: KindMedia, Media: strings.NewReader("bin"), MediaName: "memo.bin"})
	checkInvariant(t, sess)
	if reply.Text != msgWentWrong {
		t.Fatalf("reply = %q", reply.Text)
	}
	if sess.State() != StateProvidingMediaFile {
		t.Fatalf("state = %s", sess.State())
	}
}

func TestStartResetsMidFlow(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	conv := &stubConversation{}
	m := NewMachine(store, &stubAssistant{conv: conv})
	sess := newSession(100)
	step(t, m, sess, LabelStartChat)
	step(t, m, sess, "a pirate")

	reply := m.Handle(context.Background(), sess, Event{Kind: KindStart})
	checkInvariant(t, sess)
	if sess.State() != StateMain {
		t.Fatalf("state = %s", sess.State())
	}
	if !conv.closed {
		t.Fatal("conversation not closed on /start")
	}
	if reply.Menu != MenuMain {
		t.Fatalf("menu = %v", reply.Menu)
	}
}

func TestSecretCachedAfterFirstResolve(t *testing.T) {
	store := newMemoryStore(t)
	if err := store.Put(context.Background(), 100, "sk-test"); err != nil {
		t.Fatal(err)
	}
	ai := &stubAssistant{askReply: "hi"}
	m := NewMachine(store, ai)
	sess := newSession(100)

	step(t, m, sess, "hello")
	if sess.secret != "sk-test" {
		t.Fatalf("secret not cached: %q", sess.secret)
	}
	// Later events must not need the store at all.
	m.creds = brokenStore{}
	reply := step(t, m, sess, "hello again")
	if reply.Text != "hi" {
		t.Fatalf("reply = %q", reply.Text)
	}
}
