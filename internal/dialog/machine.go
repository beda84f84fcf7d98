package dialog

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/akorchev/gptbot/core/logger"
	"github.com/akorchev/gptbot/internal/credentials"
)

// Machine is the decision core: given a session and one event it computes
// the transition, performs at most one collaborator or store call, and
// returns the reply. Callers must hold the session lock (Registry.Visit)
// for the whole call.
type Machine struct {
	creds credentials.Store
	ai    Assistant
}

// NewMachine wires the decision core to its collaborators.
func NewMachine(creds credentials.Store, ai Assistant) *Machine {
	return &Machine{creds: creds, ai: ai}
}

// Handle processes one event for the session.
func (m *Machine) Handle(ctx context.Context, sess *Session, ev Event) Reply {
	prev := sess.state
	reply := m.handle(ctx, sess, ev)
	if sess.state != prev {
		logger.Debug(ctx, "dialog", "transition",
			slog.String("status", "ok"),
			slog.String("state", string(prev)),
			slog.String("next_state", string(sess.state)),
			slog.String("event_kind", string(ev.Kind)),
		)
	}
	return reply
}

func (m *Machine) handle(ctx context.Context, sess *Session, ev Event) Reply {
	switch ev.Kind {
	case KindStart:
		return m.start(ctx, sess)
	case KindVoice:
		return m.voice(ctx, sess, ev)
	case KindMedia:
		return m.media(ctx, sess, ev)
	}

	text := strings.TrimSpace(ev.Text)

	// Menu actions available from any state.
	switch text {
	case LabelSetKey:
		sess.image = ImageRequest{}
		sess.dropConversation(StateProvidingAPIKey)
		return Reply{Text: msgAPIKeyPrompt, Menu: MenuCancel}
	case LabelCancel:
		return m.cancel(ctx, sess)
	}

	switch sess.state {
	case StateProvidingAPIKey:
		return m.storeKey(ctx, sess, text)

	case StateSelectingAssistantRole:
		return m.openConversation(ctx, sess, text)

	case StateHavingConversation:
		if text == LabelEndChat {
			sess.dropConversation(StateMain)
			return Reply{Text: msgConversationDone, Menu: m.mainMenu(ctx, sess)}
		}
		return m.converse(ctx, sess, text)

	case StateProvidingImagesDescription:
		if text == "" {
			return Reply{Text: msgDescriptionPrompt, Menu: MenuCancel}
		}
		sess.image.Description = text
		sess.state = StateSelectingImagesCount
		return Reply{Text: msgCountPrompt, Menu: MenuCounts}

	case StateSelectingImagesCount:
		n, ok := parseCount(text)
		if !ok {
			return m.abandonForm(ctx, sess, text)
		}
		sess.image.Count = n
		sess.state = StateSelectingImagesSize
		return Reply{Text: msgSizePrompt, Menu: MenuSizes}

	case StateSelectingImagesSize:
		size, ok := parseSize(text)
		if !ok {
			return m.abandonForm(ctx, sess, text)
		}
		return m.generateImages(ctx, sess, size)

	case StateProvidingMediaFile:
		// Text while a file is expected: the form is implicitly abandoned.
		return m.abandonForm(ctx, sess, text)

	default:
		return m.handleMain(ctx, sess, text)
	}
}

// handleMain covers the rest state: menu labels and single-turn questions.
// Unmatched labels (e.g. "end chat" with no conversation open) intentionally
// fall through to ordinary free text.
func (m *Machine) handleMain(ctx context.Context, sess *Session, text string) Reply {
	switch text {
	case LabelStartChat:
		if _, fail := m.resolveSecret(ctx, sess); fail != nil {
			return *fail
		}
		sess.state = StateSelectingAssistantRole
		return Reply{Text: msgRolePrompt, Menu: MenuCancel}

	case LabelGenerateImage:
		if _, fail := m.resolveSecret(ctx, sess); fail != nil {
			return *fail
		}
		sess.image = ImageRequest{}
		sess.state = StateProvidingImagesDescription
		return Reply{Text: msgDescriptionPrompt, Menu: MenuCancel}

	case LabelTranscript:
		if _, fail := m.resolveSecret(ctx, sess); fail != nil {
			return *fail
		}
		sess.state = StateProvidingMediaFile
		return Reply{Text: msgMediaPrompt, Menu: MenuCancel}

	default:
		return m.freeText(ctx, sess, text)
	}
}

func (m *Machine) start(ctx context.Context, sess *Session) Reply {
	sess.image = ImageRequest{}
	sess.dropConversation(StateMain)
	if m.hasSecret(ctx, sess) {
		return Reply{Text: msgWelcome, Menu: MenuMain}
	}
	return Reply{Text: msgWelcome + " " + msgAPIKeyRequest, Menu: MenuSetup}
}

func (m *Machine) cancel(ctx context.Context, sess *Session) Reply {
	sess.image = ImageRequest{}
	sess.dropConversation(StateMain)
	return Reply{Text: msgCancelled, Menu: m.mainMenu(ctx, sess)}
}

// abandonForm clears a half-collected form and handles the text as an
// ordinary main-state message. Unexpected selections are not errors.
func (m *Machine) abandonForm(ctx context.Context, sess *Session, text string) Reply {
	sess.image = ImageRequest{}
	sess.state = StateMain
	return m.handleMain(ctx, sess, text)
}

func (m *Machine) storeKey(ctx context.Context, sess *Session, key string) Reply {
	if key == "" {
		return Reply{Text: msgAPIKeyPrompt, Menu: MenuCancel}
	}
	if err := m.creds.Put(ctx, sess.chatID, key); err != nil {
		logger.Error(ctx, "dialog", "apikey.store",
			slog.String("status", "fail"),
			slog.Int64("user_id", sess.chatID),
			slog.String("err", err.Error()),
		)
		// Not saved, so the state does not advance.
		return Reply{Text: msgWentWrong}
	}
	sess.secret = key
	sess.state = StateMain
	return Reply{Text: msgAPIKeySaved, Menu: MenuMain}
}

func (m *Machine) openConversation(ctx context.Context, sess *Session, role string) Reply {
	if role == "" {
		return Reply{Text: msgRolePrompt, Menu: MenuCancel}
	}
	secret, fail := m.resolveSecret(ctx, sess)
	if fail != nil {
		return *fail
	}
	conv, err := m.ai.OpenConversation(ctx, secret, role)
	if err != nil {
		logger.Error(ctx, "dialog", "conversation.open",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return Reply{Text: msgWentWrong}
	}
	sess.attachConversation(conv)
	return Reply{Text: msgConversationOpen, Menu: MenuConversation}
}

func (m *Machine) converse(ctx context.Context, sess *Session, text string) Reply {
	answer, err := sess.conv.Ask(ctx, text)
	if err != nil {
		logger.Error(ctx, "dialog", "conversation.ask",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		// Conversation stays open; the user may retry.
		return Reply{Text: msgWentWrong}
	}
	return Reply{Text: answer}
}

func (m *Machine) freeText(ctx context.Context, sess *Session, text string) Reply {
	if text == "" {
		return Reply{}
	}
	secret, fail := m.resolveSecret(ctx, sess)
	if fail != nil {
		return *fail
	}
	answer, err := m.ai.Ask(ctx, secret, text)
	if err != nil {
		logger.Error(ctx, "dialog", "ask",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return Reply{Text: msgWentWrong}
	}
	return Reply{Text: answer}
}

func (m *Machine) generateImages(ctx context.Context, sess *Session, size string) Reply {
	secret, fail := m.resolveSecret(ctx, sess)
	if fail != nil {
		return *fail
	}
	req := sess.image
	// The form is complete: back to main whatever the provider does.
	sess.image = ImageRequest{}
	sess.state = StateMain

	urls, err := m.ai.GenerateImages(ctx, secret, req.Description, req.Count, size)
	if err != nil || len(urls) == 0 {
		if err != nil {
			logger.Error(ctx, "dialog", "images.generate",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
		return Reply{Text: msgImagesFailed, Menu: MenuMain}
	}
	return Reply{Text: msgImagesReady, Menu: MenuMain, ImageURLs: urls}
}

func (m *Machine) voice(ctx context.Context, sess *Session, ev Event) Reply {
	if sess.state == StateProvidingMediaFile {
		return m.transcribeMedia(ctx, sess, ev)
	}
	if sess.state != StateMain && sess.state != StateHavingConversation {
		return Reply{Text: msgTextExpected}
	}
	secret, fail := m.resolveSecret(ctx, sess)
	if fail != nil {
		return *fail
	}
	text, err := m.ai.Transcribe(ctx, secret, ev.Media, ev.MediaName)
	if err != nil {
		logger.Error(ctx, "dialog", "voice.transcribe",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return Reply{Text: msgWentWrong}
	}
	// Chained dispatch: the transcript is handled as ordinary text input
	// for the current state.
	return m.handle(ctx, sess, TextEvent(text))
}

func (m *Machine) media(ctx context.Context, sess *Session, ev Event) Reply {
	if sess.state == StateProvidingMediaFile {
		return m.transcribeMedia(ctx, sess, ev)
	}
	return Reply{Text: msgMediaUnexpected}
}

func (m *Machine) transcribeMedia(ctx context.Context, sess *Session, ev Event) Reply {
	if ev.Media == nil {
		return Reply{Text: msgMediaPrompt, Menu: MenuCancel}
	}
	secret, fail := m.resolveSecret(ctx, sess)
	if fail != nil {
		return *fail
	}
	text, err := m.ai.Transcribe(ctx, secret, ev.Media, ev.MediaName)
	if err != nil {
		logger.Error(ctx, "dialog", "media.transcribe",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		// Stay put so the user can resend the file.
		return Reply{Text: msgWentWrong}
	}
	sess.state = StateMain
	return Reply{Text: text, Menu: MenuMain}
}

// resolveSecret returns the user's secret, trying the session cache first
// and the store second. A missing secret and a store outage both come back
// as a ready reply; only the prompt text differs, never the mechanism.
func (m *Machine) resolveSecret(ctx context.Context, sess *Session) (string, *Reply) {
	if sess.secret != "" {
		return sess.secret, nil
	}
	secret, ok, err := m.creds.Get(ctx, sess.chatID)
	if err != nil {
		logger.Warn(ctx, "dialog", "secret.resolve",
			slog.String("status", "fail"),
			slog.Int64("user_id", sess.chatID),
			slog.String("err", err.Error()),
		)
		return "", &Reply{Text: msgWentWrong}
	}
	if !ok {
		return "", &Reply{Text: msgAPIKeyRequest, Menu: MenuSetup}
	}
	sess.secret = secret
	return secret, nil
}

// hasSecret is the cosmetic variant used only for menu sizing: a store
// outage renders the setup menu instead of failing the whole event.
func (m *Machine) hasSecret(ctx context.Context, sess *Session) bool {
	if sess.secret != "" {
		return true
	}
	secret, ok, err := m.creds.Get(ctx, sess.chatID)
	if err != nil {
		logger.Warn(ctx, "dialog", "secret.resolve",
			slog.String("status", "fail"),
			slog.Int64("user_id", sess.chatID),
			slog.String("err", err.Error()),
		)
		return false
	}
	if ok {
		sess.secret = secret
	}
	return ok
}

func (m *Machine) mainMenu(ctx context.Context, sess *Session) Menu {
	if m.hasSecret(ctx, sess) {
		return MenuMain
	}
	return MenuSetup
}

func parseCount(text string) (int, bool) {
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0, false
	}
	for _, allowed := range imageCountChoices {
		if n == allowed {
			return n, true
		}
	}
	return 0, false
}

func parseSize(text string) (string, bool) {
	size, ok := imageSizes[strings.ToLower(text)]
	return size, ok
}
