package bot

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/akorchev/gptbot/core/logger"
	"github.com/akorchev/gptbot/core/telegram/callbacks"
	tghelpers "github.com/akorchev/gptbot/core/telegram/helpers"
	"github.com/akorchev/gptbot/internal/dialog"
)

const msgDownloadFailed = "Could not download that file. Please try again."

// dispatch runs one event through the dialogue machine under the session
// lock and renders the reply. Concurrent updates for the same chat
// serialize here; different chats proceed independently.
func (a *App) dispatch(c tele.Context, ev dialog.Event) error {
	ctx := tghelpers.BuildContext(c)
	var reply dialog.Reply
	a.sessions.Visit(c.Sender().ID, func(sess *dialog.Session) {
		reply = a.machine.Handle(ctx, sess, ev)
	})
	return a.render(c, reply)
}

func (a *App) render(c tele.Context, reply dialog.Reply) error {
	if len(reply.ImageURLs) > 0 {
		album := make(tele.Album, 0, len(reply.ImageURLs))
		for _, url := range reply.ImageURLs {
			album = append(album, &tele.Photo{File: tele.FromURL(url)})
		}
		if err := c.SendAlbum(album); err != nil {
			return err
		}
	}
	if reply.Text == "" {
		return nil
	}
	opts := &tele.SendOptions{}
	if markup := markupFor(reply.Menu); markup != nil {
		opts.ReplyMarkup = markup
	}
	return tghelpers.SendText(c, reply.Text, opts)
}

func (a *App) handleStart(c tele.Context) error {
	return a.dispatch(c, dialog.Event{Kind: dialog.KindStart})
}

// handleAPIKeyCommand mirrors the menu button. "/apikey sk-..." stores the
// key in one step; bare "/apikey" prompts for it.
func (a *App) handleAPIKeyCommand(c tele.Context) error {
	payload := strings.TrimSpace(c.Message().Payload)
	ctx := tghelpers.BuildContext(c)
	var reply dialog.Reply
	a.sessions.Visit(c.Sender().ID, func(sess *dialog.Session) {
		reply = a.machine.Handle(ctx, sess, dialog.TextEvent(dialog.LabelSetKey))
		if payload != "" {
			reply = a.machine.Handle(ctx, sess, dialog.TextEvent(payload))
		}
	})
	return a.render(c, reply)
}

func (a *App) handleText(c tele.Context) error {
	return a.dispatch(c, dialog.TextEvent(c.Text()))
}

// The inline pickers feed the machine as if the user had typed the choice,
// so callbacks and typed answers share one transition path.

func (a *App) handleImageCountCallback(c tele.Context) error {
	n, err := callbacks.PayloadInt(c)
	if err != nil {
		return nil
	}
	return a.dispatch(c, dialog.TextEvent(strconv.Itoa(n)))
}

func (a *App) handleImageSizeCallback(c tele.Context) error {
	_, payload := callbacks.ParseCallbackData(c.Callback())
	if payload == "" {
		return nil
	}
	return a.dispatch(c, dialog.TextEvent(payload))
}

func (a *App) handleVoice(c tele.Context) error {
	voice := c.Message().Voice
	if voice == nil {
		return nil
	}
	return a.dispatchDownloaded(c, dialog.KindVoice, &voice.File, "voice.ogg")
}

func (a *App) handleMedia(c tele.Context) error {
	file, name := mediaFile(c.Message())
	if file == nil {
		return nil
	}
	return a.dispatchDownloaded(c, dialog.KindMedia, file, name)
}

// dispatchDownloaded fetches the file from Telegram before taking the
// session lock, so a slow download never blocks the chat's other updates.
func (a *App) dispatchDownloaded(c tele.Context, kind dialog.EventKind, file *tele.File, name string) error {
	rc, err := c.Bot().File(file)
	if err != nil {
		logger.Error(tghelpers.BuildContext(c), "tg", "file.download",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, msgDownloadFailed)
	}
	defer rc.Close()
	return a.dispatch(c, dialog.Event{Kind: kind, Media: rc, MediaName: name})
}

func mediaFile(m *tele.Message) (*tele.File, string) {
	if m == nil {
		return nil, ""
	}
	switch {
	case m.Audio != nil:
		return &m.Audio.File, fileNameOr(m.Audio.FileName, "audio.mp3")
	case m.Video != nil:
		return &m.Video.File, fileNameOr(m.Video.FileName, "video.mp4")
	case m.VideoNote != nil:
		return &m.VideoNote.File, "video_note.mp4"
	case m.Document != nil:
		return &m.Document.File, fileNameOr(m.Document.FileName, "document.bin")
	}
	return nil, ""
}

func fileNameOr(name, fallback string) string {
	if name != "" {
		return name
	}
	return fallback
}

func (a *App) handleStats(c tele.Context) error {
	var sendErrors uint64
	if a.dispatcher != nil {
		sendErrors = a.dispatcher.ErrorCount()
	}
	text := fmt.Sprintf(
		"Sessions: %d\nSend errors: %d",
		a.sessions.Len(), sendErrors,
	)
	return tghelpers.SendText(c, text)
}
