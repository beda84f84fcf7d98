package dialog

import "io"

// EventKind classifies an inbound update for the machine.
type EventKind string

const (
	// KindStart is the /start command.
	KindStart EventKind = "start"
	// KindText is any plain text, including menu button presses.
	KindText EventKind = "text"
	// KindVoice is a voice note.
	KindVoice EventKind = "voice"
	// KindMedia is any other recognized media kind (audio, video, document).
	KindMedia EventKind = "media"
)

// Event is one inbound user action. Media events carry the downloaded
// stream; the transport downloads before the machine runs so the
// read-decide-write cycle holds no session lock during the download.
type Event struct {
	Kind      EventKind
	Text      string
	Media     io.Reader
	MediaName string
}

// TextEvent builds a plain text event.
func TextEvent(text string) Event { return Event{Kind: KindText, Text: text} }
