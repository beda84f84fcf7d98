package dialog

// Menu tells the transport which keyboard to attach to a reply. The machine
// decides the menu; rendering it is the transport's job.
type Menu int

const (
	// MenuKeep leaves the current keyboard untouched.
	MenuKeep Menu = iota
	// MenuMain is the full main menu (secret on file).
	MenuMain
	// MenuSetup is the reduced main menu offering only key setup.
	MenuSetup
	// MenuCancel offers a single cancel action.
	MenuCancel
	// MenuCounts offers the image count choices 1-4.
	MenuCounts
	// MenuSizes offers the image size choices.
	MenuSizes
	// MenuConversation offers the end-chat action.
	MenuConversation
)

// Reply is the outcome of one event: text to send, which menu to show, and
// any image references to attach.
type Reply struct {
	Text      string
	Menu      Menu
	ImageURLs []string
}
