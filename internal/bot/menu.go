package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/akorchev/gptbot/core/telegram/keyboard"
	"github.com/akorchev/gptbot/internal/dialog"
)

// Callback uniques for the inline image pickers. The payload carries the
// selection exactly as the user could have typed it.
const (
	cbImageCount = "img_count"
	cbImageSize  = "img_size"
)

var imageSizeChoices = []struct {
	Label string
	Value string
}{
	{"Small", "small"},
	{"Medium", "medium"},
	{"Large", "large"},
}

// markupFor renders the menu chosen by the dialogue layer. A nil result
// leaves the current keyboard in place.
func markupFor(menu dialog.Menu) *tele.ReplyMarkup {
	switch menu {
	case dialog.MenuMain:
		return keyboard.ReplyButtons(
			[]string{dialog.LabelStartChat, dialog.LabelGenerateImage},
			[]string{dialog.LabelTranscript, dialog.LabelSetKey},
		)
	case dialog.MenuSetup:
		return keyboard.ReplyButtons([]string{dialog.LabelSetKey})
	case dialog.MenuCancel:
		return keyboard.ReplyButtons([]string{dialog.LabelCancel})
	case dialog.MenuConversation:
		return keyboard.ReplyButtons([]string{dialog.LabelEndChat})
	case dialog.MenuCounts:
		buttons := make([]keyboard.InlineBtn, 0, len(dialog.ImageCountChoices()))
		for _, n := range dialog.ImageCountChoices() {
			s := strconv.Itoa(n)
			buttons = append(buttons, keyboard.InlineBtn{Text: s, Unique: cbImageCount, Data: s})
		}
		return keyboard.InlineButtonsNPerRow(buttons, len(buttons))
	case dialog.MenuSizes:
		buttons := make([]keyboard.InlineBtn, 0, len(imageSizeChoices))
		for _, c := range imageSizeChoices {
			buttons = append(buttons, keyboard.InlineBtn{Text: c.Label, Unique: cbImageSize, Data: c.Value})
		}
		return keyboard.InlineButtonsNPerRow(buttons, len(buttons))
	default:
		return nil
	}
}
