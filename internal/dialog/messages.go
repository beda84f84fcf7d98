package dialog

// Menu button labels. The machine matches them literally, so the transport
// must render keyboards with exactly these strings.
const (
	LabelSetKey        = "🔑 Set API key"
	LabelStartChat     = "💬 Start chat"
	LabelEndChat       = "🏁 End chat"
	LabelGenerateImage = "🖼 Generate image"
	LabelTranscript    = "🎙 Transcript media"
	LabelCancel        = "❌ Cancel"
)

const (
	msgAPIKeyRequest = "Please set your OpenAI API key in order to use bot functionality."
	msgWelcome       = "Welcome to the ChatGPT Telegram bot!"
	msgAPIKeyPrompt  = "Send me your OpenAI API key. It is stored encrypted and used only for your own requests."
	msgAPIKeySaved   = "API key set successfully!"
	msgWentWrong     = "Something went wrong. Please try again."

	msgRolePrompt        = "Who should the assistant be? Send a role, e.g. \"an experienced Go developer\"."
	msgConversationOpen  = "The assistant is ready. Send your messages; press \"" + LabelEndChat + "\" to finish."
	msgConversationDone  = "Conversation finished."
	msgDescriptionPrompt = "Describe the image you want to generate."
	msgCountPrompt       = "How many images? Pick 1-4."
	msgSizePrompt        = "Which size? Pick small, medium or large."
	msgImagesFailed      = "Could not generate images for this description. Please try again."
	msgImagesReady       = "Here you go!"
	msgMediaPrompt       = "Send me a voice note, audio, video or document to transcribe."
	msgMediaUnexpected   = "I can only transcribe media here. Send a file, or press \"" + LabelCancel + "\"."
	msgTextExpected      = "Please answer with text here."
	msgCancelled         = "Cancelled."
)

// imageSizes maps user-facing size choices to API size strings.
var imageSizes = map[string]string{
	"small":  "256x256",
	"medium": "512x512",
	"large":  "1024x1024",
}

// imageCountChoices are the accepted image counts, in keyboard order.
var imageCountChoices = []int{1, 2, 3, 4}

// ImageCountChoices returns the accepted image counts for menu rendering.
func ImageCountChoices() []int {
	return append([]int(nil), imageCountChoices...)
}
