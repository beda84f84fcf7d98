// Package dialog implements the per-chat conversation state machine: which
// step of a multi-turn flow the chat is in, the form fields collected so
// far, and the decision logic that maps an incoming event to the next state
// plus a reply. It talks to the credential store and the AI collaborators
// through narrow interfaces and knows nothing about Telegram.
package dialog

// State identifies a step of the conversation state machine.
type State string

const (
	// StateMain is the rest state: menu navigation and single-turn questions.
	StateMain State = "main"
	// StateProvidingAPIKey waits for the user to send their API key.
	StateProvidingAPIKey State = "providing_api_key"
	// StateSelectingAssistantRole waits for the system role of a new conversation.
	StateSelectingAssistantRole State = "selecting_assistant_role"
	// StateHavingConversation relays messages to an open assistant conversation.
	StateHavingConversation State = "having_conversation_with_assistant"
	// StateProvidingImagesDescription waits for the image prompt.
	StateProvidingImagesDescription State = "providing_images_description"
	// StateSelectingImagesCount waits for the number of images (1-4).
	StateSelectingImagesCount State = "selecting_images_count"
	// StateSelectingImagesSize waits for the image size (small/medium/large).
	StateSelectingImagesSize State = "selecting_images_size"
	// StateProvidingMediaFile waits for a media file to transcribe.
	StateProvidingMediaFile State = "providing_media_file"
)

func (s State) String() string { return string(s) }
