package models

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single message in the conversation passed to the
// generative model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
