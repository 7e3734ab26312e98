// Package prompt assembles the ordered message sequence sent to the completion service.
package prompt

// Role identifies the author of a chat message.
type Role string

const (
	// RoleSystem carries instructions and retrieved context.
	RoleSystem Role = "system"
	// RoleUser carries the end-user question.
	RoleUser Role = "user"
)

// Message is one entry of the prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// BuildMessages returns the fixed three-message prompt:
// the system instruction, the user query, then the retrieved context as a second system message.
func BuildMessages(query, context, systemPrompt string) []Message {
	return []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: query},
		{Role: RoleSystem, Content: context},
	}
}
