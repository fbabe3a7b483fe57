package api

type ChatMessageRole int

const (
	RoleUser ChatMessageRole = iota
	RoleAssistant
)

var roleName = map[ChatMessageRole]string{
	RoleUser:      "user",
	RoleAssistant: "assistant",
}

func (r ChatMessageRole) String() string {
	return roleName[r]
}

type ChatMessage struct {
	Role    ChatMessageRole
	Content string
}

// ParseChatHistory converts role/content pairs from a task payload into
// chat messages. Unrecognized roles default to the user role.
func ParseChatHistory(h []map[string]string) []*ChatMessage {
	msgs := make([]*ChatMessage, 0, len(h))
	for _, m := range h {
		role := RoleUser
		if m["role"] == roleName[RoleAssistant] {
			role = RoleAssistant
		}
		msgs = append(msgs, &ChatMessage{
			Role:    role,
			Content: m["content"],
		})
	}
	return msgs
}
