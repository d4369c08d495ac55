package tutor

import "slices"

// Role represents a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single message in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Transcript is an ordered conversation. It is a value: every method that
// adds messages returns a new Transcript and leaves the receiver untouched,
// so a failed tutor call can simply keep using the old one.
type Transcript struct {
	messages []Message
}

// NewTranscript starts a conversation with the given system instruction.
// An empty instruction starts an empty conversation.
func NewTranscript(systemPrompt string) Transcript {
	if systemPrompt == "" {
		return Transcript{}
	}
	return Transcript{messages: []Message{{Role: RoleSystem, Content: systemPrompt}}}
}

// With returns a copy of t with msgs appended.
func (t Transcript) With(msgs ...Message) Transcript {
	out := make([]Message, 0, len(t.messages)+len(msgs))
	out = append(out, t.messages...)
	out = append(out, msgs...)
	return Transcript{messages: out}
}

// Messages returns a copy of every message, system instruction included.
func (t Transcript) Messages() []Message {
	return slices.Clone(t.messages)
}

// Visible returns the student-facing part of the conversation.
func (t Transcript) Visible() []Message {
	out := make([]Message, 0, len(t.messages))
	for _, m := range t.messages {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of messages, system instruction included.
func (t Transcript) Len() int {
	return len(t.messages)
}
