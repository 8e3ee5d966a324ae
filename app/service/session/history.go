package session

import "time"

const Greeting = "Hello! I'm your study assistant. Upload lecture slides or previous exams (PDF or TXT) and ask me anything about them, or generate a new practice exam."

// transcript keeps at most limit messages, dropping the oldest first.
type transcript struct {
	limit int
}

func (t transcript) add(messages []Message, role Role, content string) []Message {
	msg := Message{
		Role:    role,
		Content: content,
		Time:    time.Now(),
	}

	if t.limit > 0 && len(messages) >= t.limit {
		return append(messages[len(messages)-t.limit+1:], msg)
	}

	return append(messages, msg)
}

func (t transcript) seed() []Message {
	return t.add(nil, RoleAssistant, Greeting)
}
