package session

import (
	"slices"
	"time"

	"examprep/app/service/document"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

type Level string

const (
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient toast for the user. It never enters the transcript.
type Notification struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
}

type State struct {
	Transcript       []Message           `json:"transcript"`
	Corpus           document.Corpus     `json:"-"`
	Documents        []document.Document `json:"documents"`
	LastUploadedText string              `json:"-"`
	LastUploadedName string              `json:"last_uploaded_name"`
	PendingQuestion  string              `json:"pending_question"`
	Uploading        bool                `json:"uploading"`
	Answering        bool                `json:"answering"`
	GeneratingExam   bool                `json:"generating_exam"`
}

func (s *State) clone() State {
	result := *s
	result.Transcript = slices.Clone(s.Transcript)
	result.Corpus = s.Corpus.Clone()
	result.Documents = slices.Clone(s.Documents)
	return result
}

// Snapshot is an immutable copy of a session's state.
type Snapshot struct {
	ID      string `json:"id"`
	Version uint64 `json:"version"`
	State
}
