// Package notify provides the fire-and-forget operator notification feed.
package notify

import "time"

type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

type Message struct {
	Level     Level     `json:"level"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Feed stores recent messages per namespace. Pushes never fail upward; a
// broken backend only logs.
type Feed interface {
	Push(namespace string, level Level, text string)
	Recent(namespace string, limit int) []Message
}

// Scoped binds a feed to one namespace, satisfying the review pipeline's
// notifier contract.
type Scoped struct {
	feed      Feed
	namespace string
}

func Bind(feed Feed, namespace string) *Scoped {
	return &Scoped{feed: feed, namespace: namespace}
}

func (s *Scoped) Success(text string) { s.feed.Push(s.namespace, LevelSuccess, text) }
func (s *Scoped) Info(text string)    { s.feed.Push(s.namespace, LevelInfo, text) }
func (s *Scoped) Warning(text string) { s.feed.Push(s.namespace, LevelWarning, text) }
func (s *Scoped) Error(text string)   { s.feed.Push(s.namespace, LevelError, text) }
