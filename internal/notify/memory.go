package notify

import (
	"sync"
	"time"
)

const defaultCapacity = 100

// MemoryFeed keeps a capped in-memory message list per namespace. Used when
// Redis is not configured.
type MemoryFeed struct {
	mu       sync.Mutex
	capacity int
	messages map[string][]Message
}

func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{
		capacity: defaultCapacity,
		messages: make(map[string][]Message),
	}
}

func (f *MemoryFeed) Push(namespace string, level Level, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	messages := append(f.messages[namespace], Message{
		Level:     level,
		Text:      text,
		CreatedAt: time.Now(),
	})
	if len(messages) > f.capacity {
		messages = messages[len(messages)-f.capacity:]
	}
	f.messages[namespace] = messages
}

// Recent returns up to limit messages, newest first.
func (f *MemoryFeed) Recent(namespace string, limit int) []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	messages := f.messages[namespace]
	if limit <= 0 || limit > len(messages) {
		limit = len(messages)
	}
	out := make([]Message, 0, limit)
	for i := len(messages) - 1; i >= len(messages)-limit; i-- {
		out = append(out, messages[i])
	}
	return out
}
