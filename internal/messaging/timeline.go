package messaging

import (
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"time"
)

const DefaultSeparatorGap = 5 * time.Minute

// Entry is one line of a rendered thread: either a timestamp separator or a message.
type Entry struct {
	Separator bool
	At        time.Time
	Message   models.Message
}

// Timeline interleaves chronologically ordered messages with a separator before the first message
// and wherever two consecutive messages are more than gap apart.
func Timeline(messages []models.Message, gap time.Duration) []Entry {
	if gap <= 0 {
		gap = DefaultSeparatorGap
	}

	entries := make([]Entry, 0, len(messages)+1)
	for i, m := range messages {
		if i == 0 || m.CreatedAt.Sub(messages[i-1].CreatedAt) > gap {
			entries = append(entries, Entry{Separator: true, At: m.CreatedAt})
		}
		entries = append(entries, Entry{At: m.CreatedAt, Message: m})
	}
	return entries
}
