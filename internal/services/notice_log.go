package services

import (
	"github.com/maxaizer/recruit-pipeline/internal/board"
	log "github.com/sirupsen/logrus"
	"sync"
)

// NoticeLog collects the transient notices of a session and keeps the most recent ones for the shell.
type NoticeLog struct {
	Done    chan struct{}
	notices chan board.Notice
	limit   int

	mu     sync.Mutex
	recent []board.Notice
	closed bool
}

func NewNoticeLog(limit int) *NoticeLog {
	if limit <= 0 {
		limit = 20
	}
	return &NoticeLog{Done: make(chan struct{}), notices: make(chan board.Notice, limit), limit: limit}
}

// Notify never blocks; when the buffer is full the notice is only logged.
func (n *NoticeLog) Notify(notice board.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		log.Infof("notice after shutdown: %s", notice.Text)
		return
	}
	select {
	case n.notices <- notice:
	default:
		log.Warnf("notice buffer full, dropping: %s", notice.Text)
	}
}

func (n *NoticeLog) Run() {
	total := 0
	for notice := range n.notices {
		total++
		switch notice.Level {
		case board.NoticeError:
			log.Errorf("notice: %s", notice.Text)
		case board.NoticeWarning:
			log.Warnf("notice: %s", notice.Text)
		default:
			log.Infof("notice: %s", notice.Text)
		}

		n.mu.Lock()
		n.recent = append(n.recent, notice)
		if len(n.recent) > n.limit {
			n.recent = n.recent[len(n.recent)-n.limit:]
		}
		n.mu.Unlock()
	}
	log.Infof("shown %v notices", total)
	close(n.Done)
}

// Close stops accepting notices; Done is closed once the remaining ones are processed.
func (n *NoticeLog) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.notices)
	}
}

func (n *NoticeLog) Recent() []board.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]board.Notice, len(n.recent))
	copy(out, n.recent)
	return out
}
