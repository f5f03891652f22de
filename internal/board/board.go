// Package board drives the kanban view of the pipeline: drag and drop, selection with bulk actions,
// keyboard shortcuts and the responsive layout.
package board

import (
	"context"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/maxaizer/recruit-pipeline/internal/pipeline"
	"sync"
)

type pipelineStore interface {
	Get(id string) (models.Proposal, bool)
	GroupByStatus(f pipeline.Filter) []pipeline.Column
	RequestTransition(ctx context.Context, id string, target models.Status) error
	Delete(ctx context.Context, id string) error
}

type noticeSink interface {
	Notify(notice Notice)
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a transient message shown to the user.
type Notice struct {
	Level NoticeLevel
	Text  string
}

type Options struct {
	LayoutBreakpoint  int
	KeyboardShortcuts bool
}

func DefaultOptions() Options {
	return Options{LayoutBreakpoint: 1024, KeyboardShortcuts: true}
}

type Board struct {
	store   pipelineStore
	notices noticeSink
	keys    KeyMap
	options Options

	mu        sync.Mutex
	drag      DragState
	selected  map[string]struct{}
	active    string
	filter    pipeline.Filter
	width     int
	layout    Layout
	collapsed map[models.Status]bool
}

func New(store pipelineStore, notices noticeSink, options Options) *Board {
	if options.LayoutBreakpoint <= 0 {
		options.LayoutBreakpoint = DefaultOptions().LayoutBreakpoint
	}
	return &Board{
		store:     store,
		notices:   notices,
		keys:      DefaultKeyMap(),
		options:   options,
		drag:      Idle{},
		selected:  make(map[string]struct{}),
		layout:    LayoutColumns,
		collapsed: make(map[models.Status]bool),
	}
}

func (b *Board) SetFilter(f pipeline.Filter) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.filter = f
}

// Columns returns the rendered columns: the store's current set under the board filter, grouped in board order.
func (b *Board) Columns() []pipeline.Column {
	b.mu.Lock()
	f := b.filter
	b.mu.Unlock()
	return b.store.GroupByStatus(f)
}

// Order returns proposal ids in the order they are rendered, column by column.
func (b *Board) Order() []string {
	var ids []string
	for _, column := range b.Columns() {
		for _, p := range column.Proposals {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Open marks the proposal as the one under inspection. Keyboard shortcuts act on it.
func (b *Board) Open(id string) bool {
	if _, ok := b.store.Get(id); !ok {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = id
	return true
}

func (b *Board) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = ""
}

func (b *Board) Active() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active, b.active != ""
}

func (b *Board) notify(level NoticeLevel, text string) {
	if b.notices == nil {
		return
	}
	b.notices.Notify(Notice{Level: level, Text: text})
}
