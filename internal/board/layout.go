package board

import (
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
)

type Layout string

const (
	LayoutColumns Layout = "columns"
	LayoutStacked Layout = "stacked"
)

// Resize recomputes the layout for a viewport width and reports whether it changed.
// Only presentation state is touched.
func (b *Board) Resize(width int) bool {
	layout := LayoutStacked
	if width >= b.options.LayoutBreakpoint {
		layout = LayoutColumns
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.width = width
	changed := layout != b.layout
	b.layout = layout
	return changed
}

func (b *Board) Layout() Layout {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.layout
}

// ToggleSection collapses or expands a stacked section. Returns the new collapsed state.
func (b *Board) ToggleSection(status models.Status) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.collapsed[status] = !b.collapsed[status]
	return b.collapsed[status]
}

// Collapsed reports whether the section of status is collapsed. Columns are never collapsed.
func (b *Board) Collapsed(status models.Status) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.layout == LayoutStacked && b.collapsed[status]
}
