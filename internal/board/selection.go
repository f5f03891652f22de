package board

import (
	"context"
	"fmt"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/maxaizer/recruit-pipeline/internal/metrics"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"sort"
)

const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionDelete  = "delete"
)

// BulkResult holds the per-member outcome of a bulk action. Members never roll back together.
type BulkResult struct {
	Action    string
	Succeeded []string
	Failed    []string
}

func (r BulkResult) String() string {
	return fmt.Sprintf("%d succeeded, %d failed", len(r.Succeeded), len(r.Failed))
}

func (b *Board) Toggle(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.selected[id]; ok {
		delete(b.selected, id)
		return false
	}
	b.selected[id] = struct{}{}
	return true
}

func (b *Board) IsSelected(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.selected[id]
	return ok
}

// SelectAll selects every rendered proposal.
func (b *Board) SelectAll() {
	order := b.Order()
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range order {
		b.selected[id] = struct{}{}
	}
}

func (b *Board) ClearSelection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = make(map[string]struct{})
}

// Selected returns the selected ids in rendered order. Selected proposals hidden by the filter follow, sorted by id.
func (b *Board) Selected() []string {
	order := b.Order()

	b.mu.Lock()
	defer b.mu.Unlock()

	visible := lo.Filter(order, func(id string, _ int) bool {
		_, ok := b.selected[id]
		return ok
	})
	hidden := lo.Without(lo.Keys(b.selected), visible...)
	sort.Strings(hidden)
	return append(visible, hidden...)
}

func (b *Board) ApproveSelected(ctx context.Context) BulkResult {
	return b.bulk(ctx, ActionApprove, func(id string) error {
		return b.store.RequestTransition(ctx, id, models.StatusApproved)
	})
}

func (b *Board) RejectSelected(ctx context.Context) BulkResult {
	return b.bulk(ctx, ActionReject, func(id string) error {
		return b.store.RequestTransition(ctx, id, models.StatusRejected)
	})
}

func (b *Board) DeleteSelected(ctx context.Context) BulkResult {
	result := b.bulk(ctx, ActionDelete, func(id string) error {
		return b.store.Delete(ctx, id)
	})

	b.mu.Lock()
	if lo.Contains(result.Succeeded, b.active) {
		b.active = ""
	}
	b.mu.Unlock()
	return result
}

// bulk applies apply to each selected proposal in turn, carrying on past failures. The selection is
// cleared once the batch is done, whatever the outcomes.
func (b *Board) bulk(ctx context.Context, action string, apply func(id string) error) BulkResult {
	result := BulkResult{Action: action}

	for _, id := range b.Selected() {
		if err := ctx.Err(); err != nil {
			result.Failed = append(result.Failed, id)
			continue
		}
		if err := apply(id); err != nil {
			log.Warnf("bulk %s of proposal %s failed: %v", action, id, err)
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	b.ClearSelection()

	metrics.BulkActionsCounter.WithLabelValues(action, "succeeded").Add(float64(len(result.Succeeded)))
	metrics.BulkActionsCounter.WithLabelValues(action, "failed").Add(float64(len(result.Failed)))
	log.Infof("bulk %s finished: %s", action, result)

	level := NoticeInfo
	if len(result.Failed) > 0 {
		level = NoticeWarning
	}
	b.notify(level, result.String())
	return result
}
