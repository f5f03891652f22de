package board

import (
	"context"
	"errors"
	"fmt"
	"github.com/maxaizer/recruit-pipeline/internal/domain/errs"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	log "github.com/sirupsen/logrus"
)

var ErrNoDrag = errors.New("no drag in progress")

// DragState is one of Idle, Dragging or Hovering.
type DragState interface {
	dragState()
}

type Idle struct{}

type Dragging struct {
	ProposalID string
}

type Hovering struct {
	ProposalID string
	Target     models.Status
}

func (Idle) dragState()     {}
func (Dragging) dragState() {}
func (Hovering) dragState() {}

func (b *Board) DragState() DragState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.drag
}

// DropTarget returns the highlighted column, if any.
func (b *Board) DropTarget() (models.Status, bool) {
	if h, ok := b.DragState().(Hovering); ok {
		return h.Target, true
	}
	return "", false
}

func (b *Board) DragStart(id string) error {
	if _, ok := b.store.Get(id); !ok {
		return errs.NotFound("board.DragStart", id)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drag = Dragging{ProposalID: id}
	return nil
}

func (b *Board) DragOver(column models.Status) error {
	if !column.IsValid() {
		return errs.InvalidTransition("board.DragOver", fmt.Errorf("unknown column %q", column))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch state := b.drag.(type) {
	case Dragging:
		b.drag = Hovering{ProposalID: state.ProposalID, Target: column}
	case Hovering:
		b.drag = Hovering{ProposalID: state.ProposalID, Target: column}
	default:
		return ErrNoDrag
	}
	return nil
}

func (b *Board) DragLeave() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if h, ok := b.drag.(Hovering); ok {
		b.drag = Dragging{ProposalID: h.ProposalID}
	}
}

func (b *Board) DragCancel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drag = Idle{}
}

// Drop ends the drag on column. Dropping on the proposal's current column changes nothing.
func (b *Board) Drop(ctx context.Context, column models.Status) error {
	b.mu.Lock()
	var id string
	switch state := b.drag.(type) {
	case Dragging:
		id = state.ProposalID
	case Hovering:
		id = state.ProposalID
	default:
		b.mu.Unlock()
		return ErrNoDrag
	}
	b.drag = Idle{}
	b.mu.Unlock()

	p, ok := b.store.Get(id)
	if !ok {
		return errs.NotFound("board.Drop", id)
	}
	if p.Status == column {
		return nil
	}

	return b.transition(ctx, p, column)
}

// transition requests a single transition and turns its failure into a user notice.
func (b *Board) transition(ctx context.Context, p models.Proposal, target models.Status) error {
	err := b.store.RequestTransition(ctx, p.ID, target)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrDiscarded):
		return nil
	case errors.Is(err, errs.ErrTransitionPersist):
		b.notify(NoticeWarning, fmt.Sprintf("Impossibile aggiornare la proposta di %s, riprova.", p.CandidateName))
	case errors.Is(err, errs.ErrInvalidTransition):
		log.Errorf("board rejected transition of proposal %s to %s: %v", p.ID, target, err)
	}
	return err
}
