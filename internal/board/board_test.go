package board

import (
	"context"
	"errors"
	"fmt"
	"github.com/maxaizer/recruit-pipeline/internal/domain/errs"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/maxaizer/recruit-pipeline/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

type mockProposals struct {
	mock.Mock
}

func (m *mockProposals) ListForViewer(ctx context.Context, viewer models.Viewer) ([]models.Proposal, error) {
	args := m.Called(ctx, viewer)
	proposals, _ := args.Get(0).([]models.Proposal)
	return proposals, args.Error(1)
}

func (m *mockProposals) UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time) error {
	return m.Called(ctx, id, status, updatedAt).Error(0)
}

func (m *mockProposals) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type recordingSink struct {
	notices []Notice
}

func (s *recordingSink) Notify(notice Notice) {
	s.notices = append(s.notices, notice)
}

var viewer = models.NewViewer("hr@acme.example", models.RoleCompany)

// newBoard loads n pending proposals p1..pn, p1 being the newest.
func newBoard(t *testing.T, n int) (*Board, *pipeline.Store, *mockProposals, *recordingSink) {
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	var proposals []models.Proposal
	for i := 1; i <= n; i++ {
		created := base.Add(-time.Duration(i) * time.Minute)
		proposals = append(proposals, models.Proposal{
			ID:             fmt.Sprintf("p%d", i),
			CandidateName:  fmt.Sprintf("Candidate %d", i),
			CompanyEmail:   viewer.Email,
			RecruiterEmail: "talent@recruiters.example",
			Status:         models.StatusPending,
			CreatedAt:      created,
			UpdatedAt:      created,
		})
	}

	repo := &mockProposals{}
	repo.On("ListForViewer", mock.Anything, viewer).Return(proposals, nil).Once()

	store := pipeline.NewStore(viewer, repo)
	require.NoError(t, store.Load(context.Background()))

	sink := &recordingSink{}
	return New(store, sink, DefaultOptions()), store, repo, sink
}

func status(store *pipeline.Store, id string) models.Status {
	p, _ := store.Get(id)
	return p.Status
}

func Test_Drop_WhenNoDragStarted_ShouldFail(t *testing.T) {
	board, _, repo, _ := newBoard(t, 1)

	err := board.Drop(context.Background(), models.StatusApproved)

	assert.ErrorIs(t, err, ErrNoDrag)
	assert.ErrorIs(t, board.DragOver(models.StatusApproved), ErrNoDrag)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func Test_Drop_WhenColumnDiffers_ShouldRequestTransition(t *testing.T) {
	assert := assert.New(t)

	board, store, repo, _ := newBoard(t, 1)
	repo.On("UpdateStatus", mock.Anything, "p1", models.StatusUnderReview, mock.Anything).Return(nil).Once()

	assert.NoError(board.DragStart("p1"))
	assert.Equal(Dragging{ProposalID: "p1"}, board.DragState())

	assert.NoError(board.DragOver(models.StatusApproved))
	assert.NoError(board.DragOver(models.StatusUnderReview))
	target, ok := board.DropTarget()
	assert.True(ok)
	assert.Equal(models.StatusUnderReview, target)

	assert.NoError(board.Drop(context.Background(), models.StatusUnderReview))

	assert.Equal(Idle{}, board.DragState())
	assert.Equal(models.StatusUnderReview, status(store, "p1"))
	repo.AssertExpectations(t)
}

func Test_Drop_WhenSameColumn_ShouldDoNothing(t *testing.T) {
	board, store, repo, sink := newBoard(t, 1)

	assert.NoError(t, board.DragStart("p1"))
	assert.NoError(t, board.Drop(context.Background(), models.StatusPending))

	assert.Equal(t, models.StatusPending, status(store, "p1"))
	assert.Empty(t, sink.notices)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func Test_DragLeave_ShouldReturnToDragging(t *testing.T) {
	board, _, _, _ := newBoard(t, 1)

	assert.NoError(t, board.DragStart("p1"))
	assert.NoError(t, board.DragOver(models.StatusRejected))
	board.DragLeave()
	assert.Equal(t, Dragging{ProposalID: "p1"}, board.DragState())

	board.DragCancel()
	assert.Equal(t, Idle{}, board.DragState())
	assert.ErrorIs(t, board.DragStart("missing"), errs.ErrNotFound)
}

func Test_Drop_WhenPersistFails_ShouldRollBackAndWarn(t *testing.T) {
	assert := assert.New(t)

	board, store, repo, sink := newBoard(t, 1)
	repo.On("UpdateStatus", mock.Anything, "p1", models.StatusApproved, mock.Anything).
		Return(errors.New("permission denied")).Once()

	assert.NoError(board.DragStart("p1"))
	err := board.Drop(context.Background(), models.StatusApproved)

	assert.ErrorIs(err, errs.ErrTransitionPersist)
	assert.Equal(models.StatusPending, status(store, "p1"))
	if assert.Len(sink.notices, 1) {
		assert.Equal(NoticeWarning, sink.notices[0].Level)
	}
}

func Test_ApproveSelected_WhenOneMemberFails_ShouldReportCounts(t *testing.T) {
	assert := assert.New(t)

	board, store, repo, sink := newBoard(t, 5)
	repo.On("UpdateStatus", mock.Anything, "p3", models.StatusApproved, mock.Anything).
		Return(errors.New("timeout")).Once()
	repo.On("UpdateStatus", mock.Anything, mock.Anything, models.StatusApproved, mock.Anything).Return(nil)

	board.SelectAll()
	assert.Equal([]string{"p1", "p2", "p3", "p4", "p5"}, board.Selected())

	result := board.ApproveSelected(context.Background())

	assert.Equal([]string{"p1", "p2", "p4", "p5"}, result.Succeeded)
	assert.Equal([]string{"p3"}, result.Failed)
	assert.Equal("4 succeeded, 1 failed", result.String())
	for _, id := range result.Succeeded {
		assert.Equal(models.StatusApproved, status(store, id))
	}
	assert.Equal(models.StatusPending, status(store, "p3"))

	assert.Empty(board.Selected())
	if assert.Len(sink.notices, 1) {
		assert.Equal(Notice{Level: NoticeWarning, Text: "4 succeeded, 1 failed"}, sink.notices[0])
	}
}

func Test_RejectSelected_WhenAllSucceed_ShouldClearSelection(t *testing.T) {
	assert := assert.New(t)

	board, store, repo, sink := newBoard(t, 3)
	repo.On("UpdateStatus", mock.Anything, mock.Anything, models.StatusRejected, mock.Anything).Return(nil)

	assert.True(board.Toggle("p3"))
	assert.True(board.Toggle("p1"))
	assert.True(board.Toggle("p2"))
	assert.False(board.Toggle("p2"))

	result := board.RejectSelected(context.Background())

	assert.Equal([]string{"p1", "p3"}, result.Succeeded)
	assert.Equal(models.StatusRejected, status(store, "p1"))
	assert.Equal(models.StatusPending, status(store, "p2"))
	assert.False(board.IsSelected("p1"))
	assert.Equal(NoticeInfo, sink.notices[0].Level)
}

func Test_DeleteSelected_ShouldDropSucceededFromStore(t *testing.T) {
	assert := assert.New(t)

	board, store, repo, _ := newBoard(t, 2)
	repo.On("Delete", mock.Anything, "p1").Return(nil).Once()
	repo.On("Delete", mock.Anything, "p2").Return(errors.New("forbidden")).Once()

	assert.True(board.Open("p1"))
	board.SelectAll()
	result := board.DeleteSelected(context.Background())

	assert.Equal("1 succeeded, 1 failed", result.String())
	_, found := store.Get("p1")
	assert.False(found)
	_, found = store.Get("p2")
	assert.True(found)
	_, active := board.Active()
	assert.False(active)
}

func Test_HandleKey_WhenNoActiveProposal_ShouldBeInert(t *testing.T) {
	board, _, repo, _ := newBoard(t, 2)

	handled, err := board.HandleKey(context.Background(), KeyEvent{Key: "a"})

	assert.False(t, handled)
	assert.NoError(t, err)
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func Test_HandleKey_WhenInputFocusedOrModifierHeld_ShouldPassThrough(t *testing.T) {
	assert := assert.New(t)

	board, store, _, _ := newBoard(t, 2)
	assert.True(board.Open("p1"))

	for _, ev := range []KeyEvent{
		{Key: "a", InputFocused: true},
		{Key: "a", Ctrl: true},
		{Key: "r", Alt: true},
		{Key: "j", Meta: true},
	} {
		handled, err := board.HandleKey(context.Background(), ev)
		assert.False(handled, "%+v", ev)
		assert.NoError(err)
	}

	assert.Equal(models.StatusPending, status(store, "p1"))
	id, _ := board.Active()
	assert.Equal("p1", id)
}

func Test_HandleKey_ShouldApproveRejectAndNavigate(t *testing.T) {
	assert := assert.New(t)

	board, store, repo, _ := newBoard(t, 3)
	repo.On("UpdateStatus", mock.Anything, "p1", models.StatusApproved, mock.Anything).Return(nil).Once()
	repo.On("UpdateStatus", mock.Anything, "p2", models.StatusRejected, mock.Anything).Return(nil).Once()

	assert.True(board.Open("p1"))

	handled, err := board.HandleKey(context.Background(), KeyEvent{Key: "a"})
	assert.True(handled)
	assert.NoError(err)
	assert.Equal(models.StatusApproved, status(store, "p1"))

	// p1 moved to the approved column, so the rendered order is now p2, p3, p1
	handled, _ = board.HandleKey(context.Background(), KeyEvent{Key: "up"})
	assert.True(handled)
	id, _ := board.Active()
	assert.Equal("p3", id)

	_, _ = board.HandleKey(context.Background(), KeyEvent{Key: "k"})
	id, _ = board.Active()
	assert.Equal("p2", id)

	_, _ = board.HandleKey(context.Background(), KeyEvent{Key: "left"})
	id, _ = board.Active()
	assert.Equal("p2", id)

	handled, err = board.HandleKey(context.Background(), KeyEvent{Key: "r"})
	assert.True(handled)
	assert.NoError(err)
	assert.Equal(models.StatusRejected, status(store, "p2"))

	handled, _ = board.HandleKey(context.Background(), KeyEvent{Key: "x"})
	assert.False(handled)

	handled, _ = board.HandleKey(context.Background(), KeyEvent{Key: "esc"})
	assert.True(handled)
	_, active := board.Active()
	assert.False(active)
}

func Test_HandleKey_WhenShortcutsDisabled_ShouldPassThrough(t *testing.T) {
	_, store, _, _ := newBoard(t, 1)
	board := New(store, nil, Options{KeyboardShortcuts: false})
	assert.True(t, board.Open("p1"))

	handled, err := board.HandleKey(context.Background(), KeyEvent{Key: "a"})

	assert.False(t, handled)
	assert.NoError(t, err)
}

func Test_Resize_ShouldSwitchLayoutWithoutTouchingPipeline(t *testing.T) {
	assert := assert.New(t)

	board, store, _, _ := newBoard(t, 2)
	version := store.Version()

	assert.Equal(LayoutColumns, board.Layout())
	assert.True(board.Resize(800))
	assert.Equal(LayoutStacked, board.Layout())
	assert.False(board.Resize(900))

	assert.True(board.ToggleSection(models.StatusRejected))
	assert.True(board.Collapsed(models.StatusRejected))
	assert.False(board.Collapsed(models.StatusPending))

	assert.True(board.Resize(1024))
	assert.Equal(LayoutColumns, board.Layout())
	assert.False(board.Collapsed(models.StatusRejected))

	assert.Equal(version, store.Version())
}
