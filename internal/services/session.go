package services

import (
	"context"
	"errors"
	"github.com/asaskevich/EventBus"
	"github.com/maxaizer/recruit-pipeline/internal/board"
	"github.com/maxaizer/recruit-pipeline/internal/config"
	"github.com/maxaizer/recruit-pipeline/internal/domain/errs"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/maxaizer/recruit-pipeline/internal/messaging"
	"github.com/maxaizer/recruit-pipeline/internal/notifications"
	"github.com/maxaizer/recruit-pipeline/internal/pipeline"
	log "github.com/sirupsen/logrus"
)

type SessionDeps struct {
	Proposals proposalRepository
	Offers    offerRepository
	Messages  messageRepository
	Bus       EventBus.Bus
	Publisher livePublisher
}

// Session is everything one viewer works with: the pipeline, the board, conversations and the
// activity badge, kept current by the live channel.
type Session struct {
	Viewer        models.Viewer
	Proposals     *pipeline.Store
	Board         *board.Board
	Conversations *messaging.Conversations
	Notifications *notifications.Aggregator
	Notices       *NoticeLog

	live      *LiveSync
	scheduler *ResyncScheduler
	resyncOn  string
}

func NewSession(viewer models.Viewer, cfg *config.Config, deps SessionDeps) *Session {
	s := &Session{
		Viewer:   viewer,
		Notices:  NewNoticeLog(50),
		resyncOn: cfg.Sync.ResyncCron,
	}

	proposals := NewLiveProposals(deps.Proposals, deps.Offers, deps.Publisher, viewer)
	s.Proposals = pipeline.NewStore(viewer, proposals)

	if cfg.Features.KanbanEnabled {
		s.Board = board.New(s.Proposals, s.Notices, board.Options{
			LayoutBreakpoint:  cfg.Board.LayoutBreakpoint,
			KeyboardShortcuts: cfg.Features.KeyboardShortcuts,
		})
	}

	var messages messageSession
	if cfg.Features.MessagingEnabled {
		s.Conversations = messaging.NewConversations(viewer, NewLiveMessages(deps.Messages, deps.Publisher)).
			WithSeparatorGap(cfg.Board.SeparatorGap)
		messages = s.Conversations
		s.Notifications = notifications.NewAggregator(viewer, deps.Bus, s.Conversations)
	} else {
		s.Notifications = notifications.NewAggregator(viewer, deps.Bus, nil)
	}

	s.live = NewLiveSync(viewer, deps.Bus, s.Proposals, messages, cfg.Sync.ReconnectPerMinute)
	return s
}

// Start subscribes to live updates, loads the initial state and starts the scheduled resync.
// A failed initial load is logged; the session stays usable and retries on the next resync.
func (s *Session) Start(ctx context.Context) error {
	go s.Notices.Run()

	if err := s.live.Start(); err != nil {
		return err
	}
	if err := s.Notifications.Start(); err != nil {
		return err
	}

	if err := s.live.Resync(ctx); err != nil && !errors.Is(err, errs.ErrDiscarded) {
		log.Errorf("initial load of session %s failed: %v", s.Viewer.Email, err)
		s.Notices.Notify(board.Notice{Level: board.NoticeError, Text: "Impossibile caricare i dati, nuovo tentativo a breve."})
	}

	scheduler, err := NewResyncScheduler(s.live, s.resyncOn)
	if err != nil {
		return err
	}
	s.scheduler = scheduler
	return nil
}

func (s *Session) Close() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
	s.Proposals.Detach()
	if err := errors.Join(s.live.Stop(), s.Notifications.Stop()); err != nil {
		log.Warnf("failed to unsubscribe session %s: %v", s.Viewer.Email, err)
	}
	s.Notices.Close()
}
