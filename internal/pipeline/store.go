package pipeline

import (
	"context"
	"github.com/maxaizer/recruit-pipeline/internal/domain/errs"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"github.com/maxaizer/recruit-pipeline/internal/logger"
	"github.com/maxaizer/recruit-pipeline/internal/metrics"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"slices"
	"sync"
	"time"
)

type proposalRepository interface {
	ListForViewer(ctx context.Context, viewer models.Viewer) ([]models.Proposal, error)
	UpdateStatus(ctx context.Context, id string, status models.Status, updatedAt time.Time) error
	Delete(ctx context.Context, id string) error
}

// Store owns the proposals visible to one viewer session. Callers only ever receive copies;
// every mutation goes through the store's operations.
type Store struct {
	viewer models.Viewer
	repo   proposalRepository
	now    func() time.Time

	mu         sync.RWMutex
	proposals  map[string]models.Proposal
	pending    map[string][]*transitionCommand
	acked      map[string]uint64
	touched    map[string]uint64
	version    uint64
	generation uint64
	seq        uint64
	loading    int

	memoMu sync.Mutex
	memo   struct {
		version uint64
		key     string
		result  []models.Proposal
		valid   bool
	}
}

func NewStore(viewer models.Viewer, repo proposalRepository) *Store {
	return &Store{
		viewer:    viewer,
		repo:      repo,
		now:       time.Now,
		proposals: make(map[string]models.Proposal),
		pending:   make(map[string][]*transitionCommand),
		acked:     make(map[string]uint64),
		touched:   make(map[string]uint64),
	}
}

// WithClock replaces the time source. Used by tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Viewer() models.Viewer {
	return s.viewer
}

// Load replaces the in-memory set with the collaborator's view. A local value survives only when
// it is newer and still settling: a write is in flight or it changed after the load started.
// On failure the last known good set stays in place. Results of a load started before Detach
// are discarded.
func (s *Store) Load(ctx context.Context) error {

	s.mu.Lock()
	generation := s.generation
	startVersion := s.version
	s.loading++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
	}()

	start := time.Now()
	fetched, err := s.repo.ListForViewer(ctx, s.viewer)
	metrics.LoadDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to load proposals for %s: %v", s.viewer.Email, err)
		return errs.Fetch("pipeline.Load", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if generation != s.generation {
		log.Debugf("dropping proposals load for detached view of %s", s.viewer.Email)
		return errs.Discarded("pipeline.Load")
	}

	next := make(map[string]models.Proposal, len(fetched))
	for _, p := range fetched {
		if !p.Status.IsValid() {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeValidation).
				Errorf("proposal %s has unknown status %q, skipped", p.ID, p.Status)
			continue
		}
		if local, ok := s.proposals[p.ID]; ok && s.settling(p.ID, startVersion) && local.Newer(p) {
			next[p.ID] = local
			continue
		}
		next[p.ID] = p
	}

	for id := range s.touched {
		if _, ok := next[id]; !ok {
			delete(s.touched, id)
		}
	}
	s.proposals = next
	s.version++
	log.Infof("loaded %d proposals for %s", len(next), s.viewer.Email)
	return nil
}

// settling reports whether the local value of id may be ahead of a load that began at version.
// Caller holds mu.
func (s *Store) settling(id string, version uint64) bool {
	return len(s.pending[id]) > 0 || s.touched[id] > version
}

// set stores p as the local value of id. Caller holds mu.
func (s *Store) set(p models.Proposal) {
	s.proposals[p.ID] = p
	s.version++
	s.touched[p.ID] = s.version
}

// Loading reports whether a load is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Detach drops interest in loads that are still in flight. Their results are not applied.
func (s *Store) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) Get(id string) (models.Proposal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.proposals[id]
	return p, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.proposals)
}

// Filter returns the proposals matching f, newest first. The result is memoised per store version.
func (s *Store) Filter(f Filter) []models.Proposal {
	s.mu.RLock()
	version := s.version
	key := f.key()

	s.memoMu.Lock()
	if s.memo.valid && s.memo.version == version && s.memo.key == key {
		result := slices.Clone(s.memo.result)
		s.memoMu.Unlock()
		s.mu.RUnlock()
		return result
	}
	s.memoMu.Unlock()

	result := Apply(lo.Values(s.proposals), f)
	s.mu.RUnlock()

	s.memoMu.Lock()
	s.memo.version, s.memo.key, s.memo.result, s.memo.valid = version, key, result, true
	s.memoMu.Unlock()

	return slices.Clone(result)
}

func (s *Store) GroupByStatus(f Filter) []Column {
	return GroupByStatus(s.Filter(f))
}

// RequestTransition applies the transition optimistically and then persists it. A failed write of
// the latest request for a proposal is rolled back exactly. A response for a request that a newer
// one has superseded is not applied.
func (s *Store) RequestTransition(ctx context.Context, id string, target models.Status) error {

	s.mu.Lock()
	current, ok := s.proposals[id]
	if !ok {
		s.mu.Unlock()
		return errs.NotFound("pipeline.RequestTransition", id)
	}

	next, err := Transition(current, target, s.now())
	if err != nil {
		s.mu.Unlock()
		metrics.TransitionsCounter.WithLabelValues("invalid").Inc()
		return err
	}

	s.seq++
	cmd := &transitionCommand{seq: s.seq, before: current, after: next}
	s.pending[id] = append(s.pending[id], cmd)
	s.set(next)
	s.mu.Unlock()

	persistErr := s.repo.UpdateStatus(ctx, id, target, next.UpdatedAt)

	s.mu.Lock()
	defer s.mu.Unlock()

	stale := s.complete(id, cmd, persistErr)

	switch {
	case persistErr == nil && !stale:
		metrics.TransitionsCounter.WithLabelValues("applied").Inc()
		return nil
	case persistErr == nil:
		metrics.TransitionsCounter.WithLabelValues("stale").Inc()
		return nil
	case stale:
		metrics.TransitionsCounter.WithLabelValues("stale").Inc()
		log.Warnf("superseded transition of proposal %s to %s failed: %v", id, target, persistErr)
		return errs.Discarded("pipeline.RequestTransition")
	}

	if p, exists := s.proposals[id]; exists {
		s.set(cmd.undo(p))
	}
	metrics.TransitionsCounter.WithLabelValues("rolled_back").Inc()
	log.WithField(logger.ErrorTypeField, logger.ErrorTypePersistence).
		Errorf("failed to persist transition of proposal %s to %s, rolled back to %s: %v",
			id, target, cmd.before.Status, persistErr)

	return errs.TransitionPersist("pipeline.RequestTransition", persistErr)
}

// complete removes cmd from the pending chain of id and reports whether its response is stale:
// a request issued after it is still pending or has already been acknowledged.
// When a superseded request fails before anything newer was acknowledged, the next pending request
// inherits its pre-state so a later rollback never lands on a value the collaborator did not
// acknowledge.
func (s *Store) complete(id string, cmd *transitionCommand, persistErr error) bool {
	chain := s.pending[id]
	index := slices.Index(chain, cmd)
	if index < 0 {
		return true
	}

	superseded := index < len(chain)-1
	overtaken := s.acked[id] > cmd.seq

	if persistErr == nil && !overtaken {
		s.acked[id] = cmd.seq
	}
	if persistErr != nil && superseded && !overtaken {
		chain[index+1].before = cmd.before
	}

	chain = slices.Delete(chain, index, index+1)
	if len(chain) == 0 {
		delete(s.pending, id)
		delete(s.acked, id)
	} else {
		s.pending[id] = chain
	}
	return superseded || overtaken
}

// InFlight reports whether a transition of id awaits its collaborator response.
func (s *Store) InFlight(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending[id]) > 0
}

// ApplyRemote merges a proposal delivered by the live-update channel. The newer UpdatedAt wins,
// regardless of arrival order. Reports whether the local set changed.
func (s *Store) ApplyRemote(p models.Proposal) bool {
	if !p.Status.IsValid() {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeValidation).
			Errorf("live update for proposal %s has unknown status %q, ignored", p.ID, p.Status)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if local, ok := s.proposals[p.ID]; ok && (local.Newer(p) || local == p) {
		return false
	}

	s.set(p)
	return true
}

// Delete removes a proposal through the collaborator first and then locally. It is an
// administrative side-channel and takes no part in the status pipeline.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, ok := s.Get(id); !ok {
		return errs.NotFound("pipeline.Delete", id)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypePersistence).Errorf("failed to delete proposal %s: %v", id, err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.proposals, id)
	delete(s.touched, id)
	s.version++
	return nil
}
