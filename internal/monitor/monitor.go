// Package monitor runs the polling loop: fetch messages in the lookback
// window, evaluate the ones not seen before, persist outcomes, and
// notify on new matches.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rvashist/mailwatch/internal/config"
	"github.com/rvashist/mailwatch/internal/notify"
	"github.com/rvashist/mailwatch/internal/scan"
	"github.com/rvashist/mailwatch/internal/source"
	"github.com/rvashist/mailwatch/internal/store"
	"github.com/rvashist/mailwatch/internal/types"
)

// ErrCycleInFlight is returned by RunOnce when a cycle is already
// executing. The caller's request is coalesced, not queued.
var ErrCycleInFlight = errors.New("a check cycle is already running")

// ErrAlreadyStarted is returned by Start on a running scheduler.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Scheduler owns the recurring poll timer and enforces the at-most-one
// cycle invariant across the timer and manual RunOnce calls.
type Scheduler struct {
	cfg      *config.Config
	source   source.Source
	store    *store.Store
	notifier notify.Notifier
	eval     *scan.Evaluator
	log      *zap.Logger

	// now is the cycle clock; replaced in tests.
	now func() time.Time

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// cycleMu serializes cycles: the timer and manual RunOnce both take
	// it, and TryLock turns contention into coalescing.
	cycleMu sync.Mutex

	lastMu sync.Mutex
	last   *types.CycleResult
}

// New wires a scheduler. Config is validated at Start, not here.
func New(cfg *config.Config, src source.Source, st *store.Store, n notify.Notifier, log *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		source:   src,
		store:    st,
		notifier: n,
		eval:     scan.NewEvaluator(cfg.Keyword, log),
		log:      log,
		now:      time.Now,
	}
}

// Start validates the config, runs one cycle immediately, and arms the
// recurring timer. It returns a config.Error before any cycle runs when
// the settings are invalid.
func (s *Scheduler) Start() error {
	if err := s.cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	s.mu.Unlock()

	go s.loop(ctx)
	return nil
}

// Stop cancels the timer and waits for any in-flight cycle to finish.
// Cancellation is cooperative: the cycle observes it between
// message-level work units, never mid-extraction.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Running reports whether the recurring timer is armed.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	s.tick(ctx)

	ticker := time.NewTicker(time.Duration(s.cfg.IntervalSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	res, err := s.RunOnce(ctx)
	switch {
	case errors.Is(err, ErrCycleInFlight):
		// A manual check is running; this tick is coalesced.
	case err != nil:
		s.log.Error("check cycle failed", zap.Error(err))
	default:
		s.log.Info("check cycle complete",
			zap.Int("fetched", res.Fetched),
			zap.Int("skipped", res.Skipped),
			zap.Int("evaluated", res.Evaluated),
			zap.Int("new_matches", res.NewMatches))
	}
}

// RunOnce executes a single cycle. Usable whether or not the scheduler
// is started; if a cycle is already in flight it returns ErrCycleInFlight
// immediately instead of queuing.
func (s *Scheduler) RunOnce(ctx context.Context) (types.CycleResult, error) {
	if !s.cycleMu.TryLock() {
		return types.CycleResult{}, ErrCycleInFlight
	}
	defer s.cycleMu.Unlock()

	res, err := s.cycle(ctx)
	s.setLast(res)
	return res, err
}

// LastCycle returns the most recent cycle result, if any cycle has run.
func (s *Scheduler) LastCycle() (types.CycleResult, bool) {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	if s.last == nil {
		return types.CycleResult{}, false
	}
	return *s.last, true
}

func (s *Scheduler) setLast(res types.CycleResult) {
	s.lastMu.Lock()
	s.last = &res
	s.lastMu.Unlock()
}

// cycle is one fetch → evaluate → record → notify pass. A fetch failure
// aborts it with all state untouched; failures below the message level
// never abort it.
func (s *Scheduler) cycle(ctx context.Context) (types.CycleResult, error) {
	res := types.CycleResult{StartedAt: s.now()}
	since := s.now().AddDate(0, 0, -s.cfg.LookbackDays)

	fetchCtx, cancelFetch := context.WithTimeout(ctx, time.Duration(s.cfg.FetchTimeoutSeconds)*time.Second)
	msgs, err := s.source.FetchMessages(fetchCtx, since)
	cancelFetch()
	if err != nil {
		res.Error = err.Error()
		res.FinishedAt = s.now()
		return res, fmt.Errorf("cycle aborted: %w", err)
	}
	res.Fetched = len(msgs)

	var pending []types.Message
	for _, m := range msgs {
		if s.store.HasEvaluated(m.ID) {
			res.Skipped++
			continue
		}
		pending = append(pending, m)
	}

	// Extraction is CPU-bound and independent per message, so pending
	// messages are evaluated in parallel. Outcomes land in fixed slots so
	// commit order below stays deterministic.
	records := make([]*types.MatchRecord, len(pending))
	evaluated := make([]bool, len(pending))

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.MaxConcurrency)
	for i := range pending {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			records[i] = s.safeEvaluate(pending[i])
			evaluated[i] = true
			return nil
		})
	}
	g.Wait()

	for i, msg := range pending {
		if ctx.Err() != nil {
			res.Error = "cycle interrupted: " + ctx.Err().Error()
			break
		}
		if !evaluated[i] {
			continue
		}

		rec := records[i]
		if err := s.store.RecordEvaluated(msg.ID, rec); err != nil {
			var ce *store.ConsistencyError
			if errors.As(err, &ce) {
				s.log.Error("dedup store consistency violation", zap.Error(ce))
			} else {
				s.log.Error("record evaluated outcome",
					zap.String("message_id", msg.ID), zap.Error(err))
			}
			continue
		}
		res.Evaluated++

		// The outcome is durable; the sink gets the record exactly once.
		if rec != nil {
			res.NewMatches++
			if err := s.notifier.Notify(ctx, *rec); err != nil {
				s.log.Warn("notify match", zap.String("message_id", msg.ID), zap.Error(err))
			}
		}
	}

	res.FinishedAt = s.now()
	return res, nil
}

// safeEvaluate treats an unexpected per-message failure as "no match" so
// one poisoned message cannot abort the cycle.
func (s *Scheduler) safeEvaluate(msg types.Message) (rec *types.MatchRecord) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Warn("message evaluation failed; treating as no match",
				zap.String("message_id", msg.ID),
				zap.Any("panic", r))
			rec = nil
		}
	}()
	return s.eval.Evaluate(msg)
}
