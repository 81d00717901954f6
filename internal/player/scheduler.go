package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soniclayer/nowplayd/internal/shared"
)

// stopThreshold is how many consecutive missing-session polls the scheduler
// absorbs before it reports playback as stopped. Local providers briefly
// report no session during track transitions; without the debounce the
// display would flicker between playing and stopped.
const stopThreshold = 3

// EventKind discriminates scheduler events.
type EventKind int

const (
	// EventTrack carries a new or updated track snapshot.
	EventTrack EventKind = iota
	// EventStopped reports that nothing is playing.
	EventStopped
	// EventError is advisory: a poll failed but polling continues.
	EventError
)

// Event is one scheduler emission. Events for a source are delivered in poll
// order.
type Event struct {
	Kind   EventKind
	Track  *TrackSnapshot
	Err    error
	Source string
}

// Scheduler drives a Source on a fixed interval from a single goroutine, so
// no two polls for the same source overlap. Poll results pass through a
// ChangeDetector before being emitted on the events channel.
type Scheduler struct {
	src      Source
	detector *ChangeDetector
	logger   *log.Logger
	events   chan Event

	mu           sync.Mutex
	cancel       context.CancelFunc
	done         chan struct{}
	misses       int
	connectivity Connectivity
}

// NewScheduler creates a scheduler for the given source.
func NewScheduler(src Source, detector *ChangeDetector, logger *log.Logger) *Scheduler {
	if detector == nil {
		detector = NewChangeDetector(nil)
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Scheduler{
		src:      src,
		detector: detector,
		logger:   logger,
		events:   make(chan Event, 16),
	}
}

// Events returns the scheduler's output channel. The channel is never
// closed; consumers stop reading after Stop.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// Connectivity returns the current connectivity state.
func (s *Scheduler) Connectivity() Connectivity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectivity
}

// Start cancels any prior run, then issues one immediate poll followed by
// recurring polls every interval until Stop.
func (s *Scheduler) Start(interval time.Duration) {
	s.Stop()

	s.mu.Lock()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.misses = 0
	s.connectivity = ConnectivityUnknown
	s.mu.Unlock()

	s.logger.Debugf("starting %s polling every %v", s.src.Name(), interval)
	go s.run(ctx, interval, done)
}

// Stop cancels the recurring polls and waits out any poll already in flight.
// After Stop returns no further event is emitted. Safe to call when already
// stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Scheduler) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Scheduler) poll(ctx context.Context) {
	snap, err := s.src.Poll(ctx)

	switch {
	case err == nil && snap != nil:
		s.mu.Lock()
		s.misses = 0
		s.connectivity = ConnectivityConnected
		s.mu.Unlock()

		resolved, changed := s.detector.Observe(ctx, *snap)
		if changed {
			s.emit(ctx, Event{Kind: EventTrack, Track: &resolved, Source: s.src.Name()})
		}

	case err == nil:
		// Definitive nothing-playing signal (Web API 204): no debounce.
		s.mu.Lock()
		s.misses = 0
		s.connectivity = ConnectivityStopped
		s.mu.Unlock()

		s.detector.Reset()
		s.emit(ctx, Event{Kind: EventStopped, Source: s.src.Name()})

	case errors.Is(err, shared.ErrNoSession):
		s.mu.Lock()
		s.misses++
		stopped := s.misses >= stopThreshold
		if stopped {
			s.connectivity = ConnectivityStopped
		}
		s.mu.Unlock()

		if stopped {
			s.detector.Reset()
			s.emit(ctx, Event{Kind: EventStopped, Source: s.src.Name()})
		}

	default:
		// Transient, auth and malformed failures are advisory; they never
		// affect the miss counter or connectivity.
		s.logger.Warnf("%s poll failed: %v", s.src.Name(), err)
		s.emit(ctx, Event{Kind: EventError, Err: err, Source: s.src.Name()})
	}
}

func (s *Scheduler) emit(ctx context.Context, e Event) {
	select {
	case s.events <- e:
	case <-ctx.Done():
	}
}
