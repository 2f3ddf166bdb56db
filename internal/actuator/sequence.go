package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/clock"
	"github.com/notifyhub/garage-controller/internal/domain"
	"github.com/notifyhub/garage-controller/internal/gpio"
)

// State is the phase of an actuation sequence.
type State string

const (
	StateIdle      State = "idle"
	StateAsserting State = "asserting"
	StateReleasing State = "releasing"
)

// Timing holds the two delays of an actuation sequence.
type Timing struct {
	// Settle is how long the line is held deasserted before asserting.
	Settle time.Duration
	// Hold is how long the line stays asserted.
	Hold time.Duration
}

// DefaultTiming is the pulse used for both the relay and the indicator.
var DefaultTiming = Timing{Settle: 100 * time.Millisecond, Hold: 500 * time.Millisecond}

// Sequencer drives one output line through the fixed pulse
//
//	Idle -> Asserting (low, wait Settle, high) -> Releasing (wait Hold, low) -> Idle
//
// Pulses on the same Sequencer run one at a time.
type Sequencer struct {
	line   gpio.Output
	timing Timing
	clock  clock.Clock
	logger *zap.Logger

	run     sync.Mutex
	stateMu sync.RWMutex
	state   State
}

func New(line gpio.Output, timing Timing, c clock.Clock, logger *zap.Logger) *Sequencer {
	if c == nil {
		c = clock.Real()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sequencer{
		line:   line,
		timing: timing,
		clock:  c,
		logger: logger.With(zap.String("line", line.Name())),
		state:  StateIdle,
	}
}

// Name returns the driven line's name.
func (s *Sequencer) Name() string { return s.line.Name() }

// State returns the current phase.
func (s *Sequencer) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Sequencer) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// Pulse runs one full sequence, blocking the caller for Settle+Hold.
// If ctx ends mid-sequence the line is left Low and the returned error
// wraps ErrActuationCanceled.
func (s *Sequencer) Pulse(ctx context.Context) error {
	s.run.Lock()
	defer s.run.Unlock()
	defer s.setState(StateIdle)

	s.setState(StateAsserting)
	if err := s.line.Set(gpio.Low); err != nil {
		return fmt.Errorf("deassert %s: %w", s.line.Name(), err)
	}
	if err := s.wait(ctx, s.timing.Settle); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrActuationCanceled, err)
	}
	if err := s.line.Set(gpio.High); err != nil {
		return fmt.Errorf("assert %s: %w", s.line.Name(), err)
	}

	s.setState(StateReleasing)
	if err := s.wait(ctx, s.timing.Hold); err != nil {
		if lowErr := s.line.Set(gpio.Low); lowErr != nil {
			s.logger.Error("failed to release line after interruption", zap.Error(lowErr))
		}
		return fmt.Errorf("%w: %w", domain.ErrActuationCanceled, err)
	}
	if err := s.line.Set(gpio.Low); err != nil {
		return fmt.Errorf("release %s: %w", s.line.Name(), err)
	}

	s.logger.Debug("pulse complete")
	return nil
}

func (s *Sequencer) wait(ctx context.Context, d time.Duration) error {
	select {
	case <-s.clock.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
