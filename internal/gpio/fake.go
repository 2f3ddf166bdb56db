package gpio

import (
	"context"
	"sync"
	"time"

	"github.com/notifyhub/garage-controller/internal/clock"
)

// Change is one recorded transition on a fake output.
type Change struct {
	Level Level
	At    time.Time
}

// Fake is an in-memory Driver. Lines are created on first use and shared
// by name, so tests can fetch the same line the code under test drives.
type Fake struct {
	clock clock.Clock

	mu      sync.Mutex
	outputs map[string]*FakeOutput
	inputs  map[string]*FakeInput
}

// FakeOption configures a Fake driver.
type FakeOption func(*Fake)

// WithClock timestamps recorded changes with c instead of the real clock.
func WithClock(c clock.Clock) FakeOption {
	return func(f *Fake) { f.clock = c }
}

func NewFake(opts ...FakeOption) *Fake {
	f := &Fake{
		clock:   clock.Real(),
		outputs: make(map[string]*FakeOutput),
		inputs:  make(map[string]*FakeInput),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fake) Output(name string) (Output, error) { return f.FakeOutput(name), nil }

func (f *Fake) Input(name string) (Input, error) { return f.FakeInput(name), nil }

func (f *Fake) Close() error { return nil }

// FakeOutput returns the named output, creating it Low if needed.
func (f *Fake) FakeOutput(name string) *FakeOutput {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.outputs[name]
	if !ok {
		o = &FakeOutput{name: name, clock: f.clock}
		f.outputs[name] = o
	}
	return o
}

// FakeInput returns the named input, creating it Low if needed.
func (f *Fake) FakeInput(name string) *FakeInput {
	f.mu.Lock()
	defer f.mu.Unlock()
	i, ok := f.inputs[name]
	if !ok {
		i = &FakeInput{name: name}
		f.inputs[name] = i
	}
	return i
}

// FakeOutput records every Set call.
type FakeOutput struct {
	name  string
	clock clock.Clock

	mu      sync.Mutex
	level   Level
	changes []Change
	err     error
}

func (o *FakeOutput) Name() string { return o.name }

func (o *FakeOutput) Set(l Level) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return o.err
	}
	o.level = l
	o.changes = append(o.changes, Change{Level: l, At: o.clock.Now()})
	return nil
}

// FailWith makes subsequent Set calls return err (nil clears it).
func (o *FakeOutput) FailWith(err error) {
	o.mu.Lock()
	o.err = err
	o.mu.Unlock()
}

// Level returns the current level.
func (o *FakeOutput) Level() Level {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.level
}

// Changes returns a copy of the recorded transitions.
func (o *FakeOutput) Changes() []Change {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Change(nil), o.changes...)
}

// Levels returns only the recorded levels, in order.
func (o *FakeOutput) Levels() []Level {
	o.mu.Lock()
	defer o.mu.Unlock()
	levels := make([]Level, len(o.changes))
	for i, c := range o.changes {
		levels[i] = c.Level
	}
	return levels
}

// Reset clears the recorded history.
func (o *FakeOutput) Reset() {
	o.mu.Lock()
	o.changes = nil
	o.mu.Unlock()
}

// FakeInput is a simulated input line.
type FakeInput struct {
	name string

	mu      sync.Mutex
	level   Level
	handler func()
}

func (i *FakeInput) Name() string { return i.name }

func (i *FakeInput) Read() (Level, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.level, nil
}

func (i *FakeInput) Watch(ctx context.Context, onRising func()) error {
	i.mu.Lock()
	i.handler = onRising
	i.mu.Unlock()

	<-ctx.Done()

	i.mu.Lock()
	i.handler = nil
	i.mu.Unlock()
	return nil
}

// Watched reports whether a Watch call is active.
func (i *FakeInput) Watched() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.handler != nil
}

// SetLevel changes the level without signalling an edge.
func (i *FakeInput) SetLevel(l Level) {
	i.mu.Lock()
	i.level = l
	i.mu.Unlock()
}

// Rise drives the line High and delivers a rising edge to the watcher,
// synchronously on the caller's goroutine.
func (i *FakeInput) Rise() {
	i.SetLevel(High)
	i.Edge()
}

// Edge delivers a rising edge without touching the level, which models a
// glitch that has already settled back Low when the handler samples it.
func (i *FakeInput) Edge() {
	i.mu.Lock()
	h := i.handler
	i.mu.Unlock()
	if h != nil {
		h()
	}
}
