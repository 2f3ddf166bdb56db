// Package gpio drives the relay and indicator outputs and watches the motion
// input. Three drivers are available:
//
//   - periph: periph.io host drivers (sysfs / character device / memory mapped)
//   - rpi:    warthog618/gpio, memory mapped BCM2835 registers on a Raspberry Pi
//   - fake:   in-memory lines for tests and bench runs without hardware
//
// Outputs are configured push-pull and start Low. Inputs are configured
// with the pull-up enabled and rising-edge detection.
package gpio

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/notifyhub/garage-controller/internal/domain"
)

// Level is a logic level on a line.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "high"
	}
	return "low"
}

// Output is a push-pull output line.
type Output interface {
	Name() string
	Set(l Level) error
}

// Input is an input line with rising-edge detection.
type Input interface {
	Name() string
	Read() (Level, error)
	// Watch calls onRising for every rising edge until ctx is done.
	// It returns nil once ctx ends, or an error if edge detection
	// could not be set up.
	Watch(ctx context.Context, onRising func()) error
}

// Driver hands out configured lines.
type Driver interface {
	Output(name string) (Output, error)
	Input(name string) (Input, error)
	Close() error
}

// Driver names accepted by Open.
const (
	DriverPeriph = "periph"
	DriverRPi    = "rpi"
	DriverFake   = "fake"
)

// Open initialises the named driver.
func Open(name string) (Driver, error) {
	switch strings.ToLower(name) {
	case DriverPeriph:
		return openPeriph()
	case DriverRPi:
		return openRPi()
	case DriverFake:
		return NewFake(), nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownDriver, name)
	}
}

// bcmNumber parses "GPIO17", "gpio17" or "17" into a BCM pin number.
func bcmNumber(name string) (int, error) {
	s := strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)), "GPIO")
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownLine, name)
	}
	return n, nil
}
