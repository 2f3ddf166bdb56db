package gpio

import (
	"context"
	"fmt"
	"time"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/notifyhub/garage-controller/internal/domain"
)

// edgePoll bounds each WaitForEdge call so Watch notices cancellation.
const edgePoll = 250 * time.Millisecond

type periphDriver struct{}

func openPeriph() (Driver, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	return &periphDriver{}, nil
}

func (d *periphDriver) lookup(name string) (pgpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownLine, name)
	}
	return p, nil
}

func (d *periphDriver) Output(name string) (Output, error) {
	p, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if err := p.Out(pgpio.Low); err != nil {
		return nil, fmt.Errorf("configure output %s: %w", name, err)
	}
	return &periphOutput{pin: p}, nil
}

func (d *periphDriver) Input(name string) (Input, error) {
	p, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if err := p.In(pgpio.PullUp, pgpio.RisingEdge); err != nil {
		return nil, fmt.Errorf("configure input %s: %w", name, err)
	}
	return &periphInput{pin: p}, nil
}

func (d *periphDriver) Close() error { return nil }

type periphOutput struct {
	pin pgpio.PinIO
}

func (o *periphOutput) Name() string { return o.pin.Name() }

func (o *periphOutput) Set(l Level) error {
	return o.pin.Out(pgpio.Level(l))
}

type periphInput struct {
	pin pgpio.PinIO
}

func (i *periphInput) Name() string { return i.pin.Name() }

func (i *periphInput) Read() (Level, error) {
	return Level(i.pin.Read()), nil
}

func (i *periphInput) Watch(ctx context.Context, onRising func()) error {
	defer i.pin.Halt() //nolint:errcheck
	for {
		if ctx.Err() != nil {
			return nil
		}
		if i.pin.WaitForEdge(edgePoll) {
			onRising()
		}
	}
}
