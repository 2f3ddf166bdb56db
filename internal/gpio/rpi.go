package gpio

import (
	"context"
	"fmt"
	"strconv"

	rpio "github.com/warthog618/gpio"
)

type rpiDriver struct{}

func openRPi() (Driver, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open bcm2835 registers: %w", err)
	}
	return &rpiDriver{}, nil
}

func (d *rpiDriver) Output(name string) (Output, error) {
	n, err := bcmNumber(name)
	if err != nil {
		return nil, err
	}
	pin := rpio.NewPin(n)
	pin.Output()
	pin.Low()
	return &rpiOutput{pin: pin, num: n}, nil
}

func (d *rpiDriver) Input(name string) (Input, error) {
	n, err := bcmNumber(name)
	if err != nil {
		return nil, err
	}
	pin := rpio.NewPin(n)
	pin.Input()
	pin.PullUp()
	return &rpiInput{pin: pin, num: n}, nil
}

func (d *rpiDriver) Close() error { return rpio.Close() }

type rpiOutput struct {
	pin *rpio.Pin
	num int
}

func (o *rpiOutput) Name() string { return "GPIO" + strconv.Itoa(o.num) }

func (o *rpiOutput) Set(l Level) error {
	if l == High {
		o.pin.High()
	} else {
		o.pin.Low()
	}
	return nil
}

type rpiInput struct {
	pin *rpio.Pin
	num int
}

func (i *rpiInput) Name() string { return "GPIO" + strconv.Itoa(i.num) }

func (i *rpiInput) Read() (Level, error) {
	return Level(i.pin.Read() == rpio.High), nil
}

func (i *rpiInput) Watch(ctx context.Context, onRising func()) error {
	if err := i.pin.Watch(rpio.EdgeRising, func(*rpio.Pin) { onRising() }); err != nil {
		return fmt.Errorf("watch %s: %w", i.Name(), err)
	}
	<-ctx.Done()
	i.pin.Unwatch()
	return nil
}
