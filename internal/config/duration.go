package config

import (
	"fmt"
	"time"
)

// Duration is a time.Duration written as "500ms" or "2m" in TOML files,
// environment variables, and flags.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return time.Duration(d).String() }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	return d.Decode(string(b))
}

// Decode implements envdecode.Decoder.
func (d *Duration) Decode(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// durationValue adapts Duration to pflag.Value.
type durationValue Duration

func (v *durationValue) String() string { return Duration(*v).String() }

func (v *durationValue) Set(s string) error { return (*Duration)(v).Decode(s) }

func (v *durationValue) Type() string { return "duration" }
