package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/notifyhub/garage-controller/internal/actuator"
	"github.com/notifyhub/garage-controller/internal/clock"
	"github.com/notifyhub/garage-controller/internal/config"
	"github.com/notifyhub/garage-controller/internal/gpio"
	"github.com/notifyhub/garage-controller/internal/logging"
)

// newPulseCmd runs one actuation sequence on an output and exits; used to
// check wiring on the bench.
func newPulseCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "pulse <relay|indicator>",
		Short:     "Run one actuation sequence on an output line",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"relay", "indicator"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath, cmd.Flags())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, _, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			pin := cfg.GPIO.RelayPin
			if args[0] == "indicator" {
				pin = cfg.GPIO.IndicatorPin
			}

			drv, err := gpio.Open(cfg.GPIO.Driver)
			if err != nil {
				return fmt.Errorf("open gpio driver: %w", err)
			}
			defer drv.Close()

			line, err := drv.Output(pin)
			if err != nil {
				return fmt.Errorf("configure %s: %w", pin, err)
			}

			seq := actuator.New(line, timing(cfg), clock.Real(), logger)
			if err := seq.Pulse(cmd.Context()); err != nil {
				return err
			}
			logger.Info("pulse complete", zap.String("line", pin), zap.String("output", args[0]))
			return nil
		},
	}
}

func timing(cfg *config.Config) actuator.Timing {
	return actuator.Timing{
		Settle: cfg.Actuation.Settle.Std(),
		Hold:   cfg.Actuation.Hold.Std(),
	}
}
