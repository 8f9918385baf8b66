package reactive

import (
	"github.com/goliatone/go-reactive/config"
	"github.com/goliatone/go-reactive/pkg/activity"
)

// OptionsFromConfig turns a loaded configuration into hub options. The
// logger is built from the configured level.
func OptionsFromConfig(cfg config.Config) ([]Option, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	return []Option{
		WithName(cfg.Name),
		WithEventName(cfg.EventName),
		WithEngine(cfg.Engine),
		WithLogger(logger),
		WithActivityConfig(activity.Config{
			Enabled: cfg.Activity.Enabled,
			Channel: cfg.Activity.Channel,
			Actor:   cfg.Activity.Actor,
			Kinds:   cfg.Activity.Kinds,
		}),
	}, nil
}
