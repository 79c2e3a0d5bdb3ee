package rolecall

import "github.com/teamflow/rolecall/types"

// Option configures a Coordinator or Hub with optional dependencies.
type Option func(*options)

// options holds the optional dependencies shared by both constructors.
type options struct {
	logger  types.Logger
	metrics types.MetricsCollector
	hooks   *types.Hooks
}

// WithLogger sets a structured logger.
//
// Parameters:
//   - logger: Logger implementation (slog-compatible)
//
// Returns:
//   - Option: Functional option for NewCoordinator / NewHub
//
// Example:
//
//	logger := logging.NewSlog(slog.Default())
//	coord, err := rolecall.NewCoordinator(&cfg, deps, rolecall.WithLogger(logger))
func WithLogger(logger types.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator / NewHub
func WithMetrics(metrics types.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithHooks sets lifecycle event hooks.
//
// Hooks run in background goroutines and never block coordinator
// operations; hook errors are logged.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	hooks := &rolecall.Hooks{
//	    OnFinalized: func(ctx context.Context, sessionID string, assignments []rolecall.RoleAssignment) error {
//	        return notifyTeamLog(ctx, sessionID, assignments)
//	    },
//	}
//	coord, err := rolecall.NewCoordinator(&cfg, deps, rolecall.WithHooks(hooks))
func WithHooks(hooks *types.Hooks) Option {
	return func(o *options) {
		o.hooks = hooks
	}
}
