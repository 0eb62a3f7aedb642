package workers

import (
	"context"

	"go.uber.org/fx"
)

// Module provides feed workers for fx DI
var Module = fx.Module("feed-workers",
	fx.Provide(NewScheduler),
	fx.Invoke(registerLifecycle),
)

// registerLifecycle registers the scheduler with fx.Lifecycle
func registerLifecycle(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.Stop()
			return nil
		},
	})
}
