package parley

import (
	"context"

	"github.com/aretw0/parley/pkg/runner"
)

// RunSession drives an interactive conversation against the bot until
// the user types an exit sentinel or input reaches EOF. It is a thin
// convenience over pkg/runner for the common terminal case; construct a
// runner.Runner directly for custom I/O, stores or renderers.
func RunSession(ctx context.Context, bot *Bot, opts ...runner.Option) error {
	r := runner.New(opts...)
	return r.Run(ctx, bot)
}
