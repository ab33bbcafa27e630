package logscmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/rzbill/logstore/internal/runtime"
)

// NewCommands returns the operator subcommands. Every command opens the store
// through open, runs, and shuts it down again.
func NewCommands(open OpenFunc) []*cobra.Command {
	return []*cobra.Command{
		newPutCommand(open),
		newCountCommand(open),
		newPeekCommand(open),
		newDrainCommand(open),
		newPurgeCommand(open),
		newChannelsCommand(open),
		newCapacityCommand(open),
		newCompactCommand(open),
	}
}

// withRuntime opens a runtime for the duration of fn.
func withRuntime(cmd *cobra.Command, open OpenFunc, fn func(ctx context.Context, rt *runtime.Runtime) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		drained, cerr := rt.Close(rt.ShutdownTimeout())
		if cerr != nil {
			err = errors.Join(err, cerr)
		} else if !drained {
			err = errors.Join(err, errors.New("storage did not drain before the shutdown timeout"))
		}
	}()
	return fn(ctx, rt)
}

func requireChannel(cmd *cobra.Command) (string, error) {
	ch, _ := cmd.Flags().GetString("channel")
	if ch == "" {
		return "", errors.New("--channel is required")
	}
	return ch, nil
}
