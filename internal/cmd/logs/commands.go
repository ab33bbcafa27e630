package logscmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rzbill/logstore/internal/codec"
	"github.com/rzbill/logstore/internal/logstore"
	"github.com/rzbill/logstore/internal/runtime"
)

// newPutCommand constructs the `put` subcommand.
func newPutCommand(open OpenFunc) *cobra.Command {
	putCmd := &cobra.Command{
		Use:   "put",
		Short: "Store one log in a channel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch, err := requireChannel(cmd)
			if err != nil {
				return err
			}
			typ, _ := cmd.Flags().GetString("type")
			data, _ := cmd.Flags().GetString("data")
			dataFile, _ := cmd.Flags().GetString("data-file")
			user, _ := cmd.Flags().GetString("user")
			session, _ := cmd.Flags().GetString("session")
			props, _ := cmd.Flags().GetStringArray("prop")

			l := codec.Log{Type: typ, ID: uuid.New(), Timestamp: time.Now().UTC(), UserID: user, Data: []byte(data)}
			switch dataFile {
			case "":
			case "-":
				if l.Data, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			default:
				if l.Data, err = os.ReadFile(dataFile); err != nil {
					return err
				}
			}
			if session != "" {
				if l.SessionID, err = uuid.Parse(session); err != nil {
					return fmt.Errorf("invalid --session: %w", err)
				}
			}
			if len(props) > 0 {
				l.Properties = make(map[string]string, len(props))
				for _, p := range props {
					k, v, ok := strings.Cut(p, "=")
					if !ok || k == "" {
						return fmt.Errorf("invalid --prop %q; expected key=value", p)
					}
					l.Properties[k] = v
				}
			}

			return withRuntime(cmd, open, func(ctx context.Context, rt *runtime.Runtime) error {
				entryID, err := rt.Storage().PutLog(ch, &l).Wait(ctx)
				if err != nil {
					return err
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"channel": ch, "entry_id": entryID})
			})
		},
	}
	putCmd.Flags().StringP("channel", "c", "", "Channel")
	putCmd.Flags().String("type", "event", "Log type")
	putCmd.Flags().String("data", "", "Log body")
	putCmd.Flags().String("data-file", "", "Read the log body from a file (- for stdin)")
	putCmd.Flags().String("user", "", "User id")
	putCmd.Flags().String("session", "", "Session id (UUID)")
	putCmd.Flags().StringArray("prop", nil, "Property key=value (repeatable)")
	return putCmd
}

// newCountCommand constructs the `count` subcommand.
func newCountCommand(open OpenFunc) *cobra.Command {
	countCmd := &cobra.Command{
		Use:   "count",
		Short: "Count stored logs of a channel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch, err := requireChannel(cmd)
			if err != nil {
				return err
			}
			return withRuntime(cmd, open, func(ctx context.Context, rt *runtime.Runtime) error {
				n, err := rt.Storage().CountLogs(ch).Wait(ctx)
				if err != nil {
					return err
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"channel": ch, "count": n})
			})
		},
	}
	countCmd.Flags().StringP("channel", "c", "", "Channel")
	return countCmd
}

// newPeekCommand constructs the `peek` subcommand. Peeked logs are handed
// back to the queue before the command exits.
func newPeekCommand(open OpenFunc) *cobra.Command {
	peekCmd := &cobra.Command{
		Use:   "peek",
		Short: "Print the oldest pending logs without deleting them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch, err := requireChannel(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			return withRuntime(cmd, open, func(ctx context.Context, rt *runtime.Runtime) error {
				st := rt.Storage()
				batch, err := st.GetLogs(ch, limit).Wait(ctx)
				if err != nil {
					return err
				}
				printBatch(cmd, batch)
				if batch.Empty() {
					return nil
				}
				_, err = st.ReleaseBatches(ch).Wait(ctx)
				return err
			})
		},
	}
	peekCmd.Flags().StringP("channel", "c", "", "Channel")
	peekCmd.Flags().Int("limit", 10, "Maximum number of logs")
	return peekCmd
}

// newDrainCommand constructs the `drain` subcommand.
func newDrainCommand(open OpenFunc) *cobra.Command {
	drainCmd := &cobra.Command{
		Use:   "drain",
		Short: "Print and delete pending logs batch by batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch, err := requireChannel(cmd)
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("limit")
			follow, _ := cmd.Flags().GetBool("follow")
			poll, _ := cmd.Flags().GetDuration("poll")
			return withRuntime(cmd, open, func(ctx context.Context, rt *runtime.Runtime) error {
				st := rt.Storage()
				for ctx.Err() == nil {
					batch, err := st.GetLogs(ch, limit).Wait(ctx)
					if err != nil {
						if ctx.Err() != nil {
							return nil
						}
						return err
					}
					if batch.Empty() {
						if !follow {
							return nil
						}
						st.WaitForLogs(poll)
						continue
					}
					printBatch(cmd, batch)
					if _, err := st.DeleteLogs(ch, batch.ID).Wait(ctx); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	drainCmd.Flags().StringP("channel", "c", "", "Channel")
	drainCmd.Flags().Int("limit", 50, "Logs per batch")
	drainCmd.Flags().BoolP("follow", "f", false, "Keep waiting for new logs until interrupted")
	drainCmd.Flags().Duration("poll", time.Second, "With --follow, how long to wait for new logs between checks")
	return drainCmd
}

func printBatch(cmd *cobra.Command, batch logstore.Batch) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	for i, l := range batch.Logs {
		_ = enc.Encode(logView(batch.EntryIDs[i], l))
	}
	for _, de := range batch.Corrupt {
		fmt.Fprintf(cmd.ErrOrStderr(), "purged corrupt log: %v\n", de)
	}
}

// newPurgeCommand constructs the `purge` subcommand.
func newPurgeCommand(open OpenFunc) *cobra.Command {
	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every stored log of a channel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch, err := requireChannel(cmd)
			if err != nil {
				return err
			}
			return withRuntime(cmd, open, func(ctx context.Context, rt *runtime.Runtime) error {
				n, err := rt.Storage().DeleteChannel(ch).Wait(ctx)
				if err != nil {
					return err
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"channel": ch, "deleted": n})
			})
		},
	}
	purgeCmd.Flags().StringP("channel", "c", "", "Channel")
	return purgeCmd
}

// newChannelsCommand constructs the `channels` subcommand.
func newChannelsCommand(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List channels with their capacity and queue depth",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, open, func(ctx context.Context, rt *runtime.Runtime) error {
				infos, err := rt.Storage().Channels().Wait(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, ci := range infos {
					_ = enc.Encode(map[string]any{"channel": ci.Name, "capacity": ci.Capacity, "queued": ci.Queued})
				}
				return nil
			})
		},
	}
}

// newCapacityCommand constructs the `capacity` subcommand.
func newCapacityCommand(open OpenFunc) *cobra.Command {
	capCmd := &cobra.Command{
		Use:   "capacity",
		Short: "Show or change the capacity of a channel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ch, err := requireChannel(cmd)
			if err != nil {
				return err
			}
			set := cmd.Flags().Changed("set")
			n, _ := cmd.Flags().GetInt("set")
			return withRuntime(cmd, open, func(ctx context.Context, rt *runtime.Runtime) error {
				st := rt.Storage()
				out := map[string]any{"channel": ch}
				if set {
					evicted, err := st.SetCapacity(ch, n).Wait(ctx)
					if err != nil {
						return err
					}
					out["evicted"] = evicted
				}
				infos, err := st.Channels().Wait(ctx)
				if err != nil {
					return err
				}
				out["capacity"] = rt.Config().DefaultChannelCapacity
				for _, ci := range infos {
					if ci.Name == ch {
						out["capacity"] = ci.Capacity
					}
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			})
		},
	}
	capCmd.Flags().StringP("channel", "c", "", "Channel")
	capCmd.Flags().Int("set", 0, "New capacity (0 restores the configured capacity)")
	return capCmd
}

// newCompactCommand constructs the `compact` subcommand.
func newCompactCommand(open OpenFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Reclaim space left behind by deleted logs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRuntime(cmd, open, func(ctx context.Context, rt *runtime.Runtime) error {
				return rt.Compact(ctx)
			})
		},
	}
}
