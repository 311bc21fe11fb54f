package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelfs/kestrel"
	"github.com/kestrelfs/kestrel/watch"
)

func newWatchCmd() *cobra.Command {
	var (
		recursive bool
		debounce  int
		ignore    []string
	)

	cmd := &cobra.Command{
		Use:   "watch <path>",
		Short: "Watch a directory for filesystem changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := watch.New(args[0], watch.Options{
				Recursive:      recursive,
				DebounceMS:     debounce,
				IgnorePatterns: ignore,
			})
			if err != nil {
				return err
			}
			defer w.Stop()

			ctx, cancel := signalContext()
			defer cancel()
			w.Start(ctx)

			for {
				select {
				case <-ctx.Done():
					return nil
				case batch, ok := <-w.Changes():
					if !ok {
						return nil
					}
					for _, c := range batch {
						fmt.Fprintf(os.Stdout, "%s\t%s\n", c.ChangeType, c.Path)
					}
				case <-time.After(time.Second):
					// idle tick, loop back and re-check ctx
				}
			}
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", kestrel.Defaults.Recursive, "watch newly created subdirectories")
	cmd.Flags().IntVar(&debounce, "debounce-ms", kestrel.Defaults.DebounceMS, "coalescing window in milliseconds")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "glob pattern to ignore (repeatable, matches full path)")

	return cmd
}
