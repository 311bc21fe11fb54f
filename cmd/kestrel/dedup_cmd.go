package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelfs/kestrel"
	"github.com/kestrelfs/kestrel/dedup"
	"github.com/kestrelfs/kestrel/humansize"
)

func newDedupCmd() *cobra.Command {
	var (
		recursive   bool
		minSizeStr  string
		algorithm   string
		partialSize int
		workers     int
		showStages  bool
	)

	cmd := &cobra.Command{
		Use:   "dedup <path>...",
		Short: "Find duplicate files by content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			algo, err := parseAlgorithm(algorithm)
			if err != nil {
				return err
			}

			var minSize int64
			if minSizeStr != "" {
				minSize, err = humansize.ParseSize(minSizeStr)
				if err != nil {
					return fmt.Errorf("invalid --min-size: %w", err)
				}
			}

			opts := dedup.Options{
				Recursive:       recursive,
				MinSize:         minSize,
				Algorithm:       algo,
				PartialHashSize: partialSize,
				MaxWorkers:      workers,
			}
			if showStages {
				opts.ProgressCallback = func(stage string, processed, total int) {
					fmt.Fprintf(os.Stderr, "%s: %d/%d\n", stage, processed, total)
				}
			}

			ctx, cancel := signalContext()
			defer cancel()

			groups, err := dedup.FindDuplicates(ctx, args, opts)
			if err != nil {
				return err
			}

			var wasted int64
			for _, g := range groups {
				fmt.Fprintf(os.Stdout, "%s  %s  (%d copies, %s wasted)\n",
					g.HashHex, humansize.FormatBytes(g.FileSize), len(g.Paths), humansize.FormatBytes(g.WastedBytes()))
				for _, p := range g.Paths {
					fmt.Fprintf(os.Stdout, "    %s\n", p)
				}
				wasted += g.WastedBytes()
			}
			fmt.Fprintf(os.Stdout, "%d duplicate groups, %s reclaimable\n", len(groups), humansize.FormatBytes(wasted))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", kestrel.Defaults.Recursive, "expand directory inputs recursively")
	cmd.Flags().StringVar(&minSizeStr, "min-size", "1", "ignore files smaller than SIZE (e.g. 1K)")
	cmd.Flags().StringVar(&algorithm, "algorithm", kestrel.Defaults.Algorithm, "sha256 or blake3")
	cmd.Flags().IntVar(&partialSize, "partial-size", kestrel.Defaults.PartialHashSize, "head/tail byte count for stage-2 hashing")
	cmd.Flags().IntVar(&workers, "workers", 0, "hashing concurrency (default: NumCPU)")
	cmd.Flags().BoolVar(&showStages, "show-stages", false, "print per-stage progress to stderr")

	return cmd
}
