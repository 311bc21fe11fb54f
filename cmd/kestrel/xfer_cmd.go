package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelfs/kestrel"
	"github.com/kestrelfs/kestrel/humansize"
	"github.com/kestrelfs/kestrel/xfer"
)

func newCopyCmd() *cobra.Command {
	opts, flags := xferFlags()
	cmd := &cobra.Command{
		Use:   "copy <source>... <destination>",
		Short: "Copy files and directories",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, dest := splitSourcesDest(args)
			co, err := flags.resolve(opts)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			completed, err := xfer.CopyFiles(ctx, sources, dest, co)
			if err != nil {
				return err
			}
			reportCompleted(completed)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func newMoveCmd() *cobra.Command {
	opts, flags := xferFlags()
	cmd := &cobra.Command{
		Use:   "move <source>... <destination>",
		Short: "Move files and directories",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, dest := splitSourcesDest(args)
			co, err := flags.resolve(opts)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()
			completed, err := xfer.MoveFiles(ctx, sources, dest, co)
			if err != nil {
				return err
			}
			reportCompleted(completed)
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func splitSourcesDest(args []string) ([]string, string) {
	return args[:len(args)-1], args[len(args)-1]
}

func reportCompleted(paths []string) {
	for _, p := range paths {
		fmt.Fprintln(os.Stdout, p)
	}
}

// xferCmdFlags holds the raw flag variables shared by copy and move, since
// both commands expose the identical CopyOptions surface.
type xferCmdFlags struct {
	overwrite bool
	preserve  bool
	workers   int
	bwLimit   string
	progress  bool
	iouring   bool
}

func xferFlags() (xfer.CopyOptions, *xferCmdFlags) {
	return xfer.CopyOptions{}, &xferCmdFlags{}
}

func (f *xferCmdFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.overwrite, "overwrite", kestrel.Defaults.Overwrite, "overwrite existing destination files")
	cmd.Flags().BoolVar(&f.preserve, "preserve", kestrel.Defaults.PreserveMetadata, "preserve mtime, atime, and permission bits")
	cmd.Flags().IntVar(&f.workers, "workers", 0, "copy concurrency (default: NumCPU)")
	cmd.Flags().StringVar(&f.bwLimit, "bwlimit", "", "bandwidth limit, e.g. 50M (disables OS-accelerated copy)")
	cmd.Flags().BoolVar(&f.progress, "progress", false, "print progress to stderr as the transfer runs")
	cmd.Flags().BoolVar(&f.iouring, "iouring", false, "use io_uring for file copy (Linux 5.6+ only)")
}

func (f *xferCmdFlags) resolve(base xfer.CopyOptions) (xfer.CopyOptions, error) {
	base.Overwrite = f.overwrite
	base.PreserveMetadata = f.preserve
	base.Workers = f.workers
	base.UseIOURing = f.iouring

	if f.bwLimit != "" {
		limit, err := humansize.ParseSize(f.bwLimit)
		if err != nil {
			return base, fmt.Errorf("invalid --bwlimit: %w", err)
		}
		base.BandwidthLimit = limit
	}

	if f.progress {
		base.ProgressCallback = func(p xfer.Progress) {
			fmt.Fprintf(os.Stderr, "\r%d/%d files, %s/%s",
				p.FilesCompleted, p.TotalFiles,
				humansize.FormatBytes(p.BytesCopied), humansize.FormatBytes(p.TotalBytes))
		}
	}

	return base, nil
}
