package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelfs/kestrel/walk"
)

func newWalkCmd() *cobra.Command {
	var (
		maxDepth       int
		followSymlinks bool
		sortOutput     bool
		skipHidden     bool
		fileType       string
		globPattern    string
		workers        int
		long           bool
	)

	cmd := &cobra.Command{
		Use:   "walk <path>",
		Short: "Recursively list filesystem entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := walk.Options{
				FollowSymlinks: followSymlinks,
				Sort:           sortOutput,
				SkipHidden:     skipHidden,
				GlobPattern:    globPattern,
				Workers:        workers,
			}
			if cmd.Flags().Changed("max-depth") {
				opts.MaxDepth = &maxDepth
			}
			switch fileType {
			case "file":
				opts.FileType = walk.FileTypeFile
			case "dir":
				opts.FileType = walk.FileTypeDir
			case "any", "":
				opts.FileType = walk.FileTypeAny
			default:
				return fmt.Errorf("invalid --type %q (want file, dir, or any)", fileType)
			}

			ctx, cancel := signalContext()
			defer cancel()

			entries, errs := walk.Walk(ctx, args[0], opts)
			for {
				select {
				case e, ok := <-entries:
					if !ok {
						return nil
					}
					if long {
						fmt.Fprintf(os.Stdout, "%-10s %10d %s\n", e.Kind, e.FileSize, e.Path)
					} else {
						fmt.Fprintln(os.Stdout, e.Path)
					}
				case err, ok := <-errs:
					if !ok {
						continue
					}
					fmt.Fprintf(os.Stderr, "walk: %v\n", err)
				}
			}
		},
	}

	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "maximum descent depth (default: unbounded)")
	cmd.Flags().BoolVar(&followSymlinks, "follow-symlinks", false, "descend into directory symlinks")
	cmd.Flags().BoolVar(&sortOutput, "sort", false, "emit entries in lexicographic order per directory")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", false, "prune dotfile/dotdir subtrees")
	cmd.Flags().StringVar(&fileType, "type", "any", "restrict to file, dir, or any")
	cmd.Flags().StringVar(&globPattern, "glob", "", "basename glob filter (e.g. \"*.go\")")
	cmd.Flags().IntVar(&workers, "workers", 0, "traversal concurrency (default: NumCPU, max 8)")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show kind and size alongside each path")

	return cmd
}
