package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelfs/kestrel"
	"github.com/kestrelfs/kestrel/hash"
)

func newHashCmd() *cobra.Command {
	var (
		algorithm string
		chunkSize int
		workers   int
		partial   int
	)

	cmd := &cobra.Command{
		Use:   "hash <path>...",
		Short: "Hash one or more files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			algo, err := parseAlgorithm(algorithm)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			if partial > 0 {
				for _, p := range args {
					res, err := hash.PartialHash(ctx, p, algo, partial)
					if err != nil {
						return err
					}
					fmt.Fprintf(os.Stdout, "%s  %s\n", res.HashHex, res.Path)
				}
				return nil
			}

			_, err = hash.HashFiles(ctx, args, algo, chunkSize, workers, func(r hash.Result) {
				fmt.Fprintf(os.Stdout, "%s  %s\n", r.HashHex, r.Path)
			})
			return err
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", kestrel.Defaults.Algorithm, "sha256 or blake3")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "buffered-read chunk size in bytes (default: 1 MiB)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrency across files (default: NumCPU)")
	cmd.Flags().IntVar(&partial, "partial", 0, "hash only the head/tail N bytes instead of the whole file")

	return cmd
}

func parseAlgorithm(s string) (hash.Algorithm, error) {
	switch s {
	case "sha256":
		return hash.SHA256, nil
	case "blake3", "":
		return hash.BLAKE3, nil
	default:
		return "", fmt.Errorf("invalid --algorithm %q (want sha256 or blake3)", s)
	}
}
