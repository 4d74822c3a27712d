package main

import (
	"context"
	"fmt"

	"linkmint/internal/config"
	"linkmint/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// mintCommand constructs the 'mint' subcommand that monetizes individual URLs
// and prints one replacement per input.
func mintCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mint URL [URL...]",
		Short: "Generates monetized replacements for the given URLs",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			app := getDeps(ctx, cfg)
			defer app.cleanup()

			results := app.engine.ComputeRewrites(ctx, args)
			for _, u := range args {
				res, ok := results[u]
				if !ok {
					continue
				}
				replacement := res.Replacement
				if replacement == "" {
					replacement = u
				}
				fmt.Printf("%s\t%s\t%s\n", u, res.Strategy, replacement) //nolint: forbidigo
				logger.Debug(ctx, "mint result",
					zap.String("url", u),
					zap.String("strategy", string(res.Strategy)),
					zap.String("note", res.Note))
			}
		},
	}

	return cmd
}
