package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"linkmint/internal/config"
	"linkmint/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rewriteCommand constructs the 'rewrite' subcommand that monetizes every URL
// in a piece of text and prints the rewritten result.
func rewriteCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewrite [text]",
		Short: "Rewrites URLs in text with monetized replacements",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			text := strings.Join(args, " ")
			if text == "" {
				in, err := io.ReadAll(os.Stdin)
				if err != nil {
					logger.Fatal(ctx, "could not read stdin", zap.Error(err))
				}
				text = string(in)
			}
			if strings.TrimSpace(text) == "" {
				logger.Fatal(ctx, "no input text; pass it as arguments or on stdin")
			}

			app := getDeps(ctx, cfg)
			defer app.cleanup()

			out, changed, notes := app.engine.RewriteText(ctx, text)

			fmt.Println(out) //nolint: forbidigo
			if !changed {
				logger.Info(ctx, "no URLs were changed")
			}
			for u, note := range notes {
				logger.Info(ctx, "rewrite note", zap.String("url", u), zap.String("note", note))
			}
		},
	}

	return cmd
}
