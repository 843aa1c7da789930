package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errNotReady = errors.New("bot handler not ready")

func newCheckCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config and verify the bot token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			defer a.Close()

			h := newHandler(a.cfg, nil, a.log, nil)
			defer func() { _ = h.Close() }()
			if !h.Ready() {
				return fmt.Errorf("%w: %w", errNotReady, h.Err())
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d recipient(s)\n", len(h.Recipients()))
			return nil
		},
	}
}
