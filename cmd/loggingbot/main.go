// Command loggingbot relays log records to Telegram recipients.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	Config   string
	LogLevel string
}

var logLevels = []string{"trace", "debug", "info", "warn", "error"}

func (g *globalFlags) RegisterFlags(flags *pflag.FlagSet) {
	flags.StringVar(&g.Config, "config", "./config.yaml", "path to config file (yaml or json)")
	flags.StringVar(&g.LogLevel, "log-level", "", "override logging.level, one of: "+strings.Join(logLevels, ", "))
}

func (g *globalFlags) RegisterCompletions(cmd *cobra.Command) error {
	return cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(logLevels, cobra.ShellCompDirectiveNoFileComp))
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "loggingbot",
		Short:         "Forward log records to Telegram bot recipients",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.RegisterFlags(root.PersistentFlags())
	_ = g.RegisterCompletions(root)

	root.AddCommand(newSendCmd(g), newPipeCmd(g), newCheckCmd(g))
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}
