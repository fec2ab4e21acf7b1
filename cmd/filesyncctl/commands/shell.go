package commands

import (
	"fmt"

	"github.com/reeflective/console"
	"github.com/spf13/cobra"
)

// shellCmd launches an interactive filesyncctl REPL. Where the teacher's
// gobfdctl shell is a hand-rolled bufio.Scanner loop, this one is backed by
// reeflective/console -- a dependency the teacher's go.mod already declares
// but never wires into any command.
func shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive filesyncctl shell",
		Long:  "Launches a console REPL over the same subcommands as the top-level CLI, with prompt history.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			app := console.New("filesyncctl")
			menu := app.ActiveMenu()
			menu.SetCommands(shellCommands)
			menu.Prompt().Primary = func() string {
				return fmt.Sprintf("filesyncctl (%s) > ", serverAddr)
			}

			if err := app.Start(); err != nil {
				return fmt.Errorf("start shell: %w", err)
			}
			return nil
		},
	}
}

// shellCommands builds the cobra command tree the shell dispatches into --
// the same subcommands as the top-level CLI, minus "shell" itself to avoid
// nesting REPLs.
func shellCommands() *cobra.Command {
	root := &cobra.Command{
		Use:           "filesyncctl",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(sessionCmd())
	root.AddCommand(versionCmd())
	return root
}
