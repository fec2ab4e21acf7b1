package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dantte-lp/filesyncd/internal/protocol"
)

// errSessionNotFound is returned by "session show" when the requested peer
// is not among the daemon's currently connected sessions.
var errSessionNotFound = errors.New("session not found")

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect peer sessions on a running filesyncd daemon",
	}

	cmd.AddCommand(sessionListCmd())
	cmd.AddCommand(sessionShowCmd())

	return cmd
}

func sessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all active peer sessions",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			sessions, err := listSessions(serverAddr)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			out, err := formatSessions(sessions, outputFormat)
			if err != nil {
				return fmt.Errorf("format sessions: %w", err)
			}

			fmt.Print(out)
			return nil
		},
	}
}

func sessionShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <host:port>",
		Short: "Show one peer session by its advertised host:port",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			sessions, err := listSessions(serverAddr)
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}

			for _, s := range sessions {
				if s.HostPort.String() == args[0] {
					out, err := formatSessions([]protocol.SessionSummary{s}, outputFormat)
					if err != nil {
						return fmt.Errorf("format session: %w", err)
					}
					fmt.Print(out)
					return nil
				}
			}

			return fmt.Errorf("%w: %s", errSessionNotFound, args[0])
		},
	}
}
