package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newChatCmd(loader *appLoader) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loader.load(cmd.Context())
			if err != nil {
				return err
			}

			session, err := app.sessions.Create()
			if err != nil {
				return err
			}
			defer app.sessions.Shutdown()

			stderr := cmd.ErrOrStderr()
			_, _ = fmt.Fprintln(stderr, "What would you like to know? Type 'exit' to quit.")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				_, _ = fmt.Fprint(stderr, "> ")
				if !scanner.Scan() {
					break
				}

				query := strings.TrimSpace(scanner.Text())
				switch strings.ToLower(query) {
				case "":
					continue
				case "exit", "quit":
					return nil
				}

				if err := answerQuery(cmd, app, session, query, opts); err != nil {
					return err
				}
				if err := cmd.Context().Err(); err != nil {
					return nil
				}
			}

			return scanner.Err()
		},
	}

	cmd.Flags().BoolVar(&opts.showSource, "show-source", false, "Show which live API answered")

	return cmd
}
