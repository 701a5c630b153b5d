package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	answeradapter "github.com/bnema/dcloud-assistant/internal/adapters/render/answer"
	"github.com/bnema/dcloud-assistant/internal/application"
	"github.com/spf13/cobra"
)

type askOptions struct {
	showSource bool
	asJSON     bool
}

type askJSON struct {
	Answer   string `json:"answer"`
	Fallback bool   `json:"fallback"`
	Status   string `json:"status,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func newAskCmd(loader *appLoader) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question in a fresh session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return fmt.Errorf("question is empty")
			}

			app, err := loader.load(cmd.Context())
			if err != nil {
				return err
			}

			session, err := app.sessions.Create()
			if err != nil {
				return err
			}

			return answerQuery(cmd, app, session, query, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.showSource, "show-source", false, "Show which live API answered")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the answer as JSON")

	return cmd
}

func answerQuery(cmd *cobra.Command, app *app, session *application.Session, query string, opts askOptions) error {
	var answer application.Answer
	err := withAnswerProgress(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, observe application.AskObserver) error {
		answer = app.orchestrator.AskObserved(ctx, session, query, observe)
		return nil
	})
	if err != nil {
		return err
	}

	if opts.asJSON {
		out := askJSON{Answer: answer.Text, Fallback: answer.Fallback}
		if answer.Dispatch != nil {
			out.Status = string(answer.Dispatch.Status)
			out.Endpoint = answer.Dispatch.Endpoint
			out.Instance = answer.Dispatch.Instance
		}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(out)
	}

	rendered, err := app.answerRenderer(answer, answeradapter.RenderOptions{ShowSource: opts.showSource})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
