package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/csheth/versescout/internal/failure"
	"github.com/csheth/versescout/internal/render"
	"github.com/csheth/versescout/internal/verse"
)

func newAskCmd(a *app) *cobra.Command {
	var width int
	var reset bool
	cmd := &cobra.Command{
		Use:   "ask QUESTION...",
		Short: "Ask a question about today's passage",
		Example: `  versescout ask "What is the main instruction here?"
  versescout ask --reset Who is speaking`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.buildStores(false)
			if err != nil {
				return err
			}
			res, err := s.verses.Resolve(ctx)
			if err != nil {
				return err
			}
			switch res.Outcome {
			case verse.OutcomeVerse:
			case verse.OutcomeAuthRequired:
				return errNotSignedIn
			case verse.OutcomeNoEligiblePlan:
				return errors.New(res.Message())
			default:
				return fmt.Errorf("load today's passage: %w", res.Err)
			}

			s.chat.Bind(res.Verse)
			if reset {
				if _, err := s.chat.Reset(ctx); err != nil {
					return authAware(err)
				}
			}
			msg, err := s.chat.Ask(ctx, strings.Join(args, " "))
			if err != nil {
				if failure.Classify(err) == failure.Validation || msg.Content == "" {
					return authAware(err)
				}
				return errors.New(msg.Content)
			}
			fmt.Fprintln(a.out, wordwrap.String(render.PlainText(msg.Content), width))
			if used, limit := s.chat.Usage(); limit > 0 {
				fmt.Fprintf(a.out, "\n(%d of %d questions used today)\n", used, limit)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&width, "width", defaultPrintWidth, "output width in columns")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear the conversation before asking")
	return cmd
}
