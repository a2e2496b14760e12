package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"

	"github.com/csheth/versescout/internal/paginate"
	"github.com/csheth/versescout/internal/prefs"
	"github.com/csheth/versescout/internal/render"
	"github.com/csheth/versescout/internal/tui"
	"github.com/csheth/versescout/internal/verse"
)

const defaultPrintWidth = 80

type readOptions struct {
	admin       bool
	noAltScreen bool
}

func newReadCmd(a *app) *cobra.Command {
	var opts readOptions
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Open the reader",
		Long: `Open the interactive reader: today's passage, page by page, with a
conversation panel for questions. Press ? inside for the keys.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.admin, "admin", false, "start on the plan administration screen")
	cmd.Flags().BoolVar(&opts.noAltScreen, "no-alt-screen", false, "draw in the normal screen buffer")
	return cmd
}

func (a *app) runTUI(ctx context.Context, opts readOptions) error {
	s, err := a.buildStores(true)
	if err != nil {
		return err
	}
	model := tui.New(tui.Config{
		Session:        s.session,
		Plans:          s.plans,
		Verses:         s.verses,
		Chat:           s.chat,
		Library:        s.library,
		LoginURL:       s.client.LoginURL(),
		Breakpoint:     a.cfg.NarrowBreakpoint,
		Theme:          prefs.Theme(a.cfg.Theme),
		StartAdmin:     opts.admin,
		RequestTimeout: a.cfg.RequestTimeout,
		Logger:         a.logger,
	})
	progOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if !opts.noAltScreen {
		progOpts = append(progOpts, tea.WithAltScreen())
	}
	if _, err := tea.NewProgram(model, progOpts...).Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run reader: %w", err)
	}
	return nil
}

func newTodayCmd(a *app) *cobra.Command {
	var page, width int
	cmd := &cobra.Command{
		Use:   "today",
		Short: "Print today's passage",
		Long: `Print one page of today's passage. Page size follows the width the
same way the reader does: narrow widths get shorter pages.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.buildStores(false)
			if err != nil {
				return err
			}
			res, err := s.verses.Resolve(cmd.Context())
			if err != nil {
				return err
			}
			return a.printResolution(res, page, width)
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "page to print, starting at 1")
	cmd.Flags().IntVar(&width, "width", defaultPrintWidth, "output width in columns")
	return cmd
}

func (a *app) printResolution(res verse.Resolution, page, width int) error {
	switch res.Outcome {
	case verse.OutcomeVerse:
	case verse.OutcomeNoEligiblePlan:
		fmt.Fprintln(a.out, res.Message())
		return nil
	case verse.OutcomeAuthRequired:
		return errNotSignedIn
	default:
		return fmt.Errorf("load today's passage: %w", res.Err)
	}
	if width < 20 {
		width = 20
	}

	v := res.Verse
	pages := paginate.Paginate(v.Text, paginate.BudgetForWidth(width, a.cfg.NarrowBreakpoint))
	if page < 1 || page > len(pages) {
		return fmt.Errorf("page %d out of range (1-%d)", page, len(pages))
	}

	header := v.Reference
	if v.Day > 0 {
		header = fmt.Sprintf("%s  ·  day %d", header, v.Day)
	}
	fmt.Fprintln(a.out, header)
	if v.Title != "" {
		fmt.Fprintln(a.out, v.Title)
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, wordwrap.String(strings.TrimSpace(pages[page-1]), width))
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "Page %d / %d\n", page, len(pages))
	if page == len(pages) && strings.TrimSpace(v.Explanation) != "" {
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, "Reflection")
		fmt.Fprintln(a.out, wordwrap.String(render.PlainText(v.Explanation), width))
	}
	return nil
}
