package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/failure"
	"github.com/csheth/versescout/internal/plans"
	"github.com/csheth/versescout/internal/verse"
)

func newPlansCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List and manage reading plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listPlans(cmd.Context())
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List plans, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.listPlans(cmd.Context())
			},
		},
		newPlanCreateCmd(a),
		newPlanActivateCmd(a),
		newPlanDeleteCmd(a),
	)
	return cmd
}

func (a *app) listPlans(ctx context.Context) error {
	s, err := a.buildStores(false)
	if err != nil {
		return err
	}

	var list []api.Plan
	var today verse.Resolution
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		list, err = s.plans.Refresh(gctx)
		return err
	})
	g.Go(func() error {
		// Today's day number is decoration; a failure here is not fatal.
		res, err := s.verses.Resolve(gctx)
		if err == nil {
			today = res
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return authAware(err)
	}

	if len(list) == 0 {
		fmt.Fprintln(a.out, "No plans yet. Create one with `versescout plans create TOPIC --days N`.")
		return nil
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOPIC\tDAYS\tCREATED\tSTATUS")
	for _, p := range list {
		status := ""
		if p.IsActive {
			status = "active"
			if today.Outcome == verse.OutcomeVerse && today.Verse.Day > 0 {
				status = fmt.Sprintf("active, day %d", today.Verse.Day)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", shortID(p.ID), p.Topic, p.DurationDays, p.CreatedAt.Local().Format("2006-01-02"), status)
	}
	return tw.Flush()
}

func newPlanCreateCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:     "create TOPIC...",
		Short:   "Create a plan",
		Example: `  versescout plans create patience --days 14`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.buildStores(false)
			if err != nil {
				return err
			}
			plan, err := s.plans.Create(cmd.Context(), strings.Join(args, " "), days)
			if err != nil {
				return authAware(err)
			}
			fmt.Fprintf(a.out, "Created %q (%d days), id %s.\n", plan.Topic, plan.DurationDays, shortID(plan.ID))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "plan length in days")
	return cmd
}

func newPlanActivateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activate ID",
		Short: "Make a plan the active one",
		Long:  "Make a plan the active one. ID may be any unique prefix of the plan id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.buildStores(false)
			if err != nil {
				return err
			}
			if _, err := s.plans.Refresh(ctx); err != nil {
				return authAware(err)
			}
			plan, err := findPlan(s.plans.Plans(), args[0])
			if err != nil {
				return err
			}
			if err := s.plans.Activate(ctx, plan.ID); err != nil {
				return authAware(err)
			}
			fmt.Fprintf(a.out, "Active plan: %s.\n", plan.Topic)
			return nil
		},
	}
}

func newPlanDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a plan",
		Long:  "Delete a plan after confirmation. ID may be any unique prefix of the plan id.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.buildStores(false)
			if err != nil {
				return err
			}
			if _, err := s.plans.Refresh(ctx); err != nil {
				return authAware(err)
			}
			plan, err := findPlan(s.plans.Plans(), args[0])
			if err != nil {
				return err
			}

			err = s.plans.Delete(ctx, plan.ID)
			if errors.Is(err, plans.ErrConfirmRequired) {
				if !yes {
					ok, perr := confirm(a.in, a.out, fmt.Sprintf("Delete plan %q? [y/N] ", plan.Topic))
					if perr != nil {
						return perr
					}
					if !ok {
						s.plans.CancelDelete()
						fmt.Fprintln(a.out, "Cancelled.")
						return nil
					}
				}
				err = s.plans.Delete(ctx, plan.ID)
			}
			if err != nil {
				return authAware(err)
			}
			fmt.Fprintf(a.out, "Deleted %q.\n", plan.Topic)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// findPlan matches ref against plan ids, exactly or by unique prefix.
func findPlan(list []api.Plan, ref string) (api.Plan, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return api.Plan{}, failure.New(failure.Validation, "plan id is empty")
	}
	var matches []api.Plan
	for _, p := range list {
		if p.ID == ref {
			return p, nil
		}
		if strings.HasPrefix(p.ID, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return api.Plan{}, fmt.Errorf("no plan with id %q", ref)
	case 1:
		return matches[0], nil
	default:
		return api.Plan{}, fmt.Errorf("plan id %q is ambiguous (%d matches)", ref, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	sc := bufio.NewScanner(in)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return false, fmt.Errorf("read answer: %w", err)
		}
		fmt.Fprintln(out)
		return false, nil
	}
	switch strings.ToLower(strings.TrimSpace(sc.Text())) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
