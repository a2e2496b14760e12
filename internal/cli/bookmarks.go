package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newBookmarksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmarks",
		Short: "List saved passages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.buildStores(false)
			if err != nil {
				return err
			}
			marks, err := s.library.Bookmarks()
			if err != nil {
				return err
			}
			if len(marks) == 0 {
				fmt.Fprintln(a.out, "No bookmarks. Press b in the reader to save a passage.")
				return nil
			}
			tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "REFERENCE\tSAVED\tEXCERPT")
			for _, m := range marks {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Reference, m.SavedAt.Local().Format("2006-01-02"), m.Excerpt)
			}
			return tw.Flush()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "remove REFERENCE",
		Short: "Remove a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.buildStores(false)
			if err != nil {
				return err
			}
			ok, err := s.library.IsBookmarked(args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no bookmark for %q", args[0])
			}
			if _, err := s.library.ToggleBookmark(args[0], ""); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %s.\n", args[0])
			return nil
		},
	})
	return cmd
}
