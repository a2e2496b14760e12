package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/csheth/versescout/internal/config"
	"github.com/csheth/versescout/internal/session"
)

func newWhoamiCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.buildStores(false)
			if err != nil {
				return err
			}
			identity, err := a.requireSession(cmd.Context(), s)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s <%s>\n", identity.DisplayName(), identity.Email)
			return nil
		},
	}
}

func newLoginCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Long: `Start the sign-in flow.

With login_mode = "visit" (the default) versescout opens the backend's
sign-in address itself and keeps the session cookie. With "print" it prints
the address for you to open.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.buildStores(false)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := s.session.Login(ctx); err != nil {
				return err
			}
			if a.cfg.LoginMode == config.LoginPrint {
				fmt.Fprintln(a.out, "After signing in, run `versescout whoami` to check.")
				return nil
			}
			state := s.session.Check(ctx)
			if state.Status != session.StatusAuthenticated {
				return fmt.Errorf("sign-in did not complete: %s", firstNonEmpty(state.LastError, "no session"))
			}
			fmt.Fprintf(a.out, "Signed in as %s.\n", state.Identity.DisplayName())
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.buildStores(false)
			if err != nil {
				return err
			}
			if err := s.session.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "Signed out.")
			return nil
		},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
