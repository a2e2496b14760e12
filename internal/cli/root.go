// Package cli is the versescout command line. Every command shares one
// configuration load, one log setup and lazily built stores.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/chat"
	"github.com/csheth/versescout/internal/config"
	"github.com/csheth/versescout/internal/logging"
	"github.com/csheth/versescout/internal/plans"
	"github.com/csheth/versescout/internal/prefs"
	"github.com/csheth/versescout/internal/session"
	"github.com/csheth/versescout/internal/verse"
)

// logAnnotation marks commands that log to the console instead of the log
// file.
const logAnnotation = "versescout/log"

type options struct {
	configPath string
	apiURL     string
	logLevel   string
}

type app struct {
	opts   options
	cfg    config.Config
	logger *slog.Logger

	out    io.Writer
	errOut io.Writer
	in     io.Reader

	store   prefs.Store
	client  *api.Client
	closers []func()
}

// NewRootCommand builds the command tree. Resources opened by a command are
// released when Execute returns.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "versescout",
		Short: "Daily reading plans in the terminal",
		Long: `versescout shows today's passage from your active reading plan,
lets you ask questions about it and manage plans.

Run without a subcommand to open the reader.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.opts.configPath, "config", "", "config file (default ~/.config/versescout/config.toml)")
	root.PersistentFlags().StringVar(&a.opts.apiURL, "api-url", "", "backend base URL (overrides config)")
	root.PersistentFlags().StringVar(&a.opts.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	read := newReadCmd(a)
	root.RunE = read.RunE
	root.Flags().AddFlagSet(read.Flags())

	root.AddCommand(
		read,
		newWhoamiCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newTodayCmd(a),
		newAskCmd(a),
		newPlansCmd(a),
		newBookmarksCmd(a),
		newDevserverCmd(a),
		newConfigCmd(a),
	)
	return root
}

// Execute runs the command line with ctx.
func Execute(ctx context.Context) error {
	a := &app{}
	defer a.close()
	return newRootCommand(a).ExecuteContext(ctx)
}

func (a *app) setup(cmd *cobra.Command) error {
	a.out = cmd.OutOrStdout()
	a.errOut = cmd.ErrOrStderr()
	a.in = cmd.InOrStdin()

	cfg, err := config.Load(a.opts.configPath)
	if err != nil {
		return err
	}
	if a.opts.apiURL != "" {
		cfg.APIURL = a.opts.apiURL
	}
	if a.opts.logLevel != "" {
		cfg.Log.Level = a.opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	level := logging.ParseLevel(cfg.Log.Level)
	if cmd.Annotations[logAnnotation] == "console" {
		logging.SetupConsole(a.errOut, level)
	} else {
		cleanup, err := logging.Setup(cfg.Log.Path, level)
		if err != nil {
			return fmt.Errorf("set up logging: %w", err)
		}
		a.closers = append(a.closers, cleanup)
	}
	a.logger = slog.Default()
	a.logger.Debug("command starting", "command", cmd.CommandPath(), "api", cfg.APIURL)
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) openStore() (prefs.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	store, err := prefs.Open(a.cfg.Store.Driver, a.cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open preferences: %w", err)
	}
	a.store = store
	a.closers = append(a.closers, func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("close preferences", "err", err)
		}
	})
	return store, nil
}

func (a *app) apiClient() (*api.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	jar, err := api.NewPersistentJar(store)
	if err != nil {
		return nil, err
	}
	client, err := api.New(api.Config{
		BaseURL: a.cfg.APIURL,
		Token:   a.cfg.Token,
		Jar:     jar,
		Timeout: a.cfg.RequestTimeout,
		Logger:  a.logger,
	})
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

// launcher returns how Login hands over the sign-in URL. Inside the TUI the
// gate screen shows the URL itself, so print mode stays silent there.
func (a *app) launcher(client *api.Client, interactive bool) session.Launcher {
	if a.cfg.LoginMode == config.LoginPrint {
		return func(ctx context.Context, loginURL string) error {
			if !interactive {
				fmt.Fprintf(a.errOut, "Open this address to sign in:\n  %s\n", loginURL)
			}
			return nil
		}
	}
	return func(ctx context.Context, loginURL string) error {
		return client.Visit(ctx, loginURL)
	}
}

type stores struct {
	client  *api.Client
	session *session.Store
	plans   *plans.Registry
	verses  *verse.Resolver
	chat    *chat.Session
	library *prefs.Library
}

func (a *app) buildStores(interactive bool) (*stores, error) {
	client, err := a.apiClient()
	if err != nil {
		return nil, err
	}
	store, err := a.openStore()
	if err != nil {
		return nil, err
	}
	return &stores{
		client:  client,
		session: session.NewStore(client, a.launcher(client, interactive), session.WithLogger(a.logger), session.WithCheckTimeout(a.cfg.RequestTimeout)),
		plans:   plans.New(client, a.logger),
		verses:  verse.NewResolver(client, a.logger),
		chat:    chat.NewSession(client, a.logger),
		library: prefs.NewLibrary(store),
	}, nil
}

// errNotSignedIn is returned by commands that need a session when there is
// none.
var errNotSignedIn = errors.New("not signed in; run `versescout login`")

func (a *app) requireSession(ctx context.Context, s *stores) (api.Identity, error) {
	state := s.session.Check(ctx)
	if state.Status != session.StatusAuthenticated || state.Identity == nil {
		if state.LastError != "" {
			return api.Identity{}, errors.New(state.LastError)
		}
		return api.Identity{}, errNotSignedIn
	}
	return *state.Identity, nil
}

// authAware turns a backend rejection into the sign-in hint.
func authAware(err error) error {
	if session.IsUnauthenticated(err) {
		return errNotSignedIn
	}
	return err
}
