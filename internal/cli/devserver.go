package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/csheth/versescout/internal/devserver"
	"github.com/csheth/versescout/internal/llm"
)

func newDevserverCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run an in-memory backend for local development",
		Long: `Run a development backend that keeps users, plans and chat usage in
memory. Sign in by opening /auth/login?email=you@example.com.

Chat answers are canned unless [dev.llm] names a provider.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{logAnnotation: "console"},
		RunE: func(cmd *cobra.Command, args []string) error {
			dev := a.cfg.Dev
			if addr == "" {
				addr = dev.Addr
			}

			var answerer llm.Client
			if dev.LLM.Provider != "" {
				c, err := llm.New(llm.Config{Provider: dev.LLM.Provider, Endpoint: dev.LLM.Endpoint, Model: dev.LLM.Model})
				if err != nil {
					return fmt.Errorf("configure chat model: %w", err)
				}
				answerer = c
				a.logger.Info("chat answers from model", "provider", c.Name())
			}

			srv := devserver.New(devserver.Config{
				Secret:         []byte(dev.Secret),
				AllowedOrigins: dev.AllowedOrigins,
				DailyChatLimit: dev.DailyChatLimit,
				RequestTimeout: a.cfg.RequestTimeout,
				Logger:         a.logger,
				Answerer:       answerer,
			})
			fmt.Fprintf(a.errOut, "devserver listening on %s\n", addr)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides dev.addr)")
	return cmd
}
