package main

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/devserver"
	"github.com/csheth/versescout/internal/tuitest"
)

func TestReaderShowsPassageAndPages(t *testing.T) {
	t.Parallel()

	srv := devserver.New(devserver.Config{
		Secret: []byte("integration-secret"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	token, _, err := srv.IssueToken(api.Identity{ID: "u-1", Email: "ruth@example.com", Name: "Ruth"})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	client, err := api.New(api.Config{BaseURL: ts.URL, Token: token})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if _, err := client.CreatePlan(context.Background(), "patience", 7); err != nil {
		t.Fatalf("create plan: %v", err)
	}

	cmdDir := moduleDir(t)
	binary := buildBinary(t, cmdDir)
	home := t.TempDir()
	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{binary, "read", "--no-alt-screen", "--config", filepath.Join(home, "config.toml")},
		Dir:     home,
		Env: []string{
			"HOME=" + home,
			"VERSESCOUT_API_URL=" + ts.URL,
			"VERSESCOUT_TOKEN=" + token,
			"VERSESCOUT_STORE_DRIVER=memory",
			"VERSESCOUT_LOG_PATH=" + filepath.Join(home, "versescout.log"),
		},
		Width:  90,
		Height: 36,
		Steps: []tuitest.Step{
			{WaitFor: "Page 1 / "},
			{Input: tuitest.KeyRight},
			{WaitFor: "Page 2 / "},
			{Input: []byte("?")},
			{Delay: 300 * time.Millisecond},
			{Input: tuitest.KeyCtrlC},
		},
		Timeout:        15 * time.Second,
		AllowInterrupt: true,
	})
	if err != nil {
		t.Fatalf("run reader: %v", err)
	}

	// The renderer only repaints changed lines, so check the whole stream.
	out := rec.PlainOutput()
	for _, want := range []string{"Ruth", "patience: day 1 of 7", "Page 2 / "} {
		if !strings.Contains(out, want) {
			t.Fatalf("%q never drawn:\n%s", want, out)
		}
	}
}

func TestReaderWithoutSessionShowsGate(t *testing.T) {
	t.Parallel()

	srv := devserver.New(devserver.Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	cmdDir := moduleDir(t)
	binary := buildBinary(t, cmdDir)
	home := t.TempDir()
	rec, err := tuitest.Run(context.Background(), tuitest.Config{
		Command: []string{binary, "--no-alt-screen", "--config", filepath.Join(home, "config.toml")},
		Dir:     home,
		Env: []string{
			"HOME=" + home,
			"VERSESCOUT_API_URL=" + ts.URL,
			"VERSESCOUT_TOKEN=",
			"VERSESCOUT_LOGIN_MODE=print",
			"VERSESCOUT_STORE_DRIVER=memory",
			"VERSESCOUT_LOG_PATH=" + filepath.Join(home, "versescout.log"),
		},
		Width:  80,
		Height: 24,
		Steps: []tuitest.Step{
			{WaitFor: "Sign in to continue"},
			{Input: tuitest.KeyCtrlC},
		},
		Timeout:        10 * time.Second,
		AllowInterrupt: true,
	})
	if err != nil {
		t.Fatalf("run reader: %v", err)
	}
	out := rec.PlainOutput()
	if !strings.Contains(out, "Sign in to continue") || !strings.Contains(out, "/auth/login") {
		t.Fatalf("gate never drawn:\n%s", out)
	}
}

func moduleDir(t *testing.T) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	return filepath.Dir(file)
}

func buildBinary(t *testing.T, cmdDir string) string {
	t.Helper()
	name := "versescout-integration"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	binPath := filepath.Join(t.TempDir(), name)
	cmd := exec.Command("go", "build", "-o", binPath, ".")
	cmd.Dir = cmdDir
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build CLI: %v\n%s", err, output)
	}
	return binPath
}
