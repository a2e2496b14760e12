package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/csheth/versescout/internal/api"
	"github.com/csheth/versescout/internal/devserver"
	"github.com/csheth/versescout/internal/prefs"
)

type cliFixture struct {
	srv   *devserver.Server
	clock *devserver.ManualClock
	dir   string
}

func newCLIFixture(t *testing.T, driver string) *cliFixture {
	t.Helper()
	clock := devserver.NewManualClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	srv := devserver.New(devserver.Config{
		Secret: []byte("cli-test-secret"),
		Now:    clock.Now,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("VERSESCOUT_API_URL", ts.URL)
	t.Setenv("VERSESCOUT_TOKEN", "")
	t.Setenv("VERSESCOUT_LOGIN_MODE", "visit")
	t.Setenv("VERSESCOUT_STORE_DRIVER", driver)
	storeFile := "prefs.json"
	if driver == "sqlite" {
		storeFile = "prefs.db"
	}
	t.Setenv("VERSESCOUT_STORE_PATH", filepath.Join(dir, storeFile))
	t.Setenv("VERSESCOUT_LOG_PATH", filepath.Join(dir, "versescout.log"))
	return &cliFixture{srv: srv, clock: clock, dir: dir}
}

func (f *cliFixture) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	defer a.close()
	root := newRootCommand(a)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", filepath.Join(f.dir, "config.toml")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (f *cliFixture) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := f.run(t, "", args...)
	if err != nil {
		t.Fatalf("versescout %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

var createdID = regexp.MustCompile(`id (\S+)\.`)

func (f *cliFixture) createPlan(t *testing.T, topic string, days string) string {
	t.Helper()
	out := f.mustRun(t, "plans", "create", topic, "--days", days)
	m := createdID.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("create output has no id: %q", out)
	}
	f.clock.Advance(time.Minute)
	return m[1]
}

func TestSessionSurvivesBetweenRuns(t *testing.T) {
	f := newCLIFixture(t, "file")

	if _, err := f.run(t, "", "whoami"); err == nil || !strings.Contains(err.Error(), "not signed in") {
		t.Fatalf("whoami before login: err = %v", err)
	}

	out := f.mustRun(t, "login")
	if !strings.Contains(out, "Signed in as Reader.") {
		t.Fatalf("login output = %q", out)
	}
	out = f.mustRun(t, "whoami")
	if !strings.Contains(out, "Reader <reader@example.com>") {
		t.Fatalf("whoami output = %q", out)
	}

	out = f.mustRun(t, "logout")
	if !strings.Contains(out, "Signed out.") {
		t.Fatalf("logout output = %q", out)
	}
	if _, err := f.run(t, "", "whoami"); err == nil {
		t.Fatal("whoami after logout succeeded")
	}
}

func TestTodayWithoutPlanPrintsEmptyState(t *testing.T) {
	f := newCLIFixture(t, "file")
	f.mustRun(t, "login")

	out := f.mustRun(t, "today")
	if !strings.Contains(out, "no active reading plan") {
		t.Fatalf("today output = %q", out)
	}
}

func TestTodayPaginatesByWidth(t *testing.T) {
	f := newCLIFixture(t, "file")
	f.mustRun(t, "login")
	f.createPlan(t, "patience", "7")

	out := f.mustRun(t, "today", "--width", "80")
	if !strings.Contains(out, "day 1") || !strings.Contains(out, "Page 1 / ") {
		t.Fatalf("first page output = %q", out)
	}
	if strings.Contains(out, "Reflection") {
		t.Fatalf("explanation shown before the last page: %q", out)
	}

	last := pageCount(t, out)
	out = f.mustRun(t, "today", "--width", "80", "--page", strconv.Itoa(last))
	if !strings.Contains(out, "Reflection") || !strings.Contains(out, "Focus for today:") {
		t.Fatalf("last page output = %q", out)
	}
	if strings.Contains(out, "**") {
		t.Fatalf("markdown markers left in output: %q", out)
	}

	if wide := pageCount(t, f.mustRun(t, "today", "--width", "160")); last > 1 && wide >= last {
		t.Fatalf("wide pages = %d, narrow pages = %d", wide, last)
	}

	if _, err := f.run(t, "", "today", "--page", "99"); err == nil || !strings.Contains(err.Error(), "out of range") {
		t.Fatalf("page 99: err = %v", err)
	}
}

var pageStatus = regexp.MustCompile(`Page 1 / (\d+)`)

func pageCount(t *testing.T, out string) int {
	t.Helper()
	m := pageStatus.FindStringSubmatch(out)
	if m == nil {
		t.Fatalf("no page status in %q", out)
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

func TestAskPrintsAnswerAndUsage(t *testing.T) {
	f := newCLIFixture(t, "file")
	f.mustRun(t, "login")
	f.createPlan(t, "courage", "10")

	out := f.mustRun(t, "ask", "Who", "is", "speaking?")
	if !strings.Contains(out, "You asked about") || !strings.Contains(out, "Who is speaking?") {
		t.Fatalf("ask output = %q", out)
	}
	if !strings.Contains(out, "(1 of 20 questions used today)") {
		t.Fatalf("usage missing: %q", out)
	}

	if _, err := f.run(t, "", "ask", "   "); err == nil {
		t.Fatal("blank question accepted")
	}
}

func TestPlansLifecycle(t *testing.T) {
	f := newCLIFixture(t, "sqlite")
	f.mustRun(t, "login")

	out := f.mustRun(t, "plans")
	if !strings.Contains(out, "No plans yet.") {
		t.Fatalf("empty list = %q", out)
	}

	first := f.createPlan(t, "patience", "7")
	second := f.createPlan(t, "courage", "14")

	out = f.mustRun(t, "plans", "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("list = %q", out)
	}
	if !strings.HasPrefix(lines[1], second) || !strings.Contains(lines[1], "active, day 1") {
		t.Fatalf("newest plan row = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], first) || strings.Contains(lines[2], "active") {
		t.Fatalf("older plan row = %q", lines[2])
	}

	if _, err := f.run(t, "", "plans", "delete", second, "--yes"); err == nil || !strings.Contains(err.Error(), "active plan") {
		t.Fatalf("deleting the active plan: err = %v", err)
	}

	out, err := f.run(t, "n\n", "plans", "delete", first)
	if err != nil || !strings.Contains(out, "Cancelled.") {
		t.Fatalf("declined delete: out = %q, err = %v", out, err)
	}

	out, err = f.run(t, "y\n", "plans", "delete", first)
	if err != nil || !strings.Contains(out, `Deleted "patience".`) {
		t.Fatalf("confirmed delete: out = %q, err = %v", out, err)
	}

	out = f.mustRun(t, "plans", "activate", second[:4])
	if !strings.Contains(out, "Active plan: courage.") {
		t.Fatalf("activate output = %q", out)
	}
	if out := f.mustRun(t, "plans"); strings.Contains(out, "patience") {
		t.Fatalf("deleted plan still listed: %q", out)
	}
}

func TestFindPlan(t *testing.T) {
	list := []struct{ ref, want, err string }{
		{"abc12345-0000", "abc12345-0000", ""},
		{"abd", "abd99999-0000", ""},
		{"ab", "", "ambiguous"},
		{"zzz", "", "no plan"},
		{" ", "", "empty"},
	}
	plans := []api.Plan{{ID: "abc12345-0000", Topic: "patience"}, {ID: "abd99999-0000", Topic: "courage"}}
	for _, tc := range list {
		got, err := findPlan(plans, tc.ref)
		if tc.err != "" {
			if err == nil || !strings.Contains(err.Error(), tc.err) {
				t.Errorf("findPlan(%q) err = %v, want %q", tc.ref, err, tc.err)
			}
			continue
		}
		if err != nil || got.ID != tc.want {
			t.Errorf("findPlan(%q) = %q, %v; want %q", tc.ref, got.ID, err, tc.want)
		}
	}
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	f := newCLIFixture(t, "memory")
	path := filepath.Join(f.dir, "config.toml")

	out := f.mustRun(t, "config", "init")
	if !strings.Contains(out, "Wrote "+path) {
		t.Fatalf("init output = %q", out)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), "narrow_breakpoint") {
		t.Fatalf("config file = %q", data)
	}
	if _, err := f.run(t, "", "config", "init"); err == nil || !strings.Contains(err.Error(), "--force") {
		t.Fatalf("second init: err = %v", err)
	}
	f.mustRun(t, "config", "init", "--force")

	if got := strings.TrimSpace(f.mustRun(t, "config", "path")); got != path {
		t.Fatalf("config path = %q, want %q", got, path)
	}
}

func TestConfigShowMasksToken(t *testing.T) {
	f := newCLIFixture(t, "memory")
	t.Setenv("VERSESCOUT_TOKEN", "secret-token")

	out := f.mustRun(t, "config", "show")
	if strings.Contains(out, "secret-token") || !strings.Contains(out, "********") {
		t.Fatalf("config show = %q", out)
	}
}

func TestBookmarksListAndRemove(t *testing.T) {
	f := newCLIFixture(t, "file")

	out := f.mustRun(t, "bookmarks")
	if !strings.Contains(out, "No bookmarks.") {
		t.Fatalf("empty bookmarks = %q", out)
	}

	lib := prefs.NewLibrary(prefs.NewFileStore(filepath.Join(f.dir, "prefs.json")))
	if _, err := lib.ToggleBookmark("John 3:16", "For God so loved the world"); err != nil {
		t.Fatalf("seed bookmark: %v", err)
	}
	out = f.mustRun(t, "bookmarks")
	if !strings.Contains(out, "John 3:16") || !strings.Contains(out, "For God so loved the world") {
		t.Fatalf("bookmarks = %q", out)
	}

	if out := f.mustRun(t, "bookmarks", "remove", "John 3:16"); !strings.Contains(out, "Removed John 3:16.") {
		t.Fatalf("remove output = %q", out)
	}
	if _, err := f.run(t, "", "bookmarks", "remove", "John 3:16"); err == nil {
		t.Fatal("removing a missing bookmark succeeded")
	}
}
