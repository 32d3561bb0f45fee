package commands_test

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"

	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/repo"
	"tasksync/internal/store"
	"tasksync/internal/testutil"
)

// newTestRepo builds an offline repository over a throwaway database.
func newTestRepo(t *testing.T) *repo.Repository {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return repo.New(st, nil, nil)
}

// runCommand runs a command against the given repository.
func runCommand(t *testing.T, cmd commands.Command, rp *repo.Repository, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{
		Dir:   t.TempDir(),
		Quiet: quiet,
	}

	code = cmd.Run(context.Background(), cfg, rp, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// mustRun fails the test unless the command succeeds.
func mustRun(t *testing.T, cmd commands.Command, rp *repo.Repository, args ...string) {
	t.Helper()
	_, stderr, code := runCommand(t, cmd, rp, args, true)
	if code != exitcode.Success {
		t.Fatalf("%s %v: exit %d, stderr %q", cmd.Name(), args, code, stderr)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := &commands.VersionCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tasksync 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

func TestHelpCommand(t *testing.T) {
	cmd := &commands.HelpCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !strings.Contains(stdout, "Usage:") {
		t.Error("help output should contain 'Usage:'")
	}
}

func TestCreateListAndLists(t *testing.T) {
	rp := newTestRepo(t)
	mustRun(t, &commands.CreateListCmd{}, rp, "Groceries")
	mustRun(t, &commands.CreateListCmd{}, rp, "Errands")

	stdout, stderr, code := runCommand(t, &commands.ListsCmd{}, rp, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	// Both lists are pending their first sync, hence the asterisks.
	expected := "Groceries *\nErrands *\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestCreateListRejectsEmptyName(t *testing.T) {
	rp := newTestRepo(t)

	_, stderr, code := runCommand(t, &commands.CreateListCmd{}, rp, []string{"  "}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: list name required\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestAddAndListAll(t *testing.T) {
	rp := newTestRepo(t)
	mustRun(t, &commands.CreateListCmd{}, rp, "Groceries")
	mustRun(t, &commands.CreateListCmd{}, rp, "Errands")
	mustRun(t, &commands.AddCmd{}, rp, "Buy milk")
	mustRun(t, &commands.AddCmd{}, rp, "Buy eggs")

	addErrands := &commands.AddCmd{}
	addErrands.SetListName("Errands")
	mustRun(t, addErrands, rp, "Post", "office")

	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, rp, nil, false)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, stderr)
	}
	testutil.GoldenString(t, "list_all", stdout)
}

func TestListOneUnknownList(t *testing.T) {
	rp := newTestRepo(t)
	mustRun(t, &commands.CreateListCmd{}, rp, "Groceries")

	_, stderr, code := runCommand(t, &commands.ListCmd{}, rp, []string{"Chores"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: list not found: Chores\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestDoneRemovesTaskFromListing(t *testing.T) {
	rp := newTestRepo(t)
	mustRun(t, &commands.CreateListCmd{}, rp, "Groceries")
	mustRun(t, &commands.AddCmd{}, rp, "Buy milk")
	mustRun(t, &commands.AddCmd{}, rp, "Buy eggs")

	mustRun(t, &commands.DoneCmd{}, rp, "1")

	stdout, _, code := runCommand(t, &commands.ListCmd{}, rp, nil, false)
	if code != exitcode.Success {
		t.Fatalf("list failed: %d", code)
	}
	expected := "   1  Buy eggs\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestDoneOutOfRange(t *testing.T) {
	rp := newTestRepo(t)
	mustRun(t, &commands.CreateListCmd{}, rp, "Groceries")
	mustRun(t, &commands.AddCmd{}, rp, "Buy milk")

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, rp, []string{"5"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task number out of range: 5\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}
}

func TestRmDeletesTask(t *testing.T) {
	rp := newTestRepo(t)
	mustRun(t, &commands.CreateListCmd{}, rp, "Groceries")
	mustRun(t, &commands.AddCmd{}, rp, "Buy milk")

	mustRun(t, &commands.RmCmd{}, rp, "1")

	stdout, _, code := runCommand(t, &commands.ListCmd{}, rp, nil, true)
	if code != exitcode.Success {
		t.Fatalf("list failed: %d", code)
	}
	if stdout != "" {
		t.Errorf("expected no tasks, got %q", stdout)
	}
}

func TestIndentShowsNestedTask(t *testing.T) {
	rp := newTestRepo(t)
	mustRun(t, &commands.CreateListCmd{}, rp, "Groceries")
	mustRun(t, &commands.AddCmd{}, rp, "Buy milk")
	mustRun(t, &commands.AddCmd{}, rp, "Buy eggs")

	mustRun(t, &commands.IndentCmd{}, rp, "2")

	stdout, _, code := runCommand(t, &commands.ListCmd{}, rp, nil, false)
	if code != exitcode.Success {
		t.Fatalf("list failed: %d", code)
	}
	expected := "   1  Buy milk\n   2    Buy eggs\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestMoveTaskBetweenLists(t *testing.T) {
	rp := newTestRepo(t)
	mustRun(t, &commands.CreateListCmd{}, rp, "Groceries")
	mustRun(t, &commands.CreateListCmd{}, rp, "Errands")
	mustRun(t, &commands.AddCmd{}, rp, "Buy stamps")

	move := &commands.MoveCmd{}
	fsArgs := []string{"--to", "Errands", "1"}
	_, stderr, code := runWithFlags(t, move, rp, fsArgs)
	if code != exitcode.Success {
		t.Fatalf("move: exit %d, stderr %q", code, stderr)
	}

	stdout, _, _ := runCommand(t, &commands.ListCmd{}, rp, []string{"Errands"}, true)
	if !strings.Contains(stdout, "Buy stamps") {
		t.Errorf("task not in target list: %q", stdout)
	}
}

func TestRmListRefusesNonEmptyWithoutForce(t *testing.T) {
	rp := newTestRepo(t)
	mustRun(t, &commands.CreateListCmd{}, rp, "Groceries")
	mustRun(t, &commands.CreateListCmd{}, rp, "Errands")

	addErrands := &commands.AddCmd{}
	addErrands.SetListName("Errands")
	mustRun(t, addErrands, rp, "Post office")

	_, stderr, code := runCommand(t, &commands.RmListCmd{}, rp, []string{"Errands"}, false)
	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: list not empty (use --force)\n" {
		t.Errorf("unexpected stderr: %q", stderr)
	}

	forced := &commands.RmListCmd{}
	forced.SetForce(true)
	mustRun(t, forced, rp, "Errands")

	stdout, _, _ := runCommand(t, &commands.ListsCmd{}, rp, nil, true)
	if strings.Contains(stdout, "Errands") {
		t.Errorf("list still present: %q", stdout)
	}
}

func TestStatusCountsPendingChanges(t *testing.T) {
	rp := newTestRepo(t)
	mustRun(t, &commands.CreateListCmd{}, rp, "Groceries")
	mustRun(t, &commands.AddCmd{}, rp, "Buy milk")

	stdout, stderr, code := runCommand(t, &commands.StatusCmd{}, rp, nil, false)

	if code != exitcode.Success {
		t.Fatalf("status: exit %d, stderr %q", code, stderr)
	}
	if !strings.Contains(stdout, "account: not signed in") {
		t.Errorf("missing account line: %q", stdout)
	}
	if !strings.Contains(stdout, "pending changes: 2") {
		t.Errorf("missing pending count: %q", stdout)
	}
}

// runWithFlags parses the command's flags before running it, the way
// the dispatcher does.
func runWithFlags(t *testing.T, cmd commands.Command, rp *repo.Repository, args []string) (stdout, stderr string, code int) {
	t.Helper()

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return runCommand(t, cmd, rp, fs.Args(), true)
}
