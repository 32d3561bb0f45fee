package cli_test

import (
	"bytes"
	"context"
	"testing"

	"tasksync/internal/cli"
	"tasksync/internal/commands"
	"tasksync/internal/config"
	"tasksync/internal/exitcode"
	"tasksync/internal/remote"
	"tasksync/internal/testutil"
)

// testFactory returns a factory handing out the given fake remote.
func testFactory(fake *testutil.FakeRemote) cli.RemoteFactory {
	return func(ctx context.Context, cfg *config.Config) (remote.Service, error) {
		return fake, nil
	}
}

func run(t *testing.T, d *cli.Dispatcher, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	code = d.Run(context.Background(), args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	_, stderr, code := run(t, dispatcher, "unknowncmd")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: unknowncmd\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_FlagBeforeCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	_, stderr, code := run(t, dispatcher, "--quiet")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown command: --quiet\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

func TestDispatcher_HelpCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	stdout, stderr, code := run(t, dispatcher, "help")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if !bytes.Contains([]byte(stdout), []byte("Usage:")) {
		t.Error("expected help output to contain 'Usage:'")
	}
}

func TestDispatcher_VersionCommand(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	stdout, stderr, code := run(t, dispatcher, "version")

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tasksync 0.1.0\n" {
		t.Errorf("expected 'tasksync 0.1.0\\n', got %q", stdout)
	}
}

func TestDispatcher_UnknownFlag(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)

	_, stderr, code := run(t, dispatcher, "help", "--unknown")

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	expected := "error: unknown flag: -unknown\n"
	if stderr != expected {
		t.Errorf("expected %q, got %q", expected, stderr)
	}
}

// A full offline round trip through the dispatcher: create, add, list.
func TestDispatcher_OfflineRoundTrip(t *testing.T) {
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, nil)
	dir := t.TempDir()

	_, stderr, code := run(t, dispatcher, "createlist", "--config", dir, "--quiet", "Groceries")
	if code != exitcode.Success {
		t.Fatalf("createlist: exit %d, stderr %q", code, stderr)
	}
	_, stderr, code = run(t, dispatcher, "add", "--config", dir, "--quiet", "Buy", "milk")
	if code != exitcode.Success {
		t.Fatalf("add: exit %d, stderr %q", code, stderr)
	}

	stdout, stderr, code := run(t, dispatcher, "list", "--config", dir)
	if code != exitcode.Success {
		t.Fatalf("list: exit %d, stderr %q", code, stderr)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "   1  Buy milk\n" {
		t.Errorf("unexpected list output: %q", stdout)
	}
}

// Sync through the dispatcher pushes to the injected remote.
func TestDispatcher_SyncUsesFactory(t *testing.T) {
	fake := testutil.NewFakeRemote()
	dispatcher := cli.NewDispatcher(commands.DefaultRegistry, testFactory(fake))
	dir := t.TempDir()

	_, stderr, code := run(t, dispatcher, "createlist", "--config", dir, "--quiet", "Groceries")
	if code != exitcode.Success {
		t.Fatalf("createlist: exit %d, stderr %q", code, stderr)
	}

	stdout, stderr, code := run(t, dispatcher, "sync", "--config", dir)
	if code != exitcode.Success {
		t.Fatalf("sync: exit %d, stderr %q", code, stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("unexpected stdout: %q", stdout)
	}

	lists, err := fake.ListTaskLists(context.Background())
	if err != nil {
		t.Fatalf("fake lists: %v", err)
	}
	if len(lists) != 1 || lists[0].Title != "Groceries" {
		t.Errorf("remote lists = %+v, want one Groceries", lists)
	}
}
