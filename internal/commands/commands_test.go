package commands_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tabdash/internal/commands"
	"tabdash/internal/config"
	"tabdash/internal/errs"
	"tabdash/internal/exitcode"
	"tabdash/internal/provider"
	"tabdash/internal/testutil"
)

// runCommand is a helper to run a command against fake providers.
func runCommand(t *testing.T, cmd commands.Command, svc *commands.Services, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer

	cfg := &config.Config{
		Dir:      t.TempDir(),
		Provider: config.ProviderLocal,
		Quiet:    quiet,
	}

	ctx := context.Background()
	code = cmd.Run(ctx, cfg, svc, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

func services(tasks *testutil.FakeTaskProvider, events *testutil.FakeEventProvider) *commands.Services {
	svc := &commands.Services{Tasks: tasks}
	if events != nil {
		svc.Events = events
	}
	return svc
}

func task(id, content string) provider.EnrichedTask {
	return provider.EnrichedTask{RawTask: provider.RawTask{ID: id, Content: content}}
}

// Tests for tasks command

func TestTasksCommand_Output(t *testing.T) {
	fake := testutil.NewFakeTaskProvider(task("t1", "Buy milk"), task("t2", "Buy eggs"))

	cmd := &commands.TasksCmd{}
	stdout, stderr, code := runCommand(t, cmd, services(fake, nil), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	expected := "  1  [ ]  Buy milk\n  2  [ ]  Buy eggs\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestTasksCommand_SyncsWhenStale(t *testing.T) {
	fake := testutil.NewFakeTaskProvider(task("t1", "Buy milk"))
	fake.Stale = true

	cmd := &commands.TasksCmd{}
	_, _, code := runCommand(t, cmd, services(fake, nil), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if fake.SyncCalls != 1 {
		t.Errorf("expected 1 sync, got %d", fake.SyncCalls)
	}
}

func TestTasksCommand_SkipsSyncWhenFresh(t *testing.T) {
	fake := testutil.NewFakeTaskProvider(task("t1", "Buy milk"))

	cmd := &commands.TasksCmd{}
	_, _, code := runCommand(t, cmd, services(fake, nil), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if fake.SyncCalls != 0 {
		t.Errorf("expected no sync for a fresh cache, got %d", fake.SyncCalls)
	}
}

func TestTasksCommand_SyncFailure(t *testing.T) {
	fake := testutil.NewFakeTaskProvider()
	fake.Stale = true
	fake.SyncErr = errs.Network("todoist: GET /tasks", errors.New("connection refused"))

	cmd := &commands.TasksCmd{}
	stdout, stderr, code := runCommand(t, cmd, services(fake, nil), nil, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if !strings.Contains(stderr, "backend error") {
		t.Errorf("expected backend error on stderr, got %q", stderr)
	}
}

func TestTasksCommand_AuthFailureExitCode(t *testing.T) {
	fake := testutil.NewFakeTaskProvider()
	fake.Stale = true
	fake.SyncErr = errs.Auth("google tasks: list tasklists", 401)

	cmd := &commands.TasksCmd{}
	_, stderr, code := runCommand(t, cmd, services(fake, nil), nil, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.Contains(stderr, "auth error") {
		t.Errorf("expected auth error on stderr, got %q", stderr)
	}
}

func TestTasksCommand_Empty(t *testing.T) {
	fake := testutil.NewFakeTaskProvider()

	cmd := &commands.TasksCmd{}
	stdout, _, code := runCommand(t, cmd, services(fake, nil), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "no tasks found\n" {
		t.Errorf("expected 'no tasks found\\n', got %q", stdout)
	}
}

func TestTasksCommand_EmptyQuiet(t *testing.T) {
	fake := testutil.NewFakeTaskProvider()

	cmd := &commands.TasksCmd{}
	stdout, _, code := runCommand(t, cmd, services(fake, nil), nil, true)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "" {
		t.Errorf("expected empty stdout in quiet mode, got %q", stdout)
	}
}

// Tests for add command

func TestAddCommand_Success(t *testing.T) {
	fake := testutil.NewFakeTaskProvider()

	cmd := &commands.AddCmd{}
	stdout, stderr, code := runCommand(t, cmd, services(fake, nil), []string{"Buy", "groceries"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if len(fake.Added) != 1 || fake.Added[0] != "Buy groceries" {
		t.Errorf("expected added task 'Buy groceries', got %v", fake.Added)
	}
}

func TestAddCommand_NoContent(t *testing.T) {
	fake := testutil.NewFakeTaskProvider()

	cmd := &commands.AddCmd{}
	stdout, stderr, code := runCommand(t, cmd, services(fake, nil), nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stdout != "" {
		t.Errorf("expected no stdout, got %q", stdout)
	}
	if stderr != "error: content required\n" {
		t.Errorf("expected content required error, got %q", stderr)
	}
}

// Tests for done / undone commands

func TestDoneCommand_ByNumber(t *testing.T) {
	fake := testutil.NewFakeTaskProvider(task("t1", "Buy milk"), task("t2", "Buy eggs"))

	cmd := &commands.DoneCmd{}
	stdout, stderr, code := runCommand(t, cmd, services(fake, nil), []string{"2"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if len(fake.Completed) != 1 || fake.Completed[0] != "t2" {
		t.Errorf("expected completion of t2, got %v", fake.Completed)
	}
}

func TestDoneCommand_ByID(t *testing.T) {
	fake := testutil.NewFakeTaskProvider(task("t1", "Buy milk"))

	cmd := &commands.DoneCmd{}
	_, _, code := runCommand(t, cmd, services(fake, nil), []string{"t1"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if len(fake.Completed) != 1 || fake.Completed[0] != "t1" {
		t.Errorf("expected completion of t1, got %v", fake.Completed)
	}
}

func TestDoneCommand_NoRef(t *testing.T) {
	fake := testutil.NewFakeTaskProvider()

	cmd := &commands.DoneCmd{}
	_, stderr, code := runCommand(t, cmd, services(fake, nil), nil, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task reference required\n" {
		t.Errorf("expected task reference required error, got %q", stderr)
	}
}

func TestDoneCommand_OutOfRange(t *testing.T) {
	fake := testutil.NewFakeTaskProvider(task("t1", "Only task"))

	cmd := &commands.DoneCmd{}
	_, stderr, code := runCommand(t, cmd, services(fake, nil), []string{"5"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task number out of range: 5\n" {
		t.Errorf("expected out of range error, got %q", stderr)
	}
}

func TestUndoneCommand_ByNumber(t *testing.T) {
	fake := testutil.NewFakeTaskProvider(task("t1", "Buy milk"))

	cmd := &commands.UndoneCmd{}
	_, _, code := runCommand(t, cmd, services(fake, nil), []string{"1"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if len(fake.Uncompleted) != 1 || fake.Uncompleted[0] != "t1" {
		t.Errorf("expected uncompletion of t1, got %v", fake.Uncompleted)
	}
}

// Tests for rm command

func TestRmCommand_Success(t *testing.T) {
	fake := testutil.NewFakeTaskProvider(task("t1", "Buy milk"), task("t2", "Buy eggs"))

	cmd := &commands.RmCmd{}
	stdout, _, code := runCommand(t, cmd, services(fake, nil), []string{"1"}, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if len(fake.Deleted) != 1 || fake.Deleted[0] != "t1" {
		t.Errorf("expected deletion of t1, got %v", fake.Deleted)
	}
}

func TestRmCommand_NotFound(t *testing.T) {
	fake := testutil.NewFakeTaskProvider()

	cmd := &commands.RmCmd{}
	_, stderr, code := runCommand(t, cmd, services(fake, nil), []string{"nope"}, false)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if stderr != "error: task not found: nope\n" {
		t.Errorf("expected task not found error, got %q", stderr)
	}
}

// Tests for events command

func TestEventsCommand_Output(t *testing.T) {
	day := time.Date(2025, 12, 20, 0, 0, 0, 0, time.Local)
	events := testutil.NewFakeEventProvider(
		provider.Event{
			ID:           "e1",
			Title:        "Standup",
			Start:        day.Add(9 * time.Hour),
			End:          day.Add(9*time.Hour + 30*time.Minute),
			CalendarName: "Work",
		},
		provider.Event{
			ID:     "e2",
			Title:  "Conference",
			Start:  day,
			End:    day.Add(24 * time.Hour),
			AllDay: true,
		},
	)

	cmd := &commands.EventsCmd{}
	stdout, stderr, code := runCommand(t, cmd, services(testutil.NewFakeTaskProvider(), events), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	expected := "  09:00-09:30  Standup  (Work)\n  all day      Conference\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

func TestEventsCommand_NotConfigured(t *testing.T) {
	cmd := &commands.EventsCmd{}
	_, stderr, code := runCommand(t, cmd, services(testutil.NewFakeTaskProvider(), nil), nil, false)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if !strings.Contains(stderr, "calendar not configured") {
		t.Errorf("expected not-configured error, got %q", stderr)
	}
}

// Tests for meet command

func TestMeetCommand_PrintsLink(t *testing.T) {
	events := testutil.NewFakeEventProvider()
	events.MeetLink = "https://meet.google.com/abc-defg-hij"

	cmd := &commands.MeetCmd{}
	stdout, _, code := runCommand(t, cmd, services(testutil.NewFakeTaskProvider(), events), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "https://meet.google.com/abc-defg-hij\n" {
		t.Errorf("expected meet link, got %q", stdout)
	}
}

// Tests for sync command

func TestSyncCommand_SyncsAllBackends(t *testing.T) {
	tasks := testutil.NewFakeTaskProvider()
	events := testutil.NewFakeEventProvider()

	cmd := &commands.SyncCmd{}
	stdout, _, code := runCommand(t, cmd, services(tasks, events), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
	if tasks.SyncCalls != 1 {
		t.Errorf("expected 1 task sync, got %d", tasks.SyncCalls)
	}
	if events.SyncCalls != 1 {
		t.Errorf("expected 1 event sync, got %d", events.SyncCalls)
	}
}

func TestSyncCommand_RateLimitExitCode(t *testing.T) {
	tasks := testutil.NewFakeTaskProvider()
	tasks.SyncErr = errs.RateLimit("todoist: GET /tasks", 60*time.Second)

	cmd := &commands.SyncCmd{}
	_, stderr, code := runCommand(t, cmd, services(tasks, nil), nil, false)

	if code != exitcode.BackendError {
		t.Errorf("expected exit code %d, got %d", exitcode.BackendError, code)
	}
	if !strings.Contains(stderr, "retry after 1m0s") {
		t.Errorf("expected retry hint on stderr, got %q", stderr)
	}
}

// Tests for clear command

func TestClearCommand_Success(t *testing.T) {
	tasks := testutil.NewFakeTaskProvider()
	events := testutil.NewFakeEventProvider()

	cmd := &commands.ClearCmd{}
	stdout, _, code := runCommand(t, cmd, services(tasks, events), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stdout != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", stdout)
	}
}

// Tests for status command

func TestStatusCommand_NoGoogle(t *testing.T) {
	tasks := testutil.NewFakeTaskProvider()
	tasks.Stale = true

	cmd := &commands.StatusCmd{}
	stdout, _, code := runCommand(t, cmd, services(tasks, nil), nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	expected := "provider: local\ngoogle: not configured\ntasks cache: stale\n"
	if stdout != expected {
		t.Errorf("expected %q, got %q", expected, stdout)
	}
}

// Tests for version command

func TestVersionCommand(t *testing.T) {
	cmd := &commands.VersionCmd{}

	stdout, stderr, code := runCommand(t, cmd, nil, nil, false)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if stderr != "" {
		t.Errorf("expected no stderr, got %q", stderr)
	}
	if stdout != "tabdash 0.1.0\n" {
		t.Errorf("expected version output, got %q", stdout)
	}
}

// Tests for help command

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
	testutil.GoldenString(t, "help", stdout)
}
