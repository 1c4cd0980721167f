package remotesync

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fyrsmithlabs/cass/internal/sourcesconfig"
)

type stubRunner struct {
	calls   [][]string
	outputs map[string]stubResult
}

type stubResult struct {
	stdout string
	stderr string
	err    error
}

func (s *stubRunner) run(_ context.Context, name string, args ...string) (string, string, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	if r, ok := s.outputs[name]; ok {
		return r.stdout, r.stderr, r.err
	}
	return "", "", nil
}

func TestPathToSafeDirname(t *testing.T) {
	cases := map[string]string{
		"/home/me/.codex":  "home_me_.codex",
		"~/.claude":        ".claude",
		"~":                "root",
		"/":                "root",
		"relative/dir path": "relative_dir_path",
	}
	for in, want := range cases {
		if got := PathToSafeDirname(in); got != want {
			t.Errorf("PathToSafeDirname(%q) = %q, want %q", in, got, want)
		}
		if strings.ContainsAny(got, "/\\ ") {
			t.Errorf("PathToSafeDirname(%q) = %q contains an unsafe character", in, got)
		}
		if got == "" {
			t.Errorf("PathToSafeDirname(%q) returned empty string", in)
		}
	}
}

func TestExpandTilde(t *testing.T) {
	if got := expandTilde("~/.codex", "/home/remote"); got != "/home/remote/.codex" {
		t.Errorf("expandTilde = %q", got)
	}
	if got := expandTilde("~", "/home/remote"); got != "/home/remote" {
		t.Errorf("expandTilde(~) = %q", got)
	}
	if got := expandTilde("/abs/path", "/home/remote"); got != "/abs/path" {
		t.Errorf("expandTilde should leave absolute paths alone, got %q", got)
	}
	if got := expandTilde("~/.codex", ""); got != "~/.codex" {
		t.Errorf("expandTilde with no home should be a no-op, got %q", got)
	}
}

func TestSyncSource_RejectsMissingHostOrPaths(t *testing.T) {
	e := New(t.TempDir(), nil)
	e.runner = &stubRunner{}
	ctx := context.Background()

	if _, err := e.SyncSource(ctx, sourcesconfig.SourceDefinition{Name: "x", Paths: []string{"/a"}}); err != ErrNoHost {
		t.Errorf("expected ErrNoHost, got %v", err)
	}
	if _, err := e.SyncSource(ctx, sourcesconfig.SourceDefinition{Name: "x", Host: "h"}); err != ErrNoPaths {
		t.Errorf("expected ErrNoPaths, got %v", err)
	}
}

func TestSyncSource_RsyncHappyPath(t *testing.T) {
	stub := &stubRunner{outputs: map[string]stubResult{
		"rsync": {stdout: "Number of regular files transferred: 3\nTotal transferred file size: 1,024 bytes\n"},
	}}
	e := New(t.TempDir(), nil)
	e.runner = stub

	report, err := e.SyncSource(context.Background(), sourcesconfig.SourceDefinition{
		Name: "workstation", Host: "workstation.lan", Paths: []string{"/home/me/.codex"},
	})
	if err != nil {
		t.Fatalf("SyncSource: %v", err)
	}
	if report.Method != MethodRsync {
		t.Fatalf("expected rsync method, got %v", report.Method)
	}
	if !report.AllSucceeded {
		t.Fatalf("expected success, got %+v", report)
	}
	if report.TotalFiles() != 3 || report.TotalBytes() != 1024 {
		t.Errorf("unexpected parsed stats: files=%d bytes=%d", report.TotalFiles(), report.TotalBytes())
	}

	for _, call := range stub.calls {
		if call[0] == "rsync" {
			for _, a := range call {
				if a == "--delete" {
					t.Fatal("rsync invocation must never include --delete")
				}
			}
		}
	}
}

func TestSyncSource_TildeExpansionFetchesRemoteHomeOnce(t *testing.T) {
	stub := &stubRunner{outputs: map[string]stubResult{
		"ssh":   {stdout: "/home/remote\n"},
		"rsync": {stdout: "Number of regular files transferred: 1\nTotal transferred file size: 10 bytes\n"},
	}}
	e := New(t.TempDir(), nil)
	e.runner = stub

	report, err := e.SyncSource(context.Background(), sourcesconfig.SourceDefinition{
		Name: "laptop", Host: "laptop.lan", Paths: []string{"~/.codex", "~/.claude"},
	})
	if err != nil {
		t.Fatalf("SyncSource: %v", err)
	}
	if !report.AllSucceeded {
		t.Fatalf("expected success, got %+v", report)
	}

	sshCalls := 0
	for _, call := range stub.calls {
		if call[0] == "ssh" {
			sshCalls++
		}
	}
	if sshCalls != 1 {
		t.Errorf("expected exactly one ssh call to resolve $HOME, got %d", sshCalls)
	}
	for _, p := range report.PathResults {
		if strings.Contains(p.LocalPath, "~") {
			t.Errorf("expected tilde expanded in local path, got %q", p.LocalPath)
		}
	}
}

func TestSyncSource_RsyncFailureClassified(t *testing.T) {
	stub := &stubRunner{outputs: map[string]stubResult{
		"rsync": {stderr: "rsync: connection unexpectedly closed: No such file or directory (2)", err: errFake},
	}}
	e := New(t.TempDir(), nil)
	e.runner = stub

	report, err := e.SyncSource(context.Background(), sourcesconfig.SourceDefinition{
		Name: "x", Host: "h", Paths: []string{"/missing"},
	})
	if err != nil {
		t.Fatalf("SyncSource: %v", err)
	}
	if report.AllSucceeded {
		t.Fatal("expected failure to be reflected in report")
	}
	if !strings.Contains(report.PathResults[0].Error, "remote path not found") {
		t.Errorf("expected classified error, got %q", report.PathResults[0].Error)
	}
}

func TestSyncSource_FallsBackToSCPWhenRsyncMissing(t *testing.T) {
	stub := &stubRunner{outputs: map[string]stubResult{
		"rsync": {err: errFake},
	}}
	e := New(t.TempDir(), nil)
	e.runner = stub

	report, err := e.SyncSource(context.Background(), sourcesconfig.SourceDefinition{
		Name: "x", Host: "h", Paths: []string{"/a"},
	})
	if err != nil {
		t.Fatalf("SyncSource: %v", err)
	}
	if report.Method != MethodSCP {
		t.Fatalf("expected scp fallback, got %v", report.Method)
	}
}

func TestSyncAll_ContinuesPastFailedSource(t *testing.T) {
	e := New(t.TempDir(), nil)
	e.runner = &stubRunner{outputs: map[string]stubResult{"rsync": {err: errFake}}}

	reports := e.SyncAll(context.Background(), []sourcesconfig.SourceDefinition{
		{Name: "bad", Paths: []string{"/a"}},
		{Name: "good", Host: "h", Paths: []string{"/a"}},
	})
	if len(reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(reports))
	}
	if reports[0].SourceName != "bad" || reports[0].AllSucceeded {
		t.Errorf("expected first report to be the failed source, got %+v", reports[0])
	}
}

func TestStatus_SaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sync_status.json")
	status, err := LoadStatus(path)
	if err != nil {
		t.Fatalf("LoadStatus: %v", err)
	}
	status.RecordReport(SourceReport{
		SourceName:   "workstation",
		Method:       MethodRsync,
		AllSucceeded: true,
		PathResults:  []PathSyncResult{{FilesTransferred: 2, BytesTransferred: 512, Success: true}},
	}, 1700000000)
	if err := SaveStatus(path, status); err != nil {
		t.Fatalf("SaveStatus: %v", err)
	}

	reloaded, err := LoadStatus(path)
	if err != nil {
		t.Fatalf("LoadStatus reload: %v", err)
	}
	entry, ok := reloaded.Sources["workstation"]
	if !ok {
		t.Fatal("expected workstation entry to persist")
	}
	if entry.TotalFiles != 2 || entry.TotalBytes != 512 || !entry.AllSucceeded {
		t.Errorf("unexpected reloaded entry: %+v", entry)
	}
}

var errFake = &fakeErr{"stub command failure"}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }
