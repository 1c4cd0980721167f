// Package remotesync mirrors configured remote sources to a local cache
// directory using rsync over SSH, with an scp-based fallback when rsync is
// unavailable. Syncs are additive only: the engine never passes --delete,
// so a misconfigured or temporarily empty remote can't erase local data.
package remotesync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fyrsmithlabs/cass/internal/logging"
	"github.com/fyrsmithlabs/cass/internal/metrics"
	"github.com/fyrsmithlabs/cass/internal/sourcesconfig"
	"go.uber.org/zap"
)

// ErrNoHost and ErrNoPaths classify malformed source definitions caught at
// sync time rather than load time.
var (
	ErrNoHost  = errors.New("remotesync: source has no host configured")
	ErrNoPaths = errors.New("remotesync: source has no paths configured")
)

// Method is the transport used to pull files from a remote host.
type Method int

const (
	MethodRsync Method = iota
	MethodSCP
)

func (m Method) String() string {
	if m == MethodRsync {
		return "rsync"
	}
	return "scp"
}

// PathSyncResult is the outcome of mirroring a single configured path.
type PathSyncResult struct {
	RemotePath        string
	LocalPath         string
	FilesTransferred  uint64
	BytesTransferred  uint64
	Success           bool
	Error             string
	DurationMillis    int64
}

// SourceReport aggregates the per-path results of syncing one source.
type SourceReport struct {
	SourceName      string
	Method          Method
	PathResults     []PathSyncResult
	TotalDurationMs int64
	AllSucceeded    bool
}

func newReport(name string, method Method) SourceReport {
	return SourceReport{SourceName: name, Method: method, AllSucceeded: true}
}

func (r *SourceReport) add(result PathSyncResult) {
	if !result.Success {
		r.AllSucceeded = false
	}
	r.PathResults = append(r.PathResults, result)
}

func failedReport(name string, err error) SourceReport {
	return SourceReport{
		SourceName: name,
		Method:     MethodRsync,
		PathResults: []PathSyncResult{{
			Error:   err.Error(),
			Success: false,
		}},
		AllSucceeded: false,
	}
}

// TotalFiles sums FilesTransferred across every path result.
func (r SourceReport) TotalFiles() uint64 {
	var n uint64
	for _, p := range r.PathResults {
		n += p.FilesTransferred
	}
	return n
}

// TotalBytes sums BytesTransferred across every path result.
func (r SourceReport) TotalBytes() uint64 {
	var n uint64
	for _, p := range r.PathResults {
		n += p.BytesTransferred
	}
	return n
}

// Engine pulls files from remote sources into a local mirror directory.
type Engine struct {
	localStore        string
	connectionTimeout time.Duration
	transferTimeout   time.Duration
	runner            commandRunner
	log               *logging.Logger
}

// commandRunner abstracts process execution so tests can stub it out
// without invoking real ssh/rsync binaries.
type commandRunner interface {
	run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type execRunner struct{}

func (execRunner) run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// New builds an Engine rooted at dataDir, the same directory the relational
// store and inverted index live under.
func New(dataDir string, log *logging.Logger) *Engine {
	return &Engine{
		localStore:        dataDir,
		connectionTimeout: 10 * time.Second,
		transferTimeout:   300 * time.Second,
		runner:            execRunner{},
		log:               log,
	}
}

// MirrorDir returns {data_dir}/remotes/{source}/mirror.
func (e *Engine) MirrorDir(sourceName string) string {
	return filepath.Join(e.localStore, "remotes", sourceName, "mirror")
}

// DetectMethod probes for a working rsync binary, falling back to scp.
func (e *Engine) DetectMethod(ctx context.Context) Method {
	if _, _, err := e.runner.run(ctx, "rsync", "--version"); err == nil {
		return MethodRsync
	}
	return MethodSCP
}

func (e *Engine) warn(msg string, fields ...zap.Field) {
	if e.log != nil {
		e.log.Warn(context.Background(), msg, fields...)
	}
}

// SyncSource mirrors every path of one source. Individual path failures do
// not abort the rest of the source's paths.
func (e *Engine) SyncSource(ctx context.Context, source sourcesconfig.SourceDefinition) (SourceReport, error) {
	if source.Host == "" {
		return SourceReport{}, ErrNoHost
	}
	if len(source.Paths) == 0 {
		return SourceReport{}, ErrNoPaths
	}

	method := e.DetectMethod(ctx)
	report := newReport(source.Name, method)
	start := time.Now()

	mirrorDir := e.MirrorDir(source.Name)
	if err := mkdirAll(mirrorDir); err != nil {
		return SourceReport{}, fmt.Errorf("remotesync: create mirror dir: %w", err)
	}

	var remoteHome string
	needsHome := false
	for _, p := range source.Paths {
		if strings.HasPrefix(p, "~") {
			needsHome = true
			break
		}
	}
	if needsHome {
		home, err := e.remoteHome(ctx, source.Host)
		if err != nil {
			e.warn("failed to resolve remote home directory", zap.String("host", source.Host), zap.Error(err))
		} else {
			remoteHome = home
		}
	}

	for _, remotePath := range source.Paths {
		var result PathSyncResult
		switch method {
		case MethodRsync:
			result = e.syncPathRsync(ctx, source.Host, remotePath, mirrorDir, remoteHome)
		case MethodSCP:
			result = e.syncPathSCP(ctx, source.Host, remotePath, mirrorDir)
		}
		report.add(result)
	}

	report.TotalDurationMs = time.Since(start).Milliseconds()
	return report, nil
}

// SyncAll syncs every source, continuing past a source that fails entirely.
func (e *Engine) SyncAll(ctx context.Context, sources []sourcesconfig.SourceDefinition) []SourceReport {
	reports := make([]SourceReport, 0, len(sources))
	for _, source := range sources {
		report, err := e.SyncSource(ctx, source)
		if err != nil {
			report = failedReport(source.Name, err)
		}
		metrics.RecordSync(report.SourceName, report.TotalBytes(), report.failedPaths())
		reports = append(reports, report)
	}
	return reports
}

// failedPaths counts the path syncs that did not succeed.
func (r SourceReport) failedPaths() int {
	n := 0
	for _, p := range r.PathResults {
		if !p.Success {
			n++
		}
	}
	return n
}

func (e *Engine) remoteHome(ctx context.Context, host string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.connectionTimeout)
	defer cancel()
	stdout, stderr, err := e.runner.run(ctx, "ssh", sshOpts(e.connectionTimeout, host, "echo $HOME")...)
	if err != nil {
		return "", fmt.Errorf("ssh: %s", strings.TrimSpace(stderr))
	}
	home := strings.TrimSpace(stdout)
	if home == "" {
		return "", fmt.Errorf("ssh: remote home directory is empty")
	}
	return home, nil
}

func sshOpts(timeout time.Duration, host, command string) []string {
	return []string{
		"-o", "BatchMode=yes",
		"-o", fmt.Sprintf("ConnectTimeout=%d", int(timeout.Seconds())),
		"-o", "StrictHostKeyChecking=accept-new",
		"--", host, command,
	}
}

// expandTilde resolves a leading ~ or ~/ using home. A bare ~user form is
// left untouched, matching the upstream tool's documented limitation.
func expandTilde(path, home string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	if home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return home + "/" + rest
	}
	return path
}

// PathToSafeDirname renders a remote path as a filesystem-safe directory
// name: no path separators, never empty.
func PathToSafeDirname(path string) string {
	cleaned := strings.TrimPrefix(path, "~")
	cleaned = strings.TrimPrefix(cleaned, "/")
	replacer := strings.NewReplacer("/", "_", "\\", "_", " ", "_")
	cleaned = replacer.Replace(cleaned)
	if cleaned == "" {
		return "root"
	}
	return cleaned
}

func (e *Engine) syncPathRsync(ctx context.Context, host, remotePath, destDir, remoteHome string) PathSyncResult {
	start := time.Now()
	expanded := expandTilde(remotePath, remoteHome)
	if strings.HasPrefix(remotePath, "~") && expanded == remotePath {
		e.warn("could not expand tilde in remote path, remote home unavailable", zap.String("remote_path", remotePath))
	}

	localPath := filepath.Join(destDir, PathToSafeDirname(expanded))
	if err := mkdirAll(localPath); err != nil {
		return PathSyncResult{
			RemotePath:     remotePath,
			LocalPath:      localPath,
			Error:          fmt.Sprintf("create directory: %v", err),
			DurationMillis: time.Since(start).Milliseconds(),
		}
	}

	remoteSpec := host + ":" + expanded
	ctx, cancel := context.WithTimeout(ctx, e.transferTimeout+e.connectionTimeout)
	defer cancel()

	sshOpt := fmt.Sprintf("ssh -o BatchMode=yes -o ConnectTimeout=%d -o StrictHostKeyChecking=accept-new", int(e.connectionTimeout.Seconds()))
	args := []string{
		"-avz",
		"--stats",
		"--partial",
		"--protect-args",
		"--timeout", strconv.Itoa(int(e.transferTimeout.Seconds())),
		"-e", sshOpt,
		"--",
		remoteSpec,
		localPath,
	}

	stdout, stderr, err := e.runner.run(ctx, "rsync", args...)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		errMsg := classifyRsyncError(stderr, expanded)
		e.warn("rsync failed", zap.String("host", host), zap.String("remote_path", expanded), zap.String("error", errMsg))
		return PathSyncResult{
			RemotePath:     remotePath,
			LocalPath:      localPath,
			Error:          errMsg,
			DurationMillis: duration,
		}
	}

	files, bytesN := parseRsyncStats(stdout)
	return PathSyncResult{
		RemotePath:       remotePath,
		LocalPath:        localPath,
		FilesTransferred: files,
		BytesTransferred: bytesN,
		Success:          true,
		DurationMillis:   duration,
	}
}

func classifyRsyncError(stderr, remotePath string) string {
	switch {
	case strings.Contains(stderr, "Connection refused"), strings.Contains(stderr, "Connection timed out"):
		return fmt.Sprintf("ssh connection failed: %s", strings.TrimSpace(stderr))
	case strings.Contains(stderr, "No such file or directory"):
		return fmt.Sprintf("remote path not found: %s", remotePath)
	case strings.Contains(stderr, "Permission denied"):
		return fmt.Sprintf("permission denied: %s", strings.TrimSpace(stderr))
	default:
		return fmt.Sprintf("rsync failed: %s", strings.TrimSpace(stderr))
	}
}

// syncPathSCP is the fallback transport when rsync is not installed on the
// local machine. scp has no delta-transfer or resume support, so every
// sync re-copies the full tree; acceptable given these artifacts are small
// individually.
func (e *Engine) syncPathSCP(ctx context.Context, host, remotePath, destDir string) PathSyncResult {
	start := time.Now()
	localPath := filepath.Join(destDir, PathToSafeDirname(remotePath))
	if err := mkdirAll(localPath); err != nil {
		return PathSyncResult{
			RemotePath:     remotePath,
			LocalPath:      localPath,
			Error:          fmt.Sprintf("create directory: %v", err),
			DurationMillis: time.Since(start).Milliseconds(),
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.transferTimeout+e.connectionTimeout)
	defer cancel()
	remoteSpec := host + ":" + remotePath
	args := []string{
		"-r",
		"-o", "BatchMode=yes",
		"-o", fmt.Sprintf("ConnectTimeout=%d", int(e.connectionTimeout.Seconds())),
		"-o", "StrictHostKeyChecking=accept-new",
		remoteSpec,
		localPath,
	}
	_, stderr, err := e.runner.run(ctx, "scp", args...)
	duration := time.Since(start).Milliseconds()
	if err != nil {
		return PathSyncResult{
			RemotePath:     remotePath,
			LocalPath:      localPath,
			Error:          fmt.Sprintf("scp failed: %s", strings.TrimSpace(stderr)),
			DurationMillis: duration,
		}
	}
	return PathSyncResult{
		RemotePath:     remotePath,
		LocalPath:      localPath,
		Success:        true,
		DurationMillis: duration,
	}
}

func parseRsyncStats(output string) (files, bytesN uint64) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Number of regular files transferred:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				n, _ := strconv.ParseUint(strings.ReplaceAll(strings.TrimSpace(parts[1]), ",", ""), 10, 64)
				files = n
			}
		}
		if strings.HasPrefix(line, "Total transferred file size:") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				fields := strings.Fields(strings.TrimSpace(parts[1]))
				if len(fields) > 0 {
					n, _ := strconv.ParseUint(strings.ReplaceAll(fields[0], ",", ""), 10, 64)
					bytesN = n
				}
			}
		}
	}
	return files, bytesN
}
