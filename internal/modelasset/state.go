package modelasset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Kind discriminates the variants of State. Go has no sum types, so State
// is a tagged struct: only the fields relevant to Kind are meaningful.
type Kind int

const (
	NotInstalled Kind = iota
	NeedsConsent
	Downloading
	Verifying
	Ready
	Disabled
	VerificationFailed
	UpdateAvailable
	Cancelled
)

// State is the model asset's lifecycle state.
type State struct {
	Kind Kind

	// Downloading
	ProgressPct     uint8
	BytesDownloaded int64
	TotalBytes      int64

	// Disabled, VerificationFailed
	Reason string

	// UpdateAvailable
	CurrentRevision string
	LatestRevision  string
}

func (s State) IsReady() bool       { return s.Kind == Ready }
func (s State) IsDownloading() bool { return s.Kind == Downloading }
func (s State) NeedsConsent() bool  { return s.Kind == NeedsConsent }

// MetricName returns the label value metrics.SetModelState expects for this
// Kind.
func (k Kind) MetricName() string {
	switch k {
	case NotInstalled:
		return "not_installed"
	case NeedsConsent:
		return "needs_consent"
	case Downloading:
		return "downloading"
	case Verifying:
		return "verifying"
	case Ready:
		return "ready"
	case Disabled:
		return "disabled"
	case VerificationFailed:
		return "verification_failed"
	case UpdateAvailable:
		return "update_available"
	case Cancelled:
		return "cancelled"
	default:
		return "not_installed"
	}
}

// Summary renders a one-line human-readable description, matching the
// upstream tool's status line wording.
func (s State) Summary() string {
	switch s.Kind {
	case NotInstalled:
		return "not installed"
	case NeedsConsent:
		return "needs consent"
	case Downloading:
		return fmt.Sprintf("downloading (%d%%)", s.ProgressPct)
	case Verifying:
		return "verifying"
	case Ready:
		return "ready"
	case Disabled:
		return "disabled: " + s.Reason
	case VerificationFailed:
		return "verification failed: " + s.Reason
	case UpdateAvailable:
		return fmt.Sprintf("update available: %s -> %s", s.CurrentRevision, s.LatestRevision)
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CheckInstalled inspects modelDir and reports NotInstalled or Ready. A
// model is Ready only once every manifest file and the .verified marker
// both exist; a missing marker means the install wasn't atomically
// completed on a previous run, so it is treated as absent rather than
// partially usable.
func CheckInstalled(modelDir string, manifest Manifest) State {
	info, err := os.Stat(modelDir)
	if err != nil || !info.IsDir() {
		return State{Kind: NotInstalled}
	}
	if _, err := os.Stat(verifiedMarkerPath(modelDir)); err != nil {
		return State{Kind: NotInstalled}
	}
	for _, name := range manifest.RequiredFiles() {
		if fi, err := os.Stat(filepath.Join(modelDir, name)); err != nil || fi.IsDir() {
			return State{Kind: NotInstalled}
		}
	}
	return State{Kind: Ready}
}

// CheckVersionMismatch reports UpdateAvailable when the installed
// revision, read from the .verified marker, differs from the manifest's
// pinned revision. It returns ok=false when there is nothing installed to
// compare against.
func CheckVersionMismatch(modelDir string, manifest Manifest) (State, bool) {
	content, err := os.ReadFile(verifiedMarkerPath(modelDir))
	if err != nil {
		return State{}, false
	}
	installed := parseRevision(string(content))
	if installed == "" || installed == manifest.Revision {
		return State{}, false
	}
	return State{Kind: UpdateAvailable, CurrentRevision: installed, LatestRevision: manifest.Revision}, true
}

func parseRevision(marker string) string {
	for _, line := range strings.Split(marker, "\n") {
		if rest, ok := strings.CutPrefix(line, "revision="); ok {
			return rest
		}
	}
	return ""
}

func verifiedMarkerPath(modelDir string) string {
	return filepath.Join(modelDir, ".verified")
}
