package remotesync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func mkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

// StatusEntry is the persisted record for one source's most recent sync.
type StatusEntry struct {
	SourceName   string `json:"source_name"`
	Method       string `json:"method"`
	LastSyncUnix int64  `json:"last_sync_unix"`
	TotalFiles   uint64 `json:"total_files"`
	TotalBytes   uint64 `json:"total_bytes"`
	AllSucceeded bool   `json:"all_succeeded"`
	Errors       []string `json:"errors,omitempty"`
}

// Status is the full contents of sync_status.json, keyed by source name.
type Status struct {
	Sources map[string]StatusEntry `json:"sources"`
}

// StatusPath returns {data_dir}/sync_status.json.
func StatusPath(dataDir string) string {
	return filepath.Join(dataDir, "sync_status.json")
}

// LoadStatus reads sync_status.json, returning an empty Status if the file
// does not yet exist.
func LoadStatus(path string) (*Status, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Status{Sources: map[string]StatusEntry{}}, nil
		}
		return nil, fmt.Errorf("remotesync: read status file: %w", err)
	}
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("remotesync: parse status file: %w", err)
	}
	if s.Sources == nil {
		s.Sources = map[string]StatusEntry{}
	}
	return &s, nil
}

// SaveStatus writes status to path atomically: write to a temp file in the
// same directory, then rename over the destination.
func SaveStatus(path string, status *Status) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("remotesync: marshal status: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("remotesync: create status dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("remotesync: write status temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("remotesync: rename status file: %w", err)
	}
	return nil
}

// RecordReport folds a SourceReport into status, replacing any prior entry
// for the same source.
func (s *Status) RecordReport(report SourceReport, syncedAtUnix int64) {
	if s.Sources == nil {
		s.Sources = map[string]StatusEntry{}
	}
	var errs []string
	for _, p := range report.PathResults {
		if p.Error != "" {
			errs = append(errs, p.Error)
		}
	}
	s.Sources[report.SourceName] = StatusEntry{
		SourceName:   report.SourceName,
		Method:       report.Method.String(),
		LastSyncUnix: syncedAtUnix,
		TotalFiles:   report.TotalFiles(),
		TotalBytes:   report.TotalBytes(),
		AllSucceeded: report.AllSucceeded,
		Errors:       errs,
	}
}
