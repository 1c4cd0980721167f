// Package modelasset manages the lifecycle of the optional embedding-model
// download: a consent-gated state machine, a resumable ranged-HTTP
// downloader with checksum verification, and atomic installation.
package modelasset

import "fmt"

// File describes one file in a model's manifest.
type File struct {
	Name   string
	SHA256 string
	Size   int64
}

// Manifest describes a downloadable model: where it comes from and what
// files it is made of.
type Manifest struct {
	ID       string
	Repo     string
	Revision string
	Files    []File
	License  string

	// downloadBase overrides the computed huggingface.co URL; used by
	// tests to point the downloader at an httptest server.
	downloadBase string
}

// MiniLMV2 is the default embedding model manifest, pinned to a specific
// revision and per-file checksums for reproducibility.
func MiniLMV2() Manifest {
	return Manifest{
		ID:       "all-minilm-l6-v2",
		Repo:     "sentence-transformers/all-MiniLM-L6-v2",
		Revision: "e4ce9877abf3edfe10b0d82785e83bdcb973e22e",
		Files: []File{
			{Name: "model.onnx", SHA256: "af9eceaf5d8a75d882c9cb8ba36c693a36bd41cf57ffe0adac38daa59bdf4bca", Size: 22713856},
			{Name: "tokenizer.json", SHA256: "eb1de459c8d47e0fb1bd6ef7e98d9cfcd7a50a8b1bca8f631b21f0ed7c5b2bde", Size: 711396},
			{Name: "config.json", SHA256: "89d6e23cd85b1d8cbc63c7a5cee4eb7b2df8e09dcf89eed39b0d6b84bd8dfe88", Size: 612},
		},
		License: "Apache-2.0",
	}
}

// TotalSize sums the expected size of every file in the manifest.
func (m Manifest) TotalSize() int64 {
	var total int64
	for _, f := range m.Files {
		total += f.Size
	}
	return total
}

// DownloadURL returns the source URL for one manifest file.
func (m Manifest) DownloadURL(f File) string {
	if m.downloadBase != "" {
		return m.downloadBase + "/" + f.Name
	}
	return fmt.Sprintf("https://huggingface.co/%s/resolve/%s/%s", m.Repo, m.Revision, f.Name)
}

// RequiredFiles lists the file names that must be present for a model
// directory to be considered Ready.
func (m Manifest) RequiredFiles() []string {
	names := make([]string, len(m.Files))
	for i, f := range m.Files {
		names[i] = f.Name
	}
	return names
}
