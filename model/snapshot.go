package model

import "time"

// SnapshotVersion is the format tag written by exports.
const SnapshotVersion = "1.0"

// Snapshot is the export/import document.
type Snapshot struct {
	ExportedAt time.Time  `json:"exportedAt"`
	Version    string     `json:"version"`
	Todos      []TodoItem `json:"todos"`
}

// ImportResult reports what an import did.
type ImportResult struct {
	Success       bool   `json:"success"`
	ImportedCount int    `json:"importedCount"`
	SkippedCount  int    `json:"skippedCount"`
	ErrorMessage  string `json:"errorMessage,omitempty"`
}
