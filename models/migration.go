package models

import "time"

// MigrationStatus describes one schema migration of the sessions table.
type MigrationStatus struct {
	Version   int64     `json:"version"`
	Applied   bool      `json:"applied"`
	AppliedAt time.Time `json:"applied_at,omitzero"`
}
