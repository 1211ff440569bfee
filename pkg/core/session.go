// pkg/core/session.go
package core

import "time"

// Session describes one recorded combat encounter.
type Session struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	DM               string    `json:"dm"`
	Tag              string    `json:"tag"`
	ExtensionVersion string    `json:"extensionVersion"`
	StartTime        time.Time `json:"startTime"`
}

// UploadMetadata describes an exported combat log for the companion web service.
type UploadMetadata struct {
	SessionName string        `json:"sessionName"`
	DM          string        `json:"dm"`
	Tag         string        `json:"tag"`
	Entries     int           `json:"entries"`
	Defeated    int           `json:"defeated"`
	Downed      int           `json:"downed"`
	Duration    time.Duration `json:"duration"`
}
