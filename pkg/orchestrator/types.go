// Package orchestrator owns the transient processing state and routes
// work between extraction, captioning and the WordPress clients. All
// mutable state lives behind a single goroutine and is touched only
// through message handlers.
package orchestrator

import (
	"github.com/altsmith/altbridge/pkg/wordpress"
)

// Stage is the in-flight processing stage.
type Stage string

const (
	StageIdle       Stage = "idle"
	StageExtracting Stage = "extracting_context"
	StageGenerating Stage = "generating_alt_text"
	StageCompleted  Stage = "completed"
)

// ProcessingState is the single live state slot. A new generation
// overwrites it wholesale; no history is kept.
type ProcessingState struct {
	JobID       string `json:"job_id"`
	Stage       Stage  `json:"stage"`
	PageURL     string `json:"page_url"`
	ImageURL    string `json:"image_url"`
	OriginalAlt string `json:"original_alt"`
	AltText     string `json:"alt_text,omitempty"`
	WPPostID    string `json:"wp_post_id,omitempty"`
	MediaID     int    `json:"media_id,omitempty"`
	IsWordPress bool   `json:"is_wordpress"`
	Error       string `json:"error,omitempty"`
}

// StatusKind tells the UI which region to show.
type StatusKind string

const (
	StatusIdle       StatusKind = "idle"
	StatusInProgress StatusKind = "in_progress"
	StatusCompleted  StatusKind = "completed"
	StatusError      StatusKind = "error"
)

// Status is the replayable snapshot returned to a UI surface that may
// have missed the live events. Precedence: completed result, then
// pending error, then in-progress stage.
type Status struct {
	Kind  StatusKind       `json:"kind"`
	Stage Stage            `json:"stage,omitempty"`
	State *ProcessingState `json:"state,omitempty"`
	Error string           `json:"error,omitempty"`
}

// EventType classifies events pushed to the UI surface.
type EventType string

const (
	EventStage        EventType = "stage"
	EventCompleted    EventType = "completed"
	EventError        EventType = "error"
	EventUpdateResult EventType = "update_result"
	EventSyncResult   EventType = "sync_result"
)

// Event is a discrete notification pushed to connected UI surfaces.
// Update/sync results arrive here and are never folded into
// ProcessingState.
type Event struct {
	Type    EventType                `json:"type"`
	JobID   string                   `json:"job_id,omitempty"`
	Stage   Stage                    `json:"stage,omitempty"`
	State   *ProcessingState         `json:"state,omitempty"`
	Error   string                   `json:"error,omitempty"`
	Message string                   `json:"message,omitempty"`
	MediaID int                      `json:"media_id,omitempty"`
	Sync    *wordpress.AltSyncResult `json:"sync,omitempty"`
}

// internal messages consumed by the state loop

type cmdGenerate struct {
	pageURL  string
	imageURL string
	reply    chan string // job id
}

type cmdStatus struct {
	reply chan Status
}

type cmdInvalidateMedia struct{}

type cmdCachedMedia struct {
	imageURL string
	reply    chan int
}

type cmdStoreMedia struct {
	imageURL string
	mediaID  int
}

type msgExtracted struct {
	jobID string
	ctx   *extractResult
	err   error
}

type msgCaptioned struct {
	jobID   string
	altText string
	err     error
}

type msgMediaResolved struct {
	jobID    string
	imageURL string
	mediaID  int
}

// extractResult decouples the loop from the extract package's type so
// tests can fabricate one easily.
type extractResult struct {
	OriginalAlt string
	HTMLContext string
	WPPostID    string
	IsWordPress bool
	ImageBase64 string
}
