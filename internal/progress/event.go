// Package progress defines the crawl milestone events emitted by the
// session controller and the hub that fans them out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageSessionStart  Stage = "SESSION_START"
	StageSessionDone   Stage = "SESSION_DONE"
	StageSessionError  Stage = "SESSION_ERROR"
	StagePageDone      Stage = "PAGE_DONE"
	StagePageSkip      Stage = "PAGE_SKIP"
	StageClassifyStart Stage = "CLASSIFY_START"
	StageClassifyDone  Stage = "CLASSIFY_DONE"
)

// Event captures a single crawl milestone.
type Event struct {
	// RunID identifies one crawl run in 16-byte UUID form.
	RunID [16]byte
	// SiteID scopes the event to the site being crawled.
	SiteID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// URL is set for page-level events.
	URL string
	// Pages carries the cumulative count of successfully persisted pages.
	Pages int64
	// Reason holds low-volume context: a skip cause or error text.
	Reason string
	// Dur captures the elapsed run time on terminal events.
	Dur time.Duration
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.SiteID == "" {
		return errors.New("site id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageSessionStart, StageSessionDone, StageSessionError,
		StageClassifyStart, StageClassifyDone:
	case StagePageDone:
		if e.URL == "" {
			return errors.New("page done requires url")
		}
	case StagePageSkip:
		if e.Reason == "" {
			return errors.New("page skip requires reason")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// NewRunID produces a fresh run identifier in Event form.
func NewRunID() [16]byte {
	return uuid.New()
}
