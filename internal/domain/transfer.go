package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransferState represents the current state of a transfer session
type TransferState string

const (
	StateIdle       TransferState = "idle"
	StateInitiating TransferState = "initiating"
	StateStreaming  TransferState = "streaming"
	StateCompleted  TransferState = "completed"
	StateFailed     TransferState = "failed"
)

// IsActive checks if a transfer is between initiation and a terminal state
func (s TransferState) IsActive() bool {
	return s == StateInitiating || s == StateStreaming
}

// IsTerminal checks if a transfer has completed or failed
func (s TransferState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// ProgressSource records where a session's percent/speed/eta figures come from
type ProgressSource string

const (
	SourceLocal ProgressSource = "local" // sampled from bytes read off the response
	SourcePush  ProgressSource = "push"  // reported by the backend over the progress channel
)

const (
	// SingleSessionKey keys the session of a single-item resource
	SingleSessionKey = "single"

	// DefaultSampleInterval is the minimum spacing between throughput samples
	DefaultSampleInterval = 500 * time.Millisecond

	minSampleSeconds = 1e-3
)

// NewTransferID generates a client-side transfer id
func NewTransferID() string {
	return uuid.New().String()
}

// TransferSession is the state of one streamed download
type TransferSession struct {
	ID            string         `json:"id,omitempty"`
	Key           string         `json:"key"`
	TargetLocator string         `json:"targetLocator"`
	FormatID      string         `json:"formatId,omitempty"` // empty lets the backend pick the best quality
	Title         string         `json:"title,omitempty"`
	State         TransferState  `json:"state"`
	Source        ProgressSource `json:"source,omitempty"`
	IsBatch       bool           `json:"isBatch,omitempty"`

	BytesLoaded int64   `json:"bytesLoaded"`
	BytesTotal  int64   `json:"bytesTotal,omitempty"` // 0 when the response did not advertise a length
	Percent     float64 `json:"percent"`              // 0-100
	SpeedBps    float64 `json:"speedBps"`
	ETASeconds  float64 `json:"etaSeconds"`

	LastSampleAt    time.Time `json:"-"`
	LastSampleBytes int64     `json:"-"`

	Filename     string     `json:"filename,omitempty"`
	SavedPath    string     `json:"savedPath,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	StartedAt    *time.Time `json:"startedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
}

// NewTransferSession creates an idle session for a target
func NewTransferSession(key, locator, formatID, title string) *TransferSession {
	return &TransferSession{
		Key:           key,
		TargetLocator: locator,
		FormatID:      formatID,
		Title:         title,
		State:         StateIdle,
	}
}

// CanStart checks if a new run may begin. Terminal sessions fall back to idle on restart.
func (s *TransferSession) CanStart() bool {
	return !s.State.IsActive()
}

// Begin moves the session to Initiating under a fresh transfer id
func (s *TransferSession) Begin(id string, source ProgressSource, now time.Time) error {
	if !s.CanStart() {
		return ErrTransferInProgress
	}

	s.ID = id
	s.State = StateInitiating
	s.Source = source
	s.BytesLoaded = 0
	s.BytesTotal = 0
	s.Percent = 0
	s.SpeedBps = 0
	s.ETASeconds = 0
	s.LastSampleAt = now
	s.LastSampleBytes = 0
	s.SavedPath = ""
	s.ErrorMessage = ""
	s.StartedAt = &now
	s.CompletedAt = nil
	return nil
}

// MarkStreaming records the advertised length once the response starts
func (s *TransferSession) MarkStreaming(total int64) {
	if s.State != StateInitiating {
		return
	}
	s.State = StateStreaming
	if total > 0 {
		s.BytesTotal = total
	}
}

// AddBytes accounts for one received chunk and reports whether a new throughput sample was taken.
// Percent and throughput only move here for locally sampled sessions.
func (s *TransferSession) AddBytes(n int64, now time.Time, interval time.Duration) bool {
	if !s.State.IsActive() || n < 0 {
		return false
	}
	if s.State == StateInitiating {
		s.State = StateStreaming
	}
	s.BytesLoaded += n

	if s.Source != SourceLocal {
		return false
	}
	if s.BytesTotal > 0 {
		s.Percent = 100 * float64(s.BytesLoaded) / float64(s.BytesTotal)
	}
	if now.Sub(s.LastSampleAt) < interval {
		return false
	}
	s.SpeedBps, s.ETASeconds = ComputeThroughput(s.LastSampleAt, s.LastSampleBytes, now, s.BytesLoaded, s.BytesTotal)
	s.LastSampleAt = now
	s.LastSampleBytes = s.BytesLoaded
	return true
}

// ApplyPush applies a backend-reported progress event to a push-sourced session
func (s *TransferSession) ApplyPush(ev ProgressEvent) bool {
	if s.Source != SourcePush || !s.State.IsActive() || ev.TransferID != s.ID {
		return false
	}
	s.Percent = ev.Percent
	s.SpeedBps = ev.Speed
	s.ETASeconds = ev.ETASeconds
	return true
}

// MarkCompleted marks the session as completed
func (s *TransferSession) MarkCompleted(savedPath string, now time.Time) {
	s.State = StateCompleted
	s.SavedPath = savedPath
	s.Percent = 100
	s.ETASeconds = 0
	s.CompletedAt = &now
}

// MarkFailed marks the session as failed with a user-visible message
func (s *TransferSession) MarkFailed(err error, now time.Time) {
	s.State = StateFailed
	s.ErrorMessage = UserMessage(err)
	s.CompletedAt = &now
}

// ComputeThroughput derives speed and time remaining from two (time, bytes) samples.
// The eta is 0 when the speed is not positive or the total is unknown.
func ComputeThroughput(prevAt time.Time, prevBytes int64, now time.Time, loaded, total int64) (speedBps, etaSeconds float64) {
	elapsed := now.Sub(prevAt).Seconds()
	if elapsed < minSampleSeconds {
		elapsed = minSampleSeconds
	}
	speedBps = float64(loaded-prevBytes) / elapsed
	if speedBps > 0 && total > 0 {
		remaining := total - loaded
		if remaining < 0 {
			remaining = 0
		}
		etaSeconds = float64(remaining) / speedBps
	}
	return speedBps, etaSeconds
}
