package internal

import "time"

type Status string

const (
	StatusQueued      Status = "Queued"
	StatusProbing     Status = "Probing"
	StatusDownloading Status = "Downloading"
	StatusDone        Status = "Done"
	StatusError       Status = "Error"
	StatusCancelled   Status = "Cancelled"
)

// Transitional status text shown while a terminate request is in flight.
const StatusTextCancelling = "Cancelling..."

func (s Status) String() string { return string(s) }

// IsTerminal reports whether no further transition can happen.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusError, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsActive() bool {
	return s == StatusProbing || s == StatusDownloading
}

// Used to unmarshall download requests received through the control surface.
type DownloadRequest struct {
	Id       string `json:"id,omitempty"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Immutable copy of everything an observer may see about a task.
type TaskSnapshot struct {
	Id              string    `json:"id"`
	Filename        string    `json:"filename"`
	URL             string    `json:"url"`
	OutputPath      string    `json:"output_path"`
	Duration        float64   `json:"duration"`
	Percentage      float64   `json:"percentage"`
	Status          Status    `json:"status"`
	StatusText      string    `json:"status_text"`
	IsFinished      bool      `json:"is_finished"`
	CancelRequested bool      `json:"cancel_requested"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	StartedAt       time.Time `json:"started_at,omitempty"`
	FinishedAt      time.Time `json:"finished_at,omitempty"`
}

type EventKind string

const (
	EventState    EventKind = "state"
	EventProgress EventKind = "progress"
	EventRemoved  EventKind = "removed"
)

type Event struct {
	Kind EventKind    `json:"kind"`
	Task TaskSnapshot `json:"task"`
}
