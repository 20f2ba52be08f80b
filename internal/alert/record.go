package alert

import "errors"

var (
	// ErrNotFound is returned when no record exists for a destination/subject pair.
	ErrNotFound = errors.New("alert record not found")

	// ErrNoMessage is returned when an update payload is requested before the first post.
	ErrNoMessage = errors.New("alert record has no posted message")
)

// Record tracks one outstanding alert shown to one user in one destination.
type Record struct {
	Destination       string `json:"destination"`
	Subject           string `json:"subject"`
	LastMessageID     string `json:"last_message_id,omitempty"`
	ReactionCompleted bool   `json:"reaction_completed"`
	PinCompleted      bool   `json:"pin_completed"`
}

// NewRecord returns a fresh record with no message posted yet.
func NewRecord(destination, subject string) Record {
	return Record{Destination: destination, Subject: subject}
}

// Stage is the rendered state of a record.
type Stage int

const (
	StagePosted Stage = iota
	StageAcked
	StageCompleted
)

func (s Stage) String() string {
	switch s {
	case StageAcked:
		return "acked"
	case StageCompleted:
		return "completed"
	default:
		return "posted"
	}
}

// Stage reports which text variant the record renders to. A pin alone completes the alert.
func (r Record) Stage() Stage {
	switch {
	case r.PinCompleted:
		return StageCompleted
	case r.ReactionCompleted:
		return StageAcked
	default:
		return StagePosted
	}
}

// MarkReaction sets the reaction flag. It never clears it.
func (r *Record) MarkReaction() { r.ReactionCompleted = true }

// MarkPin sets the pin flag. It never clears it.
func (r *Record) MarkPin() { r.PinCompleted = true }
