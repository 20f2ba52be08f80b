package dispatch

import "context"

// Kind tags an inbound chat event.
type Kind string

const (
	KindTeamJoin      Kind = "team_join"
	KindReactionAdded Kind = "reaction_added"
	KindPinAdded      Kind = "pin_added"
	KindMessage       Kind = "message"
)

// Event is a vendor-neutral inbound chat event.
type Event struct {
	// ID identifies the delivery for de-duplication; may be empty.
	ID string

	Kind        Kind
	Destination string
	Subject     string
	Text        string
}

// Messenger is the chat backend the dispatcher posts through.
type Messenger interface {
	Post(ctx context.Context, channel, text string) (string, error)
	Edit(ctx context.Context, channel, messageID, text string) (string, error)
	OpenDirect(ctx context.Context, user string) (string, error)
}

// Deduper claims event ids so redelivered events are handled once.
type Deduper interface {
	Claim(ctx context.Context, id string) (bool, error)
}

// HandlerFunc handles one event kind.
type HandlerFunc func(ctx context.Context, ev Event) error
