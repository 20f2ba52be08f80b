package alert

const welcomeHeader = "Welcome to Crypto Alerts! :wave: " +
	"Finish the two steps below to get price alerts in this conversation.\n\n"

const (
	todoReaction = ":white_large_square: *Add an emoji reaction to this message* :thinking_face:\n"
	doneReaction = ":white_check_mark: ~*Add an emoji reaction to this message*~ :thinking_face:\n"
	todoPin      = ":white_large_square: *Pin this message* :round_pushpin:\n"
	donePin      = ":white_check_mark: ~*Pin this message*~ :round_pushpin:\n"
)

var (
	textPosted = welcomeHeader + todoReaction + todoPin

	textAcked = welcomeHeader + doneReaction + todoPin +
		"\nNice reaction! One step left: pin this message."

	textCompleted = welcomeHeader + doneReaction + donePin +
		"\nAll set. Price alerts will show up here."
)

// Payload is a destination-addressed chat message. MessageID is empty for a new post.
type Payload struct {
	Destination string
	MessageID   string
	Text        string
}

// IsUpdate reports whether the payload edits an existing message.
func (p Payload) IsUpdate() bool { return p.MessageID != "" }

// Text renders the record into one of the three fixed variants.
func (r Record) Text() string {
	switch r.Stage() {
	case StageCompleted:
		return textCompleted
	case StageAcked:
		return textAcked
	default:
		return textPosted
	}
}

// PostPayload builds the payload for posting the record as a new message.
func (r Record) PostPayload() Payload {
	return Payload{Destination: r.Destination, Text: r.Text()}
}

// UpdatePayload builds the payload for editing the last posted message.
func (r Record) UpdatePayload() (Payload, error) {
	if r.LastMessageID == "" {
		return Payload{}, ErrNoMessage
	}
	return Payload{Destination: r.Destination, MessageID: r.LastMessageID, Text: r.Text()}, nil
}
