package alert

import (
	"errors"
	"testing"
)

func TestRecordText(t *testing.T) {
	tests := []struct {
		name     string
		reaction bool
		pin      bool
		want     string
		stage    Stage
	}{
		{"fresh", false, false, textPosted, StagePosted},
		{"reaction only", true, false, textAcked, StageAcked},
		{"both", true, true, textCompleted, StageCompleted},
		{"pin before reaction", false, true, textCompleted, StageCompleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Record{Destination: "C1", Subject: "U1", ReactionCompleted: tt.reaction, PinCompleted: tt.pin}
			if got := r.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
			if got := r.Stage(); got != tt.stage {
				t.Errorf("Stage() = %v, want %v", got, tt.stage)
			}
		})
	}
}

func TestVariantsDistinct(t *testing.T) {
	if textPosted == textAcked || textAcked == textCompleted || textPosted == textCompleted {
		t.Fatal("text variants must differ")
	}
}

func TestPostPayload(t *testing.T) {
	r := NewRecord("C1", "U1")
	p := r.PostPayload()
	if p.IsUpdate() {
		t.Error("post payload must not carry a message id")
	}
	if p.Destination != "C1" || p.Text != textPosted {
		t.Errorf("PostPayload = %+v", p)
	}
}

func TestUpdatePayloadRequiresMessage(t *testing.T) {
	r := NewRecord("C1", "U1")
	if _, err := r.UpdatePayload(); !errors.Is(err, ErrNoMessage) {
		t.Fatalf("UpdatePayload error = %v, want ErrNoMessage", err)
	}

	r.LastMessageID = "M1"
	r.MarkReaction()
	p, err := r.UpdatePayload()
	if err != nil {
		t.Fatalf("UpdatePayload error: %v", err)
	}
	if !p.IsUpdate() || p.MessageID != "M1" || p.Text != textAcked {
		t.Errorf("UpdatePayload = %+v", p)
	}
}

func TestMarkFlagsMonotonic(t *testing.T) {
	r := NewRecord("C1", "U1")
	r.MarkPin()
	r.MarkReaction()
	r.MarkReaction()
	r.MarkPin()
	if !r.ReactionCompleted || !r.PinCompleted {
		t.Errorf("flags = %v/%v, want true/true", r.ReactionCompleted, r.PinCompleted)
	}
}
