package alert

import (
	"errors"
	"testing"
)

func TestRegistryUpsertAndGet(t *testing.T) {
	r := NewRegistry()
	rec := Record{Destination: "C1", Subject: "U1", LastMessageID: "M1"}
	r.Upsert(rec)

	got, err := r.Get("C1", "U1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got != rec {
		t.Errorf("Get = %+v, want %+v", got, rec)
	}
}

func TestRegistryGetMissing(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Record{Destination: "C1", Subject: "U1"})

	tests := []struct{ dest, subject string }{
		{"C2", "U1"},
		{"C1", "U2"},
		{"", ""},
	}
	for _, tt := range tests {
		if _, err := r.Get(tt.dest, tt.subject); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get(%q, %q) error = %v, want ErrNotFound", tt.dest, tt.subject, err)
		}
	}
}

func TestRegistryLastWriteWins(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Record{Destination: "C1", Subject: "U1", LastMessageID: "M1", ReactionCompleted: true, PinCompleted: true})
	r.Upsert(Record{Destination: "C1", Subject: "U1", LastMessageID: "M9"})

	got, err := r.Get("C1", "U1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	want := Record{Destination: "C1", Subject: "U1", LastMessageID: "M9"}
	if got != want {
		t.Errorf("Get = %+v, want %+v (no merge)", got, want)
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Record{Destination: "C1", Subject: "U1"})

	got, _ := r.Get("C1", "U1")
	got.MarkReaction()

	again, _ := r.Get("C1", "U1")
	if again.ReactionCompleted {
		t.Error("mutating a returned record must not change the stored one")
	}
}

func TestRegistrySnapshotOrdered(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Record{Destination: "C2", Subject: "U1"})
	r.Upsert(Record{Destination: "C1", Subject: "U2"})
	r.Upsert(Record{Destination: "C1", Subject: "U1"})

	snap := r.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("len(Snapshot) = %d, want 3", len(snap))
	}
	want := [][2]string{{"C1", "U1"}, {"C1", "U2"}, {"C2", "U1"}}
	for i, w := range want {
		if snap[i].Destination != w[0] || snap[i].Subject != w[1] {
			t.Errorf("Snapshot[%d] = %s/%s, want %s/%s", i, snap[i].Destination, snap[i].Subject, w[0], w[1])
		}
	}
}
