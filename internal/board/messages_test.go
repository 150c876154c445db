package board

import (
	"errors"
	"testing"
	"time"
)

func TestPostMessage(t *testing.T) {
	b, _, _ := newTestBoard(t)

	msg, err := b.Post("planner", "builder", "start on the parser next")
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if msg.ID == "" {
		t.Error("Expected generated id")
	}
	if msg.Read {
		t.Error("Expected new message unread")
	}
}

func TestPostValidation(t *testing.T) {
	b, _, _ := newTestBoard(t)

	cases := []struct {
		name string
		from string
		to   string
		body string
		want error
	}{
		{"empty from", "", "builder", "hi", ErrInvalidRole},
		{"empty to", "planner", "", "hi", ErrInvalidRole},
		{"uppercase role", "Planner", "builder", "hi", ErrInvalidRole},
		{"role with space", "the planner", "builder", "hi", ErrInvalidRole},
		{"empty body", "planner", "builder", "", ErrInvalidMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := b.Post(tc.from, tc.to, tc.body); !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestMessagesFilterByRole(t *testing.T) {
	b, _, clock := newTestBoard(t)

	first, err := b.Post("planner", "builder", "first")
	if err != nil {
		t.Fatal(err)
	}
	*clock = clock.Add(time.Minute)
	second, err := b.Post("planner", "builder", "second")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Post("planner", "reviewer", "not for builder"); err != nil {
		t.Fatal(err)
	}

	msgs, err := b.Messages("builder", false)
	if err != nil {
		t.Fatalf("Messages failed: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("Expected 2 messages for builder, got %d", len(msgs))
	}
	if msgs[0].ID != first.ID || msgs[1].ID != second.ID {
		t.Errorf("Expected oldest first, got %+v", msgs)
	}
}

func TestMessagesUnreadOnly(t *testing.T) {
	b, _, _ := newTestBoard(t)

	read, err := b.Post("planner", "builder", "old news")
	if err != nil {
		t.Fatal(err)
	}
	unread, err := b.Post("planner", "builder", "fresh")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.MarkRead(read.ID); err != nil {
		t.Fatal(err)
	}

	msgs, err := b.Messages("builder", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != unread.ID {
		t.Errorf("Expected only the unread message, got %+v", msgs)
	}

	msgs, err = b.Messages("builder", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Errorf("Expected both messages without the filter, got %d", len(msgs))
	}
}

func TestMarkRead(t *testing.T) {
	b, _, _ := newTestBoard(t)

	msg, err := b.Post("planner", "builder", "ack me")
	if err != nil {
		t.Fatal(err)
	}

	marked, err := b.MarkRead(msg.ID)
	if err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}
	if !marked.Read {
		t.Error("Expected message marked read")
	}

	// Marking twice is a no-op, not an error.
	again, err := b.MarkRead(msg.ID)
	if err != nil {
		t.Fatalf("Second MarkRead failed: %v", err)
	}
	if !again.Read {
		t.Error("Expected message to stay read")
	}

	if _, err := b.MarkRead("ghost"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("Expected ErrMessageNotFound, got %v", err)
	}
}
