package domain

import (
	"errors"
	"testing"
)

func TestNewCanonicalItem(t *testing.T) {
	t.Parallel()

	item, err := NewCanonicalItem("  Send proposal  ", " to Acme ", Provenance{Kind: SourceEmail})
	if err != nil {
		t.Fatalf("NewCanonicalItem error: %v", err)
	}
	if item.Action != "Send proposal" {
		t.Fatalf("unexpected action: %q", item.Action)
	}
	if item.Details != "to Acme" {
		t.Fatalf("unexpected details: %q", item.Details)
	}
	if item.Priority != PriorityMedium {
		t.Fatalf("expected default Medium priority, got %s", item.Priority)
	}
}

func TestNewCanonicalItemRejectsEmptyAction(t *testing.T) {
	t.Parallel()

	for _, action := range []string{"", "   ", "\t\n"} {
		if _, err := NewCanonicalItem(action, "", Provenance{}); !errors.Is(err, ErrInvalidItem) {
			t.Fatalf("action %q: expected ErrInvalidItem, got %v", action, err)
		}
	}
}

func TestNormalizeAction(t *testing.T) {
	t.Parallel()

	if NormalizeAction("Call John") != NormalizeAction("  call john  ") {
		t.Fatal("case and padding variants should normalize equal")
	}
	if NormalizeAction("Call  John") != NormalizeAction("call john") {
		t.Fatal("internal whitespace should collapse")
	}
	if NormalizeAction("Call John") == NormalizeAction("Call John about contract") {
		t.Fatal("different actions must not normalize equal")
	}
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	cases := map[string]Priority{
		"high":    PriorityHigh,
		" High ":  PriorityHigh,
		"low":     PriorityLow,
		"medium":  PriorityMedium,
		"":        PriorityMedium,
		"unknown": PriorityMedium,
	}
	for in, want := range cases {
		if got := ParsePriority(in); got != want {
			t.Fatalf("ParsePriority(%q) = %s, want %s", in, got, want)
		}
	}
}
