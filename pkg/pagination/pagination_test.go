package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNormalizeLimit(t *testing.T) {
	if got := NormalizeLimit(0); got != DefaultLimit {
		t.Fatalf("expected default limit, got %d", got)
	}
	if got := NormalizeLimit(-5); got != DefaultLimit {
		t.Fatalf("expected default limit for negatives, got %d", got)
	}
	if got := NormalizeLimit(1000); got != MaxLimit {
		t.Fatalf("expected cap at max limit, got %d", got)
	}
	if got := NormalizeLimit(10); got != 10 {
		t.Fatalf("expected passthrough, got %d", got)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	cursor := Cursor{
		CreatedAt: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		ID:        uuid.New(),
	}
	encoded := EncodeCursor(cursor)

	parsed, err := ParseCursor(encoded)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected cursor")
	}
	if !parsed.CreatedAt.Equal(cursor.CreatedAt) || parsed.ID != cursor.ID {
		t.Fatalf("round trip mismatch: %+v vs %+v", parsed, cursor)
	}
}

func TestParseCursorEmptyAndInvalid(t *testing.T) {
	parsed, err := ParseCursor("  ")
	if err != nil || parsed != nil {
		t.Fatalf("blank cursor should be nil/nil, got %v %v", parsed, err)
	}
	if _, err := ParseCursor("not-base64!!"); err == nil {
		t.Fatal("expected error for invalid encoding")
	}
}
