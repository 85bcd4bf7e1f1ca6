package snapshot

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lifeboard-backend/internal/domain"
)

func sampleBoards() []domain.Board {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []domain.Board{
		{
			ID:         uuid.MustParse("11111111-1111-4111-8111-111111111111"),
			State:      domain.Grid{{true, false, true}, {false, true, false}},
			Generation: 3,
			CreatedAt:  base,
		},
		{
			ID:        uuid.MustParse("22222222-2222-4222-8222-222222222222"),
			State:     domain.Grid{{false}},
			CreatedAt: base.Add(time.Minute),
		},
	}
}

func TestEncodeDecodeCurrentVersion(t *testing.T) {
	in := sampleBoards()
	raw, err := Encode(NewDocument(in, time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Version != CurrentVersion {
		t.Fatalf("version: want=%d got=%d", CurrentVersion, doc.Version)
	}
	out, skipped := doc.DomainBoards()
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped records: %v", skipped)
	}
	if len(out) != len(in) {
		t.Fatalf("boards: want=%d got=%d", len(in), len(out))
	}
	for i := range in {
		if out[i].ID != in[i].ID {
			t.Fatalf("board %d id: want=%s got=%s", i, in[i].ID, out[i].ID)
		}
		if !out[i].State.Equal(in[i].State) {
			t.Fatalf("board %d state: want=%v got=%v", i, in[i].State, out[i].State)
		}
		if out[i].Generation != in[i].Generation {
			t.Fatalf("board %d generation: want=%d got=%d", i, in[i].Generation, out[i].Generation)
		}
		if !out[i].CreatedAt.Equal(in[i].CreatedAt) {
			t.Fatalf("board %d created_at: want=%v got=%v", i, in[i].CreatedAt, out[i].CreatedAt)
		}
	}
}

func TestEncodeEmptyDocumentWritesEmptyList(t *testing.T) {
	raw, err := Encode(&Document{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if doc.Boards == nil || len(doc.Boards) != 0 {
		t.Fatalf("want empty non-nil boards, got %#v", doc.Boards)
	}
}

func TestDecodeLegacyMap(t *testing.T) {
	raw := []byte(`{
		"22222222-2222-4222-8222-222222222222": {"Id":"22222222-2222-4222-8222-222222222222","State":[[true,true],[true,true]],"CreatedAt":"2024-01-02T00:00:00Z"},
		"11111111-1111-4111-8111-111111111111": {"State":[[false,true,false]],"CreatedAt":"2024-01-01T00:00:00Z"}
	}`)
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	boards, skipped := doc.DomainBoards()
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped records: %v", skipped)
	}
	if len(boards) != 2 {
		t.Fatalf("boards: want=2 got=%d", len(boards))
	}
	// Ordered by creation time, and the id falls back to the map key.
	if boards[0].ID.String() != "11111111-1111-4111-8111-111111111111" {
		t.Fatalf("first board id: got=%s", boards[0].ID)
	}
	if boards[0].State.Rows() != 1 || boards[0].State.Cols() != 3 {
		t.Fatalf("first board dims: got=%dx%d", boards[0].State.Rows(), boards[0].State.Cols())
	}
	if boards[1].Generation != 0 {
		t.Fatalf("legacy generation: want=0 got=%d", boards[1].Generation)
	}
}

func TestDecodeLegacyListSkipsInvalidRecords(t *testing.T) {
	raw := []byte(`[
		{"Id":"33333333-3333-4333-8333-333333333333","State":[[true]],"CreatedAt":"2024-01-01T00:00:00Z"},
		{"Id":"44444444-4444-4444-8444-444444444444","State":[],"CreatedAt":"2024-01-01T00:00:01Z"},
		{"Id":"55555555-5555-4555-8555-555555555555","State":[[true,false],[true]],"CreatedAt":"2024-01-01T00:00:02Z"}
	]`)
	doc, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	boards, skipped := doc.DomainBoards()
	if len(boards) != 1 || len(skipped) != 2 {
		t.Fatalf("want 1 board and 2 skipped, got boards=%d skipped=%d", len(boards), len(skipped))
	}
	if !errors.Is(skipped[0], domain.ErrInvalidInput) {
		t.Fatalf("skipped error should wrap ErrInvalidInput: %v", skipped[0])
	}
}

func TestDecodeRejectsUnknownVersion(t *testing.T) {
	_, err := Decode([]byte(`{"version":99,"boards":[]}`))
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("want ErrUnsupportedVersion, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "nope", `{"version":"one"}`} {
		if _, err := Decode([]byte(raw)); err == nil {
			t.Fatalf("Decode(%q): expected error", raw)
		}
	}
}

func TestRecordBoardChecksDeclaredDimensions(t *testing.T) {
	rec := RecordFromBoard(sampleBoards()[0])
	rec.Cols = 7
	if _, err := rec.Board(); err == nil {
		t.Fatalf("expected dimension mismatch error")
	}
}
