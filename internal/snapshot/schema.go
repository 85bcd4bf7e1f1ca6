// Package snapshot persists the board registry and restores it at startup.
//
// A snapshot is a Document: a versioned list of board Records. Stores move
// Documents to and from a destination (local file, SQL table, Redis key or
// GCS object). Persister ties a Store to the registry and keeps every
// persistence failure contained: failures are logged, never returned to a
// request.
package snapshot

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lifeboard-backend/internal/domain"
)

// CurrentVersion is the schema version written by this build.
//
// Version history:
//
//	0 - unversioned map keyed by board id, {"Id","State","CreatedAt"} values
//	1 - {"version":1,"saved_at":...,"boards":[Record...]}
const CurrentVersion = 1

type Document struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`
	Boards  []Record  `json:"boards"`
}

type Record struct {
	ID         uuid.UUID `json:"id"`
	Rows       int       `json:"rows"`
	Cols       int       `json:"cols"`
	Cells      [][]bool  `json:"cells"`
	Generation uint64    `json:"generation"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewDocument builds a current-version document from registry boards.
func NewDocument(boards []domain.Board, savedAt time.Time) *Document {
	doc := &Document{
		Version: CurrentVersion,
		SavedAt: savedAt.UTC(),
		Boards:  make([]Record, 0, len(boards)),
	}
	for _, b := range boards {
		doc.Boards = append(doc.Boards, RecordFromBoard(b))
	}
	return doc
}

func RecordFromBoard(b domain.Board) Record {
	return Record{
		ID:         b.ID,
		Rows:       b.State.Rows(),
		Cols:       b.State.Cols(),
		Cells:      b.State.Clone(),
		Generation: b.Generation,
		CreatedAt:  b.CreatedAt.UTC(),
	}
}

// Board converts a record back into a domain board, checking that the
// declared dimensions match the cells.
func (r Record) Board() (domain.Board, error) {
	b := domain.Board{
		ID:         r.ID,
		State:      domain.Grid(r.Cells),
		Generation: r.Generation,
		CreatedAt:  r.CreatedAt,
	}
	if err := b.Validate(); err != nil {
		return domain.Board{}, fmt.Errorf("record %s: %w", r.ID, err)
	}
	b.State = b.State.Clone()
	if b.State.Rows() != r.Rows || b.State.Cols() != r.Cols {
		return domain.Board{}, fmt.Errorf("record %s: declared %dx%d but cells are %dx%d",
			r.ID, r.Rows, r.Cols, b.State.Rows(), b.State.Cols())
	}
	return b, nil
}

// DomainBoards converts every valid record. Invalid records are reported in
// skipped rather than failing the whole document.
func (d *Document) DomainBoards() (boards []domain.Board, skipped []error) {
	if d == nil {
		return nil, nil
	}
	boards = make([]domain.Board, 0, len(d.Boards))
	for _, rec := range d.Boards {
		b, err := rec.Board()
		if err != nil {
			skipped = append(skipped, err)
			continue
		}
		boards = append(boards, b)
	}
	return boards, skipped
}
