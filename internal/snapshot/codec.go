package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

var ErrUnsupportedVersion = errors.New("unsupported snapshot version")

// Encode serialises a document as JSON.
func Encode(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("nil snapshot document")
	}
	out := *doc
	if out.Version == 0 {
		out.Version = CurrentVersion
	}
	if out.Boards == nil {
		out.Boards = []Record{}
	}
	return json.Marshal(out)
}

// Decode parses any known snapshot layout and returns it migrated to
// CurrentVersion.
func Decode(raw []byte) (*Document, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, errors.New("empty snapshot")
	}

	switch raw[0] {
	case '[':
		var legacy []legacyBoard
		if err := json.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("decode legacy snapshot list: %w", err)
		}
		return migrateLegacy(legacy), nil
	case '{':
	default:
		return nil, fmt.Errorf("decode snapshot: unexpected leading byte %q", raw[0])
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	rawVersion, versioned := fields["version"]
	if !versioned {
		legacy := make([]legacyBoard, 0, len(fields))
		for key, val := range fields {
			var lb legacyBoard
			if err := json.Unmarshal(val, &lb); err != nil {
				return nil, fmt.Errorf("decode legacy board %q: %w", key, err)
			}
			if lb.ID == uuid.Nil {
				if id, err := uuid.Parse(key); err == nil {
					lb.ID = id
				}
			}
			legacy = append(legacy, lb)
		}
		return migrateLegacy(legacy), nil
	}

	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return nil, fmt.Errorf("decode snapshot version: %w", err)
	}
	switch version {
	case 1:
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode snapshot v1: %w", err)
		}
		return &doc, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}
}

// legacyBoard is the unversioned layout written by the first service
// generation. encoding/json matches field names case-insensitively, so both
// "Id" and "id" spellings load.
type legacyBoard struct {
	ID        uuid.UUID `json:"Id"`
	State     [][]bool  `json:"State"`
	CreatedAt time.Time `json:"CreatedAt"`
}

func migrateLegacy(in []legacyBoard) *Document {
	sort.Slice(in, func(i, j int) bool {
		if !in[i].CreatedAt.Equal(in[j].CreatedAt) {
			return in[i].CreatedAt.Before(in[j].CreatedAt)
		}
		return in[i].ID.String() < in[j].ID.String()
	})
	doc := &Document{Version: CurrentVersion, Boards: make([]Record, 0, len(in))}
	for _, lb := range in {
		rec := Record{
			ID:        lb.ID,
			Rows:      len(lb.State),
			Cells:     lb.State,
			CreatedAt: lb.CreatedAt.UTC(),
		}
		if len(lb.State) > 0 {
			rec.Cols = len(lb.State[0])
		}
		doc.Boards = append(doc.Boards, rec)
	}
	return doc
}
