package question

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Default level tags used when no level list is configured.
const (
	LevelUnder10 = "U10"
	Level11To15  = "11-15"
	Level16Plus  = "16+"
)

// DefaultLevels is the reference level enumeration.
var DefaultLevels = Levels{LevelUnder10, Level11To15, Level16Plus}

// Question is an immutable master bank record. Only ID and Level are
// interpreted; every other field is carried through verbatim.
type Question struct {
	ID    string
	Level string

	numericID bool
	fields    map[string]json.RawMessage
}

// Key identifies a question. A numeric id and a string id with the same
// text are different questions.
type Key struct {
	ID      string
	Numeric bool
}

// Key returns the identity used when comparing pool and bank entries.
func (q Question) Key() Key {
	return Key{ID: q.ID, Numeric: q.numericID}
}

// New builds a question with the given id, level and extra content fields.
func New(id, level string, content map[string]any) (Question, error) {
	fields := make(map[string]json.RawMessage, len(content)+2)
	for k, v := range content {
		raw, err := json.Marshal(v)
		if err != nil {
			return Question{}, fmt.Errorf("marshal field %q: %w", k, err)
		}
		fields[k] = raw
	}
	idRaw, _ := json.Marshal(id)
	levelRaw, _ := json.Marshal(level)
	fields["id"] = idRaw
	fields["level"] = levelRaw
	return Question{ID: id, Level: level, fields: fields}, nil
}

// Field returns the raw JSON of a content field.
func (q Question) Field(name string) (json.RawMessage, bool) {
	raw, ok := q.fields[name]
	return raw, ok
}

// UnmarshalJSON accepts both string and numeric ids.
func (q *Question) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	rawID, ok := fields["id"]
	if !ok {
		return fmt.Errorf("question: missing id")
	}
	id, numeric, err := decodeID(rawID)
	if err != nil {
		return err
	}
	var level string
	if rawLevel, ok := fields["level"]; ok {
		// a non-string level never matches an enumeration tag
		_ = json.Unmarshal(rawLevel, &level)
	}
	*q = Question{ID: id, Level: level, numericID: numeric, fields: fields}
	return nil
}

// MarshalJSON writes the original fields back out.
func (q Question) MarshalJSON() ([]byte, error) {
	if q.fields == nil {
		return json.Marshal(map[string]string{"id": q.ID, "level": q.Level})
	}
	return json.Marshal(q.fields)
}

func decodeID(raw json.RawMessage) (string, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, fmt.Errorf("question: decode id: %w", err)
		}
		return s, false, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false, fmt.Errorf("question: id must be a string or number")
	}
	return n.String(), true, nil
}

// Levels is the fixed, ordered level enumeration.
type Levels []string

// ParseLevels splits a comma separated list, dropping blanks and duplicates.
func ParseLevels(list []string) Levels {
	seen := make(map[string]struct{}, len(list))
	out := make(Levels, 0, len(list))
	for _, l := range list {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	if len(out) == 0 {
		return append(Levels(nil), DefaultLevels...)
	}
	return out
}

// Contains reports whether level is part of the enumeration.
func (ls Levels) Contains(level string) bool {
	for _, l := range ls {
		if l == level {
			return true
		}
	}
	return false
}

// Default is the level used when a caller supplies an unknown one.
func (ls Levels) Default() string {
	if len(ls) == 0 {
		return LevelUnder10
	}
	return ls[0]
}

// Normalize returns level when valid, otherwise the default level.
func (ls Levels) Normalize(level string) string {
	if ls.Contains(level) {
		return level
	}
	return ls.Default()
}

// FilterLevel returns the questions tagged with level, preserving order.
func FilterLevel(qs []Question, level string) []Question {
	out := make([]Question, 0, len(qs))
	for _, q := range qs {
		if q.Level == level {
			out = append(out, q)
		}
	}
	return out
}

// GroupByLevel partitions qs by the enumeration; other levels are dropped.
func GroupByLevel(qs []Question, levels Levels) map[string][]Question {
	groups := make(map[string][]Question, len(levels))
	for _, l := range levels {
		groups[l] = nil
	}
	for _, q := range qs {
		if _, ok := groups[q.Level]; ok {
			groups[q.Level] = append(groups[q.Level], q)
		}
	}
	return groups
}
