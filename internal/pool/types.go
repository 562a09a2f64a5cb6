package pool

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gokatarajesh/quiz-pool/internal/question"
)

// Reference policy defaults, used when the policy record lacks a field.
const (
	DefaultPoolDays        = 5
	DefaultChurnPercentMin = 10
	DefaultChurnPercentMax = 15
)

// lastRefresh is written with microsecond precision so older readers of the
// pool file can parse it.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// Pool is the active rotating subset of the master bank.
type Pool struct {
	LastRefresh *time.Time
	Questions   []question.Question
}

type poolJSON struct {
	LastRefresh *string             `json:"lastRefresh"`
	Questions   []question.Question `json:"questions"`
}

// MarshalJSON encodes the pool as {"lastRefresh": ..., "questions": [...]}.
func (p Pool) MarshalJSON() ([]byte, error) {
	out := poolJSON{Questions: p.Questions}
	if out.Questions == nil {
		out.Questions = []question.Question{}
	}
	if p.LastRefresh != nil {
		ts := p.LastRefresh.UTC().Format(timestampLayout)
		out.LastRefresh = &ts
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the persisted pool record.
func (p *Pool) UnmarshalJSON(data []byte) error {
	var in poolJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	decoded := Pool{Questions: in.Questions}
	if in.LastRefresh != nil && *in.LastRefresh != "" {
		ts, err := ParseTimestamp(*in.LastRefresh)
		if err != nil {
			return err
		}
		decoded.LastRefresh = &ts
	}
	*p = decoded
	return nil
}

// ParseTimestamp accepts RFC 3339 and zone-less ISO 8601 timestamps, the
// latter interpreted as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse("2006-01-02T15:04:05.999999999", strings.TrimSuffix(s, "Z"))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse lastRefresh %q: %w", s, err)
	}
	return ts.UTC(), nil
}

// CountByLevel returns how many questions the pool holds per level.
func (p Pool) CountByLevel() map[string]int {
	counts := make(map[string]int)
	for _, q := range p.Questions {
		counts[q.Level]++
	}
	return counts
}

// Policy controls refresh cadence and churn bounds.
type Policy struct {
	PoolDays        int `json:"poolDays"`
	ChurnPercentMin int `json:"churnPercentMin"`
	ChurnPercentMax int `json:"churnPercentMax"`
}

// DefaultPolicy returns the reference policy (5 days, 10-15% churn).
func DefaultPolicy() Policy {
	return Policy{
		PoolDays:        DefaultPoolDays,
		ChurnPercentMin: DefaultChurnPercentMin,
		ChurnPercentMax: DefaultChurnPercentMax,
	}
}

// PolicyOverrides is the persisted policy record; nil fields fall back to defaults.
type PolicyOverrides struct {
	PoolDays        *int `json:"poolDays,omitempty"`
	ChurnPercentMin *int `json:"churnPercentMin,omitempty"`
	ChurnPercentMax *int `json:"churnPercentMax,omitempty"`
}

// Apply layers overrides on top of p and normalizes the result.
func (p Policy) Apply(o PolicyOverrides) Policy {
	if o.PoolDays != nil {
		p.PoolDays = *o.PoolDays
	}
	if o.ChurnPercentMin != nil {
		p.ChurnPercentMin = *o.ChurnPercentMin
	}
	if o.ChurnPercentMax != nil {
		p.ChurnPercentMax = *o.ChurnPercentMax
	}
	return p.Normalize()
}

// Normalize enforces poolDays >= 1 and 0 <= min <= max <= 100.
func (p Policy) Normalize() Policy {
	if p.PoolDays < 1 {
		p.PoolDays = 1
	}
	p.ChurnPercentMin = clampPercent(p.ChurnPercentMin)
	p.ChurnPercentMax = clampPercent(p.ChurnPercentMax)
	if p.ChurnPercentMax < p.ChurnPercentMin {
		p.ChurnPercentMax = p.ChurnPercentMin
	}
	return p
}

// Due reports whether at least PoolDays whole days have elapsed since last.
// A pool that was never refreshed is always due.
func (p Policy) Due(last *time.Time, now time.Time) bool {
	if last == nil {
		return true
	}
	elapsedDays := int(now.Sub(*last) / (24 * time.Hour))
	return elapsedDays >= p.PoolDays
}

func clampPercent(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}
