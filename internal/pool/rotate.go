package pool

import (
	"math/rand/v2"

	"github.com/gokatarajesh/quiz-pool/internal/question"
)

// Refresh kinds.
const (
	KindBootstrap = "bootstrap"
	KindChurn     = "churn"
)

// LevelReport describes what a churn refresh did to one level.
type LevelReport struct {
	Level        string
	Previous     int
	Available    int
	ChurnPercent int
	ChurnCount   int
	Survivors    int
	Replacements int
	Skipped      bool
}

// Report summarizes a refresh.
type Report struct {
	Kind   string
	Total  int
	Levels []LevelReport
}

// Bootstrap copies the whole master bank into a new pool, verbatim.
func Bootstrap(master []question.Question) ([]question.Question, Report) {
	next := append([]question.Question(nil), master...)
	return next, Report{Kind: KindBootstrap, Total: len(next)}
}

// Rotate computes the next active pool from the current one. Each level is
// churned independently; questions whose level is outside levels are dropped.
func Rotate(rng *rand.Rand, policy Policy, levels question.Levels, active, master []question.Question) ([]question.Question, Report) {
	policy = policy.Normalize()
	oldByLevel := question.GroupByLevel(active, levels)
	allByLevel := question.GroupByLevel(master, levels)

	report := Report{Kind: KindChurn, Levels: make([]LevelReport, 0, len(levels))}
	var next []question.Question
	for _, level := range levels {
		picked, lr := rotateLevel(rng, policy, oldByLevel[level], allByLevel[level])
		lr.Level = level
		report.Levels = append(report.Levels, lr)
		next = append(next, picked...)
	}
	report.Total = len(next)
	return next, report
}

func rotateLevel(rng *rand.Rand, policy Policy, old, all []question.Question) ([]question.Question, LevelReport) {
	lr := LevelReport{Previous: len(old), Available: len(all)}
	if len(all) == 0 {
		lr.Skipped = true
		return nil, lr
	}

	lr.ChurnPercent = policy.ChurnPercentMin + rng.IntN(policy.ChurnPercentMax-policy.ChurnPercentMin+1)
	if len(old) > 0 {
		lr.ChurnCount = max(1, len(old)*lr.ChurnPercent/100)
	} else {
		lr.ChurnCount = max(1, len(all)/10)
	}

	var survivors []question.Question
	if len(old) > lr.ChurnCount {
		survivors = shuffled(rng, old)[:len(old)-lr.ChurnCount]
	}

	survivorKeys := make(map[question.Key]struct{}, len(survivors))
	for _, q := range survivors {
		survivorKeys[q.Key()] = struct{}{}
	}
	candidates := make([]question.Question, 0, len(all))
	for _, q := range all {
		if _, kept := survivorKeys[q.Key()]; !kept {
			candidates = append(candidates, q)
		}
	}
	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	replacements := candidates[:min(lr.ChurnCount, len(candidates))]

	lr.Survivors = len(survivors)
	lr.Replacements = len(replacements)

	out := make([]question.Question, 0, len(survivors)+len(replacements))
	out = append(out, survivors...)
	out = append(out, replacements...)
	return out, lr
}

// Pick shuffles a copy of candidates and returns at most n of them.
func Pick(rng *rand.Rand, candidates []question.Question, n int) []question.Question {
	if n <= 0 || len(candidates) == 0 {
		return []question.Question{}
	}
	out := shuffled(rng, candidates)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func shuffled(rng *rand.Rand, qs []question.Question) []question.Question {
	out := append([]question.Question(nil), qs...)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
