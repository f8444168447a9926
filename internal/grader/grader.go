// Package grader turns a quiz score into a percentage and a feedback tier.
package grader

import (
	"fmt"

	"github.com/pavelanni/kinderquiz/internal/model"
)

// Tier thresholds, inclusive at the lower end.
const (
	GoodThreshold      = 60
	ExcellentThreshold = 80
)

// Result is the summary of a finished quiz.
type Result struct {
	Score      int        `json:"score"`
	Total      int        `json:"total"`
	Percentage int        `json:"percentage"`
	Tier       model.Tier `json:"tier"`
}

// Grade computes the rounded percentage of score out of total and its tier.
//
// Percentages round half up on exact integer arithmetic, so 1/8 (12.5%)
// becomes 13 and 5/8 (62.5%) becomes 63.
func Grade(score, total int) (Result, error) {
	if total <= 0 {
		return Result{}, fmt.Errorf("grade %d/%d: %w", score, total, model.ErrEmptyContentPool)
	}
	if score < 0 || score > total {
		return Result{}, fmt.Errorf("grade %d/%d: %w", score, total, model.ErrInvalidScore)
	}

	pct := Percentage(score, total)
	return Result{
		Score:      score,
		Total:      total,
		Percentage: pct,
		Tier:       TierFor(pct),
	}, nil
}

// Percentage returns round(100*score/total) with halves rounded up.
// Callers must ensure total > 0 and score >= 0.
func Percentage(score, total int) int {
	return (200*score + total) / (2 * total)
}

// TierFor maps a percentage onto its feedback tier.
func TierFor(percentage int) model.Tier {
	switch {
	case percentage < GoodThreshold:
		return model.TierEncourage
	case percentage < ExcellentThreshold:
		return model.TierGood
	default:
		return model.TierExcellent
	}
}
