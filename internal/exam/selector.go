package exam

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

// PoolFilter narrows an eligible-question query. Only active, approved
// questions are ever returned by a QuestionSource.
type PoolFilter struct {
	Category    string
	Difficulty  *model.Difficulty
	Subcategory *string
	Tags        []string
}

// QuestionSource is the read side of the question pool consumed by the
// selector. Selection is a pure read; no statistics are mutated here.
type QuestionSource interface {
	FindEligible(ctx context.Context, filter PoolFilter) ([]model.Question, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
}

// Selector produces the immutable question snapshot for a new attempt.
type Selector struct {
	src QuestionSource
	rng *rand.Rand
}

// NewSelector creates a Selector drawing from src with the given RNG.
func NewSelector(src QuestionSource, rng *rand.Rand) *Selector {
	return &Selector{src: src, rng: rng}
}

// Select resolves an exam definition into exactly TotalQuestions snapshots
// plus the resolved questions in snapshot order. It never returns a
// silently short list: a pool that cannot satisfy the definition fails with
// ErrInsufficientQuestions.
func (s *Selector) Select(ctx context.Context, def *model.ExamDefinition) ([]model.QuestionSnapshot, []model.Question, error) {
	var picked []model.Question
	var err error

	switch def.SelectionMode {
	case model.SelectionModeFixed:
		picked, err = s.selectFixed(ctx, def)
	case model.SelectionModeRandom:
		picked, err = s.selectByRules(ctx, def, false)
	case model.SelectionModeWeightedRandom:
		picked, err = s.selectByRules(ctx, def, true)
	default:
		return nil, nil, fmt.Errorf("unknown selection mode %q", def.SelectionMode)
	}
	if err != nil {
		return nil, nil, err
	}

	if def.RandomizeQuestions {
		s.rng.Shuffle(len(picked), func(i, j int) {
			picked[i], picked[j] = picked[j], picked[i]
		})
	}

	if len(picked) > def.TotalQuestions {
		picked = picked[:def.TotalQuestions]
	}
	if len(picked) < def.TotalQuestions {
		return nil, nil, fmt.Errorf("%w: resolved %d of %d", ErrInsufficientQuestions, len(picked), def.TotalQuestions)
	}

	snapshots := make([]model.QuestionSnapshot, len(picked))
	for i := range picked {
		snap := model.QuestionSnapshot{
			QuestionID: picked[i].ID,
			Order:      i + 1,
			Points:     picked[i].Points,
		}
		if def.RandomizeOptions {
			// Shuffle display order only. Evaluation matches by option id,
			// so the answer key is untouched.
			ids := make([]string, len(picked[i].Options))
			for j, o := range picked[i].Options {
				ids[j] = o.ID
			}
			s.rng.Shuffle(len(ids), func(x, y int) { ids[x], ids[y] = ids[y], ids[x] })
			snap.OptionIDs = ids
		}
		snapshots[i] = snap
	}
	return snapshots, picked, nil
}

// selectFixed resolves the stored id list in order, skipping ids that no
// longer point at an eligible question.
func (s *Selector) selectFixed(ctx context.Context, def *model.ExamDefinition) ([]model.Question, error) {
	picked := make([]model.Question, 0, def.TotalQuestions)
	for _, id := range def.FixedQuestionIDs {
		q, err := s.src.GetByID(ctx, id)
		if err != nil || q == nil {
			continue
		}
		if !q.Active || !q.Approved {
			continue
		}
		picked = append(picked, *q)
		if len(picked) == def.TotalQuestions && !def.RandomizeQuestions {
			break
		}
	}
	if len(picked) < def.TotalQuestions {
		return nil, fmt.Errorf("%w: fixed list resolves %d of %d", ErrInsufficientQuestions, len(picked), def.TotalQuestions)
	}
	return picked, nil
}

// selectByRules queries the live pool per rule and draws count items
// without replacement, uniformly or weighted by difficulty score.
func (s *Selector) selectByRules(ctx context.Context, def *model.ExamDefinition, weighted bool) ([]model.Question, error) {
	var picked []model.Question
	seen := make(map[uuid.UUID]struct{})

	for _, rule := range def.SelectionRules {
		candidates, err := s.src.FindEligible(ctx, PoolFilter{
			Category:    rule.Category,
			Difficulty:  rule.Difficulty,
			Subcategory: rule.Subcategory,
			Tags:        rule.Tags,
		})
		if err != nil {
			return nil, fmt.Errorf("find eligible for %q: %w", rule.Category, err)
		}

		// A question matching several rules is drawn at most once.
		fresh := candidates[:0]
		for _, q := range candidates {
			if _, dup := seen[q.ID]; !dup {
				fresh = append(fresh, q)
			}
		}
		if len(fresh) < rule.Count {
			return nil, fmt.Errorf("%w: category %q has %d eligible, rule needs %d",
				ErrInsufficientQuestions, rule.Category, len(fresh), rule.Count)
		}

		var drawn []model.Question
		if weighted {
			drawn = s.drawWeighted(fresh, rule.Count)
		} else {
			drawn = s.drawUniform(fresh, rule.Count)
		}
		for _, q := range drawn {
			seen[q.ID] = struct{}{}
		}
		picked = append(picked, drawn...)
	}
	return picked, nil
}

// drawUniform draws count items uniformly without replacement.
func (s *Selector) drawUniform(pool []model.Question, count int) []model.Question {
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return append([]model.Question(nil), pool[:count]...)
}

// drawWeighted draws count items without replacement, weighting by the
// question's current difficulty score so more discriminating items surface
// more often. Unscored questions fall back to a neutral weight.
func (s *Selector) drawWeighted(pool []model.Question, count int) []model.Question {
	remaining := append([]model.Question(nil), pool...)
	drawn := make([]model.Question, 0, count)

	for len(drawn) < count {
		total := 0.0
		for _, q := range remaining {
			total += weightOf(&q)
		}
		target := s.rng.Float64() * total
		idx := len(remaining) - 1
		for i := range remaining {
			target -= weightOf(&remaining[i])
			if target <= 0 {
				idx = i
				break
			}
		}
		drawn = append(drawn, remaining[idx])
		remaining = append(remaining[:idx], remaining[idx+1:]...)
	}
	return drawn
}

func weightOf(q *model.Question) float64 {
	if q.Stats.DifficultyScore > 0 {
		return q.Stats.DifficultyScore
	}
	return 50 // neutral weight until the question has a re-estimated score
}
