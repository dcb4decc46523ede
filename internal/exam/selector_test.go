package exam

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

// fakePool is an in-memory QuestionSource for selector tests.
type fakePool struct {
	questions []model.Question
}

func (p *fakePool) FindEligible(_ context.Context, filter PoolFilter) ([]model.Question, error) {
	var out []model.Question
	for _, q := range p.questions {
		if !q.Active || !q.Approved {
			continue
		}
		if filter.Category != "" && q.Category != filter.Category {
			continue
		}
		if filter.Difficulty != nil && q.Difficulty != *filter.Difficulty {
			continue
		}
		if filter.Subcategory != nil && q.Subcategory != *filter.Subcategory {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (p *fakePool) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	for i := range p.questions {
		if p.questions[i].ID == id {
			return &p.questions[i], nil
		}
	}
	return nil, nil
}

func poolQuestion(category string, difficulty model.Difficulty, score float64) model.Question {
	return model.Question{
		ID:         uuid.New(),
		Category:   category,
		Type:       model.QuestionTypeSingleChoice,
		Options:    []model.Option{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
		AnswerKey:  json.RawMessage(`{"option_id":"a"}`),
		Points:     1,
		Difficulty: difficulty,
		Active:     true,
		Approved:   true,
		Stats:      model.QuestionStats{DifficultyScore: score},
	}
}

func testSelector(pool *fakePool) *Selector {
	return NewSelector(pool, rand.New(rand.NewSource(1)))
}

func TestSelectFixedPreservesOrder(t *testing.T) {
	pool := &fakePool{}
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		q := poolQuestion("air_law", model.DifficultyMedium, 0)
		pool.questions = append(pool.questions, q)
		ids = append(ids, q.ID)
	}

	def := &model.ExamDefinition{
		SelectionMode:    model.SelectionModeFixed,
		FixedQuestionIDs: ids,
		TotalQuestions:   5,
	}

	snaps, questions, err := testSelector(pool).Select(context.Background(), def)
	require.NoError(t, err)
	require.Len(t, snaps, 5)
	require.Len(t, questions, 5)
	for i, snap := range snaps {
		assert.Equal(t, ids[i], snap.QuestionID, "stored order must be preserved")
		assert.Equal(t, i+1, snap.Order)
	}
}

func TestSelectFixedSkipsRetiredQuestions(t *testing.T) {
	pool := &fakePool{}
	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		q := poolQuestion("air_law", model.DifficultyMedium, 0)
		if i == 1 {
			q.Active = false
		}
		pool.questions = append(pool.questions, q)
		ids = append(ids, q.ID)
	}

	def := &model.ExamDefinition{
		SelectionMode:    model.SelectionModeFixed,
		FixedQuestionIDs: ids,
		TotalQuestions:   3,
	}

	snaps, _, err := testSelector(pool).Select(context.Background(), def)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	for _, snap := range snaps {
		assert.NotEqual(t, ids[1], snap.QuestionID, "retired question must be skipped")
	}

	// With the retired question the list can no longer satisfy 4.
	def.TotalQuestions = 4
	_, _, err = testSelector(pool).Select(context.Background(), def)
	assert.ErrorIs(t, err, ErrInsufficientQuestions)
}

func TestSelectRandomExactCountOrError(t *testing.T) {
	pool := &fakePool{}
	for i := 0; i < 10; i++ {
		pool.questions = append(pool.questions, poolQuestion("meteorology", model.DifficultyEasy, 0))
	}

	def := &model.ExamDefinition{
		SelectionMode:  model.SelectionModeRandom,
		SelectionRules: []model.SelectionRule{{Category: "meteorology", Count: 6}},
		TotalQuestions: 6,
	}

	snaps, _, err := testSelector(pool).Select(context.Background(), def)
	require.NoError(t, err)
	assert.Len(t, snaps, 6, "never a silently short list")

	// Distinct draws (without replacement).
	seen := map[uuid.UUID]bool{}
	for _, s := range snaps {
		assert.False(t, seen[s.QuestionID], "question drawn twice")
		seen[s.QuestionID] = true
	}

	def.SelectionRules[0].Count = 11
	def.TotalQuestions = 11
	_, _, err = testSelector(pool).Select(context.Background(), def)
	assert.ErrorIs(t, err, ErrInsufficientQuestions)
}

func TestSelectRandomAppliesFilters(t *testing.T) {
	pool := &fakePool{}
	for i := 0; i < 5; i++ {
		pool.questions = append(pool.questions, poolQuestion("navigation", model.DifficultyHard, 0))
	}
	for i := 0; i < 5; i++ {
		pool.questions = append(pool.questions, poolQuestion("navigation", model.DifficultyEasy, 0))
	}

	hard := model.DifficultyHard
	def := &model.ExamDefinition{
		SelectionMode: model.SelectionModeRandom,
		SelectionRules: []model.SelectionRule{
			{Category: "navigation", Count: 5, Difficulty: &hard},
		},
		TotalQuestions: 5,
	}

	_, questions, err := testSelector(pool).Select(context.Background(), def)
	require.NoError(t, err)
	for _, q := range questions {
		assert.Equal(t, model.DifficultyHard, q.Difficulty)
	}
}

func TestSelectWeightedPrefersDifficultQuestions(t *testing.T) {
	pool := &fakePool{}
	var hardID uuid.UUID
	for i := 0; i < 10; i++ {
		score := 1.0
		if i == 0 {
			score = 1000 // overwhelmingly heavy
		}
		q := poolQuestion("air_law", model.DifficultyMedium, score)
		if i == 0 {
			hardID = q.ID
		}
		pool.questions = append(pool.questions, q)
	}

	def := &model.ExamDefinition{
		SelectionMode:  model.SelectionModeWeightedRandom,
		SelectionRules: []model.SelectionRule{{Category: "air_law", Count: 1}},
		TotalQuestions: 1,
	}

	// With weight 1000 vs nine weights of 1, the heavy question should win
	// nearly always; across 50 seeded runs it must dominate.
	wins := 0
	for seed := int64(0); seed < 50; seed++ {
		sel := NewSelector(pool, rand.New(rand.NewSource(seed)))
		snaps, _, err := sel.Select(context.Background(), def)
		require.NoError(t, err)
		if snaps[0].QuestionID == hardID {
			wins++
		}
	}
	assert.Greater(t, wins, 45, "difficulty-weighted draw should dominate")
}

func TestSelectTruncatesToTotal(t *testing.T) {
	pool := &fakePool{}
	for i := 0; i < 6; i++ {
		pool.questions = append(pool.questions, poolQuestion("air_law", model.DifficultyMedium, 0))
	}
	for i := 0; i < 6; i++ {
		pool.questions = append(pool.questions, poolQuestion("meteorology", model.DifficultyMedium, 0))
	}

	def := &model.ExamDefinition{
		SelectionMode: model.SelectionModeRandom,
		SelectionRules: []model.SelectionRule{
			{Category: "air_law", Count: 6},
			{Category: "meteorology", Count: 6},
		},
		TotalQuestions:     10,
		RandomizeQuestions: true,
	}

	snaps, _, err := testSelector(pool).Select(context.Background(), def)
	require.NoError(t, err)
	assert.Len(t, snaps, 10, "must truncate to exactly total_questions after shuffling")
}

func TestSelectRandomizeOptionsKeepsKeyIntact(t *testing.T) {
	pool := &fakePool{}
	q := poolQuestion("air_law", model.DifficultyMedium, 0)
	pool.questions = append(pool.questions, q)

	def := &model.ExamDefinition{
		SelectionMode:    model.SelectionModeFixed,
		FixedQuestionIDs: []uuid.UUID{q.ID},
		TotalQuestions:   1,
		RandomizeOptions: true,
	}

	snaps, questions, err := testSelector(pool).Select(context.Background(), def)
	require.NoError(t, err)
	require.Len(t, snaps[0].OptionIDs, 4, "shuffled display order recorded on the snapshot")

	// The question's own option list and answer key are untouched; the
	// evaluator matches by id, so a shuffled display order cannot flip
	// correctness.
	assert.Equal(t, json.RawMessage(`{"option_id":"a"}`), questions[0].AnswerKey)
	key, err := DecodeKey(questions[0].Type, questions[0].AnswerKey)
	require.NoError(t, err)
	got := Evaluate(key, SingleChoiceAnswer{OptionID: "a"}, false)
	assert.True(t, got.Correct)
}
