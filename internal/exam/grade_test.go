package exam

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

func singleChoiceQuestion(category string, points float64) *model.Question {
	return &model.Question{
		ID:       uuid.New(),
		Category: category,
		Type:     model.QuestionTypeSingleChoice,
		Options: []model.Option{
			{ID: "a", Text: "A"}, {ID: "b", Text: "B"},
			{ID: "c", Text: "C"}, {ID: "d", Text: "D"},
		},
		AnswerKey: json.RawMessage(`{"option_id":"a"}`),
		Points:    points,
		Active:    true,
		Approved:  true,
	}
}

func attemptOver(questions []*model.Question, answers map[uuid.UUID]string) *model.ExamAttempt {
	a := &model.ExamAttempt{
		ID:      uuid.New(),
		Status:  model.AttemptStatusSubmitted,
		Answers: make(map[uuid.UUID]model.AnswerRecord),
	}
	for i, q := range questions {
		a.Snapshot = append(a.Snapshot, model.QuestionSnapshot{
			QuestionID: q.ID, Order: i + 1, Points: q.Points,
		})
		if sel, ok := answers[q.ID]; ok {
			a.Answers[q.ID] = model.AnswerRecord{
				Payload:          json.RawMessage(`{"option_id":"` + sel + `"}`),
				TimeSpentSeconds: 30,
				UpdatedAt:        time.Now(),
			}
		}
	}
	return a
}

func questionMap(questions []*model.Question) map[uuid.UUID]*model.Question {
	m := make(map[uuid.UUID]*model.Question, len(questions))
	for _, q := range questions {
		m[q.ID] = q
	}
	return m
}

// Single-question percentage exam answered correctly scores 100, passes,
// and grades A+.
func TestGradeSingleCorrectAnswer(t *testing.T) {
	q := singleChoiceQuestion("air_law", 1)
	def := &model.ExamDefinition{
		TotalQuestions: 1,
		PassingPolicy:  model.PassingPolicyPercentage,
		PassingScore:   50,
	}
	a := attemptOver([]*model.Question{q}, map[uuid.UUID]string{q.ID: "a"})

	result, events := Grade(def, a, questionMap([]*model.Question{q}))

	if result.ScorePercentage != 100 {
		t.Errorf("score = %v, want 100", result.ScorePercentage)
	}
	if !result.Passed {
		t.Error("expected pass")
	}
	if result.Grade != "A+" {
		t.Errorf("grade = %q, want A+", result.Grade)
	}
	if result.CorrectCount != 1 || result.IncorrectCount != 0 || result.UnansweredCount != 0 {
		t.Errorf("counts = %d/%d/%d", result.CorrectCount, result.IncorrectCount, result.UnansweredCount)
	}
	if len(events) != 1 || !events[0].Correct {
		t.Errorf("expected one correct usage event, got %+v", events)
	}
}

func TestGradeMultiSelectPartialCredit(t *testing.T) {
	q := &model.Question{
		ID:       uuid.New(),
		Category: "meteorology",
		Type:     model.QuestionTypeMultiSelect,
		Options: []model.Option{
			{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"},
		},
		AnswerKey:     json.RawMessage(`{"option_ids":["a","c"]}`),
		Points:        2,
		PartialCredit: true,
	}
	def := &model.ExamDefinition{
		TotalQuestions: 1,
		PassingPolicy:  model.PassingPolicyPercentage,
		PassingScore:   75,
	}

	a := &model.ExamAttempt{
		Snapshot: []model.QuestionSnapshot{{QuestionID: q.ID, Order: 1, Points: 2}},
		Answers: map[uuid.UUID]model.AnswerRecord{
			q.ID: {Payload: json.RawMessage(`{"option_ids":["a"]}`)},
		},
	}

	result, _ := Grade(def, a, questionMap([]*model.Question{q}))

	if result.EarnedPoints != 1 {
		t.Errorf("earned = %v, want 1 (half of 2 points)", result.EarnedPoints)
	}
	if result.PartialCount != 1 {
		t.Errorf("partial count = %d, want 1", result.PartialCount)
	}
	if result.Questions[0].PartialScore != 0.5 {
		t.Errorf("partial score = %v, want 0.5", result.Questions[0].PartialScore)
	}
}

// A high overall score still fails when one category misses its minimum.
func TestGradeCategoryPolicyFailsOnWeakCategory(t *testing.T) {
	var questions []*model.Question
	answers := make(map[uuid.UUID]string)

	// 9 air_law questions, all correct.
	for i := 0; i < 9; i++ {
		q := singleChoiceQuestion("air_law", 1)
		questions = append(questions, q)
		answers[q.ID] = "a"
	}
	// 5 meteorology questions, 3 correct (60%).
	for i := 0; i < 5; i++ {
		q := singleChoiceQuestion("meteorology", 1)
		questions = append(questions, q)
		if i < 3 {
			answers[q.ID] = "a"
		} else {
			answers[q.ID] = "b"
		}
	}

	def := &model.ExamDefinition{
		TotalQuestions: len(questions),
		PassingPolicy:  model.PassingPolicyCategory,
		CategoryMinimums: map[string]float64{
			"air_law":     70,
			"meteorology": 70,
		},
	}

	result, _ := Grade(def, attemptOver(questions, answers), questionMap(questions))

	if result.ScorePercentage < 80 {
		t.Fatalf("overall score = %v, expected well above the 70 threshold", result.ScorePercentage)
	}
	if result.Passed {
		t.Error("attempt must fail when a single category misses its minimum")
	}
}

func TestGradePointsPolicy(t *testing.T) {
	questions := []*model.Question{
		singleChoiceQuestion("navigation", 3),
		singleChoiceQuestion("navigation", 2),
	}
	def := &model.ExamDefinition{
		TotalQuestions: 2,
		PassingPolicy:  model.PassingPolicyPoints,
		PassingScore:   3,
	}

	result, _ := Grade(def, attemptOver(questions, map[uuid.UUID]string{questions[0].ID: "a"}), questionMap(questions))

	if result.EarnedPoints != 3 {
		t.Fatalf("earned = %v, want 3", result.EarnedPoints)
	}
	if !result.Passed {
		t.Error("3 earned points should meet a passing score of 3")
	}
}

func TestGradeUnansweredCountedSeparately(t *testing.T) {
	questions := []*model.Question{
		singleChoiceQuestion("air_law", 1),
		singleChoiceQuestion("air_law", 1),
		singleChoiceQuestion("air_law", 1),
	}
	answers := map[uuid.UUID]string{
		questions[0].ID: "a", // correct
		questions[1].ID: "b", // wrong
		// questions[2] left unanswered
	}
	def := &model.ExamDefinition{TotalQuestions: 3, PassingPolicy: model.PassingPolicyPercentage, PassingScore: 50}

	result, events := Grade(def, attemptOver(questions, answers), questionMap(questions))

	if result.CorrectCount != 1 || result.IncorrectCount != 1 || result.UnansweredCount != 1 {
		t.Errorf("counts = %d correct / %d incorrect / %d unanswered, want 1/1/1",
			result.CorrectCount, result.IncorrectCount, result.UnansweredCount)
	}
	for _, ev := range events {
		if ev.QuestionID == questions[2].ID && ev.Answered {
			t.Error("unanswered question must emit a skipped usage event")
		}
	}
}

func TestGradeBoundsInvariant(t *testing.T) {
	questions := []*model.Question{
		singleChoiceQuestion("air_law", 2.5),
		singleChoiceQuestion("meteorology", 4),
		singleChoiceQuestion("navigation", 1),
	}
	answers := map[uuid.UUID]string{
		questions[0].ID: "a",
		questions[1].ID: "d",
	}
	def := &model.ExamDefinition{TotalQuestions: 3, PassingPolicy: model.PassingPolicyPercentage, PassingScore: 50}

	result, _ := Grade(def, attemptOver(questions, answers), questionMap(questions))

	if result.EarnedPoints > result.TotalPoints {
		t.Errorf("earned %v exceeds total %v", result.EarnedPoints, result.TotalPoints)
	}
	if result.ScorePercentage < 0 || result.ScorePercentage > 100 {
		t.Errorf("score percentage %v out of [0,100]", result.ScorePercentage)
	}
}

func TestGradeZeroTotalPoints(t *testing.T) {
	def := &model.ExamDefinition{TotalQuestions: 0, PassingPolicy: model.PassingPolicyPercentage, PassingScore: 50}
	a := &model.ExamAttempt{Answers: map[uuid.UUID]model.AnswerRecord{}}

	result, _ := Grade(def, a, nil)
	if result.ScorePercentage != 0 {
		t.Errorf("score = %v, want 0 for empty attempt", result.ScorePercentage)
	}
}

func TestResultViewDetailVisibility(t *testing.T) {
	stored := &model.ExamResult{
		ScorePercentage:   80,
		Questions:         []model.QuestionResult{{Order: 1}},
		CategoryBreakdown: []model.CategoryScore{{Category: "air_law"}},
	}

	cases := []struct {
		name       string
		status     model.AttemptStatus
		reveal     bool
		wantDetail bool
	}{
		{"completed revealed", model.AttemptStatusCompleted, true, true},
		{"timed_out revealed", model.AttemptStatusTimedOut, true, true},
		{"submitted not yet scored", model.AttemptStatusSubmitted, true, false},
		{"invalidated hidden", model.AttemptStatusInvalidated, true, false},
		{"reveal disabled", model.AttemptStatusCompleted, false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &model.ExamAttempt{Status: tc.status, Result: stored}
			def := &model.ExamDefinition{
				ShowCorrectAnswers:    tc.reveal,
				ShowCategoryBreakdown: true,
			}
			view := ResultView(a, def)
			if gotDetail := view.Questions != nil; gotDetail != tc.wantDetail {
				t.Errorf("detail visible = %v, want %v", gotDetail, tc.wantDetail)
			}
			if view.ScorePercentage != 80 {
				t.Errorf("score = %v, want 80", view.ScorePercentage)
			}
			if view.CategoryBreakdown == nil {
				t.Error("breakdown must follow its own flag")
			}
			if stored.Questions == nil {
				t.Fatal("stored result must not be mutated")
			}
		})
	}

	a := &model.ExamAttempt{Status: model.AttemptStatusCompleted, Result: stored}
	view := ResultView(a, &model.ExamDefinition{ShowCorrectAnswers: true})
	if view.CategoryBreakdown != nil {
		t.Error("breakdown must be trimmed when its flag is off")
	}
}

func TestLetterGrade(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{100, "A+"}, {97, "A+"}, {96.9, "A"}, {93, "A"}, {90, "A-"},
		{87, "B+"}, {85, "B"}, {80, "B-"}, {77, "C+"}, {73, "C"},
		{70, "C-"}, {67, "D+"}, {63, "D"}, {60, "D-"}, {59.9, "F"}, {0, "F"},
	}
	for _, tc := range tests {
		if got := LetterGrade(tc.pct); got != tc.want {
			t.Errorf("LetterGrade(%v) = %q, want %q", tc.pct, got, tc.want)
		}
	}
}
