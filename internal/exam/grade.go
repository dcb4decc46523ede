package exam

import (
	"sort"

	"github.com/google/uuid"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

// UsageEvent is one question's contribution to the statistics aggregator,
// emitted per graded question. Application happens outside the pure core.
type UsageEvent struct {
	QuestionID       uuid.UUID `json:"question_id"`
	Answered         bool      `json:"answered"`
	Correct          bool      `json:"correct"`
	TimeSpentSeconds int       `json:"time_spent_seconds"`
	SelectedOptions  []string  `json:"selected_options,omitempty"`
}

// Grade scores a full attempt: it resolves each snapshot question against
// the supplied live questions, evaluates every answer, and aggregates
// totals, per-category subtotals, letter grade, and the pass/fail verdict
// per the definition's passing policy. Returns the result plus one usage
// event per resolved question.
//
// Questions that no longer resolve keep their snapshot point value in the
// possible total but score zero; the snapshot itself is never altered.
func Grade(def *model.ExamDefinition, a *model.ExamAttempt, questions map[uuid.UUID]*model.Question) (*model.ExamResult, []UsageEvent) {
	result := &model.ExamResult{
		DurationSeconds: a.ElapsedSeconds,
	}
	events := make([]UsageEvent, 0, len(a.Snapshot))
	byCategory := make(map[string]*model.CategoryScore)

	reveal := def.ShowCorrectAnswers
	explain := def.ShowExplanation

	for _, snap := range a.Snapshot {
		result.TotalPoints += snap.Points

		q, ok := questions[snap.QuestionID]
		if !ok {
			result.UnansweredCount++
			continue
		}

		cat := categoryScore(byCategory, q.Category)
		cat.Total++
		cat.PointsPossible += snap.Points

		qr := model.QuestionResult{
			QuestionID: snap.QuestionID,
			Order:      snap.Order,
			Category:   q.Category,
			PointsMax:  snap.Points,
		}

		key, err := DecodeKey(q.Type, q.AnswerKey)
		if err != nil {
			// A corrupt key must not sink the whole attempt; the question
			// scores zero and the pool owner sees it in logs upstream.
			cat.Incorrect++
			result.IncorrectCount++
			result.Questions = append(result.Questions, qr)
			continue
		}

		rec, hasRecord := a.Answers[snap.QuestionID]
		var ans Answer
		if hasRecord {
			ans, _ = DecodeAnswer(q.Type, rec.Payload)
		}

		ev := Evaluate(key, ans, q.PartialCredit)
		earned := snap.Points * ev.PartialScore

		qr.Answered = ev.Answered
		qr.Correct = ev.Correct
		qr.PartialScore = ev.PartialScore
		qr.PointsEarned = earned
		if reveal {
			qr.CorrectAnswer = MarshalKey(key)
		}
		if explain {
			qr.Explanation = q.Explanation
		}

		result.EarnedPoints += earned
		cat.PointsEarned += earned

		switch {
		case !ev.Answered:
			result.UnansweredCount++
			cat.Incorrect++
		case ev.Correct:
			result.CorrectCount++
			cat.Correct++
		case ev.PartialScore > 0:
			result.PartialCount++
			cat.Incorrect++
		default:
			result.IncorrectCount++
			cat.Incorrect++
		}

		events = append(events, UsageEvent{
			QuestionID:       snap.QuestionID,
			Answered:         ev.Answered,
			Correct:          ev.Correct,
			TimeSpentSeconds: rec.TimeSpentSeconds,
			SelectedOptions:  selectedOptions(ans),
		})

		result.Questions = append(result.Questions, qr)
	}

	if result.TotalPoints > 0 {
		result.ScorePercentage = result.EarnedPoints / result.TotalPoints * 100
	}
	result.OriginalScore = result.ScorePercentage
	result.Grade = LetterGrade(result.ScorePercentage)

	for _, cat := range byCategory {
		if cat.PointsPossible > 0 {
			cat.Percentage = cat.PointsEarned / cat.PointsPossible * 100
		}
		result.CategoryBreakdown = append(result.CategoryBreakdown, *cat)
	}
	sort.Slice(result.CategoryBreakdown, func(i, j int) bool {
		return result.CategoryBreakdown[i].Category < result.CategoryBreakdown[j].Category
	})

	result.Passed = passed(def, result)
	return result, events
}

// ResultView copies an attempt's stored result trimmed to what the trainee
// may see. Per-question detail requires ShowCorrectAnswers and a terminal
// scored status; a timeout scores exactly like a submission, so timed_out
// reveals the same detail completed does.
func ResultView(a *model.ExamAttempt, def *model.ExamDefinition) *model.ExamResult {
	view := *a.Result
	scored := a.Status == model.AttemptStatusCompleted || a.Status == model.AttemptStatusTimedOut
	if !def.ShowCorrectAnswers || !scored {
		view.Questions = nil
	}
	if !def.ShowCategoryBreakdown {
		view.CategoryBreakdown = nil
	}
	return &view
}

// passed applies the definition's passing policy to a scored result.
func passed(def *model.ExamDefinition, r *model.ExamResult) bool {
	switch def.PassingPolicy {
	case model.PassingPolicyPoints:
		return r.EarnedPoints >= def.PassingScore
	case model.PassingPolicyCategory:
		// Every listed category must individually meet its threshold; a
		// single failing category fails the attempt regardless of the
		// overall score. A category with no questions in this attempt
		// cannot meet its minimum.
		for category, minimum := range def.CategoryMinimums {
			found := false
			for _, cat := range r.CategoryBreakdown {
				if cat.Category == category {
					found = true
					if cat.Percentage < minimum {
						return false
					}
					break
				}
			}
			if !found && minimum > 0 {
				return false
			}
		}
		return true
	default: // percentage
		return r.ScorePercentage >= def.PassingScore
	}
}

// gradeBands maps minimum percentages to letter grades, highest first.
var gradeBands = []struct {
	min   float64
	grade string
}{
	{97, "A+"}, {93, "A"}, {90, "A-"},
	{87, "B+"}, {83, "B"}, {80, "B-"},
	{77, "C+"}, {73, "C"}, {70, "C-"},
	{67, "D+"}, {63, "D"}, {60, "D-"},
}

// LetterGrade converts a percentage to its letter grade.
func LetterGrade(pct float64) string {
	for _, band := range gradeBands {
		if pct >= band.min {
			return band.grade
		}
	}
	return "F"
}

func categoryScore(m map[string]*model.CategoryScore, category string) *model.CategoryScore {
	if cs, ok := m[category]; ok {
		return cs
	}
	cs := &model.CategoryScore{Category: category}
	m[category] = cs
	return cs
}

func selectedOptions(ans Answer) []string {
	switch a := ans.(type) {
	case SingleChoiceAnswer:
		return []string{a.OptionID}
	case MultiSelectAnswer:
		return a.OptionIDs
	}
	return nil
}
