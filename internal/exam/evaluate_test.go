package exam

import (
	"encoding/json"
	"testing"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

func TestEvaluateSingleChoice(t *testing.T) {
	key := SingleChoiceKey{OptionID: "b"}

	tests := []struct {
		name    string
		answer  Answer
		correct bool
		score   float64
	}{
		{"correct option", SingleChoiceAnswer{OptionID: "b"}, true, 1},
		{"wrong option", SingleChoiceAnswer{OptionID: "a"}, false, 0},
		{"unanswered", nil, false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(key, tc.answer, false)
			if got.Correct != tc.correct || got.PartialScore != tc.score {
				t.Errorf("got correct=%v score=%v, want correct=%v score=%v",
					got.Correct, got.PartialScore, tc.correct, tc.score)
			}
			if (tc.answer == nil) == got.Answered {
				t.Errorf("answered=%v for answer %v", got.Answered, tc.answer)
			}
		})
	}
}

func TestEvaluateTrueFalse(t *testing.T) {
	key := TrueFalseKey{Value: true}

	if got := Evaluate(key, TrueFalseAnswer{Value: true}, false); !got.Correct {
		t.Error("matching boolean should be correct")
	}
	if got := Evaluate(key, TrueFalseAnswer{Value: false}, false); got.Correct {
		t.Error("mismatched boolean should be incorrect")
	}
}

func TestEvaluateMultiSelect(t *testing.T) {
	key := MultiSelectKey{OptionIDs: []string{"a", "c"}}

	tests := []struct {
		name    string
		submit  []string
		partial bool
		correct bool
		score   float64
	}{
		{"exact set", []string{"a", "c"}, false, true, 1},
		{"exact set reordered", []string{"c", "a"}, false, true, 1},
		{"half without partial", []string{"a"}, false, false, 0},
		{"half with partial", []string{"a"}, true, false, 0.5},
		{"one right one wrong", []string{"a", "b"}, true, false, 0},
		{"all wrong clamps to zero", []string{"b", "d"}, true, false, 0},
		{"superset not correct", []string{"a", "c", "b"}, true, false, 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(key, MultiSelectAnswer{OptionIDs: tc.submit}, tc.partial)
			if got.Correct != tc.correct {
				t.Errorf("correct = %v, want %v", got.Correct, tc.correct)
			}
			if got.PartialScore != tc.score {
				t.Errorf("partial score = %v, want %v", got.PartialScore, tc.score)
			}
		})
	}
}

func TestEvaluateFillBlank(t *testing.T) {
	tests := []struct {
		name    string
		key     FillBlankKey
		text    string
		correct bool
	}{
		{"case insensitive match", FillBlankKey{Accepted: []string{"Cumulonimbus"}}, "cumulonimbus", true},
		{"case sensitive miss", FillBlankKey{Accepted: []string{"Cumulonimbus"}, CaseSensitive: true}, "cumulonimbus", false},
		{"case sensitive match", FillBlankKey{Accepted: []string{"Cumulonimbus"}, CaseSensitive: true}, "Cumulonimbus", true},
		{"second accepted answer", FillBlankKey{Accepted: []string{"CB", "cumulonimbus"}}, "CUMULONIMBUS", true},
		{"whitespace trimmed", FillBlankKey{Accepted: []string{"QNH"}}, "  qnh ", true},
		{"no match", FillBlankKey{Accepted: []string{"QNH"}}, "QFE", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(tc.key, TextAnswer{Text: tc.text}, false)
			if got.Correct != tc.correct {
				t.Errorf("correct = %v, want %v", got.Correct, tc.correct)
			}
		})
	}
}

func TestEvaluateMatching(t *testing.T) {
	key := MatchingKey{Pairs: []MatchPair{
		{Left: "a", Right: "1"},
		{Left: "b", Right: "2"},
		{Left: "c", Right: "3"},
	}}

	tests := []struct {
		name    string
		pairs   []MatchPair
		partial bool
		correct bool
		score   float64
	}{
		{"all matched any order", []MatchPair{{"c", "3"}, {"a", "1"}, {"b", "2"}}, false, true, 1},
		{"one wrong exact mode", []MatchPair{{"a", "1"}, {"b", "3"}, {"c", "2"}}, false, false, 0},
		{"one of three with partial", []MatchPair{{"a", "1"}, {"b", "3"}, {"c", "2"}}, true, false, 1.0 / 3},
		{"two of three with partial", []MatchPair{{"a", "1"}, {"b", "2"}, {"c", "1"}}, true, false, 2.0 / 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(key, MatchingAnswer{Pairs: tc.pairs}, tc.partial)
			if got.Correct != tc.correct {
				t.Errorf("correct = %v, want %v", got.Correct, tc.correct)
			}
			if got.PartialScore != tc.score {
				t.Errorf("partial score = %v, want %v", got.PartialScore, tc.score)
			}
		})
	}
}

func TestEvaluateOrdering(t *testing.T) {
	key := OrderingKey{Sequence: []string{"a", "b", "c", "d"}}

	tests := []struct {
		name    string
		seq     []string
		partial bool
		correct bool
		score   float64
	}{
		{"exact sequence", []string{"a", "b", "c", "d"}, false, true, 1},
		{"swapped pair exact mode", []string{"a", "c", "b", "d"}, false, false, 0},
		{"swapped pair with partial", []string{"a", "c", "b", "d"}, true, false, 0.5},
		{"reversed with partial", []string{"d", "c", "b", "a"}, true, false, 0},
		{"short submission", []string{"a", "b"}, true, false, 0.5},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(key, OrderingAnswer{Sequence: tc.seq}, tc.partial)
			if got.Correct != tc.correct {
				t.Errorf("correct = %v, want %v", got.Correct, tc.correct)
			}
			if got.PartialScore != tc.score {
				t.Errorf("partial score = %v, want %v", got.PartialScore, tc.score)
			}
		})
	}
}

func TestDecodeAnswerUnansweredShapes(t *testing.T) {
	tests := []struct {
		name string
		qt   model.QuestionType
		raw  string
	}{
		{"empty option id", model.QuestionTypeSingleChoice, `{"option_id":""}`},
		{"missing value field", model.QuestionTypeTrueFalse, `{}`},
		{"empty option set", model.QuestionTypeMultiSelect, `{"option_ids":[]}`},
		{"blank text", model.QuestionTypeFillBlank, `{"text":"   "}`},
		{"empty pairs", model.QuestionTypeMatching, `{"pairs":[]}`},
		{"empty sequence", model.QuestionTypeOrdering, `{"sequence":[]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ans, err := DecodeAnswer(tc.qt, json.RawMessage(tc.raw))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ans != nil {
				t.Errorf("expected unanswered (nil), got %#v", ans)
			}
		})
	}
}

func TestDecodeAnswerExplicitFalse(t *testing.T) {
	ans, err := DecodeAnswer(model.QuestionTypeTrueFalse, json.RawMessage(`{"value":false}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tf, ok := ans.(TrueFalseAnswer)
	if !ok || tf.Value {
		t.Errorf("expected answered false, got %#v", ans)
	}
}

func TestDecodeKeyRejectsMismatchedShape(t *testing.T) {
	if _, err := DecodeKey(model.QuestionTypeSingleChoice, json.RawMessage(`{"option_ids":["a"]}`)); err == nil {
		t.Error("single-choice key without option_id should be rejected")
	}
	if _, err := DecodeKey(model.QuestionTypeMultiSelect, json.RawMessage(`{}`)); err == nil {
		t.Error("multi-select key without option_ids should be rejected")
	}
	if _, err := DecodeKey(model.QuestionTypeOrdering, json.RawMessage(`not json`)); err == nil {
		t.Error("invalid json should be rejected")
	}
}

func TestValidateQuestion(t *testing.T) {
	opts := []model.Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}}

	valid := &model.Question{
		Type:      model.QuestionTypeSingleChoice,
		Options:   opts,
		AnswerKey: json.RawMessage(`{"option_id":"a"}`),
	}
	if err := ValidateQuestion(valid); err != nil {
		t.Errorf("valid question rejected: %v", err)
	}

	danglingKey := &model.Question{
		Type:      model.QuestionTypeSingleChoice,
		Options:   opts,
		AnswerKey: json.RawMessage(`{"option_id":"z"}`),
	}
	if err := ValidateQuestion(danglingKey); err == nil {
		t.Error("key referencing an unknown option should be rejected")
	}

	tooFewOptions := &model.Question{
		Type:      model.QuestionTypeSingleChoice,
		Options:   opts[:1],
		AnswerKey: json.RawMessage(`{"option_id":"a"}`),
	}
	if err := ValidateQuestion(tooFewOptions); err == nil {
		t.Error("single choice with one option should be rejected")
	}
}
