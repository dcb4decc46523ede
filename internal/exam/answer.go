package exam

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aeroacademy/groundschool-backend/internal/model"
)

// Key is the correct-answer definition of a question, one concrete type per
// question format. Keys are decoded and validated at the boundary so the
// evaluator only ever sees well-formed, typed values.
type Key interface {
	isKey()
}

// Answer is a submitted answer payload, one concrete type per question
// format. Like keys, answers are decoded at the boundary.
type Answer interface {
	isAnswer()
}

// MatchPair links a left-hand item (an option id) to a right-hand value.
type MatchPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type SingleChoiceKey struct {
	OptionID string `json:"option_id"`
}

type TrueFalseKey struct {
	Value bool `json:"value"`
}

type MultiSelectKey struct {
	OptionIDs []string `json:"option_ids"`
}

// FillBlankKey also serves short-answer questions, which are graded as
// fill-blank against an accepted-answers list.
type FillBlankKey struct {
	Accepted      []string `json:"accepted"`
	CaseSensitive bool     `json:"case_sensitive"`
}

type MatchingKey struct {
	Pairs []MatchPair `json:"pairs"`
}

type OrderingKey struct {
	Sequence []string `json:"sequence"`
}

func (SingleChoiceKey) isKey() {}
func (TrueFalseKey) isKey()    {}
func (MultiSelectKey) isKey()  {}
func (FillBlankKey) isKey()    {}
func (MatchingKey) isKey()     {}
func (OrderingKey) isKey()     {}

type SingleChoiceAnswer struct {
	OptionID string `json:"option_id"`
}

type TrueFalseAnswer struct {
	Value bool `json:"value"`
}

type MultiSelectAnswer struct {
	OptionIDs []string `json:"option_ids"`
}

type TextAnswer struct {
	Text string `json:"text"`
}

type MatchingAnswer struct {
	Pairs []MatchPair `json:"pairs"`
}

type OrderingAnswer struct {
	Sequence []string `json:"sequence"`
}

func (SingleChoiceAnswer) isAnswer() {}
func (TrueFalseAnswer) isAnswer()    {}
func (MultiSelectAnswer) isAnswer()  {}
func (TextAnswer) isAnswer()         {}
func (MatchingAnswer) isAnswer()     {}
func (OrderingAnswer) isAnswer()     {}

// DecodeKey parses and validates a question's stored answer key against its
// declared type. Returns ErrMalformedAnswerKey on any mismatch.
func DecodeKey(qt model.QuestionType, raw json.RawMessage) (Key, error) {
	if len(raw) == 0 {
		return nil, ErrMalformedAnswerKey
	}
	switch qt {
	case model.QuestionTypeSingleChoice:
		var k SingleChoiceKey
		if err := json.Unmarshal(raw, &k); err != nil || k.OptionID == "" {
			return nil, ErrMalformedAnswerKey
		}
		return k, nil
	case model.QuestionTypeTrueFalse:
		var k TrueFalseKey
		if err := json.Unmarshal(raw, &k); err != nil {
			return nil, ErrMalformedAnswerKey
		}
		return k, nil
	case model.QuestionTypeMultiSelect:
		var k MultiSelectKey
		if err := json.Unmarshal(raw, &k); err != nil || len(k.OptionIDs) == 0 {
			return nil, ErrMalformedAnswerKey
		}
		return k, nil
	case model.QuestionTypeFillBlank, model.QuestionTypeShortAnswer:
		var k FillBlankKey
		if err := json.Unmarshal(raw, &k); err != nil || len(k.Accepted) == 0 {
			return nil, ErrMalformedAnswerKey
		}
		return k, nil
	case model.QuestionTypeMatching:
		var k MatchingKey
		if err := json.Unmarshal(raw, &k); err != nil || len(k.Pairs) == 0 {
			return nil, ErrMalformedAnswerKey
		}
		return k, nil
	case model.QuestionTypeOrdering:
		var k OrderingKey
		if err := json.Unmarshal(raw, &k); err != nil || len(k.Sequence) == 0 {
			return nil, ErrMalformedAnswerKey
		}
		return k, nil
	default:
		return nil, fmt.Errorf("%w: unknown question type %q", ErrMalformedAnswerKey, qt)
	}
}

// DecodeAnswer parses a submitted answer payload against the question type.
// A payload that parses but carries no selection (empty option id, empty
// set, blank text) decodes to nil, which the evaluator counts as unanswered.
func DecodeAnswer(qt model.QuestionType, raw json.RawMessage) (Answer, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch qt {
	case model.QuestionTypeSingleChoice:
		var a SingleChoiceAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, ErrMalformedAnswer
		}
		if a.OptionID == "" {
			return nil, nil
		}
		return a, nil
	case model.QuestionTypeTrueFalse:
		// Distinguish "answered false" from "no answer": require the field.
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, ErrMalformedAnswer
		}
		v, ok := probe["value"]
		if !ok {
			return nil, nil
		}
		var a TrueFalseAnswer
		if err := json.Unmarshal(v, &a.Value); err != nil {
			return nil, ErrMalformedAnswer
		}
		return a, nil
	case model.QuestionTypeMultiSelect:
		var a MultiSelectAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, ErrMalformedAnswer
		}
		if len(a.OptionIDs) == 0 {
			return nil, nil
		}
		return a, nil
	case model.QuestionTypeFillBlank, model.QuestionTypeShortAnswer:
		var a TextAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, ErrMalformedAnswer
		}
		if strings.TrimSpace(a.Text) == "" {
			return nil, nil
		}
		return a, nil
	case model.QuestionTypeMatching:
		var a MatchingAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, ErrMalformedAnswer
		}
		if len(a.Pairs) == 0 {
			return nil, nil
		}
		return a, nil
	case model.QuestionTypeOrdering:
		var a OrderingAnswer
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, ErrMalformedAnswer
		}
		if len(a.Sequence) == 0 {
			return nil, nil
		}
		return a, nil
	default:
		return nil, fmt.Errorf("%w: unknown question type %q", ErrMalformedAnswer, qt)
	}
}

// ValidateQuestion checks that a question's options and answer key are
// structurally consistent with its declared type.
func ValidateQuestion(q *model.Question) error {
	key, err := DecodeKey(q.Type, q.AnswerKey)
	if err != nil {
		return err
	}

	optionSet := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		optionSet[o.ID] = struct{}{}
	}
	inOptions := func(id string) bool {
		_, ok := optionSet[id]
		return ok
	}

	switch k := key.(type) {
	case SingleChoiceKey:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: single choice needs at least 2 options", ErrMalformedAnswerKey)
		}
		if !inOptions(k.OptionID) {
			return fmt.Errorf("%w: correct option %q not among options", ErrMalformedAnswerKey, k.OptionID)
		}
	case MultiSelectKey:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: multi select needs at least 2 options", ErrMalformedAnswerKey)
		}
		for _, id := range k.OptionIDs {
			if !inOptions(id) {
				return fmt.Errorf("%w: correct option %q not among options", ErrMalformedAnswerKey, id)
			}
		}
	case MatchingKey:
		for _, p := range k.Pairs {
			if !inOptions(p.Left) {
				return fmt.Errorf("%w: pair item %q not among options", ErrMalformedAnswerKey, p.Left)
			}
		}
	case OrderingKey:
		if len(k.Sequence) != len(q.Options) {
			return fmt.Errorf("%w: sequence length %d does not cover %d options", ErrMalformedAnswerKey, len(k.Sequence), len(q.Options))
		}
		for _, id := range k.Sequence {
			if !inOptions(id) {
				return fmt.Errorf("%w: sequence item %q not among options", ErrMalformedAnswerKey, id)
			}
		}
	}
	return nil
}

// MarshalKey serializes a key for inclusion in revealed results.
func MarshalKey(k Key) json.RawMessage {
	if k == nil {
		return nil
	}
	raw, err := json.Marshal(k)
	if err != nil {
		return nil
	}
	return raw
}
