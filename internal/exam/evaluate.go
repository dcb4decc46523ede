package exam

import "strings"

// EvalResult is the outcome of evaluating one submitted answer.
// PartialScore is the credit fraction in [0,1]; a fully correct answer has
// Correct=true and PartialScore=1.
type EvalResult struct {
	Answered     bool
	Correct      bool
	PartialScore float64
	CorrectKey   Key
}

// Evaluate scores a submitted answer against the correct-answer key.
// It is pure: deterministic, side-effect-free, and order-independent for
// set-shaped inputs (multi-select, matching). Ordering questions are
// order-sensitive by design. A nil answer counts as unanswered and scores
// zero.
func Evaluate(key Key, ans Answer, partialCredit bool) EvalResult {
	res := EvalResult{CorrectKey: key}
	if ans == nil {
		return res
	}
	res.Answered = true

	switch k := key.(type) {
	case SingleChoiceKey:
		a, ok := ans.(SingleChoiceAnswer)
		if ok && a.OptionID == k.OptionID {
			res.Correct = true
			res.PartialScore = 1
		}

	case TrueFalseKey:
		a, ok := ans.(TrueFalseAnswer)
		if ok && a.Value == k.Value {
			res.Correct = true
			res.PartialScore = 1
		}

	case MultiSelectKey:
		a, ok := ans.(MultiSelectAnswer)
		if !ok {
			return res
		}
		correct := toSet(k.OptionIDs)
		selected := toSet(a.OptionIDs)
		if setsEqual(correct, selected) {
			res.Correct = true
			res.PartialScore = 1
			return res
		}
		if partialCredit {
			hits, misses := 0, 0
			for id := range selected {
				if _, ok := correct[id]; ok {
					hits++
				} else {
					misses++
				}
			}
			score := float64(hits-misses) / float64(len(correct))
			if score > 0 {
				res.PartialScore = score
			}
		}

	case FillBlankKey:
		a, ok := ans.(TextAnswer)
		if !ok {
			return res
		}
		submitted := strings.TrimSpace(a.Text)
		for _, accepted := range k.Accepted {
			accepted = strings.TrimSpace(accepted)
			match := submitted == accepted
			if !k.CaseSensitive {
				match = strings.EqualFold(submitted, accepted)
			}
			if match {
				res.Correct = true
				res.PartialScore = 1
				break
			}
		}

	case MatchingKey:
		a, ok := ans.(MatchingAnswer)
		if !ok {
			return res
		}
		want := make(map[string]string, len(k.Pairs))
		for _, p := range k.Pairs {
			want[p.Left] = p.Right
		}
		matched := 0
		for _, p := range a.Pairs {
			if r, ok := want[p.Left]; ok && r == p.Right {
				matched++
			}
		}
		if matched == len(k.Pairs) && len(a.Pairs) == len(k.Pairs) {
			res.Correct = true
			res.PartialScore = 1
		} else if partialCredit && len(k.Pairs) > 0 {
			res.PartialScore = float64(matched) / float64(len(k.Pairs))
		}

	case OrderingKey:
		a, ok := ans.(OrderingAnswer)
		if !ok {
			return res
		}
		inPlace := 0
		for i, id := range k.Sequence {
			if i < len(a.Sequence) && a.Sequence[i] == id {
				inPlace++
			}
		}
		if inPlace == len(k.Sequence) && len(a.Sequence) == len(k.Sequence) {
			res.Correct = true
			res.PartialScore = 1
		} else if partialCredit && len(k.Sequence) > 0 {
			res.PartialScore = float64(inPlace) / float64(len(k.Sequence))
		}
	}

	return res
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
