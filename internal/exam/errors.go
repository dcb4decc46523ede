package exam

import "errors"

// Domain errors. State errors are rejected with no mutation; time-exceeded
// is a legitimate transition, not a failure the caller must avoid.
var (
	ErrInsufficientQuestions = errors.New("not enough eligible questions to satisfy the exam definition")
	ErrPauseNotAllowed       = errors.New("pausing is not allowed or the pause budget is exhausted")
	ErrPauseExpired          = errors.New("pause duration exceeded, attempt abandoned")
	ErrTimeExceeded          = errors.New("time limit exceeded, attempt timed out")
	ErrAlreadySubmitted      = errors.New("attempt has already been submitted")
	ErrAttemptNotActive      = errors.New("attempt is not in progress")
	ErrAttemptNotPaused      = errors.New("attempt is not paused")
	ErrAttemptCompleted      = errors.New("attempt is already completed")
	ErrQuestionNotInAttempt  = errors.New("question is not part of this attempt")
	ErrMalformedAnswer       = errors.New("answer payload does not match the question type")
	ErrMalformedAnswerKey    = errors.New("answer key does not match the question type")
)
