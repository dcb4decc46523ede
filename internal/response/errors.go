package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrInvalidAccessCode  ErrCode = "INVALID_ACCESS_CODE"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrTraineeAccessOnly ErrCode = "TRAINEE_ACCESS_ONLY"
	ErrExaminerOnly      ErrCode = "EXAMINER_ACCESS_ONLY"
	ErrNotAttemptOwner   ErrCode = "NOT_ATTEMPT_OWNER"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation      ErrCode = "VALIDATION_ERROR"
	ErrInvalidID       ErrCode = "INVALID_ID"
	ErrInvalidPayload  ErrCode = "INVALID_PAYLOAD"
	ErrMalformedAnswer ErrCode = "MALFORMED_ANSWER"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Availability ──────────────────────────────────────────────────
	ErrExamNotAvailable   ErrCode = "EXAM_NOT_AVAILABLE"
	ErrExamNotPublished   ErrCode = "EXAM_NOT_PUBLISHED"
	ErrMaxAttemptsReached ErrCode = "MAX_ATTEMPTS_REACHED"
	ErrRetryDelayActive   ErrCode = "RETRY_DELAY_ACTIVE"
	ErrCooldownActive     ErrCode = "FAIL_COOLDOWN_ACTIVE"
	ErrInsufficientPool   ErrCode = "INSUFFICIENT_QUESTIONS"

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	ErrAttemptNotActive   ErrCode = "ATTEMPT_NOT_ACTIVE"
	ErrAttemptNotPaused   ErrCode = "ATTEMPT_NOT_PAUSED"
	ErrAlreadySubmitted   ErrCode = "ATTEMPT_ALREADY_SUBMITTED"
	ErrTimeExceeded       ErrCode = "TIME_LIMIT_EXCEEDED"
	ErrPauseNotAllowed    ErrCode = "PAUSE_NOT_ALLOWED"
	ErrPauseExpired       ErrCode = "PAUSE_BUDGET_EXPIRED"
	ErrQuestionNotInScope ErrCode = "QUESTION_NOT_IN_ATTEMPT"
	ErrResultsNotVisible  ErrCode = "RESULTS_NOT_VISIBLE"
	ErrExamNotDraft       ErrCode = "EXAM_NOT_DRAFT"
	ErrAttemptConflict    ErrCode = "ATTEMPT_CONFLICT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrInvalidAccessCode:
		return "The exam access code is incorrect."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrTraineeAccessOnly:
		return "This resource is restricted to trainees."
	case ErrExaminerOnly:
		return "This resource is restricted to examiners."
	case ErrNotAttemptOwner:
		return "This attempt belongs to another trainee."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrMalformedAnswer:
		return "The answer payload does not match the question type."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Availability ──────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrExamNotPublished:
		return "This exam has not been published."
	case ErrMaxAttemptsReached:
		return "Maximum attempts reached."
	case ErrRetryDelayActive:
		return "You must wait before retrying this exam."
	case ErrCooldownActive:
		return "A cooldown period is active after a failed attempt."
	case ErrInsufficientPool:
		return "The question pool cannot satisfy this exam's requirements."

	// ─── Attempt lifecycle ─────────────────────────────────────────────
	case ErrAttemptNotActive:
		return "This attempt is not in progress."
	case ErrAttemptNotPaused:
		return "This attempt is not paused."
	case ErrAlreadySubmitted:
		return "This attempt has already been submitted."
	case ErrTimeExceeded:
		return "The time limit for this attempt has been exceeded."
	case ErrPauseNotAllowed:
		return "Pausing is not allowed for this exam."
	case ErrPauseExpired:
		return "The pause budget for this attempt has been exhausted."
	case ErrQuestionNotInScope:
		return "That question is not part of this attempt."
	case ErrResultsNotVisible:
		return "Results are not visible for this attempt."
	case ErrExamNotDraft:
		return "This exam is not in DRAFT status."
	case ErrAttemptConflict:
		return "The attempt was modified concurrently. Please retry."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
