package model

import "time"

// Role enumerates account types.
type Role string

const (
	RoleTrainee  Role = "trainee"
	RoleExaminer Role = "examiner"
)

// Permission enumerates examiner capability codes carried in the JWT.
type Permission string

const (
	PermissionQuestionsRead      Permission = "questions.read"
	PermissionQuestionsWrite     Permission = "questions.write"
	PermissionExamsRead          Permission = "exams.read"
	PermissionExamsWrite         Permission = "exams.write"
	PermissionExamsPublish       Permission = "exams.publish"
	PermissionAttemptsRead       Permission = "attempts.read"
	PermissionAttemptsInvalidate Permission = "attempts.invalidate"
	PermissionExamsMonitor       Permission = "exams.monitor"
)

// User is an account; trainees sit exams, examiners author them. Examiner
// permission codes gate the admin surface.
type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	Permissions  []string  `json:"permissions,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoginRequest is the credential payload for both account types.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// LoginResponse carries the signed token and the account it identifies.
type LoginResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
