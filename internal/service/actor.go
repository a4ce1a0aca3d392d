package service

import "github.com/lshigami/quizengine/internal/model"

type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// Actor is the caller identity asserted by the upstream gateway.
type Actor struct {
	ID   string
	Role Role
}

func (a Actor) IsInstructor() bool { return a.Role == RoleInstructor }

func (a Actor) IsStudent() bool { return a.Role == RoleStudent }

// canRead allows the owning student and any instructor.
func canRead(attempt *model.Attempt, actor Actor) bool {
	return actor.IsInstructor() || (actor.ID != "" && attempt.StudentID == actor.ID)
}
