package auth

import (
	"errors"

	"github.com/google/uuid"

	"institute/portal/internal/model"
)

var (
	ErrUnknownRole = errors.New("unknown user_type")
	ErrInvalidUser = errors.New("invalid user_id")
)

// Actor is the authenticated caller. The set of implementations is closed:
// Admin, Teacher and Student.
type Actor interface {
	UserID() string
	Role() model.Role
	sealed()
}

type Admin struct{ ID string }

type Teacher struct{ ID string }

type Student struct{ ID string }

func (a Admin) UserID() string   { return a.ID }
func (a Teacher) UserID() string { return a.ID }
func (a Student) UserID() string { return a.ID }

func (Admin) Role() model.Role   { return model.RoleAdmin }
func (Teacher) Role() model.Role { return model.RoleTeacher }
func (Student) Role() model.Role { return model.RoleStudent }

func (Admin) sealed()   {}
func (Teacher) sealed() {}
func (Student) sealed() {}

// ActorFromClaims maps token claims onto an Actor. Any user_type outside
// the closed set is an error rather than a default branch.
func ActorFromClaims(claims *Claims) (Actor, error) {
	if claims == nil {
		return nil, ErrInvalidUser
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, ErrInvalidUser
	}
	switch model.Role(claims.UserType) {
	case model.RoleAdmin:
		return Admin{ID: claims.UserID}, nil
	case model.RoleTeacher:
		return Teacher{ID: claims.UserID}, nil
	case model.RoleStudent:
		return Student{ID: claims.UserID}, nil
	default:
		return nil, ErrUnknownRole
	}
}
