package model

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// TitleMaxLength is the maximum number of characters in a Todo title.
const TitleMaxLength = 200

var validate = validator.New(validator.WithRequiredStructEnabled())

type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title" validate:"required,max=200"`
	IsDone    bool      `json:"is_done"`
	CreatedAt time.Time `json:"created_at"`
}

// NewTodo returns an unsaved Todo stamped with the current UTC time.
// CreatedAt is truncated to microseconds, the precision of timestamptz.
func NewTodo(title string) *Todo {
	return &Todo{
		Title:     title,
		CreatedAt: Now(),
	}
}

// Now returns the current UTC instant at storage precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Validate checks the field constraints enforced by the todos table.
// A non-nil error is a validator.ValidationErrors.
func (t Todo) Validate() error {
	return validate.Struct(t)
}
