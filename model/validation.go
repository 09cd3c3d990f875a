package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxTitleLength              = 100
	MaxTodoDescriptionLength    = 500
	MaxProjectNameLength        = 50
	MaxProjectDescriptionLength = 200
)

var (
	// ErrEmptyID is returned when an entity has no identifier.
	ErrEmptyID = errors.New("id must not be empty")

	// ErrEmptyTitle is returned when a todo title is blank.
	ErrEmptyTitle = errors.New("title must not be empty")

	// ErrTitleTooLong is returned when a todo title exceeds MaxTitleLength.
	ErrTitleTooLong = errors.New("title exceeds maximum length")

	// ErrEmptyDescription is returned when a todo description is blank.
	ErrEmptyDescription = errors.New("description must not be empty")

	// ErrDescriptionTooLong is returned when a description exceeds its limit.
	ErrDescriptionTooLong = errors.New("description exceeds maximum length")

	// ErrEmptyName is returned when a project name is blank.
	ErrEmptyName = errors.New("name must not be empty")

	// ErrNameTooLong is returned when a project name exceeds MaxProjectNameLength.
	ErrNameTooLong = errors.New("name exceeds maximum length")

	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidStatus   = errors.New("invalid status")
)

// Validate checks the required fields and length limits of a todo.
func (t TodoItem) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if n := utf8.RuneCountInString(t.Title); n > MaxTitleLength {
		return fmt.Errorf("%w: %d > %d", ErrTitleTooLong, n, MaxTitleLength)
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if n := utf8.RuneCountInString(t.Description); n > MaxTodoDescriptionLength {
		return fmt.Errorf("%w: %d > %d", ErrDescriptionTooLong, n, MaxTodoDescriptionLength)
	}
	if t.Priority != "" && !t.Priority.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, t.Priority)
	}
	if t.Status != "" && !t.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, t.Status)
	}
	return nil
}

// IsValid reports whether Validate succeeds.
func (t TodoItem) IsValid() bool {
	return t.Validate() == nil
}

// Validate checks the required fields and length limits of a project.
func (p Project) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrEmptyID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if n := utf8.RuneCountInString(p.Name); n > MaxProjectNameLength {
		return fmt.Errorf("%w: %d > %d", ErrNameTooLong, n, MaxProjectNameLength)
	}
	if n := utf8.RuneCountInString(p.Description); n > MaxProjectDescriptionLength {
		return fmt.Errorf("%w: %d > %d", ErrDescriptionTooLong, n, MaxProjectDescriptionLength)
	}
	return nil
}

// IsValid reports whether Validate succeeds.
func (p Project) IsValid() bool {
	return p.Validate() == nil
}
