package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Priority is the urgency of a todo item.
// Ordering comes from Rank, not from the encoded value.
type Priority string

const (
	PriorityLow       Priority = "low"
	PriorityMedium    Priority = "medium"
	PriorityHigh      Priority = "high"
	PriorityEmergency Priority = "emergency"
)

var priorityOrder = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityEmergency}

// Priorities returns every priority from lowest to highest.
func Priorities() []Priority {
	out := make([]Priority, len(priorityOrder))
	copy(out, priorityOrder)
	return out
}

// Rank returns the position of p in the Low < Medium < High < Emergency order.
// The empty value ranks with Low.
func (p Priority) Rank() int {
	for i, candidate := range priorityOrder {
		if candidate == p {
			return i
		}
	}
	return 0
}

// IsValid reports whether p is one of the known priorities.
func (p Priority) IsValid() bool {
	for _, candidate := range priorityOrder {
		if candidate == p {
			return true
		}
	}
	return false
}

// Label is the display form of p.
func (p Priority) Label() string {
	switch p {
	case PriorityLow:
		return "Low"
	case PriorityMedium:
		return "Medium"
	case PriorityHigh:
		return "High"
	case PriorityEmergency:
		return "Emergency"
	default:
		return string(p)
	}
}

// ParsePriority accepts a priority name in any case ("high", "High").
func ParsePriority(s string) (Priority, error) {
	key := enumKey(s)
	for _, candidate := range priorityOrder {
		if enumKey(string(candidate)) == key {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
}

// UnmarshalJSON accepts names as well as the numeric encoding of older exports.
func (p *Priority) UnmarshalJSON(data []byte) error {
	value, err := decodeEnum(data, len(priorityOrder))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidPriority, data)
	}
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		*p = priorityOrder[v]
		return nil
	case string:
		if v == "" {
			return nil
		}
		parsed, err := ParsePriority(v)
		if err != nil {
			return err
		}
		*p = parsed
	}
	return nil
}

// Status is the lifecycle state of a todo item.
type Status string

const (
	StatusNone       Status = "none"
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusAbandoned  Status = "abandoned"
	StatusArchived   Status = "archived"
)

var statusOrder = []Status{StatusNone, StatusNew, StatusInProgress, StatusDone, StatusAbandoned, StatusArchived}

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// Rank returns the lifecycle position of s. The empty value ranks with None.
func (s Status) Rank() int {
	for i, candidate := range statusOrder {
		if candidate == s {
			return i
		}
	}
	return 0
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	for _, candidate := range statusOrder {
		if candidate == s {
			return true
		}
	}
	return false
}

// Label is the display form of s.
func (s Status) Label() string {
	switch s {
	case StatusNone:
		return "None"
	case StatusNew:
		return "New"
	case StatusInProgress:
		return "In progress"
	case StatusDone:
		return "Done"
	case StatusAbandoned:
		return "Abandoned"
	case StatusArchived:
		return "Archived"
	default:
		return string(s)
	}
}

// ParseStatus accepts "in_progress", "in-progress", "InProgress" and friends.
func ParseStatus(s string) (Status, error) {
	key := enumKey(s)
	for _, candidate := range statusOrder {
		if enumKey(string(candidate)) == key {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// UnmarshalJSON accepts names as well as the numeric encoding of older exports.
func (s *Status) UnmarshalJSON(data []byte) error {
	value, err := decodeEnum(data, len(statusOrder))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, data)
	}
	switch v := value.(type) {
	case nil:
		return nil
	case int:
		*s = statusOrder[v]
		return nil
	case string:
		if v == "" {
			return nil
		}
		parsed, err := ParseStatus(v)
		if err != nil {
			return err
		}
		*s = parsed
	}
	return nil
}

// decodeEnum returns nil for null, an int index for numbers in [0, size) and
// the raw string otherwise.
func decodeEnum(data []byte, size int) (any, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil, nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, err
	}
	if n < 0 || n >= size {
		return nil, fmt.Errorf("enum index %d out of range", n)
	}
	return n, nil
}

func enumKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}
