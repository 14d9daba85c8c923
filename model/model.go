package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Status represents the workflow state of a task
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusCancelled  Status = "cancelled"
)

// Task is a single unit of work inside a project
type Task struct {
	Title       string     `json:"title" validate:"required"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status" validate:"required,oneof=todo in_progress done cancelled"`
	Priority    int        `json:"priority" validate:"gte=0,lte=9"`
	ProjectID   string     `json:"project_id,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Project groups tasks under a common goal
type Project struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is a member of the tracking service
type User struct {
	Username  string    `json:"username" validate:"required"`
	Email     string    `json:"email" validate:"omitempty,email"`
	FullName  string    `json:"full_name,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Notification is a message delivered to a user about project activity
type Notification struct {
	UserID    string    `json:"user_id" validate:"required"`
	Message   string    `json:"message" validate:"required"`
	Kind      string    `json:"kind,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var validate = validator.New()

// Validate checks required fields and value ranges
func Validate(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}

// Encode serializes a domain value into an opaque payload for the sync engine
func Encode(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	return data, nil
}

// Decode deserializes an opaque payload back into a domain value
func Decode(payload json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}
