package remote

import (
	"encoding/json"
	"fmt"
	"time"

	"tracksync/model"
)

// Wire representations of the tracking service's REST resources. Field names
// and value encodings follow the server contract, not the local model.

type taskWire struct {
	ID          string     `json:"id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`
	Priority    int        `json:"priority"` // 1=low .. 4=urgent, 0=unset
	ProjectID   string     `json:"project_id,omitempty"`
	AssigneeID  string     `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type projectWire struct {
	ID          string    `json:"id,omitempty"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	OwnerID     string    `json:"owner_id,omitempty"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type userWire struct {
	ID        string    `json:"id,omitempty"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FullName  string    `json:"full_name,omitempty"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type notificationWire struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Kind      string    `json:"kind,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// statusFromWire maps the server's task status vocabulary to the local one
func statusFromWire(s string) (model.Status, error) {
	switch s {
	case "open":
		return model.StatusTodo, nil
	case "active":
		return model.StatusInProgress, nil
	case "completed":
		return model.StatusDone, nil
	case "cancelled":
		return model.StatusCancelled, nil
	}
	return "", fmt.Errorf("unknown remote status %q", s)
}

// statusToWire is the inverse of statusFromWire
func statusToWire(s model.Status) (string, error) {
	switch s {
	case model.StatusTodo:
		return "open", nil
	case model.StatusInProgress:
		return "active", nil
	case model.StatusDone:
		return "completed", nil
	case model.StatusCancelled:
		return "cancelled", nil
	}
	return "", fmt.Errorf("unknown local status %q", s)
}

// priorityFromWire maps the server's 1-4 scale onto the local 1-9 scale.
// 0 means unset on both sides.
func priorityFromWire(p int) int {
	switch p {
	case 4: // urgent
		return 1
	case 3: // high
		return 3
	case 2: // medium
		return 5
	case 1: // low
		return 7
	}
	return 0
}

// priorityToWire maps the local 1-9 scale back onto the server's 1-4 scale
func priorityToWire(p int) int {
	switch {
	case p >= 1 && p <= 2:
		return 4
	case p >= 3 && p <= 4:
		return 3
	case p >= 5 && p <= 6:
		return 2
	case p >= 7 && p <= 9:
		return 1
	}
	return 0
}

type taskCodec struct{}

func (taskCodec) fromWire(data []byte) (*Canonical, error) {
	var w taskWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("invalid task entity: %w", err)
	}

	status, err := statusFromWire(w.Status)
	if err != nil {
		return nil, err
	}

	task := model.Task{
		Title:       w.Title,
		Description: w.Description,
		Status:      status,
		Priority:    priorityFromWire(w.Priority),
		ProjectID:   w.ProjectID,
		AssigneeID:  w.AssigneeID,
		DueDate:     w.DueDate,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}

	payload, err := model.Encode(task)
	if err != nil {
		return nil, err
	}
	return &Canonical{ID: w.ID, OwnerKey: w.ProjectID, Payload: payload}, nil
}

func (taskCodec) toWire(payload []byte) ([]byte, error) {
	var task model.Task
	if err := model.Decode(payload, &task); err != nil {
		return nil, err
	}

	status, err := statusToWire(task.Status)
	if err != nil {
		return nil, err
	}

	return json.Marshal(taskWire{
		Title:       task.Title,
		Description: task.Description,
		Status:      status,
		Priority:    priorityToWire(task.Priority),
		ProjectID:   task.ProjectID,
		AssigneeID:  task.AssigneeID,
		DueDate:     task.DueDate,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	})
}

type projectCodec struct{}

func (projectCodec) fromWire(data []byte) (*Canonical, error) {
	var w projectWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("invalid project entity: %w", err)
	}

	payload, err := model.Encode(model.Project{
		Name:        w.Name,
		Description: w.Description,
		Color:       w.Color,
		OwnerID:     w.OwnerID,
		Archived:    w.Archived,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	return &Canonical{ID: w.ID, OwnerKey: w.OwnerID, Payload: payload}, nil
}

func (projectCodec) toWire(payload []byte) ([]byte, error) {
	var project model.Project
	if err := model.Decode(payload, &project); err != nil {
		return nil, err
	}

	return json.Marshal(projectWire{
		Name:        project.Name,
		Description: project.Description,
		Color:       project.Color,
		OwnerID:     project.OwnerID,
		Archived:    project.Archived,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	})
}

type userCodec struct{}

func (userCodec) fromWire(data []byte) (*Canonical, error) {
	var w userWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("invalid user entity: %w", err)
	}

	payload, err := model.Encode(model.User{
		Username:  w.Username,
		Email:     w.Email,
		FullName:  w.FullName,
		Role:      w.Role,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	return &Canonical{ID: w.ID, Payload: payload}, nil
}

func (userCodec) toWire(payload []byte) ([]byte, error) {
	var user model.User
	if err := model.Decode(payload, &user); err != nil {
		return nil, err
	}

	return json.Marshal(userWire{
		Username:  user.Username,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	})
}

type notificationCodec struct{}

func (notificationCodec) fromWire(data []byte) (*Canonical, error) {
	var w notificationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("invalid notification entity: %w", err)
	}

	payload, err := model.Encode(model.Notification{
		UserID:    w.UserID,
		Message:   w.Message,
		Kind:      w.Kind,
		Read:      w.Read,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	return &Canonical{ID: w.ID, OwnerKey: w.UserID, Payload: payload}, nil
}

func (notificationCodec) toWire(payload []byte) ([]byte, error) {
	var n model.Notification
	if err := model.Decode(payload, &n); err != nil {
		return nil, err
	}

	return json.Marshal(notificationWire{
		UserID:    n.UserID,
		Message:   n.Message,
		Kind:      n.Kind,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	})
}
