package api

import (
	"encoding/json"
	"time"

	"tasklist/cmd/identity"
	"tasklist/cmd/internal/todo"
)

type registerRequest struct {
	Name       string `json:"name"`
	Password   string `json:"password"`
	Profession string `json:"profession"`
}

// loginRequest tolerates profession so clients can reuse the register payload.
type loginRequest struct {
	Name       string  `json:"name"`
	Password   string  `json:"password"`
	Profession *string `json:"profession,omitempty"`
}

// taskRequest accepts id and owner_id so a client may send back a full
// record; both are discarded.
type taskRequest struct {
	ID          json.RawMessage `json:"id,omitempty"`
	OwnerID     json.RawMessage `json:"owner_id,omitempty"`
	Description *string         `json:"description"`
	DueDate     *string         `json:"due_date"`
}

func (r taskRequest) input() (todo.Input, bool) {
	if r.Description == nil || r.DueDate == nil {
		return todo.Input{}, false
	}
	return todo.Input{Description: *r.Description, DueDate: *r.DueDate}, true
}

type accountResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Profession string    `json:"profession"`
	CreatedAt  time.Time `json:"created_at"`
}

type taskResponse struct {
	ID          int64  `json:"id"`
	OwnerID     int64  `json:"owner_id"`
	Description string `json:"description"`
	DueDate     string `json:"due_date"`
}

func toAccountResponse(a identity.Account) accountResponse {
	return accountResponse{
		ID:         a.ID,
		Name:       a.Name,
		Profession: a.Profession,
		CreatedAt:  a.CreatedAt,
	}
}

func toTaskResponse(it todo.Item) taskResponse {
	return taskResponse{
		ID:          it.ID,
		OwnerID:     it.OwnerID,
		Description: it.Description,
		DueDate:     it.DueDate,
	}
}

func toTaskResponses(items []todo.Item) []taskResponse {
	out := make([]taskResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toTaskResponse(it))
	}
	return out
}
