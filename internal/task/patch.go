package task

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Patch is a partial update. Nil fields are left untouched. There is no
// field for ID or CreatedAt, so those cannot be changed through a patch.
type Patch struct {
	Title       *string
	Description *string
	Priority    *Priority
	// DueDate set to a pointer to "" clears the due date.
	DueDate     *string
	IsCompleted *bool
}

// IsEmpty reports whether the patch carries no fields.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil &&
		p.DueDate == nil && p.IsCompleted == nil
}

// UnmarshalJSON decodes only the known mutable fields. Keys such as id or
// createdAt are ignored. A null dueDate clears it.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out Patch
	if v, ok := raw["title"]; ok && !isNull(v) {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return &ValidationError{Field: "title", Err: fmt.Errorf("must be a string")}
		}
		out.Title = &s
	}
	if v, ok := raw["description"]; ok {
		s := ""
		if !isNull(v) {
			if err := json.Unmarshal(v, &s); err != nil {
				return &ValidationError{Field: "description", Err: fmt.Errorf("must be a string")}
			}
		}
		out.Description = &s
	}
	if v, ok := raw["priority"]; ok && !isNull(v) {
		var pr Priority
		if err := json.Unmarshal(v, &pr); err != nil {
			return &ValidationError{Field: "priority", Err: err}
		}
		out.Priority = &pr
	}
	if v, ok := raw["dueDate"]; ok {
		s := ""
		if !isNull(v) {
			if err := json.Unmarshal(v, &s); err != nil {
				return &ValidationError{Field: "dueDate", Err: fmt.Errorf("must be a string")}
			}
		}
		out.DueDate = &s
	}
	if v, ok := raw["isCompleted"]; ok && !isNull(v) {
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return &ValidationError{Field: "isCompleted", Err: fmt.Errorf("must be a boolean")}
		}
		out.IsCompleted = &b
	}

	*p = out
	return nil
}

// MarshalJSON writes only the fields that are set.
func (p Patch) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, 5)
	if p.Title != nil {
		m["title"] = *p.Title
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.Priority != nil {
		m["priority"] = *p.Priority
	}
	if p.DueDate != nil {
		if *p.DueDate == "" {
			m["dueDate"] = nil
		} else {
			m["dueDate"] = *p.DueDate
		}
	}
	if p.IsCompleted != nil {
		m["isCompleted"] = *p.IsCompleted
	}
	return json.Marshal(m)
}

// Apply merges the patch into t. The task is left unchanged when the
// patch is invalid.
func (p Patch) Apply(t *Task) error {
	next := *t
	if p.Title != nil {
		if strings.TrimSpace(*p.Title) == "" {
			return &ValidationError{Field: "title", Err: ErrRequired}
		}
		next.Title = *p.Title
	}
	if p.Description != nil {
		next.Description = *p.Description
	}
	if p.Priority != nil {
		if !p.Priority.Valid() {
			return &ValidationError{Field: "priority", Err: fmt.Errorf("invalid priority %q", *p.Priority)}
		}
		next.Priority = *p.Priority
	}
	if p.DueDate != nil {
		due, err := NormalizeDate(*p.DueDate)
		if err != nil {
			return &ValidationError{Field: "dueDate", Err: err}
		}
		next.DueDate = due
	}
	if p.IsCompleted != nil {
		next.IsCompleted = *p.IsCompleted
	}
	*t = next
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
