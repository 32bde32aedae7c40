package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskwise/taskwise/priority"
)

// Task is a single to-do item. ProjectID is empty for unassigned tasks;
// PriorityScore is always derived from Attributes and never set directly.
type Task struct {
	ID            string              `json:"id" firestore:"id"`
	Text          string              `json:"text" firestore:"text"`
	Completed     bool                `json:"completed" firestore:"completed"`
	ProjectID     string              `json:"projectId" firestore:"projectId"`
	Attributes    priority.Attributes `json:"attributes" firestore:"attributes"`
	PriorityScore float64             `json:"priorityScore" firestore:"priorityScore"`
	TimeSpent     int                 `json:"timeSpent" firestore:"timeSpent"`
}

// NewID returns a fresh entity identifier. IDs are never reused.
func NewID() string {
	return uuid.New().String()
}

// Rescore recomputes the derived priority score from the task's attributes.
func (t *Task) Rescore() {
	t.PriorityScore = priority.Score(t.Attributes)
}

// taskRecord mirrors Task with pointer fields so a decoder can tell a
// missing field apart from a zero value. Records written before
// attributes, scores, and time tracking existed lack those fields.
type taskRecord struct {
	ID            string               `json:"id"`
	Text          string               `json:"text"`
	Completed     bool                 `json:"completed"`
	ProjectID     *string              `json:"projectId"`
	Attributes    *priority.Attributes `json:"attributes"`
	PriorityScore *float64             `json:"priorityScore"`
	TimeSpent     *int                 `json:"timeSpent"`
}

// normalize converts a raw record into a Task, backfilling defaults for
// legacy fields. Normalizing an already-complete record is a no-op.
func (r taskRecord) normalize() Task {
	t := Task{
		ID:        r.ID,
		Text:      r.Text,
		Completed: r.Completed,
	}
	if r.ProjectID != nil {
		t.ProjectID = *r.ProjectID
	}

	if r.Attributes != nil {
		t.Attributes = *r.Attributes
	} else {
		t.Attributes = priority.DefaultAttributes()
	}

	if r.PriorityScore != nil && r.Attributes != nil {
		t.PriorityScore = *r.PriorityScore
	} else {
		t.PriorityScore = priority.Score(t.Attributes)
	}

	if r.TimeSpent != nil && *r.TimeSpent > 0 {
		t.TimeSpent = *r.TimeSpent
	}

	return t
}

// DecodeTasks parses a serialized task list, tolerating legacy records.
func DecodeTasks(data []byte) ([]Task, error) {
	var records []taskRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode task list: %w", err)
	}

	tasks := make([]Task, 0, len(records))
	for _, r := range records {
		tasks = append(tasks, r.normalize())
	}
	return tasks, nil
}

// EncodeTasks serializes a task list for storage.
func EncodeTasks(tasks []Task) ([]byte, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task list: %w", err)
	}
	return data, nil
}

// TaskFromDocument converts a flat cloud document into a Task, applying
// the same backfill rules as the local decoder.
func TaskFromDocument(doc map[string]any) (Task, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return Task{}, fmt.Errorf("failed to encode task document: %w", err)
	}
	var r taskRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return Task{}, fmt.Errorf("failed to decode task document: %w", err)
	}
	return r.normalize(), nil
}

// DocumentFromTask converts a Task into the flat field map stored in the
// cloud collection.
func DocumentFromTask(t Task) (map[string]any, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode task fields: %w", err)
	}
	return doc, nil
}
