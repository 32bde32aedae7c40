package models

import (
	"encoding/json"
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Project is a named, colored grouping for tasks. Deleting a project never
// deletes its tasks; archiving only hides it from active filtering.
type Project struct {
	ID       string `json:"id" firestore:"id"`
	Name     string `json:"name" firestore:"name"`
	Color    string `json:"color" firestore:"color"`
	Archived bool   `json:"archived" firestore:"archived"`
}

// SwatchColors is the fixed set of selectable project colors.
var SwatchColors = []string{
	"#3b82f6",
	"#10b981",
	"#f59e0b",
	"#ef4444",
	"#8b5cf6",
	"#ec4899",
}

// DefaultProjects returns the three projects seeded on first run. The
// fixed identifiers keep re-seeded installs convergent under cloud sync.
func DefaultProjects() []Project {
	return []Project{
		{ID: "1", Name: "Personal", Color: "#3b82f6"},
		{ID: "2", Name: "Work", Color: "#10b981"},
		{ID: "3", Name: "Shopping", Color: "#f59e0b"},
	}
}

// SortProjects orders the list name-ascending using locale collation.
// The display order is always derived this way, never persisted.
func SortProjects(projects []Project) {
	c := collate.New(language.Und)
	sort.SliceStable(projects, func(i, j int) bool {
		return c.CompareString(projects[i].Name, projects[j].Name) < 0
	})
}

// DecodeProjects parses a serialized project list.
func DecodeProjects(data []byte) ([]Project, error) {
	var projects []Project
	if err := json.Unmarshal(data, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode project list: %w", err)
	}
	return projects, nil
}

// EncodeProjects serializes a project list for storage.
func EncodeProjects(projects []Project) ([]byte, error) {
	if projects == nil {
		projects = []Project{}
	}
	data, err := json.Marshal(projects)
	if err != nil {
		return nil, fmt.Errorf("failed to encode project list: %w", err)
	}
	return data, nil
}

// ProjectFromDocument converts a flat cloud document into a Project.
func ProjectFromDocument(doc map[string]any) (Project, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return Project{}, fmt.Errorf("failed to encode project document: %w", err)
	}
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return Project{}, fmt.Errorf("failed to decode project document: %w", err)
	}
	return p, nil
}

// DocumentFromProject converts a Project into the flat field map stored in
// the cloud collection.
func DocumentFromProject(p Project) (map[string]any, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode project: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode project fields: %w", err)
	}
	return doc, nil
}
