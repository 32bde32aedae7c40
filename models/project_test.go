package models

import (
	"reflect"
	"testing"
)

func TestDefaultProjects(t *testing.T) {
	t.Parallel()

	defaults := DefaultProjects()
	if len(defaults) != 3 {
		t.Fatalf("expected 3 default projects, got %d", len(defaults))
	}

	names := map[string]bool{}
	for _, p := range defaults {
		names[p.Name] = true
		if p.Archived {
			t.Errorf("default project %q should not be archived", p.Name)
		}
		if p.Color == "" {
			t.Errorf("default project %q has no color", p.Name)
		}
	}
	for _, want := range []string{"Personal", "Work", "Shopping"} {
		if !names[want] {
			t.Errorf("missing default project %q", want)
		}
	}
}

func TestSortProjects(t *testing.T) {
	t.Parallel()

	projects := []Project{
		{ID: "1", Name: "Work"},
		{ID: "2", Name: "Personal"},
		{ID: "3", Name: "Shopping"},
	}
	SortProjects(projects)

	got := []string{projects[0].Name, projects[1].Name, projects[2].Name}
	want := []string{"Personal", "Shopping", "Work"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortProjects order = %v, want %v", got, want)
	}
}

func TestEncodeDecodeProjects_RoundTrip(t *testing.T) {
	t.Parallel()

	original := []Project{
		{ID: NewID(), Name: "Garden", Color: "#10b981", Archived: false},
		{ID: NewID(), Name: "Taxes", Color: "#ef4444", Archived: true},
	}

	data, err := EncodeProjects(original)
	if err != nil {
		t.Fatalf("EncodeProjects failed: %v", err)
	}
	decoded, err := DecodeProjects(data)
	if err != nil {
		t.Fatalf("DecodeProjects failed: %v", err)
	}

	if !reflect.DeepEqual(original, decoded) {
		t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", original, decoded)
	}
}

func TestProjectDocument_RoundTrip(t *testing.T) {
	t.Parallel()

	project := Project{ID: "p1", Name: "Reading", Color: "#8b5cf6", Archived: false}

	doc, err := DocumentFromProject(project)
	if err != nil {
		t.Fatalf("DocumentFromProject failed: %v", err)
	}
	back, err := ProjectFromDocument(doc)
	if err != nil {
		t.Fatalf("ProjectFromDocument failed: %v", err)
	}

	if !reflect.DeepEqual(project, back) {
		t.Errorf("document round trip mismatch:\nwant %+v\ngot  %+v", project, back)
	}
}
