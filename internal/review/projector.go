// Package review turns stored submission values back into labelled, sectioned
// entries for display. It never modifies its inputs.
package review

import (
	"fmt"

	"github.com/google/uuid"

	"onboarding-forms-api/internal/domain"
)

// Resolution records how an entry was matched to a field
type Resolution string

const (
	ResolvedByID    Resolution = "field_id"
	ResolvedByIndex Resolution = "index"
	Unresolved      Resolution = "unresolved"
)

// Entry is one displayable (label, value) pair
type Entry struct {
	Index      int              `json:"field"`
	FieldID    string           `json:"field_id,omitempty"`
	Label      string           `json:"label"`
	Type       domain.FieldType `json:"type,omitempty"`
	Value      string           `json:"value"`
	Resolution Resolution       `json:"resolution"`
}

// Group collects the entries that belong to one section
type Group struct {
	SectionID   string  `json:"section_id,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Entries     []Entry `json:"entries"`
}

// Projection is the display-ready view of a submission
type Projection struct {
	SubmissionID uuid.UUID               `json:"submission_id"`
	FormID       uuid.UUID               `json:"form_id"`
	FormVersion  int                     `json:"form_version"`
	Status       domain.SubmissionStatus `json:"status"`
	Entries      []Entry                 `json:"entries"`
	Sections     []Group                 `json:"sections,omitempty"`
	Unsectioned  []Entry                 `json:"unsectioned,omitempty"`
}

// FallbackLabel is shown for a value whose field cannot be found
func FallbackLabel(index int) string {
	return fmt.Sprintf("Field %d", index)
}

// Project resolves every value of sub against schema.
// A value matches by field id first, then by flattened index; anything left over
// gets FallbackLabel. With an empty schema only the flat entry list is produced.
func Project(sub *domain.Submission, schema domain.Schema) Projection {
	p := Projection{
		SubmissionID: sub.ID,
		FormID:       sub.FormID,
		FormVersion:  sub.FormVersion,
		Status:       sub.Status,
		Entries:      make([]Entry, 0, len(sub.Data)),
	}

	for _, v := range sub.Data {
		p.Entries = append(p.Entries, resolve(schema, v))
	}

	if len(schema) == 0 {
		return p
	}

	bySection := make(map[string][]Entry)
	for _, e := range p.Entries {
		if e.Resolution == Unresolved {
			p.Unsectioned = append(p.Unsectioned, e)
			continue
		}
		si, _, _ := schema.LocateField(e.FieldID)
		bySection[schema[si].ID] = append(bySection[schema[si].ID], e)
	}
	for _, sec := range schema {
		entries, ok := bySection[sec.ID]
		if !ok {
			continue
		}
		p.Sections = append(p.Sections, Group{
			SectionID:   sec.ID,
			Name:        sec.Name,
			Description: sec.Description,
			Entries:     entries,
		})
	}
	return p
}

func resolve(schema domain.Schema, v domain.SubmissionValue) Entry {
	e := Entry{Index: v.Field, FieldID: v.FieldID, Value: v.Value}

	if v.FieldID != "" {
		if f, ok := schema.FindField(v.FieldID); ok {
			e.Label, e.Type, e.Resolution = f.Label, f.Type, ResolvedByID
			return e
		}
	}
	// legacy values carry only the flattened index
	if f, ok := schema.FieldAt(v.Field); ok {
		e.FieldID, e.Label, e.Type, e.Resolution = f.ID, f.Label, f.Type, ResolvedByIndex
		return e
	}

	e.Label, e.Resolution = FallbackLabel(v.Field), Unresolved
	return e
}

// Preview returns at most n entries for list cards
func Preview(p Projection, n int) []Entry {
	if n < 0 || n >= len(p.Entries) {
		return p.Entries
	}
	return p.Entries[:n]
}
