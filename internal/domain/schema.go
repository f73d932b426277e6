package domain

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// FieldType is the closed set of input kinds a form field can take
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeNumber   FieldType = "number"
	FieldTypeEmail    FieldType = "email"
	FieldTypePhone    FieldType = "phone"
	FieldTypeDate     FieldType = "date"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeFile     FieldType = "file"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeDropdown FieldType = "dropdown"
	FieldTypeSelect   FieldType = "select"
)

var fieldTypeLabels = map[FieldType]string{
	FieldTypeText:     "Text Input",
	FieldTypeNumber:   "Number",
	FieldTypeEmail:    "Email",
	FieldTypePhone:    "Phone",
	FieldTypeDate:     "Date",
	FieldTypeTextarea: "Long Text",
	FieldTypeFile:     "File Upload",
	FieldTypeCheckbox: "Checkbox",
	FieldTypeRadio:    "Radio Group",
	FieldTypeDropdown: "Dropdown",
	FieldTypeSelect:   "Dropdown",
}

// IsValid reports whether t is one of the known field types
func (t FieldType) IsValid() bool {
	_, ok := fieldTypeLabels[t]
	return ok
}

// Label returns the human readable name shown in the builder palette
func (t FieldType) Label() string {
	if l, ok := fieldTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

// IsChoice reports whether the field picks a single value from its options
func (t FieldType) IsChoice() bool {
	return t == FieldTypeRadio || t == FieldTypeDropdown || t == FieldTypeSelect
}

// AllFieldTypes returns the field types in palette order
func AllFieldTypes() []FieldType {
	return []FieldType{
		FieldTypeText, FieldTypeNumber, FieldTypeEmail, FieldTypePhone, FieldTypeDate,
		FieldTypeDropdown, FieldTypeCheckbox, FieldTypeRadio, FieldTypeFile, FieldTypeTextarea,
	}
}

// FieldOption is one choice of a choice-type field.
// On the wire it is either a bare string or a {label, value} object.
type FieldOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// StringOption builds an option whose label and value are the same text
func StringOption(s string) FieldOption {
	return FieldOption{Label: s, Value: s}
}

func (o FieldOption) MarshalJSON() ([]byte, error) {
	if o.Label == o.Value {
		return json.Marshal(o.Value)
	}
	type plain FieldOption
	return json.Marshal(plain(o))
}

func (o *FieldOption) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*o = StringOption(s)
		return nil
	}

	type plain FieldOption
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("field option must be a string or {label, value}: %w", err)
	}
	if p.Value == "" {
		p.Value = p.Label
	}
	if p.Label == "" {
		p.Label = p.Value
	}
	*o = FieldOption(p)
	return nil
}

// Field is one typed input within a section
type Field struct {
	ID          string        `json:"id"`
	Label       string        `json:"label"`
	Type        FieldType     `json:"type"`
	Placeholder *string       `json:"placeholder,omitempty"`
	Required    bool          `json:"required"`
	Options     []FieldOption `json:"options,omitempty"`
	Accept      string        `json:"accept,omitempty"`
	Multiple    bool          `json:"multiple,omitempty"`
}

// HasOption reports whether v matches the value of one of the field's options
func (f Field) HasOption(v string) bool {
	for _, o := range f.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

func (f Field) clone() Field {
	c := f
	if f.Placeholder != nil {
		p := *f.Placeholder
		c.Placeholder = &p
	}
	if f.Options != nil {
		c.Options = append([]FieldOption(nil), f.Options...)
	}
	return c
}

// Section is an ordered, named group of fields. One section is one wizard step.
type Section struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Fields      []Field `json:"fields"`
}

// Schema is the ordered list of sections of a form.
// Section order then field order defines the flattened field index.
type Schema []Section

// Clone returns a deep copy so engines never share backing arrays with their input
func (s Schema) Clone() Schema {
	if s == nil {
		return nil
	}
	out := make(Schema, len(s))
	for i, sec := range s {
		out[i] = sec
		out[i].Fields = make([]Field, len(sec.Fields))
		for j, f := range sec.Fields {
			out[i].Fields[j] = f.clone()
		}
	}
	return out
}

// Flatten concatenates every section's fields in section order, then field order.
// Position p in the result has flattened index p+1.
func (s Schema) Flatten() []Field {
	fields := make([]Field, 0, s.FieldCount())
	for _, sec := range s {
		fields = append(fields, sec.Fields...)
	}
	return fields
}

// FieldCount returns the number of fields across all sections
func (s Schema) FieldCount() int {
	n := 0
	for _, sec := range s {
		n += len(sec.Fields)
	}
	return n
}

// FieldAt resolves a 1-based flattened index. ok is false when the index is out of range.
func (s Schema) FieldAt(index int) (Field, bool) {
	if index < 1 {
		return Field{}, false
	}
	remaining := index
	for _, sec := range s {
		if remaining <= len(sec.Fields) {
			return sec.Fields[remaining-1], true
		}
		remaining -= len(sec.Fields)
	}
	return Field{}, false
}

// IndexOf returns the 1-based flattened index of the field with the given id, or 0
func (s Schema) IndexOf(fieldID string) int {
	index := 0
	for _, sec := range s {
		for _, f := range sec.Fields {
			index++
			if f.ID == fieldID {
				return index
			}
		}
	}
	return 0
}

// LocateField returns the section and position of a field by id
func (s Schema) LocateField(fieldID string) (sectionIdx, fieldIdx int, ok bool) {
	for i, sec := range s {
		for j, f := range sec.Fields {
			if f.ID == fieldID {
				return i, j, true
			}
		}
	}
	return -1, -1, false
}

// FindField returns the field with the given id
func (s Schema) FindField(fieldID string) (Field, bool) {
	i, j, ok := s.LocateField(fieldID)
	if !ok {
		return Field{}, false
	}
	return s[i].Fields[j], true
}

// SectionIndex returns the position of the section with the given id, or -1
func (s Schema) SectionIndex(sectionID string) int {
	for i, sec := range s {
		if sec.ID == sectionID {
			return i
		}
	}
	return -1
}

// Value implements driver.Valuer for the jsonb column
func (s Schema) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for the jsonb column
func (s *Schema) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Schema", value)
	}
	if len(data) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(data, s)
}
