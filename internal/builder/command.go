package builder

import (
	"errors"
	"fmt"

	"onboarding-forms-api/internal/domain"
)

// CommandType names one builder operation
type CommandType string

const (
	CommandAddSection    CommandType = "add_section"
	CommandRemoveSection CommandType = "remove_section"
	CommandUpdateSection CommandType = "update_section"
	CommandAddField      CommandType = "add_field"
	CommandUpdateField   CommandType = "update_field"
	CommandRemoveField   CommandType = "remove_field"
	CommandMoveField     CommandType = "move_field"
)

// ErrUnknownCommand is returned for a command type Apply does not recognize
var ErrUnknownCommand = errors.New("unknown builder command")

// Command is a serializable builder operation. Which fields are read depends on Type.
type Command struct {
	Type            CommandType      `json:"type" binding:"required"`
	SectionID       string           `json:"section_id,omitempty"`
	SectionIndex    *int             `json:"section_index,omitempty"`
	FieldID         string           `json:"field_id,omitempty"`
	TargetSectionID string           `json:"target_section_id,omitempty"`
	FieldType       domain.FieldType `json:"field_type,omitempty"`
	Field           *FieldUpdate     `json:"field,omitempty"`
	Section         *SectionUpdate   `json:"section,omitempty"`
}

// CommandError reports which command of a batch failed
type CommandError struct {
	Index int
	Type  CommandType
	Err   error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Apply runs the commands in order. It is all-or-nothing: on the first failure
// the original form is left untouched and a *CommandError is returned.
// Unlike the bare RemoveSection operation, a remove_section command refuses to drop the last section.
func (b *Builder) Apply(form *domain.Form, cmds ...Command) (*domain.Form, error) {
	cur := form
	for i, cmd := range cmds {
		next, err := b.applyOne(cur, cmd)
		if err != nil {
			return nil, &CommandError{Index: i, Type: cmd.Type, Err: err}
		}
		cur = next
	}
	if cur == form {
		cur = form.Clone()
	}
	return cur, nil
}

func (b *Builder) applyOne(form *domain.Form, cmd Command) (*domain.Form, error) {
	switch cmd.Type {
	case CommandAddSection:
		out, err := b.AddSection(form)
		if err != nil || cmd.Section == nil {
			return out, err
		}
		return b.UpdateSection(out, out.Schema[len(out.Schema)-1].ID, *cmd.Section)

	case CommandRemoveSection:
		idx := -1
		if cmd.SectionIndex != nil {
			idx = *cmd.SectionIndex
		} else if cmd.SectionID != "" {
			idx = form.Schema.SectionIndex(cmd.SectionID)
		}
		if !CanRemoveSection(form) {
			return nil, ErrLastSection
		}
		return b.RemoveSection(form, idx)

	case CommandUpdateSection:
		if cmd.Section == nil {
			return form, nil
		}
		return b.UpdateSection(form, cmd.SectionID, *cmd.Section)

	case CommandAddField:
		out, err := b.AddField(form, cmd.SectionID, cmd.FieldType)
		if err != nil || cmd.Field == nil {
			return out, err
		}
		fields := out.Schema[out.Schema.SectionIndex(cmd.SectionID)].Fields
		return b.UpdateField(out, fields[len(fields)-1].ID, *cmd.Field)

	case CommandUpdateField:
		if cmd.Field == nil {
			return form, nil
		}
		return b.UpdateField(form, cmd.FieldID, *cmd.Field)

	case CommandRemoveField:
		sectionID := cmd.SectionID
		if sectionID == "" {
			si, _, ok := form.Schema.LocateField(cmd.FieldID)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrFieldNotFound, cmd.FieldID)
			}
			sectionID = form.Schema[si].ID
		}
		return b.RemoveField(form, sectionID, cmd.FieldID)

	case CommandMoveField:
		return b.MoveFieldToSection(form, cmd.FieldID, cmd.TargetSectionID)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Type)
}
