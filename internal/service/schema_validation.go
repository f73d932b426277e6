package service

import (
	"fmt"
	"strings"

	"onboarding-forms-api/internal/domain"
	"onboarding-forms-api/internal/response"
)

// SchemaIssue is one structural problem in a submitted schema
type SchemaIssue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// CheckSchema reports structural problems: sections and fields need non-empty unique ids,
// fields need a label and a known type, and there must be at least one section.
func CheckSchema(schema domain.Schema) []SchemaIssue {
	var issues []SchemaIssue
	if len(schema) == 0 {
		return []SchemaIssue{{Path: "schema", Message: "schema must have at least one section"}}
	}

	sectionIDs := make(map[string]bool, len(schema))
	fieldIDs := make(map[string]bool)
	for i, sec := range schema {
		path := fmt.Sprintf("schema[%d]", i)
		switch {
		case strings.TrimSpace(sec.ID) == "":
			issues = append(issues, SchemaIssue{path + ".id", "section id is required"})
		case sectionIDs[sec.ID]:
			issues = append(issues, SchemaIssue{path + ".id", fmt.Sprintf("duplicate section id %q", sec.ID)})
		}
		sectionIDs[sec.ID] = true

		for j, f := range sec.Fields {
			fpath := fmt.Sprintf("%s.fields[%d]", path, j)
			switch {
			case strings.TrimSpace(f.ID) == "":
				issues = append(issues, SchemaIssue{fpath + ".id", "field id is required"})
			case fieldIDs[f.ID]:
				issues = append(issues, SchemaIssue{fpath + ".id", fmt.Sprintf("duplicate field id %q", f.ID)})
			}
			fieldIDs[f.ID] = true

			if strings.TrimSpace(f.Label) == "" {
				issues = append(issues, SchemaIssue{fpath + ".label", "field label is required"})
			}
			if !f.Type.IsValid() {
				issues = append(issues, SchemaIssue{fpath + ".type", fmt.Sprintf("unknown field type %q", f.Type)})
			}
		}
	}
	return issues
}

func validateSchema(schema domain.Schema) *response.AppError {
	if issues := CheckSchema(schema); len(issues) > 0 {
		return response.NewFieldValidationError("Invalid form schema", issues)
	}
	return nil
}
