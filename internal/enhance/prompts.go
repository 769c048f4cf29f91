package enhance

import (
	"strings"

	"github.com/steveyegge/lasso/internal/types"
)

type promptData struct {
	Title        string
	Type         string
	State        string
	Tags         string
	AssignedTo   string
	DaysInactive int
	HasInactive  bool
	Format       string
	Notes        string
}

func (g *Generator) renderPrompt(item types.WorkItemSnapshot, kind types.EnhanceKind, style types.EnhanceStyle) (string, error) {
	tmpl, ok := g.templates[kind]
	if !ok {
		return "", &UnsupportedKindError{Kind: kind}
	}

	data := promptData{
		Title:  item.Title,
		Type:   item.Type,
		State:  item.State,
		Tags:   strings.Join(item.Tags, ", "),
		Format: style.Format,
		Notes:  style.Notes,
	}
	if item.AssignedTo != nil {
		data.AssignedTo = *item.AssignedTo
	}
	if item.DaysInactive != nil {
		data.DaysInactive = *item.DaysInactive
		data.HasInactive = true
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// UnsupportedKindError reports an enhancement kind with no prompt template.
type UnsupportedKindError struct {
	Kind types.EnhanceKind
}

func (e *UnsupportedKindError) Error() string {
	return "no prompt template for enhancement kind " + string(e.Kind)
}

var promptTemplates = map[types.EnhanceKind]string{
	types.EnhanceDescription: descriptionPromptTemplate,
	types.EnhanceCriteria:    criteriaPromptTemplate,
	types.EnhanceEstimate:    estimatePromptTemplate,
}

const descriptionPromptTemplate = `You are writing a description for a work item in a project tracker. Write only the description text, nothing else - no preamble, no commentary.

**Title:** {{.Title}}
**Type:** {{.Type}}
**State:** {{.State}}
{{if .Tags}}**Tags:** {{.Tags}}
{{end}}{{if .AssignedTo}}**Assigned to:** {{.AssignedTo}}
{{end}}{{if .HasInactive}}**Days since last change:** {{.DaysInactive}}
{{end}}
{{if eq .Format "detailed"}}Write a detailed description: context, scope, and what done looks like. Several short paragraphs are fine.{{else}}Write a concise description: 2-4 sentences covering what this item is about and why it matters.{{end}}
{{if .Notes}}
Additional guidance from the requester:
{{.Notes}}
{{end}}`

const criteriaPromptTemplate = `You are writing acceptance criteria for a work item in a project tracker. Write only the criteria, nothing else - no preamble, no commentary.

**Title:** {{.Title}}
**Type:** {{.Type}}
**State:** {{.State}}
{{if .Tags}}**Tags:** {{.Tags}}
{{end}}
{{if eq .Format "gherkin"}}Write the criteria as Given/When/Then scenarios, one scenario per behavior.{{else}}Write the criteria as a markdown checklist, one verifiable statement per line.{{end}}

Keep each criterion testable and unambiguous. 3-7 criteria is the right range.
{{if .Notes}}
Additional guidance from the requester:
{{.Notes}}
{{end}}`

const estimatePromptTemplate = `You are estimating effort for a work item in a project tracker. Respond with ONLY a number, no units, no explanation.

**Title:** {{.Title}}
**Type:** {{.Type}}
{{if .Tags}}**Tags:** {{.Tags}}
{{end}}
{{if eq .Format "hours"}}Estimate in hours of focused work. Round to a whole number.{{else}}Estimate in story points on the Fibonacci scale (1, 2, 3, 5, 8, 13, 21). Respond with one of those values.{{end}}
{{if .Notes}}
Additional guidance from the requester:
{{.Notes}}
{{end}}`
