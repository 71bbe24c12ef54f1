package types

import (
	"errors"
	"fmt"
	"strings"
)

// Specification -------------------------------------------------------------------

type ProjectInfo struct {
	Title        string   `json:"title"`
	Domain       string   `json:"domain"`
	TargetUsers  []string `json:"targetUsers"`
	PrimaryGoals []string `json:"primaryGoals"`
}

type Page struct {
	Name          string   `json:"name"`
	Purpose       string   `json:"purpose"`
	KeyComponents []string `json:"keyComponents"`
}

type UIRequirements struct {
	Pages            []Page   `json:"pages"`
	DesignPrinciples []string `json:"designPrinciples"`
	Interactions     []string `json:"interactions"`
}

type TechnicalSpecs struct {
	Responsive     bool     `json:"responsive"`
	Accessibility  string   `json:"accessibility"`
	BrowserSupport []string `json:"browserSupport"`
	Frameworks     []string `json:"frameworks"`
}

// ExpandedSpecification is produced once by the expansion stage and afterwards
// changed only through copy-on-write operations (typed setters, refinement
// patches). A refined specification has the same shape.
type ExpandedSpecification struct {
	ProjectInfo    ProjectInfo    `json:"projectInfo"`
	UIRequirements UIRequirements `json:"uiRequirements"`
	TechnicalSpecs TechnicalSpecs `json:"technicalSpecs"`
}

// Validate asserts completeness: every field must be present and non-empty.
func (s ExpandedSpecification) Validate() error {
	var missing []string
	check := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}
	check(nonBlank(s.ProjectInfo.Title), "projectInfo.title")
	check(nonBlank(s.ProjectInfo.Domain), "projectInfo.domain")
	check(nonEmptyList(s.ProjectInfo.TargetUsers), "projectInfo.targetUsers")
	check(nonEmptyList(s.ProjectInfo.PrimaryGoals), "projectInfo.primaryGoals")
	check(len(s.UIRequirements.Pages) > 0, "uiRequirements.pages")
	for i, p := range s.UIRequirements.Pages {
		check(nonBlank(p.Name), fmt.Sprintf("uiRequirements.pages[%d].name", i))
		check(nonBlank(p.Purpose), fmt.Sprintf("uiRequirements.pages[%d].purpose", i))
		check(nonEmptyList(p.KeyComponents), fmt.Sprintf("uiRequirements.pages[%d].keyComponents", i))
	}
	check(nonEmptyList(s.UIRequirements.DesignPrinciples), "uiRequirements.designPrinciples")
	check(nonEmptyList(s.UIRequirements.Interactions), "uiRequirements.interactions")
	check(nonBlank(s.TechnicalSpecs.Accessibility), "technicalSpecs.accessibility")
	check(nonEmptyList(s.TechnicalSpecs.BrowserSupport), "technicalSpecs.browserSupport")
	check(nonEmptyList(s.TechnicalSpecs.Frameworks), "technicalSpecs.frameworks")
	if len(missing) > 0 {
		return fmt.Errorf("specification incomplete: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Clone returns a structurally independent deep copy.
func (s ExpandedSpecification) Clone() ExpandedSpecification {
	out := s
	out.ProjectInfo.TargetUsers = cloneStrings(s.ProjectInfo.TargetUsers)
	out.ProjectInfo.PrimaryGoals = cloneStrings(s.ProjectInfo.PrimaryGoals)
	if s.UIRequirements.Pages != nil {
		out.UIRequirements.Pages = make([]Page, len(s.UIRequirements.Pages))
		for i, p := range s.UIRequirements.Pages {
			p.KeyComponents = cloneStrings(p.KeyComponents)
			out.UIRequirements.Pages[i] = p
		}
	}
	out.UIRequirements.DesignPrinciples = cloneStrings(s.UIRequirements.DesignPrinciples)
	out.UIRequirements.Interactions = cloneStrings(s.UIRequirements.Interactions)
	out.TechnicalSpecs.BrowserSupport = cloneStrings(s.TechnicalSpecs.BrowserSupport)
	out.TechnicalSpecs.Frameworks = cloneStrings(s.TechnicalSpecs.Frameworks)
	return out
}

func nonBlank(s string) bool { return strings.TrimSpace(s) != "" }

func nonEmptyList(items []string) bool {
	if len(items) == 0 {
		return false
	}
	for _, it := range items {
		if !nonBlank(it) {
			return false
		}
	}
	return true
}

// Typed setters -------------------------------------------------------------------
//
// Each setter copies only the subtree it replaces; untouched slices are shared
// with the receiver. All writers in this module are copy-on-write, so sharing
// never leaks a mutation back into an older value.

func (s ExpandedSpecification) WithTitle(v string) ExpandedSpecification {
	s.ProjectInfo.Title = v
	return s
}

func (s ExpandedSpecification) WithDomain(v string) ExpandedSpecification {
	s.ProjectInfo.Domain = v
	return s
}

func (s ExpandedSpecification) WithTargetUsers(v []string) ExpandedSpecification {
	s.ProjectInfo.TargetUsers = cloneStrings(v)
	return s
}

func (s ExpandedSpecification) WithPrimaryGoals(v []string) ExpandedSpecification {
	s.ProjectInfo.PrimaryGoals = cloneStrings(v)
	return s
}

// WithPage replaces the page at index i. Out-of-range indexes return the
// receiver unchanged and false.
func (s ExpandedSpecification) WithPage(i int, p Page) (ExpandedSpecification, bool) {
	if i < 0 || i >= len(s.UIRequirements.Pages) {
		return s, false
	}
	pages := make([]Page, len(s.UIRequirements.Pages))
	copy(pages, s.UIRequirements.Pages)
	p.KeyComponents = cloneStrings(p.KeyComponents)
	pages[i] = p
	s.UIRequirements.Pages = pages
	return s, true
}

func (s ExpandedSpecification) WithDesignPrinciples(v []string) ExpandedSpecification {
	s.UIRequirements.DesignPrinciples = cloneStrings(v)
	return s
}

func (s ExpandedSpecification) WithInteractions(v []string) ExpandedSpecification {
	s.UIRequirements.Interactions = cloneStrings(v)
	return s
}

func (s ExpandedSpecification) WithResponsive(v bool) ExpandedSpecification {
	s.TechnicalSpecs.Responsive = v
	return s
}

func (s ExpandedSpecification) WithAccessibility(v string) ExpandedSpecification {
	s.TechnicalSpecs.Accessibility = v
	return s
}

func (s ExpandedSpecification) WithBrowserSupport(v []string) ExpandedSpecification {
	s.TechnicalSpecs.BrowserSupport = cloneStrings(v)
	return s
}

func (s ExpandedSpecification) WithFrameworks(v []string) ExpandedSpecification {
	s.TechnicalSpecs.Frameworks = cloneStrings(v)
	return s
}

// Manual edits --------------------------------------------------------------------

// SpecField names one editable field. The set is closed; there is no generic
// path walking.
type SpecField string

const (
	FieldTitle            SpecField = "title"
	FieldDomain           SpecField = "domain"
	FieldTargetUsers      SpecField = "targetUsers"
	FieldPrimaryGoals     SpecField = "primaryGoals"
	FieldPage             SpecField = "page"
	FieldDesignPrinciples SpecField = "designPrinciples"
	FieldInteractions     SpecField = "interactions"
	FieldResponsive       SpecField = "responsive"
	FieldAccessibility    SpecField = "accessibility"
	FieldBrowserSupport   SpecField = "browserSupport"
	FieldFrameworks       SpecField = "frameworks"
)

var (
	ErrUnknownField = errors.New("types: unknown specification field")
	ErrPageIndex    = errors.New("types: page index out of range")
)

// Edit carries the new value for one field. Only the member matching Field is read.
type Edit struct {
	Field     SpecField `json:"field"`
	Text      string    `json:"text,omitempty"`
	List      []string  `json:"list,omitempty"`
	Bool      bool      `json:"bool,omitempty"`
	PageIndex int       `json:"pageIndex,omitempty"`
	Page      *Page     `json:"page,omitempty"`
}

// ApplyEdit dispatches an Edit onto the matching typed setter.
func ApplyEdit(s ExpandedSpecification, e Edit) (ExpandedSpecification, error) {
	switch e.Field {
	case FieldTitle:
		return s.WithTitle(e.Text), nil
	case FieldDomain:
		return s.WithDomain(e.Text), nil
	case FieldTargetUsers:
		return s.WithTargetUsers(e.List), nil
	case FieldPrimaryGoals:
		return s.WithPrimaryGoals(e.List), nil
	case FieldPage:
		if e.Page == nil {
			return s, fmt.Errorf("%w: page edit without page", ErrUnknownField)
		}
		out, ok := s.WithPage(e.PageIndex, *e.Page)
		if !ok {
			return s, fmt.Errorf("%w: %d", ErrPageIndex, e.PageIndex)
		}
		return out, nil
	case FieldDesignPrinciples:
		return s.WithDesignPrinciples(e.List), nil
	case FieldInteractions:
		return s.WithInteractions(e.List), nil
	case FieldResponsive:
		return s.WithResponsive(e.Bool), nil
	case FieldAccessibility:
		return s.WithAccessibility(e.Text), nil
	case FieldBrowserSupport:
		return s.WithBrowserSupport(e.List), nil
	case FieldFrameworks:
		return s.WithFrameworks(e.List), nil
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownField, e.Field)
	}
}
