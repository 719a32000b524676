package insights

import (
	"fmt"
	"strings"

	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/gartstein/salaries/internal/salary/models"
)

// All is the selector value that disables a filter.
const All = "all"

// ExperienceRange is the coarse experience selector of the salary table.
type ExperienceRange string

const (
	RangeAll    ExperienceRange = All
	RangeUpTo2  ExperienceRange = "0-2"
	Range3To5   ExperienceRange = "3-5"
	RangeAbove5 ExperienceRange = "5+"
)

// ParseExperienceRange accepts "", "all", "0-2", "3-5" and "5+".
func ParseExperienceRange(s string) (ExperienceRange, error) {
	switch r := ExperienceRange(strings.TrimSpace(s)); r {
	case "":
		return RangeAll, nil
	case RangeAll, RangeUpTo2, Range3To5, RangeAbove5:
		return r, nil
	}
	return "", &e.ValidationError{Field: "experience", Msg: fmt.Sprintf("unknown experience range %q", s)}
}

func (r ExperienceRange) contains(years int) bool {
	switch r {
	case RangeUpTo2:
		return years <= 2
	case Range3To5:
		return years >= 3 && years <= 5
	case RangeAbove5:
		return years > 5
	default:
		return true
	}
}

// Criteria is a conjunction of independent predicates. Zero values match
// everything.
type Criteria struct {
	// Search is matched case-insensitively against designation and company.
	Search          string
	Location        string
	ExperienceRange ExperienceRange
	Level           string
	// Kind narrows to salaries or stories in Filter; empty keeps both.
	Kind models.Kind
}

func isAll(s string) bool {
	return s == "" || strings.EqualFold(s, All)
}

// Match reports whether rec satisfies every predicate.
func (c Criteria) Match(rec *models.SalaryRecord) bool {
	if rec == nil {
		return false
	}
	if q := strings.ToLower(c.Search); q != "" {
		if !strings.Contains(strings.ToLower(rec.Designation), q) &&
			!strings.Contains(strings.ToLower(rec.CompanyName), q) {
			return false
		}
	}
	if !isAll(c.Location) && rec.Location != c.Location {
		return false
	}
	if !c.ExperienceRange.contains(rec.Experience) {
		return false
	}
	if !isAll(c.Level) && string(rec.ExperienceLevel) != c.Level {
		return false
	}
	return true
}

// Filter returns the records of kind c.Kind matching c, preserving order.
// The input slice is not modified.
func Filter(recs []*models.SalaryRecord, c Criteria) []*models.SalaryRecord {
	out := make([]*models.SalaryRecord, 0, len(recs))
	for _, r := range FilterByKind(recs, c.Kind) {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	return out
}

// FilterByKind keeps only records of the given kind; an empty kind keeps all.
func FilterByKind(recs []*models.SalaryRecord, kind models.Kind) []*models.SalaryRecord {
	out := make([]*models.SalaryRecord, 0, len(recs))
	for _, r := range recs {
		if r != nil && (kind == "" || r.Kind == kind) {
			out = append(out, r)
		}
	}
	return out
}

// SearchModeration is the moderation-queue search: a case-insensitive
// substring match over company, designation and department.
func SearchModeration(recs []*models.SalaryRecord, query string) []*models.SalaryRecord {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*models.SalaryRecord, 0, len(recs))
	for _, r := range recs {
		if r == nil {
			continue
		}
		hay := strings.ToLower(r.CompanyName + " " + r.Designation + " " + r.Department)
		if strings.Contains(hay, q) {
			out = append(out, r)
		}
	}
	return out
}
