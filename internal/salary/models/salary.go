// Package models defines the core domain model for salary and salary-story
// submissions, their enumerations and the partial-update shape.
package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/google/uuid"
)

// Kind discriminates plain salary entries from narrative salary stories.
type Kind string

const (
	KindSalary Kind = "salary"
	KindStory  Kind = "story"
)

// ModerationState is the admin-approval stage of a submission.
type ModerationState string

const (
	StatePending  ModerationState = "pending"
	StateApproved ModerationState = "approved"
	StateRejected ModerationState = "rejected"
)

// ExperienceLevel is the self-reported seniority of the submitter.
type ExperienceLevel string

const (
	LevelEntry   ExperienceLevel = "Entry"
	LevelMid     ExperienceLevel = "Mid"
	LevelSenior  ExperienceLevel = "Senior"
	LevelLead    ExperienceLevel = "Lead"
	LevelManager ExperienceLevel = "Manager"
)

// EmploymentType is the contract type the salary was earned under.
type EmploymentType string

const (
	FullTime   EmploymentType = "Full-time"
	PartTime   EmploymentType = "Part-time"
	Contract   EmploymentType = "Contract"
	Internship EmploymentType = "Internship"
)

// Gender is optional and only ever displayed in aggregate.
type Gender string

const (
	GenderMale           Gender = "Male"
	GenderFemale         Gender = "Female"
	GenderOther          Gender = "Other"
	GenderPreferNotToSay Gender = "Prefer not to say"
)

// StoryDetails holds the narrative part of a KindStory record.
type StoryDetails struct {
	Title       string
	Description string
	Pros        []string
	Cons        []string
}

// SalaryRecord is a single salary or salary-story submission.
type SalaryRecord struct {
	// ID is the unique identifier of the submission.
	ID   uuid.UUID
	Kind Kind

	CompanyName string
	Designation string
	Location    string
	Department  string

	// Experience is the number of years worked, never negative.
	Experience      int
	ExperienceLevel ExperienceLevel

	// TotalMonthly is the monthly compensation in local currency.
	TotalMonthly     float64
	WhichYearsSalary int
	// MinimumIncrement is the yearly raise in percent.
	MinimumIncrement float64
	YearsOfIncrement *int

	EmploymentType EmploymentType
	Gender         *Gender

	// IsAnonymous hides the submitter identity from every listing.
	IsAnonymous bool
	// IsVerified is owned by a separate verification process and is not
	// touched by moderation.
	IsVerified bool

	ModerationState ModerationState
	// RejectionReason is set if and only if ModerationState is StateRejected.
	RejectionReason *string

	// Story is nil unless Kind is KindStory. Use StoryDetails to read it.
	Story *StoryDetails

	CreatedAt time.Time
	UpdatedAt time.Time
}

// StoryDetails returns the narrative fields of a story record. The second
// value is false for salary records.
func (r *SalaryRecord) StoryDetails() (*StoryDetails, bool) {
	if r.Kind != KindStory || r.Story == nil {
		return nil, false
	}
	return r.Story, true
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (r *SalaryRecord) Clone() *SalaryRecord {
	c := *r
	if r.YearsOfIncrement != nil {
		v := *r.YearsOfIncrement
		c.YearsOfIncrement = &v
	}
	if r.Gender != nil {
		g := *r.Gender
		c.Gender = &g
	}
	if r.RejectionReason != nil {
		s := *r.RejectionReason
		c.RejectionReason = &s
	}
	if r.Story != nil {
		st := *r.Story
		st.Pros = append([]string(nil), r.Story.Pros...)
		st.Cons = append([]string(nil), r.Story.Cons...)
		c.Story = &st
	}
	return &c
}

// Validate checks the record invariants that do not depend on history.
func (r *SalaryRecord) Validate() error {
	required := []struct{ field, value string }{
		{"companyName", r.CompanyName},
		{"designation", r.Designation},
		{"location", r.Location},
		{"department", r.Department},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return &e.ValidationError{Field: f.field, Msg: "is required"}
		}
	}

	if _, err := ParseKind(string(r.Kind)); err != nil {
		return err
	}
	if _, err := ParseExperienceLevel(string(r.ExperienceLevel)); err != nil {
		return err
	}
	if _, err := ParseEmploymentType(string(r.EmploymentType)); err != nil {
		return err
	}
	if r.Gender != nil {
		if _, err := ParseGender(string(*r.Gender)); err != nil {
			return err
		}
	}
	if _, err := ParseModerationState(string(r.ModerationState)); err != nil {
		return err
	}

	if r.Experience < 0 {
		return &e.ValidationError{Field: "experience", Msg: "must not be negative"}
	}
	if r.MinimumIncrement < 0 || math.IsNaN(r.MinimumIncrement) {
		return &e.ValidationError{Field: "minimumIncrement", Msg: "must not be negative"}
	}
	if r.TotalMonthly < 0 || math.IsNaN(r.TotalMonthly) || math.IsInf(r.TotalMonthly, 0) {
		return &e.ValidationError{Field: "totalMonthly", Msg: "must not be negative"}
	}
	if r.Kind == KindSalary && r.TotalMonthly <= 0 {
		return &e.ValidationError{Field: "totalMonthly", Msg: "must be positive for a salary entry"}
	}

	switch r.Kind {
	case KindStory:
		if r.Story == nil || strings.TrimSpace(r.Story.Title) == "" {
			return &e.ValidationError{Field: "storyTitle", Msg: "is required for a story"}
		}
		if strings.TrimSpace(r.Story.Description) == "" {
			return &e.ValidationError{Field: "storyDescription", Msg: "is required for a story"}
		}
	case KindSalary:
		if r.Story != nil {
			return &e.ValidationError{Field: "storyTitle", Msg: "only stories carry narrative fields"}
		}
	}

	hasReason := r.RejectionReason != nil
	if hasReason != (r.ModerationState == StateRejected) {
		return &e.ValidationError{Field: "rejectionReason", Msg: "must be set exactly when the salary is rejected"}
	}
	return nil
}

// SalaryUpdate represents the fields an admin can edit on a record.
// Pointer types allow partial updates; moderation fields are deliberately
// absent and change only through moderation transitions.
type SalaryUpdate struct {
	ID               uuid.UUID
	CompanyName      *string
	Designation      *string
	Location         *string
	Department       *string
	Experience       *int
	ExperienceLevel  *ExperienceLevel
	TotalMonthly     *float64
	WhichYearsSalary *int
	MinimumIncrement *float64
	YearsOfIncrement *int
	EmploymentType   *EmploymentType
	Gender           *Gender
	IsAnonymous      *bool
	IsVerified       *bool

	// Narrative fields only apply to stories. A nil Pros or Cons keeps the
	// stored list; an empty non-nil slice clears it.
	StoryTitle       *string
	StoryDescription *string
	Pros             []string
	Cons             []string
}

func (u *SalaryUpdate) touchesStory() bool {
	return u.StoryTitle != nil || u.StoryDescription != nil || u.Pros != nil || u.Cons != nil
}

// Apply merges the update into a copy of r and returns it.
func (u *SalaryUpdate) Apply(r *SalaryRecord) *SalaryRecord {
	out := r.Clone()
	if u.CompanyName != nil {
		out.CompanyName = *u.CompanyName
	}
	if u.Designation != nil {
		out.Designation = *u.Designation
	}
	if u.Location != nil {
		out.Location = *u.Location
	}
	if u.Department != nil {
		out.Department = *u.Department
	}
	if u.Experience != nil {
		out.Experience = *u.Experience
	}
	if u.ExperienceLevel != nil {
		out.ExperienceLevel = *u.ExperienceLevel
	}
	if u.TotalMonthly != nil {
		out.TotalMonthly = *u.TotalMonthly
	}
	if u.WhichYearsSalary != nil {
		out.WhichYearsSalary = *u.WhichYearsSalary
	}
	if u.MinimumIncrement != nil {
		out.MinimumIncrement = *u.MinimumIncrement
	}
	if u.YearsOfIncrement != nil {
		v := *u.YearsOfIncrement
		out.YearsOfIncrement = &v
	}
	if u.EmploymentType != nil {
		out.EmploymentType = *u.EmploymentType
	}
	if u.Gender != nil {
		g := *u.Gender
		out.Gender = &g
	}
	if u.IsAnonymous != nil {
		out.IsAnonymous = *u.IsAnonymous
	}
	if u.IsVerified != nil {
		out.IsVerified = *u.IsVerified
	}
	if out.Kind == KindStory && u.touchesStory() {
		if out.Story == nil {
			out.Story = &StoryDetails{}
		}
		if u.StoryTitle != nil {
			out.Story.Title = *u.StoryTitle
		}
		if u.StoryDescription != nil {
			out.Story.Description = *u.StoryDescription
		}
		if u.Pros != nil {
			out.Story.Pros = append([]string{}, u.Pros...)
		}
		if u.Cons != nil {
			out.Story.Cons = append([]string{}, u.Cons...)
		}
	}
	return out
}

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindSalary, KindStory:
		return k, nil
	}
	return "", &e.ValidationError{Field: "type", Msg: fmt.Sprintf("unknown kind %q", s)}
}

func ParseModerationState(s string) (ModerationState, error) {
	switch st := ModerationState(s); st {
	case StatePending, StateApproved, StateRejected:
		return st, nil
	}
	return "", &e.ValidationError{Field: "moderationState", Msg: fmt.Sprintf("unknown state %q", s)}
}

func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	switch l := ExperienceLevel(s); l {
	case LevelEntry, LevelMid, LevelSenior, LevelLead, LevelManager:
		return l, nil
	}
	return "", &e.ValidationError{Field: "experienceLevel", Msg: fmt.Sprintf("unknown level %q", s)}
}

func ParseEmploymentType(s string) (EmploymentType, error) {
	switch t := EmploymentType(s); t {
	case FullTime, PartTime, Contract, Internship:
		return t, nil
	}
	return "", &e.ValidationError{Field: "employmentType", Msg: fmt.Sprintf("unknown employment type %q", s)}
}

func ParseGender(s string) (Gender, error) {
	switch g := Gender(s); g {
	case GenderMale, GenderFemale, GenderOther, GenderPreferNotToSay:
		return g, nil
	}
	return "", &e.ValidationError{Field: "gender", Msg: fmt.Sprintf("unknown gender %q", s)}
}
