package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// wireRecord is the flat JSON shape the admin API exchanges. Narrative
// fields sit next to the base fields and are folded into StoryDetails on
// decode.
type wireRecord struct {
	ID               string          `json:"_id,omitempty"`
	Type             Kind            `json:"type"`
	CompanyName      string          `json:"companyName"`
	Designation      string          `json:"designation"`
	Location         string          `json:"location"`
	Department       string          `json:"department"`
	Experience       flexInt         `json:"experience"`
	ExperienceLevel  ExperienceLevel `json:"experienceLevel"`
	TotalMonthly     float64         `json:"totalMonthly"`
	WhichYearsSalary flexInt         `json:"whichYearsSalary,omitempty"`
	MinimumIncrement float64         `json:"minimumIncrement"`
	YearsOfIncrement *int            `json:"yearsOfIncrement,omitempty"`
	EmploymentType   EmploymentType  `json:"employmentType"`
	Gender           *Gender         `json:"gender,omitempty"`
	StoryTitle       string          `json:"storyTitle,omitempty"`
	StoryDescription string          `json:"storyDescription,omitempty"`
	Pros             []string        `json:"pros,omitempty"`
	Cons             []string        `json:"cons,omitempty"`
	IsAnonymous      bool            `json:"isAnonymous"`
	IsVerified       bool            `json:"isVerified"`
	ModerationState  ModerationState `json:"moderationState,omitempty"`
	RejectionReason  *string         `json:"rejectionReason,omitempty"`
	CreatedAt        *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt        *time.Time      `json:"updatedAt,omitempty"`
}

// flexInt accepts both 3 and "3"; older dashboard clients send experience
// as a string.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("expected a number, got %s", string(b))
	}
	*f = flexInt(n)
	return nil
}

func (r SalaryRecord) MarshalJSON() ([]byte, error) {
	w := wireRecord{
		Type:             r.Kind,
		CompanyName:      r.CompanyName,
		Designation:      r.Designation,
		Location:         r.Location,
		Department:       r.Department,
		Experience:       flexInt(r.Experience),
		ExperienceLevel:  r.ExperienceLevel,
		TotalMonthly:     r.TotalMonthly,
		WhichYearsSalary: flexInt(r.WhichYearsSalary),
		MinimumIncrement: r.MinimumIncrement,
		YearsOfIncrement: r.YearsOfIncrement,
		EmploymentType:   r.EmploymentType,
		Gender:           r.Gender,
		IsAnonymous:      r.IsAnonymous,
		IsVerified:       r.IsVerified,
		ModerationState:  r.ModerationState,
		RejectionReason:  r.RejectionReason,
	}
	if r.ID != uuid.Nil {
		w.ID = r.ID.String()
	}
	if st, ok := r.StoryDetails(); ok {
		w.StoryTitle = st.Title
		w.StoryDescription = st.Description
		w.Pros = st.Pros
		w.Cons = st.Cons
	}
	if !r.CreatedAt.IsZero() {
		w.CreatedAt = &r.CreatedAt
	}
	if !r.UpdatedAt.IsZero() {
		w.UpdatedAt = &r.UpdatedAt
	}
	return json.Marshal(w)
}

func (r *SalaryRecord) UnmarshalJSON(b []byte) error {
	var w wireRecord
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	out := SalaryRecord{
		Kind:             w.Type,
		CompanyName:      w.CompanyName,
		Designation:      w.Designation,
		Location:         w.Location,
		Department:       w.Department,
		Experience:       int(w.Experience),
		ExperienceLevel:  w.ExperienceLevel,
		TotalMonthly:     w.TotalMonthly,
		WhichYearsSalary: int(w.WhichYearsSalary),
		MinimumIncrement: w.MinimumIncrement,
		YearsOfIncrement: w.YearsOfIncrement,
		EmploymentType:   w.EmploymentType,
		Gender:           w.Gender,
		IsAnonymous:      w.IsAnonymous,
		IsVerified:       w.IsVerified,
		ModerationState:  w.ModerationState,
		RejectionReason:  w.RejectionReason,
	}
	if out.Kind == "" {
		out.Kind = KindSalary
	}
	if w.ID != "" {
		id, err := uuid.Parse(w.ID)
		if err != nil {
			return fmt.Errorf("invalid _id %q: %w", w.ID, err)
		}
		out.ID = id
	}
	if out.Kind == KindStory {
		out.Story = &StoryDetails{
			Title:       w.StoryTitle,
			Description: w.StoryDescription,
			Pros:        w.Pros,
			Cons:        w.Cons,
		}
	}
	if w.CreatedAt != nil {
		out.CreatedAt = *w.CreatedAt
	}
	if w.UpdatedAt != nil {
		out.UpdatedAt = *w.UpdatedAt
	}

	*r = out
	return nil
}
