package db

import (
	dbmodels "github.com/gartstein/salaries/internal/salary/db/models"
	"github.com/gartstein/salaries/internal/salary/models"
)

func toRow(rec *models.SalaryRecord) *dbmodels.SalaryRow {
	row := &dbmodels.SalaryRow{
		ID:               rec.ID,
		Kind:             string(rec.Kind),
		CompanyName:      rec.CompanyName,
		Designation:      rec.Designation,
		Location:         rec.Location,
		Department:       rec.Department,
		Experience:       rec.Experience,
		ExperienceLevel:  string(rec.ExperienceLevel),
		TotalMonthly:     rec.TotalMonthly,
		WhichYearsSalary: rec.WhichYearsSalary,
		MinimumIncrement: rec.MinimumIncrement,
		YearsOfIncrement: rec.YearsOfIncrement,
		EmploymentType:   string(rec.EmploymentType),
		IsAnonymous:      rec.IsAnonymous,
		IsVerified:       rec.IsVerified,
		ModerationState:  string(rec.ModerationState),
		RejectionReason:  rec.RejectionReason,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
	if rec.Gender != nil {
		g := string(*rec.Gender)
		row.Gender = &g
	}
	if st, ok := rec.StoryDetails(); ok {
		row.StoryTitle = st.Title
		row.StoryDescription = st.Description
		row.Pros = st.Pros
		row.Cons = st.Cons
	}
	return row
}

func toModel(row *dbmodels.SalaryRow) *models.SalaryRecord {
	rec := &models.SalaryRecord{
		ID:               row.ID,
		Kind:             models.Kind(row.Kind),
		CompanyName:      row.CompanyName,
		Designation:      row.Designation,
		Location:         row.Location,
		Department:       row.Department,
		Experience:       row.Experience,
		ExperienceLevel:  models.ExperienceLevel(row.ExperienceLevel),
		TotalMonthly:     row.TotalMonthly,
		WhichYearsSalary: row.WhichYearsSalary,
		MinimumIncrement: row.MinimumIncrement,
		YearsOfIncrement: row.YearsOfIncrement,
		EmploymentType:   models.EmploymentType(row.EmploymentType),
		IsAnonymous:      row.IsAnonymous,
		IsVerified:       row.IsVerified,
		ModerationState:  models.ModerationState(row.ModerationState),
		RejectionReason:  row.RejectionReason,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
	if row.Gender != nil {
		g := models.Gender(*row.Gender)
		rec.Gender = &g
	}
	if rec.Kind == models.KindStory {
		rec.Story = &models.StoryDetails{
			Title:       row.StoryTitle,
			Description: row.StoryDescription,
			Pros:        row.Pros,
			Cons:        row.Cons,
		}
	}
	return rec
}
