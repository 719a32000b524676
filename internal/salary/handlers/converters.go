package handlers

import (
	"errors"
	"net/http"

	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/gartstein/salaries/internal/salary/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// envelope is the body of every admin API response.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	// Code tells error classes apart that share a status, such as the
	// two kinds of 409.
	Code string `json:"code,omitempty"`
}

// Error codes carried by failed responses.
const (
	codeNotFound          = "not_found"
	codeInvalidInput      = "invalid_input"
	codeUnauthorized      = "unauthorized"
	codeInvalidTransition = "invalid_transition"
	codeConflict          = "conflict"
	codeInternal          = "internal"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

// updateRequest is the PUT body. Absent fields keep their stored value.
// Narrative fields replace the story as a whole when any of them is sent.
type updateRequest struct {
	CompanyName      *string                 `json:"companyName"`
	Designation      *string                 `json:"designation"`
	Location         *string                 `json:"location"`
	Department       *string                 `json:"department"`
	Experience       *int                    `json:"experience"`
	ExperienceLevel  *models.ExperienceLevel `json:"experienceLevel"`
	TotalMonthly     *float64                `json:"totalMonthly"`
	WhichYearsSalary *int                    `json:"whichYearsSalary"`
	MinimumIncrement *float64                `json:"minimumIncrement"`
	YearsOfIncrement *int                    `json:"yearsOfIncrement"`
	EmploymentType   *models.EmploymentType  `json:"employmentType"`
	Gender           *models.Gender          `json:"gender"`
	IsAnonymous      *bool                   `json:"isAnonymous"`
	IsVerified       *bool                   `json:"isVerified"`
	StoryTitle       *string                 `json:"storyTitle"`
	StoryDescription *string                 `json:"storyDescription"`
	Pros             []string                `json:"pros"`
	Cons             []string                `json:"cons"`
}

func (req *updateRequest) toUpdate(id uuid.UUID) *models.SalaryUpdate {
	return &models.SalaryUpdate{
		ID:               id,
		CompanyName:      req.CompanyName,
		Designation:      req.Designation,
		Location:         req.Location,
		Department:       req.Department,
		Experience:       req.Experience,
		ExperienceLevel:  req.ExperienceLevel,
		TotalMonthly:     req.TotalMonthly,
		WhichYearsSalary: req.WhichYearsSalary,
		MinimumIncrement: req.MinimumIncrement,
		YearsOfIncrement: req.YearsOfIncrement,
		EmploymentType:   req.EmploymentType,
		Gender:           req.Gender,
		IsAnonymous:      req.IsAnonymous,
		IsVerified:       req.IsVerified,
		StoryTitle:       req.StoryTitle,
		StoryDescription: req.StoryDescription,
		Pros:             req.Pros,
		Cons:             req.Cons,
	}
}

// mapServiceError maps domain or repository errors to an HTTP status, an
// error code and the message shown to the caller.
func (h *SalaryHandler) mapServiceError(err error) (int, string, string) {
	switch {
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, codeNotFound, err.Error()
	case errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest, codeInvalidInput, err.Error()
	case errors.Is(err, e.ErrUnauthorized):
		return http.StatusUnauthorized, codeUnauthorized, err.Error()
	case errors.Is(err, e.ErrInvalidTransition):
		return http.StatusConflict, codeInvalidTransition, err.Error()
	case errors.Is(err, e.ErrConflict):
		return http.StatusConflict, codeConflict, err.Error()
	default:
		h.logger.Error("Internal server error", zap.Error(err))
		return http.StatusInternalServerError, codeInternal, "internal server error"
	}
}
