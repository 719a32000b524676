package handlers

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gartstein/salaries/internal/salary/controller"
	"github.com/gartstein/salaries/internal/salary/db"
	"github.com/gartstein/salaries/internal/salary/events"
	"github.com/gartstein/salaries/internal/salary/metrics"
	"github.com/gartstein/salaries/internal/salary/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type discardProducer struct{}

func (discardProducer) Produce(events.EventType, *models.SalaryRecord) {}

func TestUpdateSalary_PartialStoryEdit(t *testing.T) {
	repo, err := db.NewRepository(&db.Config{Driver: "sqlite", DBName: filepath.Join(t.TempDir(), "salaries.db")})
	require.NoError(t, err)
	defer repo.Close()

	svc := controller.NewSalaryService(repo, discardProducer{}, metrics.New(prometheus.NewRegistry()), zaptest.NewLogger(t))
	story, err := svc.CreateSalary(context.Background(), &models.SalaryRecord{
		Kind:            models.KindStory,
		CompanyName:     "Acme",
		Designation:     "Engineer",
		Location:        "Dhaka",
		Department:      "Engineering",
		Experience:      2,
		ExperienceLevel: models.LevelMid,
		TotalMonthly:    30000,
		EmploymentType:  models.FullTime,
		Story: &models.StoryDetails{
			Title:       "Two years at Acme",
			Description: "Good team, slow raises.",
			Pros:        []string{"team"},
			Cons:        []string{"raises"},
		},
	})
	require.NoError(t, err)

	h := newTestHandler(t, svc)
	rec, env := do(t, h, http.MethodPut, "/admin/salaries/"+story.ID.String(), `{"storyTitle":"Three years at Acme"}`)
	require.Equal(t, http.StatusOK, rec.Code, env.Message)

	stored, err := svc.GetSalary(context.Background(), story.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Story)
	assert.Equal(t, "Three years at Acme", stored.Story.Title)
	assert.Equal(t, "Good team, slow raises.", stored.Story.Description)
	assert.Equal(t, []string{"team"}, stored.Story.Pros)
	assert.Equal(t, []string{"raises"}, stored.Story.Cons)
}
