package controller

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/gartstein/salaries/internal/pkg/utils"
	"github.com/gartstein/salaries/internal/salary/db"
	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/gartstein/salaries/internal/salary/events"
	"github.com/gartstein/salaries/internal/salary/insights"
	"github.com/gartstein/salaries/internal/salary/metrics"
	"github.com/gartstein/salaries/internal/salary/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockRepository implements the Repository interface for testing
type MockRepository struct {
	createSalary     func(context.Context, *models.SalaryRecord) error
	getSalary        func(context.Context, uuid.UUID) (*models.SalaryRecord, error)
	updateSalary     func(context.Context, *models.SalaryRecord) error
	deleteSalary     func(context.Context, uuid.UUID) error
	listSalaries     func(context.Context, db.ListOptions) ([]*models.SalaryRecord, error)
	transitionSalary func(context.Context, uuid.UUID, models.ModerationState, models.ModerationState, *string) error
}

func (m *MockRepository) CreateSalary(ctx context.Context, r *models.SalaryRecord) error {
	return m.createSalary(ctx, r)
}

func (m *MockRepository) GetSalary(ctx context.Context, id uuid.UUID) (*models.SalaryRecord, error) {
	return m.getSalary(ctx, id)
}

func (m *MockRepository) UpdateSalary(ctx context.Context, r *models.SalaryRecord) error {
	return m.updateSalary(ctx, r)
}

func (m *MockRepository) DeleteSalary(ctx context.Context, id uuid.UUID) error {
	return m.deleteSalary(ctx, id)
}

func (m *MockRepository) ListSalaries(ctx context.Context, opts db.ListOptions) ([]*models.SalaryRecord, error) {
	return m.listSalaries(ctx, opts)
}

func (m *MockRepository) TransitionSalary(
	ctx context.Context,
	id uuid.UUID,
	from, to models.ModerationState,
	reason *string,
) error {
	return m.transitionSalary(ctx, id, from, to, reason)
}

func (m *MockRepository) Close() error {
	return nil
}

type producedEvent struct {
	EventType events.EventType
	Salary    *models.SalaryRecord
}

// MockProducer is a test double for the Kafka producer.
type MockProducer struct {
	mu             sync.Mutex
	producedEvents []producedEvent
	wg             *sync.WaitGroup
}

// Produce records the event and signals the wait group.
func (m *MockProducer) Produce(eventType events.EventType, salary *models.SalaryRecord) {
	m.mu.Lock()
	m.producedEvents = append(m.producedEvents, producedEvent{eventType, salary})
	m.mu.Unlock()
	if m.wg != nil {
		m.wg.Done()
	}
}

func newService(t *testing.T, repo Repository, producer EventProducer) (*SalaryService, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return NewSalaryService(repo, producer, m, zaptest.NewLogger(t)), m
}

func sampleSalary(state models.ModerationState) *models.SalaryRecord {
	rec := &models.SalaryRecord{
		ID:               uuid.New(),
		Kind:             models.KindSalary,
		CompanyName:      "Acme",
		Designation:      "Engineer",
		Location:         "Dhaka",
		Department:       "Engineering",
		Experience:       4,
		ExperienceLevel:  models.LevelMid,
		TotalMonthly:     100000,
		WhichYearsSalary: 2024,
		EmploymentType:   models.FullTime,
		ModerationState:  state,
	}
	if state == models.StateRejected {
		rec.RejectionReason = utils.Ptr("duplicate")
	}
	return rec
}

func TestSalaryService_CreateSalary(t *testing.T) {
	tests := []struct {
		name          string
		input         *models.SalaryRecord
		createErr     error
		expectedError error
	}{
		{
			name:  "successful creation forces pending",
			input: sampleSalary(models.StateApproved),
		},
		{
			name: "validation failure",
			input: func() *models.SalaryRecord {
				r := sampleSalary(models.StatePending)
				r.CompanyName = ""
				return r
			}(),
			expectedError: e.ErrInvalidInput,
		},
		{
			name:          "nil record",
			expectedError: e.ErrInvalidInput,
		},
		{
			name:          "repository error",
			input:         sampleSalary(models.StatePending),
			createErr:     errors.New("database error"),
			expectedError: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRepository{
				createSalary: func(_ context.Context, _ *models.SalaryRecord) error { return tt.createErr },
			}
			producer := &MockProducer{wg: new(sync.WaitGroup)}
			service, m := newService(t, repo, producer)

			wantErr := tt.expectedError != nil || tt.createErr != nil
			if !wantErr {
				producer.wg.Add(1)
			}

			var originalID uuid.UUID
			if tt.input != nil {
				originalID = tt.input.ID
			}
			result, err := service.CreateSalary(context.Background(), tt.input)

			if wantErr {
				require.Error(t, err)
				if tt.expectedError != nil {
					assert.ErrorIs(t, err, tt.expectedError)
				}
				assert.Equal(t, 0.0, testutil.ToFloat64(m.SalariesCreated))
				return
			}

			producer.wg.Wait()
			require.NoError(t, err)
			assert.NotEqual(t, originalID, result.ID)
			assert.Equal(t, models.StatePending, result.ModerationState)
			assert.Nil(t, result.RejectionReason)
			require.Len(t, producer.producedEvents, 1)
			assert.Equal(t, events.SalaryCreated, producer.producedEvents[0].EventType)
			assert.Equal(t, 1.0, testutil.ToFloat64(m.SalariesCreated))
		})
	}
}

func TestSalaryService_CreateSalary_DefaultsKind(t *testing.T) {
	repo := &MockRepository{
		createSalary: func(_ context.Context, _ *models.SalaryRecord) error { return nil },
	}
	producer := &MockProducer{wg: new(sync.WaitGroup)}
	producer.wg.Add(1)
	service, _ := newService(t, repo, producer)

	in := sampleSalary(models.StatePending)
	in.Kind = ""
	result, err := service.CreateSalary(context.Background(), in)
	producer.wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, models.KindSalary, result.Kind)
}

func TestSalaryService_GetSalary(t *testing.T) {
	existing := sampleSalary(models.StatePending)

	tests := []struct {
		name          string
		getErr        error
		expectedError error
	}{
		{name: "successful get"},
		{name: "not found", getErr: e.ErrNotFound, expectedError: e.ErrNotFound},
		{name: "storage failure", getErr: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MockRepository{
				getSalary: func(_ context.Context, _ uuid.UUID) (*models.SalaryRecord, error) {
					if tt.getErr != nil {
						return nil, tt.getErr
					}
					return existing, nil
				},
			}
			service, _ := newService(t, repo, &MockProducer{})

			result, err := service.GetSalary(context.Background(), existing.ID)

			if tt.getErr != nil {
				require.Error(t, err)
				if tt.expectedError != nil {
					assert.ErrorIs(t, err, tt.expectedError)
				} else {
					assert.Contains(t, err.Error(), "failed to get salary")
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, existing.ID, result.ID)
		})
	}
}

func TestSalaryService_UpdateSalary(t *testing.T) {
	stored := sampleSalary(models.StatePending)

	t.Run("successful update", func(t *testing.T) {
		var written *models.SalaryRecord
		repo := &MockRepository{
			getSalary: func(_ context.Context, _ uuid.UUID) (*models.SalaryRecord, error) {
				if written != nil {
					return written, nil
				}
				return stored, nil
			},
			updateSalary: func(_ context.Context, r *models.SalaryRecord) error {
				written = r
				return nil
			},
		}
		producer := &MockProducer{wg: new(sync.WaitGroup)}
		producer.wg.Add(1)
		service, _ := newService(t, repo, producer)

		updated, err := service.UpdateSalary(context.Background(), &models.SalaryUpdate{
			ID:          stored.ID,
			Designation: utils.Ptr("Senior Engineer"),
		})
		producer.wg.Wait()

		require.NoError(t, err)
		assert.Equal(t, "Senior Engineer", updated.Designation)
		assert.Equal(t, "Engineer", stored.Designation, "stored record is not mutated")
		assert.Equal(t, events.SalaryUpdated, producer.producedEvents[0].EventType)
	})

	t.Run("invalid ID", func(t *testing.T) {
		service, _ := newService(t, &MockRepository{}, &MockProducer{})
		_, err := service.UpdateSalary(context.Background(), &models.SalaryUpdate{})
		assert.ErrorIs(t, err, e.ErrInvalidInput)
	})

	t.Run("merged record fails validation", func(t *testing.T) {
		repo := &MockRepository{
			getSalary: func(_ context.Context, _ uuid.UUID) (*models.SalaryRecord, error) {
				return stored, nil
			},
			updateSalary: func(_ context.Context, _ *models.SalaryRecord) error {
				t.Fatal("invalid record must not be written")
				return nil
			},
		}
		service, _ := newService(t, repo, &MockProducer{})

		_, err := service.UpdateSalary(context.Background(), &models.SalaryUpdate{
			ID:           stored.ID,
			TotalMonthly: utils.Ptr(-5.0),
		})
		assert.ErrorIs(t, err, e.ErrInvalidInput)
	})

	t.Run("not found", func(t *testing.T) {
		repo := &MockRepository{
			getSalary: func(_ context.Context, _ uuid.UUID) (*models.SalaryRecord, error) {
				return nil, e.ErrNotFound
			},
		}
		service, _ := newService(t, repo, &MockProducer{})

		_, err := service.UpdateSalary(context.Background(), &models.SalaryUpdate{ID: uuid.New()})
		assert.ErrorIs(t, err, e.ErrNotFound)
	})
}

func TestSalaryService_DeleteSalary(t *testing.T) {
	stored := sampleSalary(models.StateApproved)

	t.Run("successful deletion", func(t *testing.T) {
		repo := &MockRepository{
			getSalary: func(_ context.Context, _ uuid.UUID) (*models.SalaryRecord, error) {
				return stored, nil
			},
			deleteSalary: func(_ context.Context, _ uuid.UUID) error { return nil },
		}
		producer := &MockProducer{wg: new(sync.WaitGroup)}
		producer.wg.Add(1)
		service, _ := newService(t, repo, producer)

		require.NoError(t, service.DeleteSalary(context.Background(), stored.ID))
		producer.wg.Wait()
		assert.Equal(t, events.SalaryDeleted, producer.producedEvents[0].EventType)
	})

	t.Run("not found", func(t *testing.T) {
		repo := &MockRepository{
			getSalary: func(_ context.Context, _ uuid.UUID) (*models.SalaryRecord, error) {
				return nil, e.ErrNotFound
			},
		}
		service, _ := newService(t, repo, &MockProducer{})

		assert.ErrorIs(t, service.DeleteSalary(context.Background(), stored.ID), e.ErrNotFound)
	})
}

func TestSalaryService_Listings(t *testing.T) {
	var seen []db.ListOptions
	repo := &MockRepository{
		listSalaries: func(_ context.Context, opts db.ListOptions) ([]*models.SalaryRecord, error) {
			seen = append(seen, opts)
			return nil, nil
		},
	}
	service, _ := newService(t, repo, &MockProducer{})
	ctx := context.Background()

	_, err := service.ListPending(ctx)
	require.NoError(t, err)
	_, err = service.ListRejected(ctx)
	require.NoError(t, err)
	_, err = service.ListApproved(ctx, models.KindStory)
	require.NoError(t, err)

	assert.Equal(t, []db.ListOptions{
		{State: models.StatePending},
		{State: models.StateRejected},
		{State: models.StateApproved, Kind: models.KindStory},
	}, seen)
}

func TestSalaryService_SearchPending(t *testing.T) {
	a := sampleSalary(models.StatePending)
	b := sampleSalary(models.StatePending)
	b.CompanyName = "Globex"
	b.Department = "Finance"
	repo := &MockRepository{
		listSalaries: func(_ context.Context, _ db.ListOptions) ([]*models.SalaryRecord, error) {
			return []*models.SalaryRecord{a, b}, nil
		},
	}
	service, _ := newService(t, repo, &MockProducer{})

	got, err := service.SearchPending(context.Background(), "finance")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestSalaryService_Moderation(t *testing.T) {
	tests := []struct {
		name          string
		from          models.ModerationState
		act           func(*SalaryService, uuid.UUID) (*models.SalaryRecord, error)
		wantState     models.ModerationState
		wantReason    *string
		wantEvent     events.EventType
		expectedError error
		action        string
		outcome       string
	}{
		{
			name:      "approve pending",
			from:      models.StatePending,
			act:       func(s *SalaryService, id uuid.UUID) (*models.SalaryRecord, error) { return s.Approve(context.Background(), id) },
			wantState: models.StateApproved,
			wantEvent: events.SalaryApproved,
			action:    "approve",
			outcome:   "ok",
		},
		{
			name: "reject pending",
			from: models.StatePending,
			act: func(s *SalaryService, id uuid.UUID) (*models.SalaryRecord, error) {
				return s.Reject(context.Background(), id, "  spam  ")
			},
			wantState:  models.StateRejected,
			wantReason: utils.Ptr("spam"),
			wantEvent:  events.SalaryRejected,
			action:     "reject",
			outcome:    "ok",
		},
		{
			name:      "restore rejected",
			from:      models.StateRejected,
			act:       func(s *SalaryService, id uuid.UUID) (*models.SalaryRecord, error) { return s.Restore(context.Background(), id) },
			wantState: models.StateApproved,
			wantEvent: events.SalaryRestored,
			action:    "restore",
			outcome:   "ok",
		},
		{
			name: "reject approved",
			from: models.StateApproved,
			act: func(s *SalaryService, id uuid.UUID) (*models.SalaryRecord, error) {
				return s.Reject(context.Background(), id, "late")
			},
			expectedError: e.ErrInvalidTransition,
			action:        "reject",
			outcome:       "invalid_transition",
		},
		{
			name: "reject without reason",
			from: models.StatePending,
			act: func(s *SalaryService, id uuid.UUID) (*models.SalaryRecord, error) {
				return s.Reject(context.Background(), id, "   ")
			},
			expectedError: e.ErrInvalidInput,
			action:        "reject",
			outcome:       "invalid_input",
		},
		{
			name:          "restore pending",
			from:          models.StatePending,
			act:           func(s *SalaryService, id uuid.UUID) (*models.SalaryRecord, error) { return s.Restore(context.Background(), id) },
			expectedError: e.ErrInvalidTransition,
			action:        "restore",
			outcome:       "invalid_transition",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := sampleSalary(tt.from)
			var transitioned bool
			repo := &MockRepository{
				getSalary: func(_ context.Context, _ uuid.UUID) (*models.SalaryRecord, error) {
					return stored, nil
				},
				transitionSalary: func(_ context.Context, id uuid.UUID, from, to models.ModerationState, reason *string) error {
					transitioned = true
					assert.Equal(t, stored.ID, id)
					assert.Equal(t, tt.from, from)
					assert.Equal(t, tt.wantState, to)
					assert.Equal(t, tt.wantReason, reason)
					return nil
				},
			}
			producer := &MockProducer{wg: new(sync.WaitGroup)}
			service, m := newService(t, repo, producer)
			if tt.expectedError == nil {
				producer.wg.Add(1)
			}

			result, err := tt.act(service, stored.ID)

			assert.Equal(t, 1.0, testutil.ToFloat64(m.Moderations.WithLabelValues(tt.action, tt.outcome)))
			assert.Equal(t, tt.from, stored.ModerationState, "stored record is never mutated")
			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.False(t, transitioned)
				assert.Empty(t, producer.producedEvents)
				return
			}

			producer.wg.Wait()
			require.NoError(t, err)
			assert.True(t, transitioned)
			assert.Equal(t, tt.wantState, result.ModerationState)
			assert.Equal(t, tt.wantReason, result.RejectionReason)
			require.Len(t, producer.producedEvents, 1)
			assert.Equal(t, tt.wantEvent, producer.producedEvents[0].EventType)
		})
	}
}

func TestSalaryService_ModerationConflict(t *testing.T) {
	stored := sampleSalary(models.StatePending)
	repo := &MockRepository{
		getSalary: func(_ context.Context, _ uuid.UUID) (*models.SalaryRecord, error) {
			return stored, nil
		},
		transitionSalary: func(context.Context, uuid.UUID, models.ModerationState, models.ModerationState, *string) error {
			return e.ErrConflict
		},
	}
	producer := &MockProducer{}
	service, m := newService(t, repo, producer)

	_, err := service.Approve(context.Background(), stored.ID)

	assert.ErrorIs(t, err, e.ErrConflict)
	assert.Empty(t, producer.producedEvents)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Moderations.WithLabelValues("approve", "conflict")))
}

func TestSalaryService_ModerationNotFound(t *testing.T) {
	repo := &MockRepository{
		getSalary: func(_ context.Context, _ uuid.UUID) (*models.SalaryRecord, error) {
			return nil, e.ErrNotFound
		},
	}
	service, _ := newService(t, repo, &MockProducer{})

	_, err := service.Restore(context.Background(), uuid.New())
	assert.ErrorIs(t, err, e.ErrNotFound)
}

func insightFixture() []*models.SalaryRecord {
	a := sampleSalary(models.StateApproved)
	a.TotalMonthly = 50000
	a.Experience = 1
	b := sampleSalary(models.StateApproved)
	b.TotalMonthly = 100000
	b.Experience = 4
	c := sampleSalary(models.StateApproved)
	c.TotalMonthly = 200000
	c.Experience = 8
	c.Location = "Chittagong"
	c.Designation = "Staff Engineer"
	return []*models.SalaryRecord{a, b, c}
}

func TestSalaryService_Insights(t *testing.T) {
	var seen db.ListOptions
	repo := &MockRepository{
		listSalaries: func(_ context.Context, opts db.ListOptions) ([]*models.SalaryRecord, error) {
			seen = opts
			return insightFixture(), nil
		},
	}
	service, m := newService(t, repo, &MockProducer{})

	summary, err := service.Insights(context.Background(), insights.Criteria{})
	require.NoError(t, err)

	assert.Equal(t, db.ListOptions{State: models.StateApproved}, seen)
	assert.Equal(t, 3, summary.Total)
	assert.InDelta(t, 14.0, summary.AverageCTC, 1e-9)
	assert.Equal(t, "Dhaka", summary.TopLocation.Location)
	assert.Equal(t, "Staff Engineer", summary.TopRole.Designation)
	assert.Equal(t, 1, testutil.CollectAndCount(m.InsightsDuration))

	filtered, err := service.Insights(context.Background(), insights.Criteria{Location: "Chittagong"})
	require.NoError(t, err)
	assert.Equal(t, 1, filtered.Total)
	assert.InDelta(t, 24.0, filtered.AverageCTC, 1e-9)
}

func TestSalaryService_InsightsIncludesStories(t *testing.T) {
	salary := sampleSalary(models.StateApproved)
	salary.TotalMonthly = 10000
	story := sampleSalary(models.StateApproved)
	story.Kind = models.KindStory
	story.TotalMonthly = 30000
	story.Designation = "Principal Engineer"
	story.Story = &models.StoryDetails{Title: "Five years in", Description: "steady growth"}

	repo := &MockRepository{
		listSalaries: func(_ context.Context, opts db.ListOptions) ([]*models.SalaryRecord, error) {
			assert.Empty(t, opts.Kind)
			return []*models.SalaryRecord{salary, story}, nil
		},
	}
	service, _ := newService(t, repo, &MockProducer{})

	summary, err := service.Insights(context.Background(), insights.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.InDelta(t, 2.4, summary.AverageCTC, 1e-9)
	assert.Equal(t, "Principal Engineer", summary.TopRole.Designation)

	onlySalaries, err := service.Insights(context.Background(), insights.Criteria{Kind: models.KindSalary})
	require.NoError(t, err)
	assert.Equal(t, 1, onlySalaries.Total)
	assert.InDelta(t, 1.2, onlySalaries.AverageCTC, 1e-9)

	var buf bytes.Buffer
	require.NoError(t, service.ExportCSV(context.Background(), &buf, insights.Criteria{Kind: models.KindStory}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Principal Engineer")
}

func TestSalaryService_ExportCSV(t *testing.T) {
	repo := &MockRepository{
		listSalaries: func(_ context.Context, _ db.ListOptions) ([]*models.SalaryRecord, error) {
			return insightFixture(), nil
		},
	}
	service, _ := newService(t, repo, &MockProducer{})

	var buf bytes.Buffer
	require.NoError(t, service.ExportCSV(context.Background(), &buf, insights.Criteria{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Designation,Company,Location"))
}

func TestSalaryService_ListError(t *testing.T) {
	repo := &MockRepository{
		listSalaries: func(_ context.Context, _ db.ListOptions) ([]*models.SalaryRecord, error) {
			return nil, errors.New("connection reset")
		},
	}
	service, _ := newService(t, repo, &MockProducer{})

	_, err := service.Insights(context.Background(), insights.Criteria{})
	assert.ErrorContains(t, err, "failed to list salaries")
}
