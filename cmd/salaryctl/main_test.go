package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gartstein/salaries/internal/pkg/utils"
	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/gartstein/salaries/internal/salary/insights"
	"github.com/gartstein/salaries/internal/salary/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// callLog records the requests seen by the fake API.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(c string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, c)
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

func fakeAPI(t *testing.T, pending []*models.SalaryRecord, calls *callLog) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.add(r.Method + " " + r.URL.Path)
		var data interface{}
		switch {
		case r.URL.Path == "/admin/pending":
			data = pending
		case r.URL.Path == "/admin/rejected":
			data = []*models.SalaryRecord{}
		case r.URL.Path == "/admin/insights":
			data = insights.Summarize(pending)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func pendingRecord() *models.SalaryRecord {
	return &models.SalaryRecord{
		ID:              uuid.New(),
		Kind:            models.KindSalary,
		CompanyName:     "Acme",
		Designation:     "Engineer",
		Location:        "Dhaka",
		Department:      "Engineering",
		Experience:      4,
		ExperienceLevel: models.LevelMid,
		TotalMonthly:    125000,
		EmploymentType:  models.FullTime,
		ModerationState: models.StatePending,
	}
}

func TestRun_Pending(t *testing.T) {
	rec := pendingRecord()
	calls := &callLog{}
	srv := fakeAPI(t, []*models.SalaryRecord{rec}, calls)

	var out bytes.Buffer
	err := run(context.Background(), cliConfig{BaseURL: srv.URL, Token: "tok", Lang: "en"}, []string{"pending"}, &out, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Contains(t, out.String(), rec.ID.String())
	assert.Contains(t, out.String(), "15.0")
	assert.Contains(t, out.String(), "1 record(s)")
}

func TestRun_RejectFindsRecordAndSendsReason(t *testing.T) {
	rec := pendingRecord()
	calls := &callLog{}
	srv := fakeAPI(t, []*models.SalaryRecord{rec}, calls)

	var out bytes.Buffer
	args := []string{"reject", rec.ID.String(), "fake", "company"}
	err := run(context.Background(), cliConfig{BaseURL: srv.URL, Token: "tok"}, args, &out, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Contains(t, calls.list(), "PATCH /admin/"+rec.ID.String()+"/reject")
	assert.Contains(t, out.String(), "now rejected")
}

func TestRun_RestoreFromPendingIsRefusedLocally(t *testing.T) {
	rec := pendingRecord()
	calls := &callLog{}
	srv := fakeAPI(t, []*models.SalaryRecord{rec}, calls)

	err := run(context.Background(), cliConfig{BaseURL: srv.URL, Token: "tok"},
		[]string{"restore", rec.ID.String()}, &bytes.Buffer{}, zaptest.NewLogger(t))

	assert.ErrorIs(t, err, e.ErrInvalidTransition)
	for _, c := range calls.list() {
		assert.False(t, strings.HasPrefix(c, "PATCH"), "no moderation call is sent")
	}
}

func TestRun_MissingToken(t *testing.T) {
	calls := &callLog{}
	srv := fakeAPI(t, nil, calls)

	err := run(context.Background(), cliConfig{BaseURL: srv.URL}, []string{"pending"}, &bytes.Buffer{}, zaptest.NewLogger(t))

	assert.ErrorIs(t, err, e.ErrUnauthorized)
	assert.Empty(t, calls.list())
}

func TestRun_Insights(t *testing.T) {
	calls := &callLog{}
	srv := fakeAPI(t, []*models.SalaryRecord{pendingRecord()}, calls)

	var out bytes.Buffer
	err := run(context.Background(), cliConfig{BaseURL: srv.URL, Token: "tok"},
		[]string{"insights", "-experience", "3-5"}, &out, zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Average CTC:     15.0 LPA")
	assert.Contains(t, out.String(), "Dhaka")
}

func TestRun_UsageErrors(t *testing.T) {
	cfg := cliConfig{BaseURL: "http://localhost:1", Token: "tok"}
	for _, args := range [][]string{
		nil,
		{"frobnicate"},
		{"approve"},
		{"reject", uuid.NewString()},
		{"insights", "-bogus"},
	} {
		err := run(context.Background(), cfg, args, &bytes.Buffer{}, zaptest.NewLogger(t))
		assert.ErrorIs(t, err, errUsage, "%v", args)
	}
}

func TestParseCriteria(t *testing.T) {
	c, err := parseCriteria("insights", []string{"-search", "eng", "-location", "Dhaka", "-experience", "5+"})
	require.NoError(t, err)
	assert.Equal(t, insights.Criteria{Search: "eng", Location: "Dhaka", ExperienceRange: insights.RangeAbove5}, c)

	_, err = parseCriteria("insights", []string{"-experience", "7-9"})
	assert.ErrorIs(t, err, e.ErrInvalidInput)
}

func TestTable_ShowsRejectionReason(t *testing.T) {
	rejected := pendingRecord()
	rejected.ModerationState = models.StateRejected
	rejected.RejectionReason = utils.Ptr("duplicate entry")

	var out bytes.Buffer
	a := &app{out: &out, printer: message.NewPrinter(language.English)}
	a.table([]*models.SalaryRecord{rejected, pendingRecord()})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "REASON")
	assert.Contains(t, lines[1], "duplicate entry")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[2]), "pending"))
}
