package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	e "github.com/gartstein/salaries/internal/salary/errors"
	"github.com/gartstein/salaries/internal/salary/insights"
	"github.com/gartstein/salaries/internal/salary/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// maxBodyBytes bounds request bodies on the write routes.
const maxBodyBytes = 1 << 20

// SalaryController defines the business logic interface the REST handlers
// invoke.
type SalaryController interface {
	CreateSalary(ctx context.Context, rec *models.SalaryRecord) (*models.SalaryRecord, error)
	GetSalary(ctx context.Context, id uuid.UUID) (*models.SalaryRecord, error)
	UpdateSalary(ctx context.Context, update *models.SalaryUpdate) (*models.SalaryRecord, error)
	DeleteSalary(ctx context.Context, id uuid.UUID) error
	ListPending(ctx context.Context) ([]*models.SalaryRecord, error)
	SearchPending(ctx context.Context, query string) ([]*models.SalaryRecord, error)
	ListRejected(ctx context.Context) ([]*models.SalaryRecord, error)
	ListApproved(ctx context.Context, kind models.Kind) ([]*models.SalaryRecord, error)
	Approve(ctx context.Context, id uuid.UUID) (*models.SalaryRecord, error)
	Reject(ctx context.Context, id uuid.UUID, reason string) (*models.SalaryRecord, error)
	Restore(ctx context.Context, id uuid.UUID) (*models.SalaryRecord, error)
	Insights(ctx context.Context, c insights.Criteria) (insights.Summary, error)
	ExportCSV(ctx context.Context, w io.Writer, c insights.Criteria) error
}

// SalaryHandler serves the admin REST API on top of a SalaryController.
type SalaryHandler struct {
	service SalaryController
	logger  *zap.Logger
}

func NewSalaryHandler(service SalaryController, logger *zap.Logger) *SalaryHandler {
	return &SalaryHandler{
		service: service,
		logger:  logger.Named("rest_handler"),
	}
}

type route struct {
	method  string
	pattern string
	handler runtime.HandlerFunc
}

// Register mounts every admin route on mux. The gateway mux tries the most
// recently registered pattern first, so literal paths are listed after the
// parameterised ones they overlap with.
func (h *SalaryHandler) Register(mux *runtime.ServeMux) error {
	routes := []route{
		{http.MethodGet, "/admin/pending", h.ListPending},
		{http.MethodGet, "/admin/rejected", h.ListRejected},
		{http.MethodGet, "/admin/salaries/{id}", h.GetSalary},
		{http.MethodGet, "/admin/salaries", h.ListApproved},
		{http.MethodGet, "/admin/browse-all-salaries", h.ListApproved},
		{http.MethodGet, "/admin/salaries/export", h.ExportCSV},
		{http.MethodGet, "/admin/insights", h.Insights},
		{http.MethodPatch, "/admin/{id}/approve", h.Approve},
		{http.MethodPatch, "/admin/{id}/reject", h.Reject},
		{http.MethodPatch, "/admin/{id}/restore", h.Restore},
		{http.MethodPost, "/admin/create-salary", h.CreateSalary},
		{http.MethodPut, "/admin/salaries/{id}", h.UpdateSalary},
		{http.MethodDelete, "/admin/salaries/{id}", h.DeleteSalary},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return fmt.Errorf("register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return nil
}

func (h *SalaryHandler) ListPending(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var (
		recs []*models.SalaryRecord
		err  error
	)
	if q := r.URL.Query().Get("search"); q != "" {
		recs, err = h.service.SearchPending(r.Context(), q)
	} else {
		recs, err = h.service.ListPending(r.Context())
	}
	h.respondList(w, recs, err)
}

func (h *SalaryHandler) ListRejected(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	recs, err := h.service.ListRejected(r.Context())
	h.respondList(w, recs, err)
}

// ListApproved serves the published records; ?type=salary|story narrows by kind.
func (h *SalaryHandler) ListApproved(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var kind models.Kind
	if raw := r.URL.Query().Get("type"); raw != "" {
		k, err := models.ParseKind(raw)
		if err != nil {
			h.writeError(w, err)
			return
		}
		kind = k
	}
	recs, err := h.service.ListApproved(r.Context(), kind)
	h.respondList(w, recs, err)
}

func (h *SalaryHandler) GetSalary(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := h.parseID(w, params)
	if !ok {
		return
	}
	rec, err := h.service.GetSalary(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: rec})
}

func (h *SalaryHandler) Insights(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	summary, err := h.service.Insights(r.Context(), c)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: summary})
}

func (h *SalaryHandler) ExportCSV(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	c, err := criteriaFromQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="salaries.csv"`)
	if err := h.service.ExportCSV(r.Context(), w, c); err != nil {
		// Headers may already be out; all that is left is to log.
		h.logger.Error("CSV export failed", zap.Error(err))
	}
}

func (h *SalaryHandler) Approve(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := h.parseID(w, params)
	if !ok {
		return
	}
	rec, err := h.service.Approve(r.Context(), id)
	h.respondModeration(w, rec, err, "Salary approved")
}

func (h *SalaryHandler) Reject(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := h.parseID(w, params)
	if !ok {
		return
	}
	var req rejectRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	rec, err := h.service.Reject(r.Context(), id, req.Reason)
	h.respondModeration(w, rec, err, "Salary rejected")
}

func (h *SalaryHandler) Restore(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := h.parseID(w, params)
	if !ok {
		return
	}
	rec, err := h.service.Restore(r.Context(), id)
	h.respondModeration(w, rec, err, "Salary restored")
}

func (h *SalaryHandler) CreateSalary(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var rec models.SalaryRecord
	if err := decodeBody(r, &rec); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.service.CreateSalary(r.Context(), &rec)
	if err != nil {
		h.logger.Error("Create salary failed", zap.Error(err))
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, envelope{Success: true, Data: created, Message: "Salary created"})
}

func (h *SalaryHandler) UpdateSalary(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := h.parseID(w, params)
	if !ok {
		return
	}
	var req updateRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.service.UpdateSalary(r.Context(), req.toUpdate(id))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: updated, Message: "Salary updated"})
}

func (h *SalaryHandler) DeleteSalary(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, ok := h.parseID(w, params)
	if !ok {
		return
	}
	if err := h.service.DeleteSalary(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Message: "Salary deleted"})
}

func (h *SalaryHandler) respondList(w http.ResponseWriter, recs []*models.SalaryRecord, err error) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	if recs == nil {
		recs = []*models.SalaryRecord{}
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: recs})
}

func (h *SalaryHandler) respondModeration(w http.ResponseWriter, rec *models.SalaryRecord, err error, msg string) {
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: rec, Message: msg})
}

func (h *SalaryHandler) parseID(w http.ResponseWriter, params map[string]string) (uuid.UUID, bool) {
	id, err := uuid.Parse(params["id"])
	if err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid salary ID", e.ErrInvalidInput))
		return uuid.Nil, false
	}
	return id, true
}

func (h *SalaryHandler) writeError(w http.ResponseWriter, err error) {
	status, code, msg := h.mapServiceError(err)
	writeJSON(w, status, envelope{Success: false, Message: msg, Code: code})
}

func criteriaFromQuery(r *http.Request) (insights.Criteria, error) {
	q := r.URL.Query()
	rng, err := insights.ParseExperienceRange(q.Get("experience"))
	if err != nil {
		return insights.Criteria{}, err
	}
	var kind models.Kind
	if raw := q.Get("type"); raw != "" {
		if kind, err = models.ParseKind(raw); err != nil {
			return insights.Criteria{}, err
		}
	}
	return insights.Criteria{
		Search:          q.Get("search"),
		Location:        q.Get("location"),
		ExperienceRange: rng,
		Level:           q.Get("level"),
		Kind:            kind,
	}, nil
}

func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body required", e.ErrInvalidInput)
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		// An empty body decodes to the zero value; validation decides.
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: malformed request body: %v", e.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
