package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kpiboard/internal/aggregation"
	"kpiboard/internal/apperr"
	"kpiboard/internal/logger"
	"kpiboard/internal/model"
	"kpiboard/internal/rag"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type KpiStore interface {
	Create(ctx context.Context, kpi *model.Kpi) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Kpi, error)
	GetOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Kpi, error)
	Update(ctx context.Context, kpi *model.Kpi) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type EntryStore interface {
	Create(ctx context.Context, entry *model.KpiEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.KpiEntry, error)
	ListByKpi(ctx context.Context, kpiID uuid.UUID, start, end *time.Time) ([]model.KpiEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Aggregator interface {
	Aggregate(ctx context.Context, kpiID uuid.UUID, typ aggregation.Type, start, end *time.Time) (*float64, error)
	MissingDates(ctx context.Context, kpiID uuid.UUID, start, end time.Time) ([]time.Time, error)
}

type KpiHandler struct {
	kpis    KpiStore
	entries EntryStore
	engine  Aggregator
	perms   Permissions
	log     *logger.Logger
}

func NewKpiHandler(kpis KpiStore, entries EntryStore, engine Aggregator, perms Permissions, log *logger.Logger) *KpiHandler {
	return &KpiHandler{
		kpis:    kpis,
		entries: entries,
		engine:  engine,
		perms:   perms,
		log:     log,
	}
}

type KpiRequest struct {
	Name         string   `json:"name" binding:"required"`
	Description  string   `json:"description"`
	Direction    string   `json:"direction" binding:"required"`
	Target       *float64 `json:"target"`
	RagRed       *float64 `json:"rag_red" binding:"required"`
	RagAmber     *float64 `json:"rag_amber" binding:"required"`
	FormatPrefix string   `json:"format_prefix"`
	FormatSuffix string   `json:"format_suffix"`
}

type KpiResponse struct {
	ID           string   `json:"id"`
	OwnerID      string   `json:"owner_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Direction    string   `json:"direction"`
	Target       *float64 `json:"target"`
	RagRed       float64  `json:"rag_red"`
	RagAmber     float64  `json:"rag_amber"`
	FormatPrefix string   `json:"format_prefix"`
	FormatSuffix string   `json:"format_suffix"`
	CreatedAt    string   `json:"created_at"`
	UpdatedAt    string   `json:"updated_at"`
}

type EntryRequest struct {
	Date  string   `json:"date" binding:"required"`
	Value *float64 `json:"value" binding:"required"`
	Note  string   `json:"note" binding:"max=1000"`
}

type EntryResponse struct {
	ID    string  `json:"id"`
	KpiID string  `json:"kpi_id"`
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Note  string  `json:"note"`
}

type StatusResponse struct {
	KpiID  string   `json:"kpi_id"`
	Value  *float64 `json:"value"`
	Status *string  `json:"status"`
}

type AggregateResponse struct {
	KpiID string   `json:"kpi_id"`
	Type  string   `json:"type"`
	Start *string  `json:"start"`
	End   *string  `json:"end"`
	Value *float64 `json:"value"`
}

func toKpiResponse(k *model.Kpi) KpiResponse {
	return KpiResponse{
		ID:           k.ID.String(),
		OwnerID:      k.OwnerID.String(),
		Name:         k.Name,
		Description:  k.Description,
		Direction:    string(k.Direction),
		Target:       k.Target,
		RagRed:       k.RagRed,
		RagAmber:     k.RagAmber,
		FormatPrefix: k.FormatPrefix,
		FormatSuffix: k.FormatSuffix,
		CreatedAt:    k.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    k.UpdatedAt.Format(time.RFC3339),
	}
}

func toEntryResponse(e *model.KpiEntry) EntryResponse {
	return EntryResponse{
		ID:    e.ID.String(),
		KpiID: e.KpiID.String(),
		Date:  e.Date.Format(model.DateLayout),
		Value: e.Value,
		Note:  e.Note,
	}
}

func (req *KpiRequest) apply(kpi *model.Kpi) {
	kpi.Name = strings.TrimSpace(req.Name)
	kpi.Description = req.Description
	kpi.Direction = model.Direction(req.Direction)
	kpi.Target = req.Target
	kpi.RagRed = *req.RagRed
	kpi.RagAmber = *req.RagAmber
	kpi.FormatPrefix = req.FormatPrefix
	kpi.FormatSuffix = req.FormatSuffix
}

// dateRange reads the optional start and end query parameters.
func dateRange(c *gin.Context) (start, end *time.Time, err error) {
	if s := c.Query("start"); s != "" {
		d, err := aggregation.ParseDate(s)
		if err != nil {
			return nil, nil, err
		}
		start = &d
	}
	if s := c.Query("end"); s != "" {
		d, err := aggregation.ParseDate(s)
		if err != nil {
			return nil, nil, err
		}
		end = &d
	}
	return start, end, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(model.DateLayout)
	return &s
}

// Create defines a new KPI owned by the caller. Editors and admins only.
//
// @Summary   Create a KPI
// @Tags      KPIs
// @Security  BearerAuth
// @Param     request body KpiRequest true "KPI definition"
// @Success   201 {object} KpiResponse
// @Router    /kpis [post]
func (h *KpiHandler) Create(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	if err := h.perms.RequireRole(user, model.RoleEditor, model.RoleAdmin); err != nil {
		respondError(c, h.log, err)
		return
	}

	var req KpiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}

	kpi := &model.Kpi{ID: uuid.New(), OwnerID: user.ID}
	req.apply(kpi)
	if err := kpi.Validate(); err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.kpis.Create(c.Request.Context(), kpi); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, toKpiResponse(kpi))
}

// GetAll lists the KPIs the caller owns.
func (h *KpiHandler) GetAll(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	kpis, err := h.kpis.GetOwned(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	out := make([]KpiResponse, 0, len(kpis))
	for i := range kpis {
		out = append(out, toKpiResponse(&kpis[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *KpiHandler) GetByID(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.perms.RequireKpiAccess(c.Request.Context(), user, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	kpi, err := h.kpis.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, toKpiResponse(kpi))
}

// Update replaces the KPI definition. Owner or admin only.
func (h *KpiHandler) Update(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	kpi, err := h.perms.RequireKpiWrite(c.Request.Context(), user, id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var req KpiRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	req.apply(kpi)
	if err := kpi.Validate(); err != nil {
		respondError(c, h.log, err)
		return
	}
	if err := h.kpis.Update(c.Request.Context(), kpi); err != nil {
		respondError(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, toKpiResponse(kpi))
}

// Delete removes the KPI and its entries. KPIs still on a dashboard
// layout are refused with 409.
func (h *KpiHandler) Delete(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.perms.RequireKpiWrite(c.Request.Context(), user, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.kpis.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	h.log.Info("kpi deleted", "kpi_id", id.String(), "user_id", user.ID.String())
	c.Status(http.StatusNoContent)
}

// Status classifies a value against the KPI's RAG thresholds. Without a
// value query parameter the latest entry is classified.
//
// @Summary   RAG status of a KPI
// @Tags      KPIs
// @Security  BearerAuth
// @Param     id    path  string true  "KPI ID"
// @Param     value query number false "Value to classify"
// @Success   200 {object} StatusResponse
// @Router    /kpis/{id}/status [get]
func (h *KpiHandler) Status(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.perms.RequireKpiAccess(c.Request.Context(), user, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	kpi, err := h.kpis.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	var value *float64
	if raw := c.Query("value"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(c, h.log, apperr.Validation("value must be a number"))
			return
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			respondError(c, h.log, apperr.Validation("value must be a finite number"))
			return
		}
		value = &v
	} else {
		value, err = h.engine.Aggregate(c.Request.Context(), id, aggregation.Latest, nil, nil)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
	}

	resp := StatusResponse{KpiID: id.String(), Value: value}
	if value != nil {
		status, err := rag.Evaluate(kpi, *value)
		if err != nil {
			respondError(c, h.log, err)
			return
		}
		s := string(status)
		resp.Status = &s
	}
	c.JSON(http.StatusOK, resp)
}

// Aggregate reduces the KPI's entries in an optional date range.
//
// @Summary   Aggregate KPI entries
// @Tags      KPIs
// @Security  BearerAuth
// @Param     id    path  string true  "KPI ID"
// @Param     type  query string true  "sum, average, latest, min, max or count"
// @Param     start query string false "YYYY-MM-DD"
// @Param     end   query string false "YYYY-MM-DD"
// @Success   200 {object} AggregateResponse
// @Router    /kpis/{id}/aggregate [get]
func (h *KpiHandler) Aggregate(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.perms.RequireKpiAccess(c.Request.Context(), user, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	typ, err := aggregation.ParseType(c.Query("type"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	start, end, err := dateRange(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	value, err := h.engine.Aggregate(c.Request.Context(), id, typ, start, end)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, AggregateResponse{
		KpiID: id.String(),
		Type:  string(typ),
		Start: formatDate(start),
		End:   formatDate(end),
		Value: value,
	})
}

// MissingDates lists calendar days in [start, end] with no entry.
func (h *KpiHandler) MissingDates(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.perms.RequireKpiAccess(c.Request.Context(), user, id); err != nil {
		respondError(c, h.log, err)
		return
	}

	start, end, err := dateRange(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if start == nil || end == nil {
		respondError(c, h.log, apperr.Validation("start and end are required"))
		return
	}

	missing, err := h.engine.MissingDates(c.Request.Context(), id, *start, *end)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	dates := make([]string, 0, len(missing))
	for _, d := range missing {
		dates = append(dates, d.Format(model.DateLayout))
	}
	c.JSON(http.StatusOK, gin.H{"kpi_id": id.String(), "missing_dates": dates})
}

// CreateEntry records a dated value. Owner or admin only.
//
// @Summary   Add a KPI entry
// @Tags      KPI Entries
// @Security  BearerAuth
// @Param     id path string true "KPI ID"
// @Param     request body EntryRequest true "Entry"
// @Success   201 {object} EntryResponse
// @Router    /kpis/{id}/entries [post]
func (h *KpiHandler) CreateEntry(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	kpiID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if _, err := h.perms.RequireKpiWrite(c.Request.Context(), user, kpiID); err != nil {
		respondError(c, h.log, err)
		return
	}

	var req EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request")
		return
	}
	date, err := aggregation.ParseDate(req.Date)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	entry := &model.KpiEntry{
		ID:    uuid.New(),
		KpiID: kpiID,
		Date:  date,
		Value: *req.Value,
		Note:  req.Note,
	}
	if err := h.entries.Create(c.Request.Context(), entry); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, toEntryResponse(entry))
}

func (h *KpiHandler) ListEntries(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	kpiID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := h.perms.RequireKpiAccess(c.Request.Context(), user, kpiID); err != nil {
		respondError(c, h.log, err)
		return
	}

	start, end, err := dateRange(c)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	entries, err := h.entries.ListByKpi(c.Request.Context(), kpiID, start, end)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	out := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, toEntryResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *KpiHandler) DeleteEntry(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	entry, err := h.entries.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if _, err := h.perms.RequireKpiWrite(c.Request.Context(), user, entry.KpiID); err != nil {
		respondError(c, h.log, err)
		return
	}

	if err := h.entries.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
