package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"appraisal/server/internal/adjustment"
	"appraisal/server/internal/engine"
	"appraisal/server/internal/measurement"
	"appraisal/server/internal/models"
	"appraisal/server/internal/rates"
)

// PresetReader loads the organization layer of a rate table
type PresetReader interface {
	GetRatePresets(ctx context.Context, organizationID string) (map[models.PropertyType]models.DefaultRates, error)
}

// StatusReader reports the outcome of rate preset writes
type StatusReader interface {
	Statuses(organizationID string) []models.RateSaveStatus
}

// Options wires the handler to its collaborators
type Options struct {
	Presets             PresetReader
	Sink                rates.Sink
	Statuses            StatusReader
	CalculationSystem   measurement.System
	DisplaySystem       measurement.System
	DefaultOrganization string
}

type Handler struct {
	sessions *SessionStore
	logger   *logrus.Logger
	opts     Options
}

type CreateSessionRequest struct {
	OrganizationID string `json:"organization_id"`
	PropertyType   string `json:"property_type"`
	DisplaySystem  string `json:"display_system"`
}

type MeasurementSystemRequest struct {
	System string `json:"system" binding:"required"`
}

type PropertyTypeRequest struct {
	PropertyType string `json:"property_type" binding:"required"`
}

type RateUpdateRequest struct {
	Value  *float64 `json:"value"`
	Method string   `json:"method"`
}

type NormalizeRequest struct {
	Value  models.FreeText `json:"value"`
	System string          `json:"system"`
}

type NormalizeResponse struct {
	Canonical float64            `json:"canonical"`
	Display   string             `json:"display"`
	Dual      string             `json:"dual"`
	System    measurement.System `json:"system"`
}

// SessionView is the presentation of one report session
type SessionView struct {
	ID                string                         `json:"id"`
	OrganizationID    string                         `json:"organization_id"`
	PropertyType      models.PropertyType            `json:"property_type"`
	State             engine.State                   `json:"state"`
	CalculationSystem measurement.System             `json:"calculation_system"`
	DisplaySystem     measurement.System             `json:"display_system"`
	CreatedAt         time.Time                      `json:"created_at"`
	Comparables       []models.ComparableAdjustments `json:"comparables"`
}

type SyncResponse struct {
	Diff    *engine.PayloadDiff `json:"diff,omitempty"`
	Report  engine.SyncReport   `json:"report"`
	Session SessionView         `json:"session"`
}

type RatesResponse struct {
	OrganizationID string              `json:"organization_id"`
	PropertyType   models.PropertyType `json:"property_type"`
	HasOverride    bool                `json:"has_override"`
	Rates          models.DefaultRates `json:"rates"`
}

func NewHandler(opts Options, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}
	if opts.CalculationSystem == "" {
		opts.CalculationSystem = measurement.Imperial
	}
	if opts.DisplaySystem == "" {
		opts.DisplaySystem = opts.CalculationSystem
	}
	if opts.DefaultOrganization == "" {
		opts.DefaultOrganization = "default"
	}

	return &Handler{
		sessions: NewSessionStore(),
		logger:   logger,
		opts:     opts,
	}
}

// Sessions returns the handler's session store
func (h *Handler) Sessions() *SessionStore {
	return h.sessions
}

func (h *Handler) GetCategories(c *gin.Context) {
	raw := c.Query("property_type")
	if raw == "" {
		c.JSON(http.StatusOK, adjustment.Registry)
		return
	}

	pt, err := models.ParsePropertyType(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, adjustment.ApplicableCategories(pt))
}

func (h *Handler) Normalize(c *gin.Context) {
	var req NormalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	sys := h.opts.CalculationSystem
	if req.System != "" {
		parsed, ok := measurement.ParseSystem(req.System)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown measurement system"})
			return
		}
		sys = parsed
	}

	raw := string(req.Value)
	c.JSON(http.StatusOK, NormalizeResponse{
		Canonical: measurement.ToCanonical(raw, sys),
		Display:   measurement.ToDisplay(raw, sys),
		Dual:      measurement.ToDualDisplay(raw, sys),
		System:    sys,
	})
}

func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	}

	organizationID := req.OrganizationID
	if organizationID == "" {
		organizationID = h.opts.DefaultOrganization
	}

	pt := models.SingleFamily
	if req.PropertyType != "" {
		parsed, err := models.ParsePropertyType(req.PropertyType)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		pt = parsed
	}

	display := h.opts.DisplaySystem
	if req.DisplaySystem != "" {
		parsed, ok := measurement.ParseSystem(req.DisplaySystem)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown measurement system"})
			return
		}
		display = parsed
	}

	var presets map[models.PropertyType]models.DefaultRates
	if h.opts.Presets != nil {
		var err error
		presets, err = h.opts.Presets.GetRatePresets(c.Request.Context(), organizationID)
		if err != nil {
			h.logger.WithError(err).Error("Failed to load rate presets")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load rate presets"})
			return
		}
	}

	table := rates.NewTable(organizationID, presets, pt, h.opts.Sink, h.logger)
	controller := engine.NewController(table, engine.Options{
		System:  h.opts.CalculationSystem,
		Display: display,
	}, h.logger)
	sess := h.sessions.add(organizationID, controller)

	h.logger.WithFields(logrus.Fields{
		"session_id":      sess.id.String(),
		"organization_id": organizationID,
		"property_type":   pt,
	}).Info("Session created")

	sess.mu.Lock()
	defer sess.mu.Unlock()
	c.JSON(http.StatusCreated, viewOf(sess))
}

func (h *Handler) GetSession(c *gin.Context) {
	h.withSession(c, func(sess *session) {
		c.JSON(http.StatusOK, viewOf(sess))
	})
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.remove(c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) PutComparison(c *gin.Context) {
	var payload models.ComparisonPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid comparison payload"})
		return
	}

	h.withSession(c, func(sess *session) {
		diff := sess.controller.Diff(payload)
		report := sess.controller.Apply(payload, diff)
		c.JSON(http.StatusOK, SyncResponse{Diff: &diff, Report: report, Session: viewOf(sess)})
	})
}

// GetComparison returns the latest comparison data delivered to the session
func (h *Handler) GetComparison(c *gin.Context) {
	h.withSession(c, func(sess *session) {
		payload, ok := sess.controller.Source()
		if !ok {
			h.respondError(c, engine.ErrNotSeeded)
			return
		}
		c.JSON(http.StatusOK, payload)
	})
}

func (h *Handler) ReloadFromSource(c *gin.Context) {
	h.withSession(c, func(sess *session) {
		report, err := sess.controller.ReloadFromSource()
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, SyncResponse{Report: report, Session: viewOf(sess)})
	})
}

func (h *Handler) SetMeasurementSystem(c *gin.Context) {
	var req MeasurementSystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	sys, ok := measurement.ParseSystem(req.System)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown measurement system"})
		return
	}

	h.withSession(c, func(sess *session) {
		sess.controller.SetMeasurementSystem(sys)
		c.JSON(http.StatusOK, viewOf(sess))
	})
}

func (h *Handler) SetPropertyType(c *gin.Context) {
	var req PropertyTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	pt, err := models.ParsePropertyType(req.PropertyType)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.withSession(c, func(sess *session) {
		report, err := sess.controller.SetPropertyType(pt)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, SyncResponse{Report: report, Session: viewOf(sess)})
	})
}

func (h *Handler) GetRates(c *gin.Context) {
	h.withSession(c, func(sess *session) {
		c.JSON(http.StatusOK, ratesOf(sess))
	})
}

func (h *Handler) UpdateRate(c *gin.Context) {
	key := rates.RateKey(c.Param("key"))
	if !key.IsValid() {
		h.respondError(c, rates.ErrUnknownRateKey)
		return
	}

	var req RateUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.withSession(c, func(sess *session) {
		var err error
		switch {
		case key.IsMethod():
			_, err = sess.controller.SetMethod(key, req.Method)
		case req.Value != nil:
			_, err = sess.controller.SetRate(key, *req.Value)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing rate value"})
			return
		}
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ratesOf(sess))
	})
}

func (h *Handler) ResetRates(c *gin.Context) {
	h.withSession(c, func(sess *session) {
		sess.controller.ResetRates()
		c.JSON(http.StatusOK, ratesOf(sess))
	})
}

func (h *Handler) UpdateAdjustment(c *gin.Context) {
	var edit engine.AdjustmentEdit
	if err := c.ShouldBindJSON(&edit); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.withSession(c, func(sess *session) {
		rec, err := sess.controller.UpdateAdjustment(c.Param("comparable"), models.CategoryID(c.Param("category")), edit)
		if err != nil {
			h.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, rec)
	})
}

func (h *Handler) RemoveComparable(c *gin.Context) {
	h.withSession(c, func(sess *session) {
		if err := sess.controller.RemoveComparable(c.Param("comparable")); err != nil {
			h.respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func (h *Handler) GetRateStatus(c *gin.Context) {
	if h.opts.Statuses == nil {
		c.JSON(http.StatusOK, []models.RateSaveStatus{})
		return
	}
	c.JSON(http.StatusOK, h.opts.Statuses.Statuses(c.Query("organization_id")))
}

// withSession runs fn with the session named by the id parameter locked
func (h *Handler) withSession(c *gin.Context, fn func(sess *session)) {
	sess, err := h.sessions.get(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	fn(sess)
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrSessionNotFound),
		errors.Is(err, engine.ErrComparableNotFound),
		errors.Is(err, engine.ErrCategoryNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrNotSeeded):
		status = http.StatusConflict
	case errors.Is(err, rates.ErrUnknownRateKey),
		errors.Is(err, rates.ErrInvalidMethod),
		errors.Is(err, models.ErrInvalidPropertyType),
		errors.Is(err, engine.ErrDerivedDifference):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.logger.WithError(err).Error("Request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func viewOf(sess *session) SessionView {
	ctrl := sess.controller
	return SessionView{
		ID:                sess.id.String(),
		OrganizationID:    sess.organizationID,
		PropertyType:      ctrl.Rates().Active(),
		State:             ctrl.State(),
		CalculationSystem: ctrl.System(),
		DisplaySystem:     ctrl.Display(),
		CreatedAt:         sess.createdAt,
		Comparables:       ctrl.Comparables(),
	}
}

func ratesOf(sess *session) RatesResponse {
	table := sess.controller.Rates()
	return RatesResponse{
		OrganizationID: table.OrganizationID(),
		PropertyType:   table.Active(),
		HasOverride:    table.HasOverride(table.Active()),
		Rates:          table.ActiveRates(),
	}
}
