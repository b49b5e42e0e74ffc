package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minoots/engine/internal/condition"
	"github.com/minoots/engine/internal/engine"
	"github.com/minoots/engine/internal/models"
	"github.com/minoots/engine/internal/retrypolicy"
	"github.com/minoots/engine/internal/store"
)

// TimerHandler exposes the engine's timer operations over HTTP.
type TimerHandler struct {
	engine *engine.Engine
}

// NewTimerHandler returns a TimerHandler backed by eng.
func NewTimerHandler(eng *engine.Engine) *TimerHandler {
	return &TimerHandler{engine: eng}
}

// createTimerBody is the wire shape CreateTimerConfig is parsed from;
// duration is left as interface{} so callers may send either a
// duration string ("5m") or a raw millisecond number.
type createTimerBody struct {
	Name             string                 `json:"name"`
	OwnerAgentID     string                 `json:"ownerAgentId"`
	TeamID           string                 `json:"teamId"`
	Duration         interface{}            `json:"duration"`
	Dependencies     []string               `json:"dependencies"`
	Conditions       []condition.Condition  `json:"conditions"`
	ConditionsMap    map[string]interface{} `json:"conditionsMap"`
	Context          map[string]interface{} `json:"context"`
	Metadata         map[string]interface{} `json:"metadata"`
	Events           models.TimerEvents     `json:"events"`
	RetryPolicy      *retrypolicy.Policy    `json:"retryPolicy"`
	ChainID          string                 `json:"chainId"`
	TemplateID       string                 `json:"templateId"`
	Scenario         string                 `json:"scenario"`
	LoadBalancingKey string                 `json:"loadBalancingKey"`
}

// Create creates a new timer.
// @Summary Create a timer
// @Tags timers
// @Accept json
// @Produce json
// @Success 201 {object} Response{data=models.Timer}
// @Router /api/v1/timers [post]
func (h *TimerHandler) Create(c *fiber.Ctx) error {
	var body createTimerBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	cfg := models.CreateTimerConfig{
		Name:             body.Name,
		OwnerAgentID:     body.OwnerAgentID,
		TeamID:           body.TeamID,
		CreatedBy:        c.Get("X-Agent-ID"),
		Duration:         body.Duration,
		Dependencies:     body.Dependencies,
		Conditions:       body.Conditions,
		ConditionsMap:    body.ConditionsMap,
		Context:          body.Context,
		Metadata:         body.Metadata,
		Events:           body.Events,
		RetryPolicy:      body.RetryPolicy,
		ChainID:          body.ChainID,
		TemplateID:       body.TemplateID,
		Scenario:         body.Scenario,
		LoadBalancingKey: body.LoadBalancingKey,
	}

	timer, err := h.engine.CreateTimer(c.Context(), cfg)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return created(c, timer)
}

// Get retrieves a timer by ID, with derived timeRemaining/progress.
// @Summary Get a timer
// @Tags timers
// @Produce json
// @Param id path string true "Timer ID"
// @Success 200 {object} Response{data=models.TimerView}
// @Failure 404 {object} Response
// @Router /api/v1/timers/{id} [get]
func (h *TimerHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid timer id")
	}

	view, err := h.engine.GetTimer(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "timer not found")
		}
		return internalError(c, err.Error())
	}
	return success(c, view)
}

// List lists timers, optionally filtered by agentId/teamId/status.
// @Summary List timers
// @Tags timers
// @Produce json
// @Success 200 {object} Response{data=[]models.Timer}
// @Router /api/v1/timers [get]
func (h *TimerHandler) List(c *fiber.Ctx) error {
	filter := models.TimerFilter{
		AgentID: c.Query("agentId"),
		TeamID:  c.Query("teamId"),
		Status:  models.Status(c.Query("status")),
	}
	timers, err := h.engine.ListTimers(c.Context(), filter)
	if err != nil {
		return internalError(c, err.Error())
	}
	return success(c, timers)
}

// Delete deletes a timer, cascading to its dependent records unless
// cascade=false is given.
// @Summary Delete a timer
// @Tags timers
// @Param id path string true "Timer ID"
// @Param cascade query bool false "Reclaim dependent records" default(true)
// @Success 200 {object} Response{data=models.DeleteResult}
// @Failure 404 {object} Response
// @Router /api/v1/timers/{id} [delete]
func (h *TimerHandler) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid timer id")
	}

	opts := models.DeleteOptions{Reason: c.Query("reason")}
	if raw := c.Query("cascade"); raw != "" {
		cascade := raw != "false"
		opts.Cascade = &cascade
	}

	res, err := h.engine.DeleteTimer(c.Context(), id, opts)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "timer not found")
		}
		return internalError(c, err.Error())
	}
	return success(c, res)
}

type updateTimerBody struct {
	Name        *string                `json:"name"`
	Metadata    map[string]interface{} `json:"metadata"`
	Context     map[string]interface{} `json:"context"`
	Events      *models.TimerEvents    `json:"events"`
	RetryPolicy *retrypolicy.Policy    `json:"retryPolicy"`
}

// Update applies a partial patch to an existing timer.
// @Summary Update a timer
// @Tags timers
// @Accept json
// @Produce json
// @Param id path string true "Timer ID"
// @Success 200 {object} Response{data=models.Timer}
// @Failure 404 {object} Response
// @Router /api/v1/timers/{id} [patch]
func (h *TimerHandler) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid timer id")
	}

	var body updateTimerBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	timer, err := h.engine.UpdateTimer(c.Context(), id, models.UpdateTimerPatch{
		Name:        body.Name,
		Metadata:    body.Metadata,
		Context:     body.Context,
		Events:      body.Events,
		RetryPolicy: body.RetryPolicy,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "timer not found")
		}
		return internalError(c, err.Error())
	}
	return success(c, timer)
}

type replayBody struct {
	Reason                string                 `json:"reason"`
	RequestedBy           string                 `json:"requestedBy"`
	MetadataOverrides     map[string]interface{} `json:"metadataOverrides"`
	ContextOverrides      map[string]interface{} `json:"contextOverrides"`
	IncludeReplayMetadata *bool                  `json:"includeReplayMetadata"`
}

// Replay creates a fresh timer derived from an existing one's config.
// @Summary Replay a timer
// @Tags timers
// @Accept json
// @Produce json
// @Param id path string true "Source timer ID"
// @Success 201 {object} Response{data=models.Timer}
// @Router /api/v1/timers/{id}/replay [post]
func (h *TimerHandler) Replay(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return badRequest(c, "invalid timer id")
	}

	var body replayBody
	if err := c.BodyParser(&body); err != nil {
		return badRequest(c, "invalid request body")
	}

	replayed, err := h.engine.ReplayTimer(c.Context(), id, models.ReplayOptions{
		Reason:                body.Reason,
		RequestedBy:           body.RequestedBy,
		MetadataOverrides:     body.MetadataOverrides,
		ContextOverrides:      body.ContextOverrides,
		IncludeReplayMetadata: body.IncludeReplayMetadata,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound(c, "timer not found")
		}
		return internalError(c, err.Error())
	}
	return created(c, replayed)
}

// HealthHandler reports database connectivity and background task
// scheduler liveness for the engine's operational probes.
type HealthHandler struct {
	ping        func() error
	schedulerUp func() bool
}

// NewHealthHandler returns a HealthHandler. ping checks the database
// connection; schedulerUp reports whether the background task
// scheduler is running.
func NewHealthHandler(ping func() error, schedulerUp func() bool) *HealthHandler {
	return &HealthHandler{ping: ping, schedulerUp: schedulerUp}
}

// Health reports overall service health.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	if err := h.ping(); err != nil {
		return serviceUnavailable(c, "database connection error")
	}
	return success(c, fiber.Map{"status": "healthy", "taskScheduler": h.schedulerUp()})
}

// Ready reports whether the service is ready to accept traffic.
// @Summary Readiness check
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Failure 503 {object} Response
// @Router /ready [get]
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	if !h.schedulerUp() {
		return serviceUnavailable(c, "task scheduler is not running")
	}
	if err := h.ping(); err != nil {
		return serviceUnavailable(c, "database connection error")
	}
	return success(c, fiber.Map{"status": "ready"})
}

// Live reports liveness, independent of downstream dependencies.
// @Summary Liveness check
// @Tags health
// @Produce json
// @Success 200 {object} Response
// @Router /live [get]
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return success(c, fiber.Map{"status": "alive"})
}
