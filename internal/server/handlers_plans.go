package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fitplan/internal/planner"
)

const (
	noPlanYetMessage      = "No plan generated yet. Please submit your profile first."
	generatingMessage     = "Generating your personalized plan..."
	cancelledByClientText = "plan generation cancelled"

	defaultGenerationTimeout = 60 * time.Second
)

var errCycleInFlight = errors.New("a plan is already being generated for this session")

func (a *App) submitPlan(c *gin.Context) {
	var payload profileRequest
	if !mustJSON(c, &payload) {
		return
	}
	profile, err := planner.NormalizeProfile(payload.toProfile())
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}

	session, err := a.lookupSession(c, true)
	if err != nil {
		a.loggerFrom(c).Error().Err(err).Msg("failed to issue session cookie")
		writeError(c, http.StatusInternalServerError, "Could not start a session")
		return
	}

	done, err := a.startCycle(session, profile, *a.loggerFrom(c))
	if errors.Is(err, errCycleInFlight) {
		writeError(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(c, http.StatusInternalServerError, err.Error())
		return
	}

	if !wantsWait(c) {
		c.JSON(http.StatusAccepted, session.snapshot())
		return
	}

	select {
	case <-done:
	case <-c.Request.Context().Done():
		// Client went away; the cycle keeps running and stays observable.
		return
	}

	session.mu.Lock()
	snapshot := session.snapshotLocked()
	lastErr := session.lastErr
	session.mu.Unlock()

	var configErr *planner.ConfigurationError
	var genErr *planner.GenerationError
	switch {
	case errors.As(lastErr, &configErr):
		writeError(c, http.StatusServiceUnavailable, describeGenerationError(lastErr))
	case errors.As(lastErr, &genErr):
		writeError(c, http.StatusBadGateway, describeGenerationError(lastErr))
	default:
		c.JSON(http.StatusOK, snapshot)
	}
}

func wantsWait(c *gin.Context) bool {
	raw := c.Query("wait")
	if raw == "" {
		return false
	}
	wait, err := strconv.ParseBool(raw)
	return err == nil && wait
}

// startCycle records the submission and launches the generation goroutine.
// The returned channel closes when the cycle reaches a terminal state.
func (a *App) startCycle(session *planSession, profile planner.Profile, logger zerolog.Logger) (<-chan struct{}, error) {
	session.mu.Lock()
	defer session.mu.Unlock()

	if session.cycle != nil && session.cycle.State.InFlight() {
		return nil, errCycleInFlight
	}

	metrics := planner.ComputeMetrics(profile)
	cycle := planner.NewCycle(uuid.NewString())
	if err := cycle.Advance(planner.StateSubmitted, a.now()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	session.cycle = cycle
	session.profile = &profile
	session.metrics = &metrics
	session.lastErr = nil
	session.cancel = cancel

	cycleLogger := logger.With().
		Str("session_id", session.id).
		Str("cycle_id", cycle.ID).
		Logger()
	cycleLogger.Info().
		Float64("bmi", metrics.BMI).
		Int("target_calories", metrics.TargetCalories).
		Msg("plan cycle submitted")

	go a.runCycle(ctx, session, cycle, done, profile, metrics, cycleLogger)
	return done, nil
}

func (a *App) runCycle(ctx context.Context, session *planSession, cycle *planner.Cycle, done chan struct{}, profile planner.Profile, metrics planner.Metrics, logger zerolog.Logger) {
	defer close(done)
	defer a.releaseCycle(session, cycle)

	prompt := planner.BuildPrompt(profile, metrics)

	session.mu.Lock()
	if !cycle.State.InFlight() {
		session.mu.Unlock()
		return
	}
	_ = cycle.Advance(planner.StateAwaitingResponse, a.now())
	session.mu.Unlock()

	// The only deadline on the completion call.
	ctx, cancelTimeout := context.WithTimeout(ctx, a.generationTimeout())
	defer cancelTimeout()

	started := time.Now()
	raw, err := a.plans.GeneratePlan(ctx, prompt)
	elapsed := time.Since(started)

	session.mu.Lock()
	defer session.mu.Unlock()

	// A cancelled or superseded cycle must not touch the displayed plan.
	if session.cycle != cycle || !cycle.State.InFlight() {
		logger.Info().Dur("elapsed", elapsed).Msg("plan cycle result discarded")
		return
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			_ = cycle.Fail(planner.StateCancelled, cancelledByClientText, a.now())
			logger.Info().Msg("plan cycle cancelled")
			return
		}
		session.lastErr = err
		_ = cycle.Fail(planner.StateGenerationFailed, describeGenerationError(err), a.now())
		logger.Warn().Err(err).Dur("elapsed", elapsed).Msg("plan generation failed")
		return
	}

	session.rawPlan = raw
	plan, parseErr := planner.ParsePlan(planner.ExtractJSON(raw))
	if parseErr != nil {
		session.plan = nil
		_ = cycle.Fail(planner.StateParseFailed, parseErr.Error(), a.now())
		logger.Warn().Err(parseErr).Dur("elapsed", elapsed).Msg("plan response was not valid JSON")
		return
	}

	session.plan = &plan
	_ = cycle.Advance(planner.StateParsed, a.now())
	logger.Info().Int("days", len(plan.Days)).Dur("elapsed", elapsed).Msg("plan cycle parsed")
}

// releaseCycle drops the cycle's cancel handle unless a newer cycle has
// already replaced it.
func (a *App) releaseCycle(session *planSession, cycle *planner.Cycle) {
	session.mu.Lock()
	defer session.mu.Unlock()
	if session.cycle != cycle || session.cancel == nil {
		return
	}
	session.cancel()
	session.cancel = nil
}

func (a *App) generationTimeout() time.Duration {
	if a.cfg.AITimeoutSeconds <= 0 {
		return defaultGenerationTimeout
	}
	return time.Duration(a.cfg.AITimeoutSeconds) * time.Second
}

func describeGenerationError(err error) string {
	var configErr *planner.ConfigurationError
	if errors.As(err, &configErr) {
		return "AI provider is not configured: set " + configErr.Setting
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "AI provider request timed out"
	}
	return "Error while generating plan: " + err.Error()
}

func (a *App) getCurrentPlan(c *gin.Context) {
	session, err := a.lookupSession(c, false)
	if err != nil {
		writeError(c, http.StatusNotFound, noPlanYetMessage)
		return
	}
	snapshot := session.snapshot()
	if snapshot.Cycle == nil {
		writeError(c, http.StatusNotFound, noPlanYetMessage)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (a *App) getRenderedPlan(c *gin.Context) {
	session, err := a.lookupSession(c, false)
	if err != nil {
		writeError(c, http.StatusNotFound, noPlanYetMessage)
		return
	}
	snapshot := session.snapshot()
	if snapshot.RawPlan == "" {
		if snapshot.Cycle != nil && snapshot.Cycle.State.InFlight() {
			c.Data(http.StatusAccepted, "text/markdown; charset=utf-8", []byte(generatingMessage+"\n"))
			return
		}
		writeError(c, http.StatusNotFound, noPlanYetMessage)
		return
	}

	var body string
	if snapshot.Plan != nil {
		body = planner.RenderMarkdown(*snapshot.Plan)
	} else {
		body = planner.RenderFallback(snapshot.RawPlan)
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(body))
}

func (a *App) cancelCurrentPlan(c *gin.Context) {
	session, err := a.lookupSession(c, false)
	if err != nil {
		writeError(c, http.StatusNotFound, noPlanYetMessage)
		return
	}

	session.mu.Lock()
	if session.cycle == nil || !session.cycle.State.InFlight() {
		session.mu.Unlock()
		writeError(c, http.StatusConflict, "No plan generation in progress")
		return
	}
	_ = session.cycle.Fail(planner.StateCancelled, cancelledByClientText, a.now())
	if session.cancel != nil {
		session.cancel()
	}
	snapshot := session.snapshotLocked()
	session.mu.Unlock()

	a.loggerFrom(c).Info().
		Str("session_id", session.id).
		Str("cycle_id", snapshot.Cycle.ID).
		Msg("plan cycle cancelled by client")
	c.JSON(http.StatusOK, snapshot)
}
