package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"fitplan/internal/config"
	"fitplan/internal/planner"
)

func TestSubmitPlanWaitReturnsParsedPlan(t *testing.T) {
	app := newTestApp(t, newTestConfig(), MockAIClient{})
	client := newBrowser(t, app)

	rec := client.do(http.MethodPost, "/api/v1/plans?wait=true", validProfileBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	snapshot := decodeJSON[planSnapshot](t, rec)
	if snapshot.Cycle == nil || snapshot.Cycle.State != planner.StateParsed {
		t.Fatalf("expected parsed cycle, got %+v", snapshot.Cycle)
	}
	if snapshot.Metrics == nil || snapshot.Metrics.TargetCalories != 1635 {
		t.Fatalf("expected target calories 1635, got %+v", snapshot.Metrics)
	}
	if snapshot.Profile == nil || snapshot.Profile.Goal != "weight-loss" || snapshot.Profile.Gender != "male" {
		t.Fatalf("expected normalized profile, got %+v", snapshot.Profile)
	}
	if snapshot.Plan == nil || len(snapshot.Plan.Days) != 2 || snapshot.Warning != "" {
		t.Fatalf("expected a two-day plan without warning, got %+v", snapshot)
	}
	if !strings.HasPrefix(snapshot.RawPlan, "Here is your plan:") {
		t.Fatalf("expected raw text kept verbatim, got %q", snapshot.RawPlan)
	}

	current := client.do(http.MethodGet, "/api/v1/plans/current", nil)
	if current.Code != http.StatusOK {
		t.Fatalf("expected current plan, got %d", current.Code)
	}

	rendered := client.do(http.MethodGet, "/api/v1/plans/current/rendered", nil)
	if rendered.Code != http.StatusOK {
		t.Fatalf("expected rendered plan, got %d", rendered.Code)
	}
	if ct := rendered.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/markdown") {
		t.Fatalf("expected markdown content type, got %q", ct)
	}
	for _, want := range []string{"### Day 1", "- **Breakfast**: Oats with banana and curd (~400 kcal)", "**Approx. daily calories:** 1600 kcal"} {
		if !strings.Contains(rendered.Body.String(), want) {
			t.Fatalf("expected %q in rendered plan:\n%s", want, rendered.Body.String())
		}
	}
}

func TestSubmitPlanSendsBuiltPrompt(t *testing.T) {
	stub := &stubAIClient{respond: answerWith(`{"summary":"s","disclaimer":"d","days":[]}`)}
	client := newBrowser(t, newTestApp(t, newTestConfig(), stub))

	rec := client.do(http.MethodPost, "/api/v1/plans?wait=1", validProfileBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	if stub.callCount() != 1 {
		t.Fatalf("expected one completion call, got %d", stub.callCount())
	}
	req := stub.calls[0]
	if len(req.Messages) != 3 || req.Messages[2].Role != "user" {
		t.Fatalf("unexpected messages: %+v", req.Messages)
	}
	prompt := req.Messages[2].Content
	for _, want := range []string{"Name (optional): Ravi", "BMI: 22.5", "around 1635 kcal"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("expected %q in prompt:\n%s", want, prompt)
		}
	}
}

func TestSubmitPlanParseFailureKeepsRawText(t *testing.T) {
	stub := &stubAIClient{respond: answerWith("not valid json")}
	client := newBrowser(t, newTestApp(t, newTestConfig(), stub))

	rec := client.do(http.MethodPost, "/api/v1/plans?wait=true", validProfileBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected parse failure to be a 200 outcome, got %d", rec.Code)
	}
	snapshot := decodeJSON[planSnapshot](t, rec)
	if snapshot.Cycle.State != planner.StateParseFailed {
		t.Fatalf("expected parse_failed, got %s", snapshot.Cycle.State)
	}
	if snapshot.RawPlan != "not valid json" || snapshot.Plan != nil {
		t.Fatalf("expected raw text and no plan, got %+v", snapshot)
	}
	if snapshot.Warning != planner.InvalidJSONMessage {
		t.Fatalf("expected invalid JSON warning, got %q", snapshot.Warning)
	}

	rendered := client.do(http.MethodGet, "/api/v1/plans/current/rendered", nil)
	body := rendered.Body.String()
	if !strings.HasPrefix(body, planner.InvalidJSONMessage) || !strings.Contains(body, "\nnot valid json\n") {
		t.Fatalf("expected fallback rendering, got %q", body)
	}
}

func TestGenerationFailureKeepsPreviousPlan(t *testing.T) {
	stub := &stubAIClient{}
	stub.setResponder(answerWith(mockPlanAnswer))
	client := newBrowser(t, newTestApp(t, newTestConfig(), stub))

	if rec := client.do(http.MethodPost, "/api/v1/plans?wait=true", validProfileBody()); rec.Code != http.StatusOK {
		t.Fatalf("first submission failed: %d", rec.Code)
	}

	stub.setResponder(failWith(&planner.GenerationError{StatusCode: http.StatusInternalServerError, Err: errors.New("boom")}))
	body := validProfileBody()
	body["goal"] = "maintenance"
	rec := client.do(http.MethodPost, "/api/v1/plans?wait=true", body)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := detailOf(t, rec); !strings.HasPrefix(detail, "Error while generating plan:") {
		t.Fatalf("unexpected detail %q", detail)
	}

	snapshot := decodeJSON[planSnapshot](t, client.do(http.MethodGet, "/api/v1/plans/current", nil))
	if snapshot.Cycle.State != planner.StateGenerationFailed || snapshot.Cycle.Error == "" {
		t.Fatalf("expected generation_failed with detail, got %+v", snapshot.Cycle)
	}
	if snapshot.Plan == nil || len(snapshot.Plan.Days) != 2 {
		t.Fatalf("expected previous plan to stay displayed, got %+v", snapshot.Plan)
	}
	if snapshot.Profile.Goal != "maintenance" || snapshot.Metrics.TargetCalories != 1935 {
		t.Fatalf("expected profile and metrics of the latest submission, got %+v %+v", snapshot.Profile, snapshot.Metrics)
	}
}

func TestMissingAPIKeyIsReportedAtGeneration(t *testing.T) {
	cfg := newTestConfig()
	cfg.AIProvider = config.AIProviderGroq
	cfg.GroqAPIKey = ""
	client := newBrowser(t, newTestApp(t, cfg, NewAIClient(cfg)))

	rec := client.do(http.MethodPost, "/api/v1/plans?wait=true", validProfileBody())
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := detailOf(t, rec); detail != "AI provider is not configured: set GROQ_API_KEY" {
		t.Fatalf("unexpected detail %q", detail)
	}
}

func TestSlowCompletionTimesOutAsGenerationFailure(t *testing.T) {
	cfg := newTestConfig()
	cfg.AITimeoutSeconds = 1
	stub := &stubAIClient{respond: func(ctx context.Context, req AIModelRequest) (AIModelResponse, error) {
		<-ctx.Done()
		return AIModelResponse{}, &planner.GenerationError{Err: ctx.Err()}
	}}
	client := newBrowser(t, newTestApp(t, cfg, stub))

	rec := client.do(http.MethodPost, "/api/v1/plans?wait=true", validProfileBody())
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d body=%s", rec.Code, rec.Body.String())
	}
	if detail := detailOf(t, rec); detail != "AI provider request timed out" {
		t.Fatalf("unexpected detail %q", detail)
	}

	snapshot := decodeJSON[planSnapshot](t, client.do(http.MethodGet, "/api/v1/plans/current", nil))
	if snapshot.Cycle.State != planner.StateGenerationFailed {
		t.Fatalf("expected generation_failed after timeout, got %s", snapshot.Cycle.State)
	}
}

func TestOutOfRangeNumbersStillProduceAPlan(t *testing.T) {
	answer := `{"days":[{"day":"Day 1","workout":[{"name":"Run","sets":2.5,"duration_minutes":1e999}],"diet":[{"meal":"Lunch","approx_calories":1e999}]}]}`
	stub := &stubAIClient{respond: answerWith(answer)}
	client := newBrowser(t, newTestApp(t, newTestConfig(), stub))

	rec := client.do(http.MethodPost, "/api/v1/plans?wait=true", validProfileBody())
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	snapshot := decodeJSON[planSnapshot](t, rec)
	if snapshot.Cycle.State != planner.StateParsed || snapshot.Plan == nil {
		t.Fatalf("expected parsed plan, got %+v", snapshot.Cycle)
	}
	day := snapshot.Plan.Days[0]
	if day.Workout[0].Sets != nil || day.Workout[0].DurationMinutes != nil || day.Diet[0].ApproxCalories != nil {
		t.Fatalf("expected unusable numbers to be dropped, got %+v %+v", day.Workout[0], day.Diet[0])
	}

	current := client.do(http.MethodGet, "/api/v1/plans/current", nil)
	if current.Code != http.StatusOK || current.Body.Len() == 0 {
		t.Fatalf("expected current plan to serialize, got %d %q", current.Code, current.Body.String())
	}
}

func TestSubmitPlanRejectsInvalidProfiles(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(map[string]any)
		detail string
	}{
		{name: "too young", mutate: func(b map[string]any) { b["age"] = 10 }, detail: "age must be at least 16"},
		{name: "too tall", mutate: func(b map[string]any) { b["height_cm"] = 250 }, detail: "height_cm must be at most 220"},
		{name: "missing goal", mutate: func(b map[string]any) { delete(b, "goal") }, detail: "goal is required"},
		{name: "too much time", mutate: func(b map[string]any) { b["time_per_day"] = 200 }, detail: "time_per_day must be at most 120"},
		{name: "one day", mutate: func(b map[string]any) { b["days_per_week"] = 1 }, detail: "days_per_week must be at least 2"},
		{name: "unknown gender", mutate: func(b map[string]any) { b["gender"] = "robot" }, detail: "gender must be one of"},
		{name: "unknown equipment", mutate: func(b map[string]any) { b["equipment"] = "spaceship" }, detail: "equipment must be one of"},
		{name: "wrong type", mutate: func(b map[string]any) { b["age"] = "twenty" }, detail: "Invalid request payload"},
	}

	stub := &stubAIClient{respond: answerWith("{}")}
	app := newTestApp(t, newTestConfig(), stub)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := validProfileBody()
			tc.mutate(body)
			rec := newBrowser(t, app).do(http.MethodPost, "/api/v1/plans", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
			}
			if detail := detailOf(t, rec); !strings.HasPrefix(detail, tc.detail) {
				t.Fatalf("expected detail starting with %q, got %q", tc.detail, detail)
			}
		})
	}
	if stub.callCount() != 0 {
		t.Fatalf("expected no generation for invalid profiles")
	}
}

func TestInFlightSubmissionConflictsAndCancels(t *testing.T) {
	started := make(chan struct{}, 4)
	aborted := make(chan struct{}, 4)
	stub := &stubAIClient{respond: func(ctx context.Context, req AIModelRequest) (AIModelResponse, error) {
		started <- struct{}{}
		<-ctx.Done()
		aborted <- struct{}{}
		return AIModelResponse{}, &planner.GenerationError{Err: ctx.Err()}
	}}
	client := newBrowser(t, newTestApp(t, newTestConfig(), stub))

	rec := client.do(http.MethodPost, "/api/v1/plans", validProfileBody())
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d body=%s", rec.Code, rec.Body.String())
	}
	if snapshot := decodeJSON[planSnapshot](t, rec); snapshot.Cycle == nil || !snapshot.Cycle.State.InFlight() {
		t.Fatalf("expected in-flight cycle, got %+v", snapshot.Cycle)
	}
	waitFor(t, started, "completion call to start")

	loading := client.do(http.MethodGet, "/api/v1/plans/current/rendered", nil)
	if loading.Code != http.StatusAccepted || !strings.Contains(loading.Body.String(), generatingMessage) {
		t.Fatalf("expected loading indicator, got %d %q", loading.Code, loading.Body.String())
	}

	conflict := client.do(http.MethodPost, "/api/v1/plans", validProfileBody())
	if conflict.Code != http.StatusConflict {
		t.Fatalf("expected 409 while in flight, got %d", conflict.Code)
	}

	cancelled := client.do(http.MethodDelete, "/api/v1/plans/current", nil)
	if cancelled.Code != http.StatusOK {
		t.Fatalf("expected cancel to succeed, got %d body=%s", cancelled.Code, cancelled.Body.String())
	}
	if snapshot := decodeJSON[planSnapshot](t, cancelled); snapshot.Cycle.State != planner.StateCancelled {
		t.Fatalf("expected cancelled state, got %s", snapshot.Cycle.State)
	}
	waitFor(t, aborted, "completion call to observe cancellation")

	current := decodeJSON[planSnapshot](t, client.do(http.MethodGet, "/api/v1/plans/current", nil))
	if current.Cycle.State != planner.StateCancelled || current.Plan != nil || current.RawPlan != "" {
		t.Fatalf("expected cancelled cycle without plan, got %+v", current)
	}

	again := client.do(http.MethodDelete, "/api/v1/plans/current", nil)
	if again.Code != http.StatusConflict {
		t.Fatalf("expected 409 with nothing in flight, got %d", again.Code)
	}

	stub.setResponder(answerWith(mockPlanAnswer))
	resubmit := client.do(http.MethodPost, "/api/v1/plans?wait=true", validProfileBody())
	if resubmit.Code != http.StatusOK {
		t.Fatalf("expected resubmission after cancel to run, got %d", resubmit.Code)
	}
	if snapshot := decodeJSON[planSnapshot](t, resubmit); snapshot.Cycle.State != planner.StateParsed {
		t.Fatalf("expected parsed resubmission, got %s", snapshot.Cycle.State)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	app := newTestApp(t, newTestConfig(), MockAIClient{})
	first := newBrowser(t, app)
	second := newBrowser(t, app)

	if rec := first.do(http.MethodPost, "/api/v1/plans?wait=true", validProfileBody()); rec.Code != http.StatusOK {
		t.Fatalf("submission failed: %d", rec.Code)
	}
	rec := second.do(http.MethodGet, "/api/v1/plans/current", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected other browser to have no plan, got %d", rec.Code)
	}
}

func TestPlanEndpointsWithoutSession(t *testing.T) {
	client := newBrowser(t, newTestApp(t, newTestConfig(), MockAIClient{}))
	for _, tc := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/plans/current"},
		{http.MethodGet, "/api/v1/plans/current/rendered"},
		{http.MethodDelete, "/api/v1/plans/current"},
	} {
		rec := client.do(tc.method, tc.path, nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s: expected 404, got %d", tc.method, tc.path, rec.Code)
		}
		if detail := detailOf(t, rec); detail != noPlanYetMessage {
			t.Fatalf("%s %s: unexpected detail %q", tc.method, tc.path, detail)
		}
	}
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}
