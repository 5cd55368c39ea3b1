package server

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	lru "github.com/hashicorp/golang-lru/v2"

	"fitplan/internal/planner"
)

const (
	sessionCookieName = "fitplan_session"
	sessionIDKey      = "sid"
	sessionMaxAge     = 7 * 24 * 60 * 60
)

var errSessionNotFound = errors.New("session not found")

// planSession holds one browser's latest submission and outcome. All fields
// are guarded by mu.
type planSession struct {
	mu sync.Mutex
	id string

	cycle   *planner.Cycle
	profile *planner.Profile
	metrics *planner.Metrics
	rawPlan string
	plan    *planner.Plan
	lastErr error

	cancel context.CancelFunc
}

type planSnapshot struct {
	SessionID string           `json:"session_id"`
	Cycle     *planner.Cycle   `json:"cycle,omitempty"`
	Profile   *planner.Profile `json:"profile,omitempty"`
	Metrics   *planner.Metrics `json:"metrics,omitempty"`
	RawPlan   string           `json:"raw_plan,omitempty"`
	Plan      *planner.Plan    `json:"plan,omitempty"`
	Warning   string           `json:"warning,omitempty"`
}

func (s *planSession) snapshot() planSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *planSession) snapshotLocked() planSnapshot {
	out := planSnapshot{
		SessionID: s.id,
		Profile:   s.profile,
		Metrics:   s.metrics,
		RawPlan:   s.rawPlan,
		Plan:      s.plan,
	}
	if s.cycle != nil {
		cycle := *s.cycle
		out.Cycle = &cycle
	}
	if s.rawPlan != "" && s.plan == nil {
		out.Warning = planner.InvalidJSONMessage
	}
	return out
}

func (s *planSession) cancelInFlight() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// sessionStore keeps a bounded set of sessions. Evicted sessions have their
// in-flight generation cancelled.
type sessionStore struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *planSession]
}

func newSessionStore(size int) (*sessionStore, error) {
	cache, err := lru.NewWithEvict[string, *planSession](size, func(_ string, session *planSession) {
		session.cancelInFlight()
	})
	if err != nil {
		return nil, err
	}
	return &sessionStore{cache: cache}, nil
}

func (s *sessionStore) Get(id string) (*planSession, bool) {
	return s.cache.Get(id)
}

func (s *sessionStore) GetOrCreate(id string) *planSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.cache.Get(id); ok {
		return existing
	}
	session := &planSession{id: id}
	s.cache.Add(id, session)
	return session
}

func (s *sessionStore) Len() int {
	return s.cache.Len()
}

// Purge drops every session, cancelling in-flight generations.
func (s *sessionStore) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Purge()
}

func newCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// lookupSession resolves the caller's session from the signed cookie. With
// create set, a missing session is started and the cookie is (re)issued;
// this must run before the response body is written.
func (a *App) lookupSession(c *gin.Context, create bool) (*planSession, error) {
	// A tampered or stale cookie decodes into a fresh session; the error is
	// only informative here.
	cookie, _ := a.cookies.Get(c.Request, sessionCookieName)
	id, _ := cookie.Values[sessionIDKey].(string)

	if id != "" {
		if session, ok := a.sessions.Get(id); ok {
			return session, nil
		}
	}
	if !create {
		return nil, errSessionNotFound
	}

	if id == "" {
		id = uuid.NewString()
	}
	session := a.sessions.GetOrCreate(id)
	cookie.Values[sessionIDKey] = id
	if err := cookie.Save(c.Request, c.Writer); err != nil {
		return nil, err
	}
	return session, nil
}
