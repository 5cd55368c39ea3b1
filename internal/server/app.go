package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"fitplan/internal/config"
)

type App struct {
	cfg      config.Config
	log      zerolog.Logger
	plans    *PlanClient
	sessions *sessionStore
	cookies  *sessions.CookieStore
	now      func() time.Time
}

func New(cfg config.Config, logger zerolog.Logger, ai AIClient) (*App, error) {
	store, err := newSessionStore(cfg.SessionCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}
	return &App{
		cfg:      cfg,
		log:      logger,
		plans:    NewPlanClient(ai, cfg.GroqModel),
		sessions: store,
		cookies:  newCookieStore(cfg.SessionSecret, cfg.SessionCookieSecure),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(a.log), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     a.cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", a.health)

	api := router.Group(a.cfg.APIPrefix)
	api.GET("/options", a.getOptions)
	api.POST("/metrics/preview", a.previewMetrics)
	api.POST("/plans", a.submitPlan)
	api.GET("/plans/current", a.getCurrentPlan)
	api.GET("/plans/current/rendered", a.getRenderedPlan)
	api.DELETE("/plans/current", a.cancelCurrentPlan)

	return router
}

// Shutdown drops all sessions and cancels their in-flight generations.
func (a *App) Shutdown() {
	a.sessions.Purge()
}

func (a *App) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "fitplan-api",
	})
}

func writeError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}

func mustJSON(c *gin.Context, payload any) bool {
	if err := c.ShouldBindJSON(payload); err != nil {
		writeError(c, http.StatusBadRequest, describeBindError(err))
		return false
	}
	return true
}

func describeBindError(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "Invalid request payload"
	}
	fe := validationErrs[0]
	field := snakeCase(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
