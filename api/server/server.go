package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"notifyconsole/api/middleware"
	"notifyconsole/internal/catalog"
	"notifyconsole/internal/config"
	"notifyconsole/internal/console"
	"notifyconsole/internal/elasticsearch"
	"notifyconsole/internal/logger"
	"notifyconsole/internal/models"
	"notifyconsole/internal/recipient"
	"notifyconsole/internal/render"
	"notifyconsole/internal/rule"
	"notifyconsole/internal/session"
	"notifyconsole/internal/template"
	"notifyconsole/internal/variable"
)

// ChangeHistory returns the stored changes of one rule, newest first.
type ChangeHistory interface {
	History(ctx context.Context, category rule.Category, id string, limit int) ([]models.RuleChange, error)
}

type Server struct {
	router     *gin.Engine
	console    *console.Service
	es         *elasticsearch.Client
	history    ChangeHistory
	limiter    *middleware.IPRateLimiter
	configPath string
	config     *config.Config
}

// NewServer builds the console API. es and history may be nil.
func NewServer(svc *console.Service, esClient *elasticsearch.Client, history ChangeHistory, configPath string, cfg *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	timeout := time.Duration(cfg.Server.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	router.Use(middleware.Timeout(timeout))

	server := &Server{
		router:  router,
		console: svc,
		es:      esClient,
		history: history,
		limiter: middleware.NewIPRateLimiter(middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.Server.RateLimit,
			BurstSize:         cfg.Server.RateBurst,
			CleanupInterval:   5 * time.Minute,
		}),
		configPath: configPath,
		config:     cfg,
	}

	if cfg.Logger.AuditDir != "" {
		if err := logger.InitChangeLog(cfg.Logger.AuditDir); err != nil {
			logger.Warn("Failed to initialize change journal", zap.Error(err))
		}
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	api.Use(s.limiter.Middleware())

	{
		// Rules - all using POST
		api.POST("/rules/list", s.listRules)
		api.POST("/rules/get", s.getRule)
		api.POST("/rules/create", s.createRule)
		api.POST("/rules/update", s.updateRule)
		api.POST("/rules/remove", s.removeRule)
		api.POST("/rules/history", s.ruleHistory)

		// Editing sessions
		api.POST("/session/open", s.openSession)
		api.POST("/session/close", s.closeSession)
		api.POST("/session/state", s.sessionState)
		api.POST("/session/select", s.sessionSelect)
		api.POST("/session/new", s.sessionNew)
		api.POST("/session/edit", s.sessionEdit)
		api.POST("/session/save", s.sessionSave)
		api.POST("/session/discard", s.sessionDiscard)
		api.POST("/session/delete", s.sessionDelete)
		api.POST("/session/preview", s.sessionPreview)
		api.POST("/session/eml", s.sessionEML)
		api.POST("/session/subject", s.sessionSubject)
		api.POST("/session/template/reset", s.sessionResetTemplate)

		// Template blocks of the session rule
		api.POST("/session/block/add", s.blockAdd)
		api.POST("/session/block/update", s.blockUpdate)
		api.POST("/session/block/remove", s.blockRemove)
		api.POST("/session/block/move", s.blockMove)
		api.POST("/session/block/select", s.blockSelect)

		// Recipients
		api.POST("/recipients/list", s.listRecipients)
		api.POST("/recipients/add", s.addRecipient)
		api.POST("/recipients/update", s.updateRecipient)
		api.POST("/recipients/remove", s.removeRecipient)

		// Catalog and vocabulary
		api.POST("/catalog/select", s.selectCatalog)
		api.GET("/variables", s.listVariables)
		api.GET("/blocks/kinds", s.listBlockKinds)

		// Audit trail
		api.POST("/audit/search", s.searchAudit)

		// System Configuration
		api.GET("/config", s.getConfig)
		api.POST("/config", s.updateConfig)
	}

	s.router.GET("/health", s.healthCheck)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(addr string) error {
	defer s.limiter.Stop()
	return s.router.Run(addr)
}

func (s *Server) healthCheck(c *gin.Context) {
	n, _ := s.console.Store().Count(rule.CategoryAll)
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"rules":    n,
		"sessions": s.console.SessionCount(),
	})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(c *gin.Context, err error) {
	var verr *rule.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "fields": verr.Fields})
		return
	case errors.Is(err, session.ErrSelectionCancelled),
		errors.Is(err, session.ErrDeleteCancelled),
		errors.Is(err, session.ErrNoSelection),
		errors.Is(err, recipient.ErrDuplicate),
		errors.Is(err, rule.ErrDuplicateID):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, rule.ErrNotFound),
		errors.Is(err, recipient.ErrNotFound),
		errors.Is(err, console.ErrSessionNotFound),
		errors.Is(err, console.ErrNoCatalog),
		errors.Is(err, catalog.ErrUnknownModule):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrPersistence),
		errors.Is(err, catalog.ErrLoad):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, rule.ErrUnknownCategory),
		errors.Is(err, rule.ErrCategoryMix),
		errors.Is(err, recipient.ErrUnknownKind),
		errors.Is(err, recipient.ErrInvalidValue),
		errors.Is(err, recipient.ErrModuleRequired),
		errors.Is(err, render.ErrUnknownChannel),
		errors.Is(err, template.ErrUnknownKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) listVariables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"variables": variable.Vocabulary()})
}

func (s *Server) listBlockKinds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"kinds": template.Kinds()})
}

func (s *Server) previewOptions(theme string) render.Options {
	if theme == "" {
		theme = s.config.Preview.Theme
	}
	return render.Options{Theme: render.ParseTheme(theme)}
}
