package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/trust"
)

// Analyzer is the part of the phishing service the API exposes.
type Analyzer interface {
	Analyze(ctx context.Context, email core.EmailData) (*core.Verdict, error)
	AnalyzeMode(ctx context.Context, email core.EmailData, mode core.Mode) (*core.Verdict, error)
	LastDeepScan() *core.DeepScanReport
}

// TrustAdmin manages the user trust lists.
type TrustAdmin interface {
	Check(ctx context.Context, sender string) core.TrustDecision
	UserLists(ctx context.Context) (core.TrustLists, error)
	AddIgnoredSender(ctx context.Context, sender string) error
	RemoveIgnoredSender(ctx context.Context, target string) error
	ClearIgnoredSenders(ctx context.Context) error
}

// Handler serves the analysis and ignore-list endpoints.
type Handler struct {
	analyzer Analyzer
	trust    TrustAdmin
	status   core.RulesStatus
	logger   *zap.Logger
}

// NewHandler creates a Handler. status may be nil.
func NewHandler(analyzer Analyzer, trust TrustAdmin, status core.RulesStatus, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{analyzer: analyzer, trust: trust, status: status, logger: logger}
}

type ignoreRequest struct {
	Sender string `json:"sender" binding:"required"`
}

// Register registers the API routes on rg. analyzeLimit guards the analyze
// endpoint on top of whatever rg already enforces.
func (h *Handler) Register(rg *gin.RouterGroup, analyzeLimit gin.HandlerFunc) {
	rg.POST("/analyze", analyzeLimit, h.Analyze)
	rg.GET("/trust", h.CheckTrust)
	rg.GET("/ignored", h.ListIgnored)
	rg.POST("/ignored", h.AddIgnored)
	rg.DELETE("/ignored", h.ClearIgnored)
	rg.DELETE("/ignored/:target", h.RemoveIgnored)
	rg.GET("/deep-scan/last", h.LastDeepScan)
}

// Health handles GET /healthz.
func (h *Handler) Health(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.status != nil {
		source, degraded := h.status()
		resp["rules"] = source
		resp["degraded"] = degraded
	}
	c.JSON(http.StatusOK, resp)
}

// Analyze handles POST /analyze. The optional mode query parameter forces
// light or full scoring.
func (h *Handler) Analyze(c *gin.Context) {
	var email core.EmailData
	if err := c.ShouldBindJSON(&email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email payload"})
		return
	}

	var (
		verdict *core.Verdict
		err     error
	)
	switch mode := core.Mode(c.Query("mode")); mode {
	case "":
		verdict, err = h.analyzer.Analyze(c.Request.Context(), email)
	case core.ModeLight, core.ModeFull:
		verdict, err = h.analyzer.AnalyzeMode(c.Request.Context(), email, mode)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be light or full"})
		return
	}
	if err != nil {
		h.logger.Error("Analysis failed", zap.String("sender", email.Sender), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis failed"})
		return
	}
	c.JSON(http.StatusOK, verdict)
}

// CheckTrust handles GET /trust?sender=.
func (h *Handler) CheckTrust(c *gin.Context) {
	sender := c.Query("sender")
	if sender == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sender required"})
		return
	}
	c.JSON(http.StatusOK, h.trust.Check(c.Request.Context(), sender))
}

// ListIgnored handles GET /ignored and returns every user list.
func (h *Handler) ListIgnored(c *gin.Context) {
	lists, err := h.trust.UserLists(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to read trust lists", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trust store unavailable"})
		return
	}
	c.JSON(http.StatusOK, lists)
}

// AddIgnored handles POST /ignored.
func (h *Handler) AddIgnored(c *gin.Context) {
	var req ignoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sender required"})
		return
	}
	if err := h.trust.AddIgnoredSender(c.Request.Context(), req.Sender); err != nil {
		h.writeTrustError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"sender": req.Sender})
}

// RemoveIgnored handles DELETE /ignored/:target, an email or a domain.
func (h *Handler) RemoveIgnored(c *gin.Context) {
	if err := h.trust.RemoveIgnoredSender(c.Request.Context(), c.Param("target")); err != nil {
		h.writeTrustError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearIgnored handles DELETE /ignored.
func (h *Handler) ClearIgnored(c *gin.Context) {
	if err := h.trust.ClearIgnoredSenders(c.Request.Context()); err != nil {
		h.writeTrustError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LastDeepScan handles GET /deep-scan/last.
func (h *Handler) LastDeepScan(c *gin.Context) {
	report := h.analyzer.LastDeepScan()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no deep scan yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *Handler) writeTrustError(c *gin.Context, err error) {
	if errors.Is(err, trust.ErrInvalidSender) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("Trust list update failed", zap.Error(err))
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "trust store unavailable"})
}

// requireDevToken rejects requests whose X-Dev-Token header does not match
// token. An empty token disables the check.
func requireDevToken(token string) gin.HandlerFunc {
	if token == "" {
		return func(c *gin.Context) { c.Next() }
	}
	want := []byte(token)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader("X-Dev-Token"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
