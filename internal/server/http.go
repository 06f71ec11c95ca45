package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/01Clarian/xposure/internal/engine"
	"github.com/01Clarian/xposure/internal/entry"
	"github.com/01Clarian/xposure/internal/observability"
	"github.com/01Clarian/xposure/internal/query"
)

// Server is the HTTP surface: the payment-notifier webhook, the chat-bot
// callbacks (entries, media, votes), read-side queries, and operational
// endpoints.
type Server struct {
	eng     *engine.Engine
	queries *query.Service
	health  *observability.HealthChecker
	metrics *observability.Metrics
	logger  zerolog.Logger
	router  *gin.Engine
}

func New(
	eng *engine.Engine,
	queries *query.Service,
	health *observability.HealthChecker,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		eng:     eng,
		queries: queries,
		health:  health,
		metrics: metrics,
		logger:  logger.With().Str("component", "http").Logger(),
		router:  gin.New(),
	}

	s.router.Use(gin.Recovery(), s.requestMetrics())

	v1 := s.router.Group("/v1")
	{
		v1.POST("/payments", s.handlePayment)
		v1.POST("/entries", s.handleRegisterChoice)
		v1.POST("/entries/:payer_id/media", s.handleAttachMedia)
		v1.POST("/votes", s.handleCastVote)
		v1.GET("/status", s.handleStatus)
		v1.GET("/standings/:cycle", s.handleStandings)
		v1.GET("/payouts/:payer_id", s.handlePayoutHistory)
	}

	s.router.GET("/healthz", s.handleLiveness)
	s.router.GET("/readyz", s.handleReadiness)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// Handler exposes the router for http.Server wiring.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if s.metrics != nil {
			endpoint := c.FullPath()
			if endpoint == "" {
				endpoint = "unknown"
			}
			s.metrics.APIRequests.WithLabelValues(endpoint, strconv.Itoa(c.Writer.Status())).Inc()
			s.metrics.APIDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		}
	}
}

type paymentRequest struct {
	Reference    string `json:"reference" binding:"required"`
	PayerID      int64  `json:"payer_id" binding:"required"`
	Lamports     int64  `json:"lamports" binding:"required"`
	PayerAddress string `json:"payer_address" binding:"required"`
}

// handlePayment is the payment-notifier webhook. The reply distinguishes
// accepted from already-processed; settlement itself is asynchronous.
func (s *Server) handlePayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := s.eng.RecordNotification(c.Request.Context(), req.Reference, req.PayerID, req.Lamports, req.PayerAddress)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrAmountOutOfBounds) || errors.Is(err, engine.ErrBadAddress) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	if outcome == engine.NotifyOutcomeAlreadyProcessed {
		c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

type registerChoiceRequest struct {
	PayerID     int64  `json:"payer_id" binding:"required"`
	DisplayName string `json:"display_name"`
	Choice      string `json:"choice" binding:"required"`
}

func (s *Server) handleRegisterChoice(c *gin.Context) {
	var req registerChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var choice entry.Choice
	switch req.Choice {
	case "upload":
		choice = entry.ChoiceUpload
	case "vote_only":
		choice = entry.ChoiceVoteOnly
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "choice must be upload or vote_only"})
		return
	}

	reference, err := s.eng.RegisterChoice(c.Request.Context(), req.PayerID, req.DisplayName, choice)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, engine.ErrNotSubmission) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reference": reference})
}

type attachMediaRequest struct {
	MediaRef    string `json:"media_ref" binding:"required"`
	Title       string `json:"title"`
	DurationSec int64  `json:"duration_sec"`
}

func (s *Server) handleAttachMedia(c *gin.Context) {
	payerID, err := strconv.ParseInt(c.Param("payer_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad payer id"})
		return
	}

	var req attachMediaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.eng.AttachMedia(c.Request.Context(), payerID, req.MediaRef, req.Title, req.DurationSec); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "attached"})
}

type castVoteRequest struct {
	VoterID       int64 `json:"voter_id" binding:"required"`
	ParticipantID int64 `json:"participant_id" binding:"required"`
}

func (s *Server) handleCastVote(c *gin.Context) {
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.eng.CastVote(c.Request.Context(), req.VoterID, req.ParticipantID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "counted"})
	case errors.Is(err, engine.ErrNotVoting):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, entry.ErrAlreadyVoted),
		errors.Is(err, entry.ErrNotVoter),
		errors.Is(err, entry.ErrNoSuchCandidate),
		errors.Is(err, entry.ErrSelfVote):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	status, err := s.eng.GetStatus(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleStandings(c *gin.Context) {
	cycle, err := strconv.ParseInt(c.Param("cycle"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad cycle"})
		return
	}

	standings, watermark, err := s.queries.Standings(c.Request.Context(), cycle)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"standings": standings, "watermark": watermark})
}

func (s *Server) handlePayoutHistory(c *gin.Context) {
	payerID, err := strconv.ParseInt(c.Param("payer_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad payer id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	records, watermark, err := s.queries.PayoutHistory(c.Request.Context(), payerID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payouts": records, "watermark": watermark})
}

func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"uptime": s.health.Uptime().String(),
	})
}

func (s *Server) handleReadiness(c *gin.Context) {
	if s.health.IsReady() {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
}
