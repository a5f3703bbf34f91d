package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cognisense-backend/internal/services"
)

// startCaptureRequest is the body of POST /api/v1/capture/start.
type startCaptureRequest struct {
	Scenario      string `json:"scenario"`
	WebcamEnabled *bool  `json:"webcam_enabled"`
	AudioEnabled  bool   `json:"audio_enabled"`
	Notes         string `json:"notes"`
}

// stopCaptureRequest is the body of POST /api/v1/capture/stop.
type stopCaptureRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// Router wires the REST and WebSocket surface.
type Router struct {
	sessions *services.SessionService
	scoring  *services.ScoringService
	hub      *Hub
}

// NewRouter builds the gin engine serving the API and the live stream.
func NewRouter(sessions *services.SessionService, scoring *services.ScoringService, hub *Hub) *gin.Engine {
	r := &Router{sessions: sessions, scoring: scoring, hub: hub}

	engine := gin.New()
	engine.Use(gin.Recovery())

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/health", r.health)
		v1.POST("/capture/start", r.startCapture)
		v1.POST("/capture/stop", r.stopCapture)
		v1.GET("/load/live", r.liveLoad)
		v1.GET("/load/history", r.loadHistory)
		v1.GET("/sessions/:id/analysis", r.sessionAnalysis)
	}

	engine.GET("/ws/load", hub.HandleWS())

	return engine
}

func (r *Router) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// startCapture starts a new capture session. Sensors default to the
// original capture profile: webcam on, audio off.
func (r *Router) startCapture(c *gin.Context) {
	var req startCaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	webcam := true
	if req.WebcamEnabled != nil {
		webcam = *req.WebcamEnabled
	}

	session, err := r.sessions.StartSession(req.Scenario, webcam, req.AudioEnabled, req.Notes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "started", "session_id": session.SessionID})
}

func (r *Router) stopCapture(c *gin.Context) {
	var req stopCaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := r.sessions.StopSession(req.SessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if session == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}

	// Free buffered features; no further readings for this session.
	r.scoring.DropSession(req.SessionID)

	c.JSON(http.StatusOK, gin.H{"status": "stopped", "session_id": session.SessionID})
}

// liveLoad returns the most recent reading broadcast on the stream.
func (r *Router) liveLoad(c *gin.Context) {
	reading := r.hub.LatestReading()
	if reading == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reading available yet"})
		return
	}
	c.JSON(http.StatusOK, reading)
}

func (r *Router) loadHistory(c *gin.Context) {
	sessionID := c.Query("session_id")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	limit := 100
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	predictions, err := r.sessions.History(sessionID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":  sessionID,
		"predictions": predictions,
		"count":       len(predictions),
	})
}

func (r *Router) sessionAnalysis(c *gin.Context) {
	analysis, err := r.sessions.Analyze(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, analysis)
}
