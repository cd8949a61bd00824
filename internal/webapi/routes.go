package webapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/openhrms/taskcycle/internal/assoc"
	"github.com/openhrms/taskcycle/internal/faults"
	"github.com/openhrms/taskcycle/internal/recurrence"
	"github.com/openhrms/taskcycle/internal/verification"
	"github.com/openhrms/taskcycle/internal/worker"
	"gorm.io/gorm"
)

// registerRoutes sets up all API routes on the Gin router.
func (s *Server) registerRoutes(router *gin.Engine) {
	router.PUT("/tasks/:id/responsible", s.handleSetResponsible)
	router.PUT("/tasks/:id/observers", s.handleSetObservers)
	router.POST("/tasks/:id/scores/:user", s.handleScore)
	router.POST("/tasks/:id/scores/:user/hr", s.handleHRScore)
	router.POST("/tasks/:id/scores/:user/ack", s.handleAcknowledge)
	router.GET("/tasks/:id/efficiency/:user", s.handleEfficiency)
	router.POST("/tasks/:id/recurrence", s.handlePopulateQueue)
	router.DELETE("/tasks/:id/recurrence", s.handleStopRecurring)
	router.POST("/tasks/:id/disassociate", s.handleDisassociate)
	router.POST("/jobs/recurrences", s.handleRunRecurrences)
}

type assignmentRequest struct {
	UserID    string   `json:"user" binding:"required"`
	CoreTasks []string `json:"core_tasks"`
}

type reconcileRequest struct {
	Users []assignmentRequest `json:"users"`
}

func (s *Server) handleSetResponsible(c *gin.Context) {
	s.reconcile(c, assoc.SetResponsible)
}

func (s *Server) handleSetObservers(c *gin.Context) {
	s.reconcile(c, assoc.SetObservers)
}

func (s *Server) reconcile(c *gin.Context, set func(db *gorm.DB, deps assoc.Deps, taskID string, desired []assoc.Assignment) error) {
	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	desired := make([]assoc.Assignment, 0, len(req.Users))
	for _, u := range req.Users {
		desired = append(desired, assoc.Assignment{UserID: u.UserID, CoreTasks: u.CoreTasks})
	}
	s.respond(c, set(s.DB, s.Assoc, c.Param("id"), desired))
}

type scoreRequest struct {
	Score   int    `json:"score" binding:"required"`
	Remarks string `json:"remarks"`
	Actor   string `json:"actor" binding:"required"`
}

func (s *Server) handleScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	s.respond(c, verification.RecordScore(
		s.DB, s.Verification, c.Param("id"), c.Param("user"), req.Score, req.Remarks, req.Actor))
}

func (s *Server) handleHRScore(c *gin.Context) {
	var req scoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	s.respond(c, verification.RecordHRScore(
		s.DB, s.Verification, c.Param("id"), c.Param("user"), req.Score, req.Remarks, req.Actor))
}

type ackRequest struct {
	Ack     *bool  `json:"ack" binding:"required"`
	Remarks string `json:"ack_remarks"`
}

func (s *Server) handleAcknowledge(c *gin.Context) {
	var req ackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}
	s.respond(c, verification.Acknowledge(
		s.DB, s.Verification, c.Param("id"), c.Param("user"), *req.Ack, req.Remarks))
}

func (s *Server) handleEfficiency(c *gin.Context) {
	b, err := verification.GetEfficiency(s.DB, c.Param("id"), c.Param("user"))
	if err != nil {
		s.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"overall":         b.Overall,
		"from_priority":   b.FromPriority,
		"from_timeliness": b.FromTimeliness,
		"from_score":      b.FromScore,
	})
}

func (s *Server) handlePopulateQueue(c *gin.Context) {
	s.respond(c, recurrence.PopulateQueue(s.DB, c.Param("id"), s.Horizon))
}

func (s *Server) handleStopRecurring(c *gin.Context) {
	s.respond(c, recurrence.StopRecurring(s.DB, c.Param("id")))
}

func (s *Server) handleDisassociate(c *gin.Context) {
	if err := worker.EnqueueDisassociate(s.DB, c.Param("id")); err != nil {
		s.respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"detail": "disassociation queued"})
}

func (s *Server) handleRunRecurrences(c *gin.Context) {
	res, err := recurrence.RunDueRecurrences(s.DB, s.Recurrence, time.Now())
	if err != nil {
		s.respond(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"created":   res.Created,
		"skipped":   res.Skipped,
		"abandoned": res.Abandoned,
		"failed":    res.Failed,
	})
}

// respond maps engine errors to HTTP statuses: validation 400, state
// conflict 409, not-found 404, otherwise 500; nil is 200.
func (s *Server) respond(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"detail": "ok"})
	case faults.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
	case faults.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
	case strings.Contains(err.Error(), "not found"):
		c.JSON(http.StatusNotFound, gin.H{"detail": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
	}
}
