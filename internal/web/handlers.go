package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hiciefte/bisq2-support-agent-sub005/internal/ports/primary"
)

// createEscalationRequest is the public creation payload. The chatbot
// pipeline posts its RAG output here after answering the user.
type createEscalationRequest struct {
	MessageID        string           `json:"message_id"`
	Channel          string           `json:"channel" binding:"required"`
	UserID           string           `json:"user_id" binding:"required"`
	Username         string           `json:"username"`
	ChannelMetadata  string           `json:"channel_metadata"`
	Question         string           `json:"question" binding:"required"`
	AIDraftAnswer    string           `json:"ai_draft_answer"`
	ConfidenceScore  float64          `json:"confidence_score"`
	Sources          []primary.Source `json:"sources"`
	Priority         string           `json:"priority"`
	NegativeFeedback bool             `json:"negative_feedback"`
}

type rateRequest struct {
	Rating string `json:"rating" binding:"required"`
}

type claimRequest struct {
	StaffID string `json:"staff_id" binding:"required"`
}

type respondRequest struct {
	StaffID string `json:"staff_id" binding:"required"`
	Answer  string `json:"answer" binding:"required"`
}

type closeRequest struct {
	Reason string `json:"reason"`
}

type promoteRequest struct {
	Category string `json:"category"`
}

// Public API handlers

func (s *Server) handleCreateEscalation(c *gin.Context) {
	var req createEscalationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	resp, err := s.escalations.Create(c.Request.Context(), primary.CreateEscalationRequest{
		MessageID:        req.MessageID,
		Channel:          req.Channel,
		UserID:           req.UserID,
		Username:         req.Username,
		ChannelMetadata:  req.ChannelMetadata,
		Question:         req.Question,
		AIDraftAnswer:    req.AIDraftAnswer,
		ConfidenceScore:  req.ConfidenceScore,
		Sources:          req.Sources,
		Priority:         req.Priority,
		NegativeFeedback: req.NegativeFeedback,
	})
	if err != nil {
		if errors.Is(err, primary.ErrNotEligible) {
			// Not an error from the pipeline's point of view: the answer
			// stands on its own and nothing was persisted.
			c.JSON(http.StatusOK, gin.H{"success": true, "escalated": false})
			return
		}
		s.writeError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Existing {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"success":    true,
		"escalated":  true,
		"existing":   resp.Existing,
		"escalation": resp.Escalation,
	})
}

func (s *Server) handlePollResponse(c *gin.Context) {
	poll, err := s.escalations.Poll(c.Request.Context(), c.Param("message_id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, poll)
}

func (s *Server) handleRateStaffAnswer(c *gin.Context) {
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := s.escalations.RateStaffAnswer(c.Request.Context(), c.Param("message_id"), req.Rating); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Admin API handlers

func (s *Server) handleListEscalations(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	escalations, err := s.escalations.List(c.Request.Context(), primary.EscalationFilters{
		Status:   c.Query("status"),
		Channel:  c.Query("channel"),
		Priority: c.Query("priority"),
		StaffID:  c.Query("staff_id"),
		Limit:    limit,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"escalations": escalations,
		"count":       len(escalations),
	})
}

func (s *Server) handleGetEscalation(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	esc, err := s.escalations.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "escalation": esc})
}

func (s *Server) handleClaimEscalation(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	esc, err := s.escalations.Claim(c.Request.Context(), id, req.StaffID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "escalation": esc})
}

func (s *Server) handleRespondEscalation(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	esc, err := s.escalations.Respond(c.Request.Context(), id, req.StaffID, req.Answer)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "escalation": esc})
}

func (s *Server) handleCloseEscalation(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	var req closeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}
	if err := s.escalations.Close(c.Request.Context(), id, req.Reason); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) handlePromoteEscalation(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	var req promoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}
	faq, err := s.faqs.Promote(c.Request.Context(), id, req.Category)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "faq": faq})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.escalations.Stats(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"by_status":          stats.ByStatus,
		"by_delivery_status": stats.ByDeliveryStatus,
	})
}

func (s *Server) handleListFAQs(c *gin.Context) {
	faqs, err := s.faqs.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"faqs":    faqs,
		"count":   len(faqs),
	})
}

func (s *Server) handleGetFAQ(c *gin.Context) {
	faq, err := s.faqs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "faq": faq})
}

func (s *Server) handleDeleteFAQ(c *gin.Context) {
	if err := s.faqs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid escalation id"})
		return 0, false
	}
	return id, true
}

// writeError maps the primary port's named errors onto HTTP statuses.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, primary.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, primary.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, primary.ErrAlreadyClaimed), errors.Is(err, primary.ErrInvalidState):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}
