package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"candrive/internal/drive"
)

type eventRequest struct {
	Name       string     `json:"name" binding:"required"`
	SchoolYear string     `json:"school_year"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Active     bool       `json:"active"`
}

func (s *Server) listEvents(c *gin.Context) {
	events, err := s.svc.ListEvents(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) createEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	evt, err := s.svc.CreateEvent(c.Request.Context(), drive.EventInput{
		Name:       req.Name,
		SchoolYear: req.SchoolYear,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Active:     req.Active,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, evt)
}

func (s *Server) currentEvent(c *gin.Context) {
	evt, err := s.svc.CurrentEvent(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, evt)
}

func (s *Server) activateEvent(c *gin.Context) {
	if err := s.svc.ActivateEvent(c.Request.Context(), eventID(c)); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": eventID(c), "active": true})
}

func (s *Server) resetEvent(c *gin.Context) {
	confirm, _ := strconv.ParseBool(c.Query("confirm"))
	res, err := s.svc.ResetEvent(c.Request.Context(), eventID(c), confirm)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": res})
}
