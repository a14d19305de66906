package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"candrive/internal/auth"
	"candrive/internal/drive"
)

type donationRequest struct {
	StudentID string `json:"student_id"`
	TeacherID string `json:"teacher_id"`
	Amount    int64  `json:"amount" binding:"required,gt=0"`
	Note      string `json:"note"`
}

func (s *Server) recordDonation(c *gin.Context) {
	var req donationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	claims, _ := auth.ClaimsFrom(c)
	d, err := s.svc.RecordDonation(c.Request.Context(), eventID(c), drive.DonationInput{
		StudentID: req.StudentID,
		TeacherID: req.TeacherID,
		Amount:    req.Amount,
		Note:      req.Note,
	}, claims.Subject)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) listDonations(c *gin.Context) {
	donations, err := s.svc.ListDonations(c.Request.Context(), eventID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donations": donations})
}

func (s *Server) leaderboard(c *gin.Context) {
	b, err := s.svc.GetLeaderboard(c.Request.Context(), eventID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) dailyDonors(c *gin.Context) {
	b, err := s.svc.GetDailyDonors(c.Request.Context(), eventID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *Server) exportLeaderboard(c *gin.Context) {
	s.sendCSV(c, "leaderboard", s.svc.ExportLeaderboardCSV)
}
