package httpapi

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"candrive/internal/auth"
	"candrive/internal/drive"
)

type donorRequest struct {
	Kind string `json:"kind" binding:"required,oneof=student teacher group"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// reservationRequest accepts a structured donor or, as the map page sends
// it, a bare student_name which is treated as a group donor.
type reservationRequest struct {
	Donor        *donorRequest     `json:"donor"`
	StudentName  string            `json:"student_name"`
	Streets      []string          `json:"streets"`
	StreetName   string            `json:"street_name"`
	Path         []drive.PathPoint `json:"path"`
	GroupMembers []string          `json:"group_members"`
}

func (r reservationRequest) input() drive.ReservationInput {
	donor := drive.DonorRef{Kind: drive.KindGroup, Name: r.StudentName}
	if r.Donor != nil {
		donor = drive.DonorRef{Kind: drive.DonorKind(r.Donor.Kind), ID: r.Donor.ID, Name: r.Donor.Name}
	}
	streets := r.Streets
	if r.StreetName != "" {
		streets = append(streets, r.StreetName)
	}
	return drive.ReservationInput{
		Donor:        donor,
		Streets:      streets,
		Path:         r.Path,
		GroupMembers: r.GroupMembers,
	}
}

func (s *Server) listReservations(c *gin.Context) {
	reservations, err := s.svc.ListReservations(c.Request.Context(), eventID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reservations": reservations})
}

func (s *Server) createReservation(c *gin.Context) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	res, err := s.svc.CreateReservation(c.Request.Context(), eventID(c), req.input())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) updateReservation(c *gin.Context) {
	var req reservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	res, err := s.svc.UpdateReservation(c.Request.Context(), eventID(c), c.Param("reservationId"), req.input(), auth.IsAdmin(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) deleteReservation(c *gin.Context) {
	if err := s.svc.DeleteReservation(c.Request.Context(), eventID(c), c.Param("reservationId")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) exportReservations(c *gin.Context) {
	s.sendCSV(c, "map-reservations", s.svc.ExportReservationsCSV)
}

func (s *Server) importReservations(c *gin.Context) {
	s.upload(c, func(ctx context.Context, eventID, _ string, r io.Reader) (drive.ImportResult, error) {
		return s.svc.ImportReservations(ctx, eventID, r)
	})
}
