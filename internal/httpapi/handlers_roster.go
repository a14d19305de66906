package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"candrive/internal/drive"
)

type studentRequest struct {
	Name            string `json:"name"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Grade           string `json:"grade" binding:"required,grade"`
	HomeroomNumber  string `json:"homeroom_number"`
	HomeroomTeacher string `json:"homeroom_teacher"`
}

type studentPatchRequest struct {
	FirstName       *string `json:"first_name"`
	LastName        *string `json:"last_name"`
	Grade           *string `json:"grade" binding:"omitempty,grade"`
	HomeroomNumber  *string `json:"homeroom_number"`
	HomeroomTeacher *string `json:"homeroom_teacher"`
}

type verifyRequest struct {
	Name            string `json:"name"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Grade           string `json:"grade"`
	HomeroomNumber  string `json:"homeroom_number"`
	HomeroomTeacher string `json:"homeroom_teacher"`
}

type teacherRequest struct {
	Name           string `json:"name"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	HomeroomNumber string `json:"homeroom_number"`
}

func (s *Server) listStudents(c *gin.Context) {
	students, err := s.svc.ListStudents(c.Request.Context(), eventID(c), drive.StudentFilter{
		Grade:    c.Query("grade"),
		Homeroom: c.Query("homeroom"),
		Name:     c.Query("name"),
		Teacher:  c.Query("teacher"),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (s *Server) getStudent(c *gin.Context) {
	st, err := s.svc.GetStudent(c.Request.Context(), eventID(c), c.Param("studentId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) createStudent(c *gin.Context) {
	var req studentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	st, err := s.svc.CreateStudent(c.Request.Context(), eventID(c), drive.StudentInput{
		Name:            req.Name,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Grade:           req.Grade,
		HomeroomNumber:  req.HomeroomNumber,
		HomeroomTeacher: req.HomeroomTeacher,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (s *Server) updateStudent(c *gin.Context) {
	var req studentPatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	st, err := s.svc.UpdateStudent(c.Request.Context(), eventID(c), c.Param("studentId"), drive.StudentPatch{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Grade:           req.Grade,
		HomeroomNumber:  req.HomeroomNumber,
		HomeroomTeacher: req.HomeroomTeacher,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) deleteStudent(c *gin.Context) {
	if err := s.svc.DeleteStudent(c.Request.Context(), eventID(c), c.Param("studentId")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) searchStudents(c *gin.Context) {
	students, err := s.svc.SearchStudents(c.Request.Context(), eventID(c), c.Query("q"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (s *Server) verifyStudent(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	st, err := s.svc.VerifyStudent(c.Request.Context(), eventID(c), drive.VerifyQuery{
		Name:            req.Name,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Grade:           req.Grade,
		HomeroomNumber:  req.HomeroomNumber,
		HomeroomTeacher: req.HomeroomTeacher,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true, "student": st})
}

func (s *Server) listTeachers(c *gin.Context) {
	teachers, err := s.svc.ListTeachers(c.Request.Context(), eventID(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teachers": teachers})
}

func (s *Server) createTeacher(c *gin.Context) {
	var req teacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, bindError(err))
		return
	}
	t, err := s.svc.CreateTeacher(c.Request.Context(), eventID(c), drive.TeacherInput{
		Name:           req.Name,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		HomeroomNumber: req.HomeroomNumber,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (s *Server) uploadRoster(c *gin.Context) {
	s.upload(c, s.svc.UploadRoster)
}

func (s *Server) uploadTeachers(c *gin.Context) {
	s.upload(c, s.svc.UploadTeachers)
}
