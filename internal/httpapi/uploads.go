package httpapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"candrive/internal/drive"
)

const maxUpload = 10 << 20

type importFunc func(ctx context.Context, eventID, filename string, r io.Reader) (drive.ImportResult, error)

// upload hands the multipart "file" field to fn and reports its counts.
func (s *Server) upload(c *gin.Context, fn importFunc) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		s.fail(c, &drive.ValidationError{
			Message: "multipart field \"file\" is required",
			Fields:  map[string]string{"file": "is required"},
		})
		return
	}
	defer file.Close()

	res, err := fn(c.Request.Context(), eventID(c), header.Filename, file)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// sendCSV renders into memory first so a failure still yields a JSON error.
func (s *Server) sendCSV(c *gin.Context, name string, render func(ctx context.Context, eventID string, w io.Writer) error) {
	var buf bytes.Buffer
	if err := render(c.Request.Context(), eventID(c), &buf); err != nil {
		s.fail(c, err)
		return
	}
	filename := name + "-" + time.Now().UTC().Format("20060102") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
