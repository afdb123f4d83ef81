package handler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/interntrack/tracker/internal/application"
	"github.com/interntrack/tracker/internal/application/repository"
	"github.com/interntrack/tracker/internal/application/service"
	"github.com/interntrack/tracker/internal/application/transfer"
	"github.com/interntrack/tracker/internal/application/view"
	"github.com/interntrack/tracker/pkg/logger"
)

// ArchiveURLHeader carries a temporary download link for the archived copy
// of an export, when the archive can produce one.
const ArchiveURLHeader = "X-Archive-URL"

var log = logger.Named("handler")

// RegisterApplicationRoutes mounts the tracker API on r.
func RegisterApplicationRoutes(r *gin.Engine, tr *service.Tracker) {
	r.GET("/api/applications", func(c *gin.Context) {
		q, err := view.ParseQuery(c.Query("status"), c.Query("type"), c.Query("source"), c.Query("sort"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, tr.View(q))
	})

	r.GET("/api/applications/options", func(c *gin.Context) {
		c.JSON(http.StatusOK, tr.Options())
	})

	r.GET("/api/applications/:id", func(c *gin.Context) {
		a, err := tr.Find(c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	})

	r.POST("/api/applications", func(c *gin.Context) {
		var in application.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := tr.Create(c.Request.Context(), in)
		if err != nil {
			writeMutationError(c, err, a)
			return
		}
		c.JSON(http.StatusCreated, a)
	})

	r.PUT("/api/applications/:id", func(c *gin.Context) {
		var in application.Input
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		a, err := tr.Update(c.Request.Context(), c.Param("id"), in)
		if err != nil {
			writeMutationError(c, err, a)
			return
		}
		c.JSON(http.StatusOK, a)
	})

	r.GET("/api/export", func(c *gin.Context) {
		var buf bytes.Buffer
		name, err := tr.Export(c.Request.Context(), &buf)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		if url, ok, err := tr.ArchiveURL(c.Request.Context(), name); err != nil {
			log.Warnf("archive link for %s: %v", name, err)
		} else if ok {
			c.Header(ArchiveURLHeader, url)
		}
		c.Data(http.StatusOK, "application/json", buf.Bytes())
	})

	r.POST("/api/import", func(c *gin.Context) {
		body, closeFn, err := importBody(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		defer closeFn()

		rep, err := tr.Import(c.Request.Context(), body)
		var fe *transfer.FormatError
		switch {
		case errors.As(err, &fe):
			c.JSON(http.StatusBadRequest, gin.H{"error": fe.Message})
		case errors.Is(err, service.ErrImportInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, repository.ErrPersistenceWriteFailed):
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "persisted": false, "report": rep})
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusOK, rep)
		}
	})
}

// importBody accepts either a multipart upload in the "file" field or the
// raw JSON request body.
func importBody(c *gin.Context) (io.Reader, func(), error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, nil, fmt.Errorf("missing file: %w", err)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}
	return c.Request.Body, func() {}, nil
}

func writeError(c *gin.Context, err error) {
	var verr *application.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "fields": verr.Fields})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// writeMutationError reports a save failure together with the record that
// is now in memory but not durable.
func writeMutationError(c *gin.Context, err error, a application.Application) {
	if errors.Is(err, repository.ErrPersistenceWriteFailed) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "persisted": false, "application": a})
		return
	}
	writeError(c, err)
}
