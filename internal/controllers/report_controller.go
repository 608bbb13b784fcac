package controllers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"bus_tracker/internal/apperr"
	"bus_tracker/internal/models"
)

var allowedImageExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

type ReportStore interface {
	CreateReport(ctx context.Context, r *models.Report) error
	FindReport(ctx context.Context, userID, id uint) (models.Report, error)
}

type ReportController struct {
	store     ReportStore
	uploadDir string
	maxBytes  int64
}

// NewReportController stores images under uploadDir, which is served at
// /uploads.
func NewReportController(store ReportStore, uploadDir string, maxBytes int64) *ReportController {
	return &ReportController{store: store, uploadDir: uploadDir, maxBytes: maxBytes}
}

// Create accepts a multipart incident report with an optional "image" file.
func (r *ReportController) Create(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	report := models.Report{
		UserID:       userID,
		IncidentType: strings.TrimSpace(c.PostForm("incidentType")),
		Location:     strings.TrimSpace(c.PostForm("location")),
		Description:  strings.TrimSpace(c.PostForm("description")),
	}
	if report.IncidentType == "" {
		respondError(c, "create report", apperr.Validation("incidentType is required"))
		return
	}

	url, path, err := r.saveImage(c)
	if err != nil {
		respondError(c, "create report: image", err)
		return
	}
	report.ImageURL = url

	if err := r.store.CreateReport(c.Request.Context(), &report); err != nil {
		if path != "" {
			if rmErr := os.Remove(path); rmErr != nil {
				logrus.WithError(rmErr).WithField("path", path).Warn("create report: orphaned upload not removed")
			}
		}
		respondError(c, "create report", err)
		return
	}

	logrus.WithFields(logrus.Fields{
		"report_id": report.ID,
		"user_id":   userID,
		"has_image": url != nil,
	}).Info("report submitted")

	c.JSON(http.StatusCreated, gin.H{
		"message": "Report submitted successfully!",
		"report":  report,
	})
}

// saveImage stores the optional upload and returns its public URL and its
// path on disk. Both are empty when no image was sent.
func (r *ReportController) saveImage(c *gin.Context) (*string, string, error) {
	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, "", nil
		}
		return nil, "", apperr.Validation("unreadable image upload")
	}
	if r.maxBytes > 0 && file.Size > r.maxBytes {
		return nil, "", apperr.Validation("image exceeds %d bytes", r.maxBytes)
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExt[ext] {
		return nil, "", apperr.Validation("image must be jpg, png or webp")
	}

	if err := os.MkdirAll(r.uploadDir, 0o755); err != nil {
		return nil, "", err
	}
	name := uuid.NewString() + ext
	path := filepath.Join(r.uploadDir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return nil, "", err
	}
	url := "/uploads/" + name
	return &url, path, nil
}

// Get returns one of the caller's own reports.
func (r *ReportController) Get(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, "get report", err)
		return
	}
	report, err := r.store.FindReport(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, "get report", err)
		return
	}
	c.JSON(http.StatusOK, report)
}
