package main

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// decodeUpload base64-decodes the uploaded file and applies the
// filename default and the upload size guard.
func (app *App) decodeUpload(fileB64, filename string) ([]byte, string, error) {
	if filename == "" {
		filename = "upload"
	}

	fileBytes, err := base64.StdEncoding.DecodeString(fileB64)
	if err != nil {
		return nil, "", &InputDecodingError{Filename: filename, Cause: err}
	}
	if app.MaxFileSize > 0 && int64(len(fileBytes)) > app.MaxFileSize {
		return nil, "", fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, len(fileBytes), app.MaxFileSize)
	}
	return fileBytes, filename, nil
}

// respondError maps a pipeline error onto the right status code and
// logs it with the request tag.
func respondError(c *gin.Context, requestID string, err error) {
	status := http.StatusInternalServerError
	if isClientError(err) {
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
	log.Errorf("[%s] %v", requestID, err)
}

// detectHandler handles the POST /api/detect endpoint
func (app *App) detectHandler(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := uuid.New().String()

	var req DetectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		log.Errorf("[%s] Invalid request payload: %v", requestID, err)
		return
	}

	fileBytes, filename, err := app.decodeUpload(req.FileB64, req.Filename)
	if err != nil {
		respondError(c, requestID, err)
		return
	}
	log.Infof("[%s] Detecting PII in %q (%d bytes)", requestID, filename, len(fileBytes))

	boxes, summary, err := app.detectDocument(ctx, fileBytes, filename)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	log.Infof("[%s] Found %d PII entities in %q", requestID, len(boxes), filename)
	c.JSON(http.StatusOK, DetectResponse{
		Summary:  summary,
		Entities: entitiesFromBoxes(boxes),
	})
}

// redactHandler handles the POST /api/redact endpoint
func (app *App) redactHandler(c *gin.Context) {
	ctx := c.Request.Context()
	requestID := uuid.New().String()

	var req RedactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid request payload: %v", err)})
		log.Errorf("[%s] Invalid request payload: %v", requestID, err)
		return
	}

	fileBytes, filename, err := app.decodeUpload(req.FileB64, req.Filename)
	if err != nil {
		respondError(c, requestID, err)
		return
	}
	log.Infof("[%s] Redacting %v in %q (%d bytes, mode %q, partial %t)",
		requestID, req.Labels, filename, len(fileBytes), req.Mode, req.Partial)

	data, outputName, err := app.redactDocument(ctx, fileBytes, filename, req.Labels, req.Mode, req.Partial)
	if err != nil {
		respondError(c, requestID, err)
		return
	}

	log.Infof("[%s] Redacted %q into %q (%d bytes)", requestID, filename, outputName, len(data))
	c.JSON(http.StatusOK, RedactResponse{
		FileB64:  base64.StdEncoding.EncodeToString(data),
		Filename: outputName,
	})
}

// labelsHandler handles the GET /api/labels endpoint
func labelsHandler(c *gin.Context) {
	labels := SupportedLabels()
	ratios := make(map[string]float64, len(labels))
	for _, label := range labels {
		ratios[label] = partialRatioFor(label)
	}

	c.JSON(http.StatusOK, LabelsResponse{
		Labels:        labels,
		Modes:         []string{ModeBlack, ModeBlur},
		PartialRatios: ratios,
	})
}
