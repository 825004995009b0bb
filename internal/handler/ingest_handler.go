package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/meigsy/shift/internal/model"
	"github.com/meigsy/shift/internal/service"
)

// IngestHandler serves the raw batch submission endpoint.
type IngestHandler struct {
	ingestion *service.IngestionService
	logger    *zap.Logger
}

// NewIngestHandler creates the ingest handler.
func NewIngestHandler(ingestion *service.IngestionService, logger *zap.Logger) *IngestHandler {
	return &IngestHandler{ingestion: ingestion, logger: logger}
}

// Register binds the ingestion route behind the bearer middleware.
func (h *IngestHandler) Register(e *echo.Echo, authMW echo.MiddlewareFunc) {
	e.POST("/watch_events", h.SubmitBatch, authMW)
}

type ingestResponse struct {
	Message         string `json:"message"`
	SamplesReceived int    `json:"samples_received"`
	UserID          string `json:"user_id"`
}

// SubmitBatch accepts one health data batch. Duplicates of an already
// ingested (user, fetchedAt) batch are acknowledged rather than failed, so
// client retries are harmless.
func (h *IngestHandler) SubmitBatch(c echo.Context) error {
	userID := authedUser(c)

	var batch model.HealthDataBatch
	if err := c.Bind(&batch); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed request body"})
	}

	result, err := h.ingestion.Ingest(c.Request().Context(), userID, &batch)
	if err != nil {
		h.logger.Error("batch ingestion failed", zap.String("user_id", userID), zap.Error(err))
		return errResp(c, err)
	}

	message := "Health data received"
	if result.Duplicate {
		message = "Event already processed (deduplicated)"
	}
	return c.JSON(http.StatusAccepted, ingestResponse{
		Message:         message,
		SamplesReceived: result.TotalSamples,
		UserID:          userID,
	})
}
