// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package explain

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianExplain/services/explain/store"
)

// Handlers contains the HTTP handlers for the explanation service.
type Handlers struct {
	svc     *Service
	limiter *rate.Limiter
}

// NewHandlers creates handlers for the given service.
//
// The limiter throttles the explanation endpoint only; reads are
// cheap and stay unthrottled.
func NewHandlers(svc *Service, limiter *rate.Limiter) *Handlers {
	return &Handlers{svc: svc, limiter: limiter}
}

// HandleExplainTabular handles POST /v1/explain/tabular.
//
// Description:
//
//	Runs a full anchor search for the requested row. Synchronous: the
//	response carries the persisted record once the search finishes.
//
// Request Body:
//
//	TabularExplainRequest
//
// Response:
//
//	200 OK: ExplainResponse
//	400 Bad Request: Validation error
//	429 Too Many Requests: Rate limit exceeded
//	502 Bad Gateway: Classifier unreachable or misbehaving
//	500 Internal Server Error: Search or persistence error
func (h *Handlers) HandleExplainTabular(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleExplainTabular")

	if h.limiter != nil && !h.limiter.Allow() {
		logger.Warn("Rate limit exceeded")
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "Too many explanation requests",
			Code:  "RATE_LIMITED",
		})
		return
	}

	var req TabularExplainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	record, err := h.svc.ExplainTabular(c.Request.Context(), &req)
	if err != nil {
		statusCode := http.StatusInternalServerError
		errCode := "EXPLAIN_FAILED"

		if errors.Is(err, ErrRowOutOfRange) {
			statusCode = http.StatusBadRequest
			errCode = "ROW_OUT_OF_RANGE"
		} else if errors.Is(err, ErrDatasetTooLarge) {
			statusCode = http.StatusBadRequest
			errCode = "DATASET_TOO_LARGE"
		} else if errors.Is(err, ErrClassifierFailed) {
			statusCode = http.StatusBadGateway
			errCode = "CLASSIFIER_FAILED"
		}

		logger.Error("Explanation failed", "error", err)
		c.JSON(statusCode, ErrorResponse{
			Error: err.Error(),
			Code:  errCode,
		})
		return
	}

	logger.Info("Explanation complete",
		"record_id", record.ID,
		"status", record.Status,
		"duration_ms", record.DurationMillis)
	c.JSON(http.StatusOK, newExplainResponse(record))
}

// HandleGetResult handles GET /v1/explain/results/:id.
//
// Response:
//
//	200 OK: ExplainResponse
//	404 Not Found: No record with that ID
//	500 Internal Server Error: Store error
func (h *Handlers) HandleGetResult(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGetResult")

	id := c.Param("id")
	record, err := h.svc.GetResult(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error: "No record with ID " + id,
				Code:  "NOT_FOUND",
			})
			return
		}
		logger.Error("Record lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "LOOKUP_FAILED",
		})
		return
	}
	c.JSON(http.StatusOK, newExplainResponse(record))
}

// HandleListResults handles GET /v1/explain/results.
//
// Query Parameters:
//
//	limit - Maximum records to return (default 50).
//
// Response:
//
//	200 OK: ListResponse
//	500 Internal Server Error: Store error
func (h *Handlers) HandleListResults(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleListResults")

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := h.svc.ListResults(c.Request.Context(), limit)
	if err != nil {
		logger.Error("Record listing failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "LIST_FAILED",
		})
		return
	}

	resp := ListResponse{Records: make([]ExplainResponse, 0, len(records))}
	for _, record := range records {
		resp.Records = append(resp.Records, newExplainResponse(record))
	}
	resp.Count = len(resp.Records)
	c.JSON(http.StatusOK, resp)
}

// HandleHealth handles GET /v1/explain/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: ServiceVersion})
}

// HandleReady handles GET /v1/explain/ready.
//
// Ready means the record store answers; a failing store returns 503.
func (h *Handlers) HandleReady(c *gin.Context) {
	if _, err := h.svc.ListResults(c.Request.Context(), 1); err != nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: err.Error(),
			Code:  "STORE_UNAVAILABLE",
		})
		return
	}
	c.JSON(http.StatusOK, HealthResponse{Status: "ready", Version: ServiceVersion})
}

// getOrCreateRequestID propagates or mints the X-Request-ID header.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
