package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "worklog/backend/internal/errors"
	"worklog/backend/internal/report"
	"worklog/backend/internal/service"
)

type WorklogHandler struct {
	tracker *service.TrackerService
}

type stopRequest struct {
	Category string `json:"category"`
}

type revokeRequest struct {
	Sequence int64 `json:"sequence"`
}

type revokeBatchRequest struct {
	Count int `json:"count"`
}

func NewWorklogHandler(tracker *service.TrackerService) *WorklogHandler {
	return &WorklogHandler{tracker: tracker}
}

// date resolves the :date path parameter; "today" and "yesterday" are accepted.
func (h *WorklogHandler) date(c *gin.Context) (string, bool) {
	date, apiErr := h.tracker.ResolveDate(c.Param("date"))
	if apiErr != nil {
		writeError(c, apiErr)
		return "", false
	}
	return date, true
}

func (h *WorklogHandler) GetState(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	state, apiErr := h.tracker.GetState(c.Request.Context(), date)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *WorklogHandler) GetSummary(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	summary, apiErr := h.tracker.GetSummary(c.Request.Context(), date)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}

func (h *WorklogHandler) ListActions(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	actions, apiErr := h.tracker.ListActions(c.Request.Context(), date)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

func (h *WorklogHandler) Revokable(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	candidates, apiErr := h.tracker.RevokeCandidates(c.Request.Context(), date)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

func (h *WorklogHandler) Start(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	h.respondState(c)(h.tracker.StartDay(c.Request.Context(), date))
}

func (h *WorklogHandler) Stop(c *gin.Context) {
	var req stopRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	date, ok := h.date(c)
	if !ok {
		return
	}
	h.respondState(c)(h.tracker.Stop(c.Request.Context(), date, req.Category))
}

func (h *WorklogHandler) Continue(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	h.respondState(c)(h.tracker.Continue(c.Request.Context(), date))
}

func (h *WorklogHandler) End(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	h.respondState(c)(h.tracker.EndDay(c.Request.Context(), date))
}

func (h *WorklogHandler) Reset(c *gin.Context) {
	date, ok := h.date(c)
	if !ok {
		return
	}
	h.respondState(c)(h.tracker.ResetDay(c.Request.Context(), date))
}

// Revoke undoes the action named by sequence, or the newest one when sequence is omitted.
func (h *WorklogHandler) Revoke(c *gin.Context) {
	var req revokeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	date, ok := h.date(c)
	if !ok {
		return
	}
	if req.Sequence == 0 {
		h.respondState(c)(h.tracker.RevokeLast(c.Request.Context(), date))
		return
	}
	h.respondState(c)(h.tracker.Revoke(c.Request.Context(), date, req.Sequence))
}

func (h *WorklogHandler) RevokeBatch(c *gin.Context) {
	var req revokeBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}
	date, ok := h.date(c)
	if !ok {
		return
	}
	result, apiErr := h.tracker.RevokeBatch(c.Request.Context(), date, req.Count)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	if len(result.Revoked) == 0 && result.Failure != nil {
		writeError(c, result.Failure)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *WorklogHandler) ListActionsRange(c *gin.Context) {
	from, to, ok := h.dateRange(c)
	if !ok {
		return
	}
	actions, apiErr := h.tracker.ListActionsRange(c.Request.Context(), from, to)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"from": from, "to": to, "actions": actions})
}

func (h *WorklogHandler) Report(c *gin.Context) {
	format, err := report.ParseFormat(c.Query("format"))
	if err != nil {
		writeError(c, apperrors.BadRequest("invalid_format", err.Error()))
		return
	}
	from, to, ok := h.dateRange(c)
	if !ok {
		return
	}
	r, apiErr := h.tracker.Report(c.Request.Context(), from, to)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}

	if format == report.FormatJSON {
		c.JSON(http.StatusOK, r)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf, *r); err != nil {
		writeError(c, apperrors.Internal("failed to render report"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=worklog_%s_%s.csv", from, to))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// dateRange reads ?from and ?to. Missing bounds default to today.
func (h *WorklogHandler) dateRange(c *gin.Context) (string, string, bool) {
	from, apiErr := h.tracker.ResolveDate(c.Query("from"))
	if apiErr != nil {
		writeError(c, apiErr)
		return "", "", false
	}
	to, apiErr := h.tracker.ResolveDate(c.Query("to"))
	if apiErr != nil {
		writeError(c, apiErr)
		return "", "", false
	}
	return from, to, true
}

func (h *WorklogHandler) respondState(c *gin.Context) func(*service.StateView, *apperrors.APIError) {
	return func(state *service.StateView, apiErr *apperrors.APIError) {
		if apiErr != nil {
			writeError(c, apiErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": state})
	}
}
