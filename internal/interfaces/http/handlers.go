package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/update-requests/internal/application/mediation"
	"github.com/garyjia/update-requests/internal/application/service"
	"github.com/garyjia/update-requests/internal/domain/entity"
	domainwf "github.com/garyjia/update-requests/internal/domain/workflow"
	"github.com/garyjia/update-requests/pkg/utils"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// Handlers contains all HTTP request handlers
type Handlers struct {
	updateRequests service.UpdateRequestService
	documents      service.DocumentService
	health         HealthChecker
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	updateRequests service.UpdateRequestService,
	documents service.DocumentService,
	health HealthChecker,
	logger Logger,
) *Handlers {
	return &Handlers{
		updateRequests: updateRequests,
		documents:      documents,
		health:         health,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Kind    string      `json:"kind,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateUpdateRequestBody is the body of POST /api/update-requests.
// Payload may be a JSON value or a string holding one.
type CreateUpdateRequestBody struct {
	TargetType string          `json:"target_type" binding:"required"`
	TargetID   string          `json:"target_id"`
	FieldName  string          `json:"field_name"`
	CustomCall string          `json:"custom_call"`
	ChangeKind string          `json:"change_kind"`
	Payload    json.RawMessage `json:"payload"`
	Submit     bool            `json:"submit"`
}

// ResultResponse is the outcome of an update request action
type ResultResponse struct {
	Outcome string                `json:"outcome"`
	Error   string                `json:"error,omitempty"`
	Request *entity.UpdateRequest `json:"request"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
	}

	if h.health != nil && !h.health.Healthy() {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, Response{
			Success: false,
			Data:    response,
		})
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    response,
	})
}

// CreateUpdateRequest handles POST /api/update-requests
func (h *Handlers) CreateUpdateRequest(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)

	var body CreateUpdateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.logger.Error("Invalid update request body", "error", err)
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "invalid request body: " + err.Error(),
			Kind:    string(domainwf.KindInvalidPayload),
		})
		return
	}

	if err := h.checkNames(body); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
			Kind:    string(domainwf.KindValidation),
		})
		return
	}

	payload, err := payloadText(body.Payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "payload must be JSON or a string holding JSON",
			Kind:    string(domainwf.KindInvalidPayload),
		})
		return
	}

	result, err := h.updateRequests.Create(c.Request.Context(), service.CreateParams{
		TargetType: utils.SanitizeString(body.TargetType),
		TargetID:   utils.SanitizeString(body.TargetID),
		FieldName:  utils.SanitizeString(body.FieldName),
		CustomCall: utils.SanitizeString(body.CustomCall),
		ChangeKind: entity.ChangeKind(utils.SanitizeString(body.ChangeKind)),
		Payload:    payload,
		Submit:     body.Submit,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == mediation.OutcomeCreated {
		status = http.StatusCreated
	}
	c.JSON(status, Response{
		Success: true,
		Data:    toResultResponse(result),
	})
}

// GetUpdateRequest handles GET /api/update-requests/:id
func (h *Handlers) GetUpdateRequest(c *gin.Context) {
	req, err := h.updateRequests.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    req,
	})
}

// GetHistory handles GET /api/update-requests/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	entries, err := h.updateRequests.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	if entries == nil {
		entries = []*entity.HistoryEntry{}
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    entries,
	})
}

// SubmitUpdateRequest handles POST /api/update-requests/:id/submit
func (h *Handlers) SubmitUpdateRequest(c *gin.Context) {
	h.runAction(c, "submit", h.updateRequests.Submit)
}

// ApproveUpdateRequest handles POST /api/update-requests/:id/approve
func (h *Handlers) ApproveUpdateRequest(c *gin.Context) {
	h.runAction(c, "approve", h.updateRequests.Approve)
}

// RejectUpdateRequest handles POST /api/update-requests/:id/reject
func (h *Handlers) RejectUpdateRequest(c *gin.Context) {
	h.runAction(c, "reject", h.updateRequests.Reject)
}

// RevertUpdateRequest handles POST /api/update-requests/:id/revert
func (h *Handlers) RevertUpdateRequest(c *gin.Context) {
	h.runAction(c, "revert", h.updateRequests.Revert)
}

// CreateDocument handles POST /api/documents/:type
func (h *Handlers) CreateDocument(c *gin.Context) {
	docType := c.Param("type")
	if err := utils.ValidateIdentifier("document type", docType); err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   err.Error(),
			Kind:    string(domainwf.KindValidation),
		})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{
			Success: false,
			Error:   "failed to read request body",
			Kind:    string(domainwf.KindInvalidPayload),
		})
		return
	}

	doc, err := h.documents.Create(c.Request.Context(), docType, body)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    doc,
	})
}

// GetDocument handles GET /api/documents/:type/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	doc, err := h.documents.Get(c.Request.Context(), c.Param("type"), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    doc,
	})
}

// runAction runs an update request action on the :id path parameter
func (h *Handlers) runAction(c *gin.Context, action string, run func(ctx context.Context, id string) (*mediation.Result, error)) {
	id := c.Param("id")

	result, err := run(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Update request action refused", "action", action, "request_id", id, "error", err)
		h.writeError(c, err)
		return
	}

	if result.Failed() {
		h.logger.Error("Update request failed", "action", action, "request_id", id, "error", result.Err)
	}
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    toResultResponse(result),
	})
}

// checkNames validates the identifiers of a create body
func (h *Handlers) checkNames(body CreateUpdateRequestBody) error {
	if err := utils.ValidateIdentifier("target_type", body.TargetType); err != nil {
		return err
	}
	if body.FieldName != "" {
		if err := utils.ValidateIdentifier("field_name", body.FieldName); err != nil {
			return err
		}
	}
	if body.CustomCall != "" {
		if err := utils.ValidateIdentifier("custom_call", body.CustomCall); err != nil {
			return err
		}
	}
	return nil
}

// writeError writes err with the status code of its kind
func (h *Handlers) writeError(c *gin.Context, err error) {
	kind := domainwf.KindOf(err)
	status := statusOf(kind)

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Internal error", "path", c.Request.URL.Path, "error", err)
		message = "internal error"
	}

	c.JSON(status, Response{
		Success: false,
		Error:   message,
		Kind:    string(kind),
	})
}

// statusOf maps an error kind to an HTTP status
func statusOf(kind domainwf.Kind) int {
	switch kind {
	case domainwf.KindNotFound:
		return http.StatusNotFound
	case domainwf.KindAuthorization, domainwf.KindInvalidActor:
		return http.StatusForbidden
	case domainwf.KindPendingUpdateRequest,
		domainwf.KindPendingApproval,
		domainwf.KindAlreadyProcessed,
		domainwf.KindNotRevertible,
		domainwf.KindNotLatestRequest,
		domainwf.KindConflict:
		return http.StatusConflict
	case domainwf.KindInvalidPayload:
		return http.StatusBadRequest
	case domainwf.KindValidation,
		domainwf.KindMissingOrInvalidData,
		domainwf.KindMethodNotDefined,
		domainwf.KindMissingRevertData,
		domainwf.KindInvalidFieldTransition:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// payloadText accepts a JSON string holding the payload or the payload itself
func payloadText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return "", err
		}
		return text, nil
	}
	return string(trimmed), nil
}

func toResultResponse(result *mediation.Result) ResultResponse {
	response := ResultResponse{
		Outcome: string(result.Outcome),
		Request: result.Request,
	}
	if result.Err != nil {
		response.Error = domainwf.Describe(result.Err)
	}
	return response
}
