package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"shop-bot/internal/domain"
	"shop-bot/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

type Response struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// TurnHandler runs one bot turn.
type TurnHandler interface {
	HandleTurn(ctx context.Context, in domain.Activity) (usecase.TurnOutput, error)
}

type Handler struct {
	uc     TurnHandler
	logger *slog.Logger
}

type turnResponse struct {
	Activities []domain.Activity `json:"activities"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func NewHandler(uc TurnHandler, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: turn handler must not be nil")
	}
	h := &Handler{uc: uc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Handle is the API Gateway proxy entry point for POST /api/messages.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (Response, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := h.logger.With("correlation_id", correlationID)

	var in domain.Activity
	if err := json.Unmarshal([]byte(req.Body), &in); err != nil {
		log.Warn("rejecting malformed activity", "err", err)
		return h.errorResponse(correlationID, http.StatusBadRequest, usecase.ErrorInvalidInput, "body must be an activity"), nil
	}

	out, err := h.uc.HandleTurn(ctx, in)
	if err != nil {
		status, code := statusFor(err)
		var ucErr *usecase.Error
		reason := ""
		if errors.As(err, &ucErr) {
			reason = ucErr.Reason
		}
		if status >= http.StatusInternalServerError {
			log.Error("turn failed", "status", status, "code", code, "reason", reason, "err", err)
		} else {
			log.Warn("turn rejected", "status", status, "code", code, "reason", reason, "err", err)
		}
		return h.errorResponse(correlationID, status, code, reason), nil
	}

	log.Info("turn handled",
		"activity_type", in.Type,
		"conversation_id", in.Conversation.ID,
		"replies", len(out.Activities),
	)
	activities := out.Activities
	if activities == nil {
		activities = []domain.Activity{}
	}
	return h.jsonResponse(correlationID, http.StatusOK, turnResponse{Activities: activities}), nil
}

func statusFor(err error) (int, usecase.ErrorCode) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, usecase.ErrorInternal
	}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, ucErr.Code
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, ucErr.Code
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, ucErr.Code
	default:
		return http.StatusInternalServerError, usecase.ErrorInternal
	}
}

func (h *Handler) errorResponse(correlationID string, status int, code usecase.ErrorCode, message string) Response {
	return h.jsonResponse(correlationID, status, errorResponse{Error: string(code), Message: message})
}

func (h *Handler) jsonResponse(correlationID string, status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		h.logger.Error("failed to encode response", "correlation_id", correlationID, "err", err)
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	return Response{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

// headerValue looks a header up case-insensitively; API Gateway keeps the
// client's casing.
func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
