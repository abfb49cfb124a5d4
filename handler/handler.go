package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"skh-agent/internal/domain"
	"skh-agent/internal/usecase"
)

const (
	correlationHeader = "X-Correlation-Id"

	errNotFound         = "NOT_FOUND"
	errMethodNotAllowed = "METHOD_NOT_ALLOWED"
)

// Assistant is the set of AI operations the site calls.
type Assistant interface {
	GeneratePlan(ctx context.Context, idea string) (string, error)
	GenerateVisualDemo(ctx context.Context, idea string) (*domain.DemoConfig, error)
	GenerateBlueprint(ctx context.Context, idea string) (usecase.Blueprint, error)
	Chat(ctx context.Context, message string, history []domain.ChatMessage) (string, error)
	Greeting() domain.ChatMessage
}

type Handler struct {
	svc           Assistant
	allowedOrigin string
	log           *zap.Logger
	routes        map[string]map[string]routeFunc
}

type routeFunc func(ctx context.Context, body []byte) (int, any)

type Option func(*Handler)

// WithAllowedOrigin adds CORS headers for origin to every response.
func WithAllowedOrigin(origin string) Option {
	return func(h *Handler) {
		h.allowedOrigin = strings.TrimSpace(origin)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

type ideaRequest struct {
	Idea string `json:"idea"`
}

type chatRequest struct {
	Message string               `json:"message"`
	History []domain.ChatMessage `json:"history"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type planResponse struct {
	Plan string `json:"plan"`
}

type demoResponse struct {
	Demo *domain.DemoConfig `json:"demo"`
}

type greetingResponse struct {
	Message domain.ChatMessage `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewHandler(svc Assistant, opts ...Option) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: assistant must not be nil")
	}
	h := &Handler{svc: svc, log: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	h.routes = map[string]map[string]routeFunc{
		"/health":        {http.MethodGet: h.health},
		"/plan":          {http.MethodPost: h.plan},
		"/demo":          {http.MethodPost: h.demo},
		"/blueprint":     {http.MethodPost: h.blueprint},
		"/chat":          {http.MethodPost: h.chat},
		"/chat/greeting": {http.MethodGet: h.greeting},
	}
	return h, nil
}

// Handle serves one API Gateway proxy event.
func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(req.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	log := h.log.With(zap.String("correlationId", corrID))

	path := strings.TrimSuffix(req.Path, "/")
	if path == "" {
		path = "/"
	}
	method := strings.ToUpper(req.HTTPMethod)

	methods, ok := h.routes[path]
	if !ok {
		return h.respond(corrID, http.StatusNotFound, errorResponse{Error: errNotFound}), nil
	}
	if method == http.MethodOptions && h.allowedOrigin != "" {
		return h.respond(corrID, http.StatusNoContent, nil), nil
	}
	route, ok := methods[method]
	if !ok {
		return h.respond(corrID, http.StatusMethodNotAllowed, errorResponse{Error: errMethodNotAllowed}), nil
	}

	body := []byte(req.Body)
	if req.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(req.Body)
		if err != nil {
			return h.respond(corrID, http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)}), nil
		}
		body = decoded
	}

	status, payload := route(ctx, body)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", path), zap.Int("status", status))
	} else {
		log.Info("request served", zap.String("path", path), zap.Int("status", status))
	}
	return h.respond(corrID, status, payload), nil
}

func (h *Handler) health(context.Context, []byte) (int, any) {
	return http.StatusOK, healthResponse{Status: "ok"}
}

func (h *Handler) plan(ctx context.Context, body []byte) (int, any) {
	var in ideaRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return invalidBody()
	}
	plan, err := h.svc.GeneratePlan(ctx, in.Idea)
	if err != nil {
		return h.fail(err)
	}
	return http.StatusOK, planResponse{Plan: plan}
}

func (h *Handler) demo(ctx context.Context, body []byte) (int, any) {
	var in ideaRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return invalidBody()
	}
	demo, err := h.svc.GenerateVisualDemo(ctx, in.Idea)
	if err != nil {
		return h.fail(err)
	}
	return http.StatusOK, demoResponse{Demo: demo}
}

func (h *Handler) blueprint(ctx context.Context, body []byte) (int, any) {
	var in ideaRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return invalidBody()
	}
	bp, err := h.svc.GenerateBlueprint(ctx, in.Idea)
	if err != nil {
		return h.fail(err)
	}
	return http.StatusOK, bp
}

func (h *Handler) greeting(context.Context, []byte) (int, any) {
	return http.StatusOK, greetingResponse{Message: h.svc.Greeting()}
}

func (h *Handler) chat(ctx context.Context, body []byte) (int, any) {
	var in chatRequest
	if err := json.Unmarshal(body, &in); err != nil {
		return invalidBody()
	}
	reply, err := h.svc.Chat(ctx, in.Message, in.History)
	if err != nil {
		return h.fail(err)
	}
	return http.StatusOK, chatResponse{Reply: reply}
}

func invalidBody() (int, any) {
	return http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput)}
}

func (h *Handler) fail(err error) (int, any) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		h.log.Error("unexpected error", zap.Error(err))
		return http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)}
	}
	h.log.Warn("request rejected", zap.String("code", string(ue.Code)), zap.String("reason", ue.Reason), zap.Error(ue.Err))
	return statusFor(ue.Code), errorResponse{Error: string(ue.Code)}
}

func statusFor(code usecase.ErrorCode) int {
	switch code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest
	case usecase.ErrorAuthRequired:
		return http.StatusUnauthorized
	case usecase.ErrorOverloaded:
		return http.StatusServiceUnavailable
	case usecase.ErrorUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respond(corrID string, status int, payload any) events.APIGatewayProxyResponse {
	headers := map[string]string{correlationHeader: corrID}
	if h.allowedOrigin != "" {
		headers["Access-Control-Allow-Origin"] = h.allowedOrigin
		headers["Access-Control-Allow-Methods"] = "GET,POST,OPTIONS"
		headers["Access-Control-Allow-Headers"] = "Content-Type," + correlationHeader
		headers["Vary"] = "Origin"
	}
	if payload == nil {
		return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("encode response", zap.Error(err))
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR"}`)
	}
	headers["Content-Type"] = "application/json"
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(body)}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
