package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// Handle serves an API Gateway proxy event. Errors are always reported in the
// response; the returned error is reserved for failures to build one.
func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	start := h.now()
	corrID := headerValue(event.Headers, correlationIDKey)
	if corrID == "" {
		corrID = h.newID()
	}

	origin := headerValue(event.Headers, "Origin")

	if event.HTTPMethod == http.MethodOptions {
		return h.respond(corrID, origin, http.StatusNoContent, nil)
	}

	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return h.respond(corrID, origin, http.StatusBadRequest, errorResponse{Error: "Bad Request", Message: "invalid base64 body"})
		}
		body = decoded
	}

	status, payload := h.dispatch(ctx, event.HTTPMethod, event.Path, body)
	slog.InfoContext(ctx, "request",
		"method", event.HTTPMethod,
		"path", event.Path,
		"status", status,
		"latency_ms", h.now().Sub(start).Milliseconds(),
		"correlation_id", corrID,
	)
	return h.respond(corrID, origin, status, payload)
}

func (h *Handler) dispatch(ctx context.Context, method, path string, body []byte) (status int, payload any) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "panic while serving request", "panic", r, "path", path)
			status, payload = h.internalError("Something went wrong", fmt.Errorf("panic: %v", r))
		}
	}()
	rt, ok := lookupRoute(method, path)
	if !ok {
		return notFound(path)
	}
	return rt.serve(h, ctx, body)
}

// respond builds the proxy response. A nil payload produces an empty body.
func (h *Handler) respond(corrID, origin string, status int, payload any) (events.APIGatewayProxyResponse, error) {
	headers := map[string]string{correlationIDKey: corrID}
	for k, v := range securityHeaders {
		headers[k] = v
	}
	for k, v := range corsHeaders(origin) {
		headers[k] = v
	}

	var body string
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return events.APIGatewayProxyResponse{}, err
		}
		headers["Content-Type"] = "application/json; charset=utf-8"
		body = string(raw)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    headers,
		Body:       body,
	}, nil
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
