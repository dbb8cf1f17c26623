package handler

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const maxBodyBytes = 10 << 20

var allowedOrigins = map[string]bool{
	"http://localhost:3000": true,
	"http://localhost:8080": true,
	"http://10.0.2.2:3000":  true,
}

var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "SAMEORIGIN",
	"Referrer-Policy":        "no-referrer",
}

// Router builds the gin engine for long-running deployments.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		h.correlationID(),
		h.requestLogger(),
		gin.CustomRecovery(h.recovered),
		secureHeaders(),
		cors(),
	)

	for _, rt := range routes {
		r.Handle(rt.method, rt.path, h.ginHandler(rt))
	}
	r.NoRoute(func(c *gin.Context) {
		status, payload := notFound(c.Request.URL.Path)
		c.JSON(status, payload)
	})
	return r
}

func (h *Handler) ginHandler(rt route) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body []byte
		if c.Request.Body != nil {
			raw, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
			if err != nil {
				c.JSON(http.StatusRequestEntityTooLarge, errorResponse{Error: "Payload Too Large", Message: err.Error()})
				return
			}
			body = raw
		}
		status, payload := rt.serve(h, c.Request.Context(), body)
		c.JSON(status, payload)
	}
}

func (h *Handler) correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(correlationIDKey)
		if id == "" {
			id = h.newID()
		}
		c.Set(correlationIDKey, id)
		c.Header(correlationIDKey, id)
		c.Next()
	}
}

func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"correlation_id", c.GetString(correlationIDKey),
		)
	}
}

func (h *Handler) recovered(c *gin.Context, err any) {
	slog.ErrorContext(c.Request.Context(), "panic while serving request", "panic", err, "path", c.Request.URL.Path)
	status, payload := h.internalError("Something went wrong", fmt.Errorf("panic: %v", err))
	c.AbortWithStatusJSON(status, payload)
}

func secureHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range securityHeaders {
			c.Header(k, v)
		}
		c.Next()
	}
}

// corsHeaders returns the CORS response headers for origin, nil when the
// origin is not allowed.
func corsHeaders(origin string) map[string]string {
	if !allowedOrigins[origin] {
		return nil
	}
	return map[string]string{
		"Access-Control-Allow-Origin":      origin,
		"Access-Control-Allow-Credentials": "true",
		"Access-Control-Allow-Headers":     "Content-Type, Authorization, X-Correlation-Id",
		"Access-Control-Allow-Methods":     "GET, POST, OPTIONS",
		"Vary":                             "Origin",
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		for k, v := range corsHeaders(c.GetHeader("Origin")) {
			c.Header(k, v)
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
