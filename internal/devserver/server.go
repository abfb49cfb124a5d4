// Package devserver serves the Lambda handler over plain HTTP for local
// development of the site.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// ProxyHandler is an API Gateway proxy event handler.
type ProxyHandler interface {
	Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)
}

// NewRouter routes every request through h. When allowedOrigin is set the
// router answers CORS preflights for it.
func NewRouter(h ProxyHandler, allowedOrigin string, log *zap.Logger) (*gin.Engine, error) {
	if h == nil {
		return nil, errors.New("devserver: handler must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	if origin := strings.TrimSpace(allowedOrigin); origin != "" {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  []string{origin},
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Content-Type", "X-Correlation-Id"},
			ExposeHeaders: []string{"X-Correlation-Id"},
			MaxAge:        12 * time.Hour,
		}))
	}
	r.Any("/*path", proxy(h, log))
	return r, nil
}

func proxy(h ProxyHandler, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "INVALID_INPUT"})
			return
		}

		resp, err := h.Handle(c.Request.Context(), toProxyRequest(c.Request, body))
		if err != nil {
			log.Error("handler returned error", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"message": "Internal server error"})
			return
		}
		for k, v := range resp.Headers {
			c.Header(k, v)
		}
		for k, vs := range resp.MultiValueHeaders {
			for _, v := range vs {
				c.Writer.Header().Add(k, v)
			}
		}
		c.Status(resp.StatusCode)
		if resp.Body != "" {
			_, _ = c.Writer.WriteString(resp.Body)
		}
	}
}

func toProxyRequest(r *http.Request, body []byte) events.APIGatewayProxyRequest {
	headers := make(map[string]string, len(r.Header))
	for k, vs := range r.Header {
		if len(vs) > 0 {
			headers[k] = vs[0]
		}
	}
	query := make(map[string]string)
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			query[k] = vs[0]
		}
	}
	return events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.Path,
		Headers:               headers,
		MultiValueHeaders:     r.Header,
		QueryStringParameters: query,
		Body:                  string(body),
		RequestContext: events.APIGatewayProxyRequestContext{
			RequestID: uuid.NewString(),
			Stage:     "local",
		},
	}
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, router http.Handler, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("dev server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("devserver: listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("devserver: shutdown: %w", err)
	}
	<-errCh
	return nil
}
