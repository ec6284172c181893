package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"storefront/internal/telemetry"
)

const (
	headerRequestID   = "X-Request-ID"
	headerCartSession = "X-Cart-Session"
	headerUserID      = "X-User-ID"
	headerActorID     = "X-Actor-ID"

	ctxSession = "cart_session"
	ctxActor   = "actor"
)

// requestID берёт X-Request-ID или генерирует новый и кладёт его в контекст запроса
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(headerRequestID, id)
		c.Request = c.Request.WithContext(telemetry.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// tracing открывает серверный span; входящий traceparent продолжает чужую трассу
func tracing() gin.HandlerFunc {
	tracer := otel.Tracer("storefront/internal/http")
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

func observe(m *telemetry.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveRequest(c.Request.Method+" "+route, c.Writer.Status(), time.Since(start))
	}
}

func requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := strings.TrimSpace(c.GetHeader(headerCartSession))
		if session == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing " + headerCartSession + " header"})
			return
		}
		c.Set(ctxSession, session)
		c.Next()
	}
}

// requireActor админские маршруты требуют идентификатор администратора
func requireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(headerActorID))
		if actor == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + headerActorID + " header"})
			return
		}
		c.Set(ctxActor, actor)
		c.Next()
	}
}

func ownerID(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(headerUserID))
}
