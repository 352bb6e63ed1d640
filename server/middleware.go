package server

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/offtube/offtube/log"
)

const (
	headerRequestID = "X-Request-ID"
	headerAPIKey    = "X-API-Key"
)

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set("request_id", id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"request_id": c.GetString("request_id"),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).Round(time.Millisecond).String(),
		}).Info("request")
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow() {
			abort(c, http.StatusTooManyRequests, "rate_limited", "too many download requests, slow down")
			return
		}
		c.Next()
	}
}

func (s *Server) requireKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.opts.APIKey == "" {
			c.Next()
			return
		}

		given := c.GetHeader(headerAPIKey)
		if subtle.ConstantTimeCompare([]byte(given), []byte(s.opts.APIKey)) != 1 {
			abort(c, http.StatusUnauthorized, "unauthorized", "missing or wrong "+headerAPIKey)
			return
		}
		c.Next()
	}
}
