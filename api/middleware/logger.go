package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/OldStager01/cku-autoscaler/internal/logger"
)

// RequestLogger writes one entry per request after the handler chain has run.
// Health probes and scrapes log at debug so they do not drown the decision log.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		entry := logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"route":      route,
			"status":     c.Writer.Status(),
			"bytes":      c.Writer.Size(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		if id := c.Param("id"); id != "" {
			entry = entry.WithField("cluster_id", id)
		}
		if operator := GetOperator(c); operator != "" {
			entry = entry.WithField("operator", operator)
		}
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request failed")
		case status >= 400:
			entry.Warn("Request rejected")
		case c.Request.Method == "GET" && !strings.HasPrefix(route, "/clusters"):
			entry.Debug("Request served")
		default:
			entry.Info("Request served")
		}
	}
}
