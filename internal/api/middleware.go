package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yairfalse/vmportal/internal/portal"
)

const (
	headerRequestID       = "X-Request-ID"
	headerPrincipalID     = "x-ms-client-principal-id"
	headerPrincipalName   = "x-ms-client-principal-name"
	headerClientPrincipal = "x-ms-client-principal"

	ctxRequestID = "request_id"
	ctxPrincipal = "principal"

	unknownUser = "unknown"
)

// requestID propagates or assigns a request id.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

// principal resolves the caller from the gateway's identity headers.
func principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		who := portal.Principal{
			UserID:      c.GetHeader(headerPrincipalID),
			UserDetails: c.GetHeader(headerPrincipalName),
		}
		if raw := c.GetHeader(headerClientPrincipal); raw != "" {
			if cp, err := portal.DecodeClientPrincipal(raw); err == nil {
				decoded := cp.Principal()
				who.IdentityProvider = decoded.IdentityProvider
				who.Roles = decoded.Roles
				if who.UserID == "" {
					who.UserID = decoded.UserID
				}
				if who.UserDetails == "" {
					who.UserDetails = decoded.UserDetails
				}
			}
		}
		if who.UserID == "" {
			who.UserID = unknownUser
		}
		if who.UserDetails == "" {
			who.UserDetails = unknownUser
		}
		c.Set(ctxPrincipal, who)
		c.Next()
	}
}

func principalFrom(c *gin.Context) portal.Principal {
	if v, ok := c.Get(ctxPrincipal); ok {
		if who, ok := v.(portal.Principal); ok {
			return who
		}
	}
	return portal.Principal{UserID: unknownUser, UserDetails: unknownUser}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		ev := s.logger.Info()
		switch {
		case status >= http.StatusInternalServerError:
			ev = s.logger.Error()
		case status >= http.StatusBadRequest:
			ev = s.logger.Warn()
		}
		ev.Ctx(c.Request.Context()).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("request_id", c.GetString(ctxRequestID)).
			Str("user", principalFrom(c).UserDetails).
			Msg("request")
	}
}

// recovery turns a handler panic into a JSON 500.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error().
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Str("request_id", c.GetString(ctxRequestID)).
			Msg("handler panic")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	})
}
