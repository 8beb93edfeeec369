package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yairfalse/vmportal/internal/portal"
)

// writeError maps the portal error taxonomy onto status codes and bodies.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		verr  *portal.ValidationError
		rberr *portal.RunbookNotAllowedError
		cerr  *portal.ConfigurationError
		rerr  *portal.RemoteError
		nerr  *portal.NotFoundError
		nierr *portal.NotImplementedError
	)

	switch {
	case errors.As(err, &verr):
		body := gin.H{"error": verr.Msg}
		for k, v := range verr.Details {
			body[k] = v
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &rberr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":           rberr.Error(),
			"allowedRunbooks": rberr.Allowed,
		})
	case errors.As(err, &cerr):
		s.logger.Error().Err(cerr.Err).Str("path", c.Request.URL.Path).Msg("server configuration error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
	case errors.As(err, &rerr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   rerr.Op,
			"message": rerr.Err.Error(),
		})
	case errors.As(err, &nerr):
		c.JSON(http.StatusNotFound, gin.H{"error": nerr.Msg})
	case errors.As(err, &nierr):
		c.JSON(http.StatusNotImplemented, gin.H{
			"success": false,
			"message": nierr.Msg,
			"name":    nierr.Name,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal server error",
			"message": err.Error(),
		})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
