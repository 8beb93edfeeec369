package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yairfalse/vmportal/internal/portal"
)

func (s *Server) listSchedules(c *gin.Context) {
	list, err := s.portal.ListSchedules(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) updateSchedule(c *gin.Context) {
	name := c.Param("name")
	if !validName(name, "schedulename") {
		badRequest(c, "Invalid schedule name")
		return
	}
	var upd portal.ScheduleUpdate
	if !decodeJSON(c, &upd, false) {
		badRequest(c, msgInvalidJSON)
		return
	}

	res, err := s.portal.UpdateSchedule(c.Request.Context(), name, upd, principalFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// triggerRunbook starts a runbook job. A malformed optional body is ignored.
func (s *Server) triggerRunbook(c *gin.Context) {
	var params portal.RunbookParams
	if !decodeJSON(c, &params, true) {
		params = portal.RunbookParams{}
	}

	res, err := s.portal.TriggerRunbook(c.Request.Context(), c.Param("name"), params, principalFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

func (s *Server) auditLog(c *gin.Context) {
	hours, err := queryInt(c, "hours")
	if err != nil {
		badRequest(c, "Hours must be between 1 and 168")
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		badRequest(c, "Limit must be a positive number")
		return
	}

	res, err := s.portal.GetAuditLog(c.Request.Context(), hours, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// queryInt parses an optional positive integer query parameter. Absent
// yields zero so the portal applies its default.
func queryInt(c *gin.Context, key string) (int, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return n, nil
}

// roles reports the caller's roles from the client principal header. It
// always answers 200 so the gateway can complete sign-in.
func (s *Server) roles(c *gin.Context) {
	raw := c.GetHeader(headerClientPrincipal)
	if raw == "" {
		s.logger.Warn().Msg("no client principal header")
		c.JSON(http.StatusOK, gin.H{"roles": []string{}})
		return
	}

	cp, err := portal.DecodeClientPrincipal(raw)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to decode client principal")
		c.JSON(http.StatusOK, gin.H{"roles": []string{}})
		return
	}

	roles := cp.Roles()
	s.logger.Info().Str("user", cp.UserDetails).Strs("roles", roles).Msg("resolved roles")
	c.JSON(http.StatusOK, gin.H{"roles": roles})
}
