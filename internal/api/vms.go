package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yairfalse/vmportal/internal/portal"
)

// batchRequest accepts names, or vmNames from older dashboards.
type batchRequest struct {
	Names   json.RawMessage `json:"names"`
	VMNames json.RawMessage `json:"vmNames"`
}

// names returns the requested names. A present but non-array field is
// reported as not ok.
func (r batchRequest) names() ([]string, bool) {
	raw := r.Names
	if len(raw) == 0 || string(raw) == "null" {
		raw = r.VMNames
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, true
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return nil, false
	}
	return names, true
}

func (s *Server) listVMs(c *gin.Context) {
	list, err := s.portal.ListVMs(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) vmAction(action portal.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		if !validName(name, "vmname") {
			badRequest(c, "Invalid VM name")
			return
		}
		res, err := s.portal.VMAction(c.Request.Context(), action, name, principalFrom(c))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) batchVMs(action portal.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req batchRequest
		if !decodeJSON(c, &req, false) {
			badRequest(c, msgInvalidJSON)
			return
		}
		names, ok := req.names()
		if !ok {
			badRequest(c, "names must be a non-empty array")
			return
		}

		res, err := s.portal.BatchVMs(c.Request.Context(), action, names, principalFrom(c))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(res.Status, res)
	}
}

func (s *Server) vmSummary(c *gin.Context) {
	summary, err := s.portal.Summary(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) vmMetrics(c *gin.Context) {
	res, err := s.portal.VMMetrics(c.Request.Context(), c.Param("name"), c.Query("timespan"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
