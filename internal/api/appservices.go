package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yairfalse/vmportal/internal/portal"
)

type appServiceRequest struct {
	portal.AppServiceTarget
	AppSettings map[string]string `json:"appSettings"`
	SKU         *portal.SKU       `json:"sku"`
}

// appServiceBody validates the path name and decodes the body, writing the
// 400 response itself when either is bad.
func (s *Server) appServiceBody(c *gin.Context) (string, *appServiceRequest, bool) {
	name := c.Param("name")
	if !validName(name, "appservicename") {
		badRequest(c, "Invalid App Service name")
		return "", nil, false
	}
	var req appServiceRequest
	if !decodeJSON(c, &req, false) {
		badRequest(c, msgInvalidJSON)
		return "", nil, false
	}
	return name, &req, true
}

func (s *Server) listAppServices(c *gin.Context) {
	list, err := s.portal.ListAppServices(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) appServiceAction(action portal.Action) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, req, ok := s.appServiceBody(c)
		if !ok {
			return
		}
		res, err := s.portal.AppServiceAction(c.Request.Context(), action, name, req.AppServiceTarget, principalFrom(c))
		if err != nil {
			s.writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

func (s *Server) configureAppService(c *gin.Context) {
	name, req, ok := s.appServiceBody(c)
	if !ok {
		return
	}
	res, err := s.portal.ConfigureAppService(c.Request.Context(), name, req.AppServiceTarget, req.AppSettings, principalFrom(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) scaleAppService(c *gin.Context) {
	name, req, ok := s.appServiceBody(c)
	if !ok {
		return
	}
	s.writeError(c, s.portal.ScaleAppService(c.Request.Context(), name, req.AppServiceTarget, req.SKU, principalFrom(c)))
}
