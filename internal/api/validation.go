package api

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yairfalse/vmportal/pkg/resource"
)

var validate = newValidator()

// nameTags maps validator tags to the resource kind whose grammar they check.
var nameTags = map[string]resource.Kind{
	"vmname":         resource.KindVM,
	"appservicename": resource.KindAppService,
	"schedulename":   resource.KindSchedule,
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	for tag, kind := range nameTags {
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return resource.ValidName(fl.Field().String(), kind)
		}); err != nil {
			panic(err)
		}
	}
	return v
}

// validName checks a path parameter against a name tag.
func validName(name, tag string) bool {
	return validate.Var(name, tag) == nil
}

const msgInvalidJSON = "Invalid JSON body"

// decodeJSON binds the request body into v and reports whether it parsed.
// An empty body is accepted only when optional is set.
func decodeJSON(c *gin.Context, v any, optional bool) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		return optional && errors.Is(err, io.EOF)
	}
	return true
}
