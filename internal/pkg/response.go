package pkg

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/gasboard/internal/domain"
)

// Response is the standard JSON envelope for API responses.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ValidationErrorResponse is the JSON envelope for validation error responses.
type ValidationErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// Success sends a 200 JSON response with the given data.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

// Error maps err to its HTTP status. Only AppError messages reach the client;
// storage errors are also attached to the gin context for the request log.
func Error(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)

	msg := "internal error"
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	if domain.IsStorage(err) {
		_ = c.Error(err)
	}

	c.JSON(status, Response{Code: status, Message: msg})
}

// List sends one page of a listing.
func List[T any](c *gin.Context, result *domain.PageResult[T]) {
	Success(c, result)
}

// ValidationError sends a 400 with one message per failing field.
func ValidationError(c *gin.Context, err error) {
	validationError(c, err, nil)
}

// BindAndValidate binds the request into obj (JSON body, query or multipart
// form, by content type) and answers 400 itself when binding fails.
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		validationError(c, err, obj)
		return false
	}
	return true
}

// validationError names fields the way the client sent them: the form tag,
// then the json tag, then the lowercased Go name.
func validationError(c *gin.Context, err error, obj any) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, Response{
			Code:    http.StatusBadRequest,
			Message: "invalid request",
		})
		return
	}

	names := wireNames(obj)
	fieldErrors := make(map[string]string, len(ve))
	for _, fe := range ve {
		name, ok := names[fe.StructField()]
		if !ok {
			name = strings.ToLower(fe.Field())
		}
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fieldErrors[name] = msg
	}

	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Code:    http.StatusBadRequest,
		Message: "validation error",
		Errors:  fieldErrors,
	})
}

func wireNames(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := make(map[string]string, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		for _, key := range []string{"form", "json"} {
			if name := tagName(f.Tag.Get(key)); name != "" {
				m[f.Name] = name
				break
			}
		}
	}
	return m
}

func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
