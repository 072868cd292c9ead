package ez

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FieldError is one problem found in a request body.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

var setupValidator sync.Once

// prepareValidator makes validator report fields by their json names and adds
// the maxbytes rule.
func prepareValidator() {
	setupValidator.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("maxbytes", maxBytes)
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// maxBytes bounds a string by its encoded length; max counts runes.
func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// bindJSON decodes the body into in and runs its binding rules. An empty body
// is validated as the zero value so missing fields are reported by name.
func bindJSON(c *gin.Context, in any, strict bool) error {
	prepareValidator()
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		dec := json.NewDecoder(c.Request.Body)
		if strict {
			dec.DisallowUnknownFields()
		}
		if err := dec.Decode(in); err != nil && !errors.Is(err, io.EOF) {
			return validationError(err)
		}
	}
	if err := binding.Validator.ValidateStruct(in); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &AErr{Code: http.StatusRequestEntityTooLarge, Msg: "Request body too large", Err: err}
	}
	fields := ValidationErrors(err)
	details := "invalid request body"
	if len(fields) > 0 {
		details = fields[0].Message
	}
	return &AErr{
		Code:    http.StatusBadRequest,
		Msg:     "Validation error",
		Err:     err,
		Details: details,
		Fields:  fields,
	}
}

// ValidationErrors flattens decoder and validator failures into a list.
func ValidationErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag(), Message: describe(fe)})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []FieldError{{
			Field:   typeErr.Field,
			Rule:    "type",
			Message: fmt.Sprintf("%q must be a %s", typeErr.Field, typeErr.Type.Kind()),
		}}
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.ErrUnexpectedEOF) {
		return []FieldError{{Rule: "json", Message: "request body is not valid JSON"}}
	}

	if msg := err.Error(); strings.HasPrefix(msg, "json: unknown field ") {
		name := strings.Trim(strings.TrimPrefix(msg, "json: unknown field "), `"`)
		return []FieldError{{Field: name, Rule: "unknown", Message: fmt.Sprintf("%q is not allowed", name)}}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%q is required", fe.Field())
	case "email":
		return fmt.Sprintf("%q must be a valid email", fe.Field())
	case "min":
		return fmt.Sprintf("%q length must be at least %s characters long", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%q length must be less than or equal to %s characters long", fe.Field(), fe.Param())
	case "maxbytes":
		return fmt.Sprintf("%q length must be less than or equal to %s bytes long", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%q failed the %s rule", fe.Field(), fe.Tag())
	}
}
