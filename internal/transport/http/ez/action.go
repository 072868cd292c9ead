package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-auth-backend/internal/transport/http/middleware"
	resp "go-gin-auth-backend/internal/transport/http/response"
)

// AErr carries the HTTP status and client-facing message for a failed action.
type AErr struct {
	Code    int
	Msg     string
	Err     error
	Details string
	Fields  []FieldError
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error { return &AErr{Code: http.StatusBadRequest, Msg: msg} }
// InvalidField reports a single field failure in the validation error shape.
func InvalidField(field, rule, msg string) error {
	return &AErr{
		Code:    http.StatusBadRequest,
		Msg:     "Validation error",
		Details: msg,
		Fields:  []FieldError{{Field: field, Rule: rule, Message: msg}},
	}
}

func Unauthorized(msg string, err error) error {
	return &AErr{Code: http.StatusUnauthorized, Msg: msg, Err: err}
}
func NotFound(msg string) error { return &AErr{Code: http.StatusNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: http.StatusInternalServerError, Msg: msg, Err: err}
}

type Binder string

const (
	BindJSON         Binder = "json"          // unknown fields ignored
	BindStrictJSON   Binder = "strict_json"   // unknown fields rejected
	BindOptionalJSON Binder = "optional_json" // bind errors ignored, zero value used
	BindNone         Binder = "none"
)

type Options struct {
	Logger *zap.Logger
	// ExposeErrors adds the underlying error text to 500 responses.
	ExposeErrors bool
}

type EZ struct {
	g   *gin.RouterGroup
	opt Options
}

func New(g *gin.RouterGroup, opt Options) EZ {
	if opt.Logger == nil {
		opt.Logger = zap.NewNop()
	}
	return EZ{g: g, opt: opt}
}

// Action describes one endpoint: I is the request body, O the data payload.
type Action[I any, O any] struct {
	Method     string
	Path       string
	Binder     Binder
	Status     int    // success status, 200 when zero
	Message    string // success message
	Middleware []gin.HandlerFunc
	Handler    func(c *gin.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		var in I
		switch a.Binder {
		case BindJSON, BindStrictJSON:
			if err := bindJSON(c, &in, a.Binder == BindStrictJSON); err != nil {
				e.fail(c, err)
				return
			}
		case BindOptionalJSON:
			if err := bindJSON(c, &in, false); err != nil {
				var zero I
				in = zero
			}
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			e.fail(c, err)
			return
		}
		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		c.JSON(status, resp.OK(a.Message, out))
	}

	handlers := append(append([]gin.HandlerFunc{}, a.Middleware...), h)
	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, handlers...)
	case http.MethodPut:
		e.g.PUT(a.Path, handlers...)
	case http.MethodDelete:
		e.g.DELETE(a.Path, handlers...)
	default:
		e.g.POST(a.Path, handlers...)
	}
}

// fail maps err onto the envelope. Anything that is not an AErr is a 500.
func (e EZ) fail(c *gin.Context, err error) {
	var ae *AErr
	if !errors.As(err, &ae) {
		ae = &AErr{Code: http.StatusInternalServerError, Err: err}
	}
	body := resp.Fail(ae.Code, ae.Msg)
	body.Details = ae.Details
	if len(ae.Fields) > 0 {
		body.Errors = ae.Fields
	}
	if ae.Code >= http.StatusInternalServerError {
		body.Message = resp.MessageFor(ae.Code)
		_ = c.Error(err)
		e.opt.Logger.Error("request failed",
			zap.String("path", c.FullPath()),
			middleware.RequestIDField(c),
			zap.Error(err))
		if e.opt.ExposeErrors {
			body.Error = err.Error()
		}
	}
	c.AbortWithStatusJSON(ae.Code, body)
}
