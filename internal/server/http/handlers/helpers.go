package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	domainErrors "github.com/polkiloo/vinylshop/internal/domain/errors"
	"github.com/polkiloo/vinylshop/internal/server/http/dto"
	"github.com/polkiloo/vinylshop/internal/server/http/middleware"
)

// CurrentUserID extracts authenticated user identifier from context.
func CurrentUserID(c *gin.Context) int64 {
	val, ok := c.Get(middleware.UserIDContextKey)
	if !ok {
		return 0
	}
	id, _ := val.(int64)
	return id
}

// bindJSON decodes the body into req. Rule violations answer 422 with field
// details, undecodable bodies answer 400.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldName(fe)] = ruleMessage(fe)
		}
		writeError(c, domainErrors.NewValidationError(fields))
		return false
	}
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed request body"})
	return false
}

func fieldName(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return toSnake(ns)
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '.' {
				prev := s[i-1]
				if prev < 'A' || prev > 'Z' {
					b.WriteByte('_')
				}
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

// pathID parses a positive integer path parameter; it answers 404 otherwise.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not found"})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors to HTTP responses.
func writeError(c *gin.Context, err error) {
	var vErr *domainErrors.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: "validation failed", Fields: vErr.Fields})
	case errors.Is(err, domainErrors.ErrInvalidQuantity):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error(), Fields: map[string]string{"quantity": "must be at least 1"}})
	case errors.Is(err, domainErrors.ErrInvalidOrderState):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "order is not eligible for this operation"})
	case errors.Is(err, domainErrors.ErrEmptyCart), errors.Is(err, domainErrors.ErrStaleShippingQuote):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case domainErrors.IsGatewayFailure(err):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: "payment gateway unavailable"})
	case errors.Is(err, domainErrors.ErrOrderNotFound), errors.Is(err, domainErrors.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not found"})
	case errors.Is(err, domainErrors.ErrShippingUnavailable):
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Error: "shipping service unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}
