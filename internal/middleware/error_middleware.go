package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/eventhub/internal/app/models/dto"
	"github.com/yigit/eventhub/internal/pkg/apperrors"
	"github.com/yigit/eventhub/internal/pkg/logger"
)

var statusByCode = map[string]int{
	apperrors.CodeUnauthenticated:  http.StatusUnauthorized,
	apperrors.CodePermissionDenied: http.StatusForbidden,
	apperrors.CodeNotFound:         http.StatusNotFound,
	apperrors.CodeAlreadyExists:    http.StatusConflict,
	apperrors.CodeInvalidArgument:  http.StatusBadRequest,
	apperrors.CodeInternal:         http.StatusInternalServerError,
}

// HandleAPIError writes the error envelope for err with the status of its kind
func HandleAPIError(c *gin.Context, err error) {
	code := apperrors.Code(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	var message string
	switch {
	case errors.Is(err, apperrors.ErrTokenExpired):
		message = "Token has expired"
	case errors.Is(err, apperrors.ErrTokenInvalid):
		message = "Invalid token"
	case code == apperrors.CodeInternal:
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Unhandled error")
		message = "Internal server error"
	default:
		message = apperrors.Message(err)
	}

	detail := dto.NewErrorDetail(dto.ErrorCode(code), message)
	var custom *apperrors.CustomError
	if errors.As(err, &custom) && custom.Details != nil {
		detail = detail.WithDetails(custom.Details)
	}
	c.JSON(status, dto.NewErrorResponse(detail))
}
