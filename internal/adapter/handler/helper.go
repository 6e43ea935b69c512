package handler

import (
	stdErrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anishvdev/voiceforge/errors"
	"github.com/anishvdev/voiceforge/internal/adapter/dto/common"
)

// handleSuccess writes a success envelope.
func handleSuccess(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, common.OK(data))
}

// handleError maps any failure onto the response envelope. AppErrors carry
// their own HTTP status; anything else is a 500.
func handleError(c echo.Context, logger *zap.Logger, err error) error {
	var appErr errors.AppError
	if stdErrors.As(err, &appErr) {
		if appErr.HTTPCode >= http.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		} else {
			logger.Warn("request rejected", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.JSON(appErr.HTTPCode, common.Fail(string(appErr.Code), appErr.Message, appErr.Details))
	}
	logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.JSON(http.StatusInternalServerError,
		common.Fail(string(errors.ErrorCode_INTERNAL), "internal server error", nil))
}
