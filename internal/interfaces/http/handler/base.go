package handler

import (
	stderrors "errors"
	"net/http"

	"catalog-search-api/internal/application/search"
	"catalog-search-api/internal/interfaces/http/dto"
	"catalog-search-api/pkg/errors"
	"catalog-search-api/pkg/logger"

	"github.com/gin-gonic/gin"
)

var errPermissionDenied = errors.New(errors.CodePermissionDenied, "permission denied")

// toAppError 将应用层错误映射为统一错误码，返回的字段错误仅在校验失败时非空
func toAppError(err error) (*errors.AppError, []dto.FieldError) {
	var (
		verr     *search.ValidationError
		notFound *search.EntityNotFoundError
		authz    *search.AuthorizationError
		unavail  *search.IndexUnavailableError
		queryErr *search.IndexQueryError
		appErr   *errors.AppError
	)

	switch {
	case stderrors.As(err, &verr):
		return errors.ErrValidationFailed, dto.FieldErrors(verr.Fields)
	case stderrors.Is(err, search.ErrAggregationsUnavailable):
		return errors.ErrAggregationsFailed, nil
	case stderrors.As(err, &notFound):
		return errors.ErrContentNotFound.WithDetail(notFound.Error()), nil
	case stderrors.As(err, &authz):
		return errPermissionDenied.WithDetail("reindex requires admin or super_admin"), nil
	case stderrors.As(err, &unavail):
		return errors.ErrIndexUnavailable, nil
	case stderrors.As(err, &queryErr):
		return errors.ErrIndexQueryFailed, nil
	case stderrors.Is(err, search.ErrReindexQueueDisabled):
		return errors.ErrServiceUnavailable.WithDetail("async reindex is disabled"), nil
	case stderrors.As(err, &appErr):
		return appErr, nil
	default:
		return errors.ErrInternalError, nil
	}
}

// respondError 写入错误响应，后端错误细节只进日志
func respondError(c *gin.Context, op string, err error) {
	appErr, fields := toAppError(err)
	ctx := c.Request.Context()
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.Error(ctx, op+" failed", err, "error_code", appErr.Code)
	} else {
		logger.Debug(ctx, op+" rejected", "error", err.Error(), "error_code", appErr.Code)
	}

	dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message, &dto.ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
		Fields:    fields,
	})
}

// badBinding 请求无法解析时按校验失败返回
func badBinding(c *gin.Context, field string, err error) {
	logger.Debug(c.Request.Context(), "request binding failed", "error", err.Error())
	dto.ErrorWithDetail(c, http.StatusBadRequest, errors.ErrValidationFailed.Message, &dto.ErrorDetail{
		ErrorCode: string(errors.CodeValidationFailed),
		Fields:    []dto.FieldError{{Field: field, Message: "malformed input"}},
	})
}
