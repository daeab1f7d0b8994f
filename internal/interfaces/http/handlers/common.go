package handlers

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/common"
)

const (
	defaultPageSize = 20
	maxPageSize     = 500
)

// parsePagination reads page and page_size, falling back to defaults for
// missing or out of range values.
func parsePagination(c *gin.Context) common.Pagination {
	page := common.Pagination{Page: 1, PageSize: defaultPageSize}
	if v := c.Query("page"); v != "" {
		if p, err := strconv.Atoi(v); err == nil && p > 0 {
			page.Page = p
		}
	}
	if v := c.Query("page_size"); v != "" {
		if ps, err := strconv.Atoi(v); err == nil && ps > 0 && ps <= maxPageSize {
			page.PageSize = ps
		}
	}
	return page
}

func writeData[T any](c *gin.Context, status int, data T) {
	c.JSON(status, common.APIResponse[T]{
		Success:   true,
		Data:      data,
		Timestamp: common.Timestamp(time.Now().UTC()),
	})
}

func writePage[T any](c *gin.Context, data T, page common.Pagination) {
	c.JSON(http.StatusOK, common.APIResponse[T]{
		Success:    true,
		Data:       data,
		Pagination: &page,
		Timestamp:  common.Timestamp(time.Now().UTC()),
	})
}

func writeError(c *gin.Context, status int, detail common.ErrorDetail) {
	c.AbortWithStatusJSON(status, common.APIResponse[any]{
		Error:     &detail,
		Timestamp: common.Timestamp(time.Now().UTC()),
	})
}

// writeAppError maps err onto its code's status. Server errors are masked.
func writeAppError(c *gin.Context, err error) {
	_ = c.Error(err)
	code := errors.GetCode(err)
	status := errors.HTTPStatusForCode(code)
	if status >= http.StatusInternalServerError {
		writeError(c, status, common.ErrorDetail{
			Code:    string(errors.ErrCodeInternal),
			Message: "internal server error",
		})
		return
	}

	detail := common.ErrorDetail{Code: string(code), Message: errors.DefaultMessageForCode(code)}
	var ae *errors.AppError
	if stderrors.As(err, &ae) {
		detail.Message = ae.Message
		detail.Detail = ae.Detail
	}
	writeError(c, status, detail)
}

func writeBindError(c *gin.Context, err error) {
	writeError(c, http.StatusBadRequest, common.ErrorDetail{
		Code:    string(errors.CodeInvalidParam),
		Message: "invalid request body",
		Detail:  err.Error(),
	})
}
