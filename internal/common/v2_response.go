package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// V2Response v2 API 표준 응답 형식
type V2Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *V2Meta     `json:"meta,omitempty"`
	Error   *V2Error    `json:"error,omitempty"`
}

// V2Meta v2 페이지네이션 메타
type V2Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

// V2Error v2 에러 응답
type V2Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// NewV2Meta creates V2Meta with computed total_pages
func NewV2Meta(page, perPage int, total int64) *V2Meta {
	return &V2Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: PageCount(total, perPage),
	}
}

// PageCount returns ceil(total / perPage)
func PageCount(total int64, perPage int) int64 {
	if perPage <= 0 {
		return 0
	}
	pages := total / int64(perPage)
	if total%int64(perPage) > 0 {
		pages++
	}
	return pages
}

// V2Success returns a v2 success response
func V2Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, V2Response{
		Success: true,
		Data:    data,
	})
}

// V2SuccessWithMeta returns a v2 success response with pagination
func V2SuccessWithMeta(c *gin.Context, data interface{}, meta *V2Meta) {
	c.JSON(http.StatusOK, V2Response{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

// V2Created returns a v2 201 Created response
func V2Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, V2Response{
		Success: true,
		Data:    data,
	})
}

// V2ErrorResponse returns a v2 error response
func V2ErrorResponse(c *gin.Context, status int, message string, err error) {
	v2Err := &V2Error{
		Code:    getErrorCode(status),
		Message: message,
	}
	if err != nil {
		v2Err.Details = err.Error()
	}
	c.JSON(status, V2Response{
		Success: false,
		Error:   v2Err,
	})
}

// V2ErrorWithDetails returns a v2 error response carrying structured details
func V2ErrorWithDetails(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, V2Response{
		Success: false,
		Error: &V2Error{
			Code:    getErrorCode(status),
			Message: message,
			Details: details,
		},
	})
}

// V2FromError maps the ban engine error taxonomy onto HTTP responses.
// InvalidRequest → 400 with the reason code, NotFound → 404, StoreFailure and
// anything else → 500 with the underlying message.
func V2FromError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		V2ErrorWithDetails(c, http.StatusBadRequest, err.Error(), gin.H{"reason": ReasonCode(err)})
	case errors.Is(err, ErrNotFound):
		V2ErrorResponse(c, http.StatusNotFound, "not found", err)
	default:
		V2ErrorResponse(c, http.StatusInternalServerError, err.Error(), nil)
	}
}

// getErrorCode generates error code from HTTP status
func getErrorCode(status int) string {
	switch status {
	case 400:
		return "BAD_REQUEST"
	case 401:
		return "UNAUTHORIZED"
	case 403:
		return "FORBIDDEN"
	case 404:
		return "NOT_FOUND"
	case 409:
		return "CONFLICT"
	case 429:
		return "RATE_LIMITED"
	case 500:
		return "INTERNAL_SERVER_ERROR"
	default:
		return "ERROR"
	}
}
