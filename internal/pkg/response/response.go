// Package response writes the JSON envelope every API endpoint answers with:
//
//	{"success": true,  "data": ...}
//	{"success": false, "error": {"code": ..., "message": ..., "details": ...}}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Deletion is the payload of a successful DELETE.
type Deletion struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}

func Ok(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

func Fail(code, message string, details any) Envelope {
	return Envelope{Error: &ErrorBody{Code: code, Message: message, Details: details}}
}

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, Ok(data))
}

func Deleted(c *gin.Context, id int64) {
	c.JSON(http.StatusOK, Ok(Deletion{ID: id, Deleted: true}))
}

func Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, Fail(code, message, nil))
}

func ErrorWithDetails(c *gin.Context, statusCode int, code, message string, details any) {
	c.JSON(statusCode, Fail(code, message, details))
}

// Abort is Error for middleware: the rest of the chain is skipped.
func Abort(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, Fail(code, message, nil))
}
