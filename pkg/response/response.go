package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response represents a standard API response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StatusError is implemented by errors that know their HTTP rendering.
type StatusError interface {
	error
	HTTPStatus() int
	Code() string
	Detail() string
}

// Success sends a successful response.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

// Created sends a 201 created response.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    data,
	})
}

// Error sends an error response and aborts the handler chain.
func Error(c *gin.Context, statusCode int, code, message string) {
	c.AbortWithStatusJSON(statusCode, Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
	})
}

// FromError renders err through its StatusError implementation, or as a 500
// for anything else. 401 responses carry a Bearer challenge.
func FromError(c *gin.Context, err error) {
	var se StatusError
	if !errors.As(err, &se) {
		InternalError(c, "internal server error")
		return
	}
	if se.HTTPStatus() == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	Error(c, se.HTTPStatus(), se.Code(), se.Detail())
}

// BadRequest sends a 400 error response.
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// InternalError sends a 500 error response.
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", message)
}
