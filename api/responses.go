package api

import "github.com/gin-gonic/gin"

const (
	ErrorMessage500 = "Internal server error"
)

func errorResponse(msg string) gin.H {
	return gin.H{
		"success": false,
		"error":   msg,
	}
}
