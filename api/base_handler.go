package api

import (
	"github.com/gin-gonic/gin"
)

// BaseResponse is the uniform envelope every endpoint returns.
type BaseResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, BaseResponse{Success: true, Data: data})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, BaseResponse{Success: false, Error: message})
}
