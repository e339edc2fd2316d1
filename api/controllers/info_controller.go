package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const Version = "1.0"

// HandleInfo reports the service identity for clients probing the gateway.
func HandleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "filegate",
		"version": Version,
	})
}
