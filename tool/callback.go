package tool

import (
	"github.com/gin-gonic/gin"

	"github.com/tidewell/filegate/types"
)

func FastReturnError(msg string) gin.H {
	return gin.H{
		"error": msg,
	}
}

func FastReturnSuccessWithData(data any) gin.H {
	return gin.H{
		"data": data,
	}
}

// FastReturnPipelineError renders a classified error as the standard error
// envelope: sanitized message plus the machine-readable code and the
// blocking flag the client orchestrator keys its abort decision on.
func FastReturnPipelineError(e *types.PipelineError) gin.H {
	return gin.H{
		"error":    e.Sanitized(),
		"code":     string(e.Code),
		"blocking": e.Blocking,
	}
}
