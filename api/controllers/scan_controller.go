package controllers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/tidewell/filegate/scanner"
	"github.com/tidewell/filegate/tool"
)

type ScanController struct {
	coordinator *scanner.Coordinator
}

func NewScanController(coordinator *scanner.Coordinator) *ScanController {
	return &ScanController{coordinator: coordinator}
}

// HandleScan runs a pre-transfer scan. The response is always 200: a scan
// that cannot run reports scanSkipped rather than failing the request, so
// the client can proceed with the upload.
func (ctrl *ScanController) HandleScan(c *gin.Context) {
	fileName := c.PostForm("fileName")
	if fileName == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing fileName"))
		return
	}
	index, err := strconv.Atoi(c.PostForm("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid index"))
		return
	}

	req := scanner.Request{
		FileName:       fileName,
		Index:          index,
		Finished:       c.PostForm("finished") == "true",
		CustomTempPath: c.PostForm("customTempPath"),
	}
	req.SomeInfectedFiles, _ = strconv.Atoi(c.PostForm("someInfectedFiles"))

	if fileHeader, err := c.FormFile("file"); err == nil {
		src, err := fileHeader.Open()
		if err == nil {
			raw, readErr := io.ReadAll(src)
			src.Close()
			if readErr == nil {
				req.Raw = raw
			}
		}
	}

	verdict := ctrl.coordinator.Scan(c.Request.Context(), req)
	resp := ctrl.coordinator.BuildResponse(req, verdict)
	tool.DefaultLogger.Infof("[Scan] %s index=%d verdict=%s state=%s", fileName, index, verdict.Kind, resp.State)
	c.JSON(http.StatusOK, resp)
}
