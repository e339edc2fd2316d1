package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/tidewell/filegate/storage"
	"github.com/tidewell/filegate/tool"
	"github.com/tidewell/filegate/types"
)

// UploadController is the server-side counterpart of the transfer executor:
// it validates the incoming file, stages it through the temp-storage ladder,
// and hands it to the persistence finalizer.
type UploadController struct {
	cfg       *types.AppConfig
	fs        afero.Afero
	resolver  *storage.TempResolver
	finalizer *storage.Finalizer
	index     *storage.IndexStore
	hub       types.Publisher
}

func NewUploadController(cfg *types.AppConfig, fs afero.Fs, resolver *storage.TempResolver, finalizer *storage.Finalizer, index *storage.IndexStore, hub types.Publisher) *UploadController {
	if hub == nil {
		hub = types.NopPublisher{}
	}
	return &UploadController{
		cfg:       cfg,
		fs:        afero.Afero{Fs: fs},
		resolver:  resolver,
		finalizer: finalizer,
		index:     index,
		hub:       hub,
	}
}

// HandleUpload processes one multipart transfer request: fields file, index,
// finished, and iterFailed (present only on the finished task).
func (ctrl *UploadController) HandleUpload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing file part"))
		return
	}
	index, err := strconv.Atoi(c.PostForm("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid index"))
		return
	}
	finished := c.PostForm("finished") == "true"

	if verr := ctrl.validate(fileHeader.Filename, fileHeader.Size); verr != nil {
		tool.DefaultLogger.Warnf("[Upload] Rejected %s: %v", fileHeader.Filename, verr)
		c.JSON(http.StatusBadRequest, tool.FastReturnPipelineError(verr))
		return
	}

	stagingPath, err := ctrl.stage(fileHeader)
	if err != nil {
		pe := types.NewPipelineError(types.ErrUnexpected, true, fmt.Sprintf("failed to stage %s", fileHeader.Filename), err)
		tool.DefaultLogger.Errorf("[Upload] %v", pe)
		c.JSON(http.StatusInternalServerError, tool.FastReturnPipelineError(pe))
		return
	}

	handle, err := ctrl.resolver.Resolve(stagingPath, fileHeader.Filename)
	if err != nil {
		pe, ok := types.AsPipelineError(err)
		if !ok {
			pe = types.NewPipelineError(types.ErrTempStorage, false, "temp storage resolution failed", err)
		}
		tool.DefaultLogger.Errorf("[Upload] %v", pe)
		c.JSON(http.StatusInternalServerError, tool.FastReturnPipelineError(pe))
		return
	}

	record, err := ctrl.finalizer.Finalize(fileHeader.Filename, handle.Path)
	if err != nil {
		pe, ok := types.AsPipelineError(err)
		if !ok {
			pe = types.NewPipelineError(types.ErrPersistence, true, "persistence failed", err)
		}
		tool.DefaultLogger.Errorf("[Upload] %v", pe)
		if rmErr := ctrl.resolver.Remove(handle); rmErr != nil {
			tool.DefaultLogger.Warnf("[Upload] Temp cleanup after failed finalize: %v", rmErr)
		}
		c.JSON(http.StatusInternalServerError, tool.FastReturnPipelineError(pe))
		return
	}

	ctrl.hub.Publish(types.ProgressEvent{
		Message:  fmt.Sprintf("%s stored", record.Name),
		State:    string(types.TaskPersisted),
		Progress: 100,
	})

	if finished {
		iterFailed, _ := strconv.Atoi(c.PostForm("iterFailed"))
		tool.DefaultLogger.Infof("[Upload] Batch finished at index %d with %d failed file(s)", index, iterFailed)
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(record))
}

// HandleListFiles returns the metadata index in insertion order.
func (ctrl *UploadController) HandleListFiles(c *gin.Context) {
	records, err := ctrl.index.All()
	if err != nil {
		tool.DefaultLogger.Errorf("[Files] Failed to read index: %v", err)
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to read index"))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(records))
}

// validate applies the configured extension allow-list and size limit.
// Validation failures are per-file and never abort the batch.
func (ctrl *UploadController) validate(fileName string, size int64) *types.PipelineError {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if !ctrl.cfg.ExtensionAllowed(ext) {
		pe := types.NewPipelineError(types.ErrValidation, false, fmt.Sprintf("extension %q not allowed for %s", ext, fileName), nil)
		pe.UserMessage = fmt.Sprintf("file type %q is not allowed", ext)
		return pe
	}
	if ctrl.cfg.MaxFileSize > 0 && size > ctrl.cfg.MaxFileSize {
		pe := types.NewPipelineError(types.ErrValidation, false, fmt.Sprintf("%s exceeds size limit (%d > %d)", fileName, size, ctrl.cfg.MaxFileSize), nil)
		pe.UserMessage = "file is too large"
		return pe
	}
	return nil
}

// stage copies the multipart part onto the controller's filesystem so the
// resolver can move it down the ladder.
func (ctrl *UploadController) stage(fileHeader *multipart.FileHeader) (string, error) {
	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	stagingPath := filepath.Join(os.TempDir(), "filegate-stage-"+uuid.NewString())
	dst, err := ctrl.fs.Create(stagingPath)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return stagingPath, nil
}
