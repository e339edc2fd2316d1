package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/afero"

	"github.com/tidewell/filegate/tool"
	"github.com/tidewell/filegate/types"
)

// ServerError is the structured (machine-readable) error body the server
// attaches to terminal failures. Blocking decides whether the orchestrator
// aborts the remaining batch.
type ServerError struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Blocking bool   `json:"blocking"`
}

// Executor performs one file's network transfer with retry and backoff.
// Response codes in {5xx, 429, 408} and transport-level failures are
// retried; the wait before attempt k is 2^(k-2) seconds. Everything else is
// terminal on the first response.
type Executor struct {
	fs         afero.Afero
	client     *http.Client
	maxRetries int
	newBackoff func() retry.Backoff
}

func NewExecutor(fs afero.Fs, client *http.Client, maxRetries int) *Executor {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if client == nil {
		client = tool.GetHttpClient()
	}
	e := &Executor{fs: afero.Afero{Fs: fs}, client: client, maxRetries: maxRetries}
	e.newBackoff = func() retry.Backoff {
		return retry.WithMaxRetries(uint64(e.maxRetries-1), retry.NewExponential(time.Second))
	}
	return e
}

// SetBackoff overrides the backoff factory. Tests use it to collapse the
// waits while keeping the attempt accounting intact.
func (e *Executor) SetBackoff(factory func() retry.Backoff) {
	e.newBackoff = factory
}

// Transfer sends the task's file to the endpoint and returns the stored-file
// record the server confirmed. The terminal error carries the last error
// payload, classified structured or opaque.
func (e *Executor) Transfer(ctx context.Context, task *types.FileTransferTask, endpoint Endpoint, iterFailed int) (*types.StoredFileRecord, error) {
	var record *types.StoredFileRecord
	attempt := 0

	err := retry.Do(ctx, e.newBackoff(), func(ctx context.Context) error {
		attempt++
		task.RetryCount = attempt - 1
		if attempt > 1 {
			tool.DefaultLogger.Infof("[Transfer] Retrying %s (attempt %d/%d)", task.FileName, attempt, e.maxRetries)
		}

		status, body, sendErr := e.send(ctx, task, endpoint, iterFailed)
		if sendErr != nil {
			// No response at all: retried the same way as a 5xx.
			return retry.RetryableError(types.NewPipelineError(types.ErrTransfer, false,
				fmt.Sprintf("transport failure sending %s", task.FileName), sendErr))
		}
		if status >= 200 && status < 300 {
			record = parseRecord(body)
			return nil
		}
		perr := classifyErrorBody(status, body)
		if retryableStatus(status) {
			return retry.RetryableError(perr)
		}
		return perr
	})
	if err != nil {
		if pe, ok := types.AsPipelineError(err); ok {
			return nil, pe
		}
		return nil, types.NewPipelineError(types.ErrTransfer, false,
			fmt.Sprintf("transfer of %s failed", task.FileName), err)
	}
	return record, nil
}

func retryableStatus(code int) bool {
	return (code >= 500 && code <= 599) ||
		code == http.StatusTooManyRequests ||
		code == http.StatusRequestTimeout
}

// classifyErrorBody distinguishes structured error payloads from opaque
// ones. Only a structured payload can mark a failure blocking.
func classifyErrorBody(status int, body []byte) *types.PipelineError {
	var payload ServerError
	if err := sonic.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		code := types.ErrTransfer
		if payload.Code != "" {
			code = types.ErrorCode(payload.Code)
		}
		pe := types.NewPipelineError(code, payload.Blocking,
			fmt.Sprintf("server rejected transfer (%d): %s", status, payload.Error), nil)
		pe.UserMessage = payload.Error
		return pe
	}
	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	return types.NewPipelineError(types.ErrTransfer, false,
		fmt.Sprintf("server rejected transfer (%d): %s", status, snippet), nil)
}

func parseRecord(body []byte) *types.StoredFileRecord {
	var resp struct {
		Data types.StoredFileRecord `json:"data"`
	}
	if err := sonic.Unmarshal(body, &resp); err != nil {
		return nil
	}
	return &resp.Data
}

// send builds the multipart request and performs one attempt. The body is
// rebuilt per attempt because the file is streamed into it.
func (e *Executor) send(ctx context.Context, task *types.FileTransferTask, endpoint Endpoint, iterFailed int) (int, []byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", task.FileName)
	if err != nil {
		return 0, nil, err
	}
	src, err := e.fs.Open(task.SourcePath)
	if err != nil {
		return 0, nil, err
	}
	if _, err := io.Copy(part, src); err != nil {
		src.Close()
		return 0, nil, err
	}
	src.Close()

	_ = writer.WriteField("index", strconv.Itoa(task.Index))
	_ = writer.WriteField("finished", strconv.FormatBool(task.Finished))
	if task.Finished {
		_ = writer.WriteField("iterFailed", strconv.Itoa(iterFailed))
	}
	if err := writer.Close(); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.UploadURL, &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		tool.DefaultLogger.Warnf("Failed to read response body: %v", err)
	}
	return resp.StatusCode, body, nil
}
