package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/spf13/afero"

	"github.com/tidewell/filegate/tool"
	"github.com/tidewell/filegate/types"
)

// ScanClient requests a pre-transfer scan from the server. It sends the raw
// file bytes along so the server can stage them when its temp path has
// nothing to resolve yet.
type ScanClient struct {
	fs     afero.Afero
	client *http.Client
}

func NewScanClient(fs afero.Fs, client *http.Client) *ScanClient {
	if client == nil {
		client = tool.GetHttpClient()
	}
	return &ScanClient{fs: afero.Afero{Fs: fs}, client: client}
}

// Scan posts the scan request and decodes the verdict response. A transport
// or decode failure is returned as-is; the caller decides how to degrade.
func (c *ScanClient) Scan(ctx context.Context, endpoint Endpoint, task *types.FileTransferTask, someInfectedFiles int) (*types.ScanResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	_ = writer.WriteField("fileName", task.FileName)
	_ = writer.WriteField("index", strconv.Itoa(task.Index))
	_ = writer.WriteField("finished", strconv.FormatBool(task.Finished))
	_ = writer.WriteField("someInfectedFiles", strconv.Itoa(someInfectedFiles))
	if task.Temp != nil {
		_ = writer.WriteField("customTempPath", task.Temp.Path)
	}

	part, err := writer.CreateFormFile("file", task.FileName)
	if err != nil {
		return nil, err
	}
	src, err := c.fs.Open(task.SourcePath)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, src); err != nil {
		src.Close()
		return nil, err
	}
	src.Close()
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.ScanURL, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scan request failed: %s", resp.Status)
	}

	var scanResp types.ScanResponse
	if err := sonic.Unmarshal(body, &scanResp); err != nil {
		return nil, fmt.Errorf("failed to parse scan response: %v", err)
	}
	return &scanResp, nil
}
