package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"github.com/tidewell/filegate/scanner"
	"github.com/tidewell/filegate/storage"
	"github.com/tidewell/filegate/types"
)

type fakeInvoker struct {
	output   string
	exitCode int
}

func (f *fakeInvoker) Invoke(context.Context, string) (string, int, error) {
	return f.output, f.exitCode, nil
}

func setupScanRouter(fs afero.Fs, invoker scanner.Invoker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	resolver := storage.NewTempResolver(fs, "/scantmp", "filegate")
	coordinator := scanner.NewCoordinator(resolver, invoker, "FOUND", nil, nil)
	ctrl := NewScanController(coordinator)

	router := gin.New()
	router.POST("/scan", ctrl.HandleScan)
	return router
}

func buildScanForm(t *testing.T, fields map[string]string, fileContent string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	if fileContent != "" {
		part, err := writer.CreateFormFile("file", fields["fileName"])
		if err != nil {
			t.Fatalf("CreateFormFile failed: %v", err)
		}
		if _, err := part.Write([]byte(fileContent)); err != nil {
			t.Fatalf("writing part failed: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing writer failed: %v", err)
	}
	return &buf, writer.FormDataContentType()
}

func postScan(router *gin.Engine, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("POST", "/scan", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleScanInfected(t *testing.T) {
	fs := afero.NewMemMapFs()
	router := setupScanRouter(fs, &fakeInvoker{output: "eicar.txt: Eicar-Signature FOUND", exitCode: 1})

	body, contentType := buildScanForm(t, map[string]string{
		"fileName": "eicar.txt", "index": "0", "finished": "false", "someInfectedFiles": "0",
	}, "raw bytes travel with the request")
	w := postScan(router, body, contentType)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp types.ScanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.State != types.ScanStateInfected {
		t.Errorf("Expected state infected, got %q", resp.State)
	}
	if !resp.VirusFound {
		t.Error("Expected virusFound=true")
	}
	if resp.SomeInfectedFiles != 1 {
		t.Errorf("Expected someInfectedFiles=1, got %d", resp.SomeInfectedFiles)
	}
}

// Scanner exits non-zero: the response still reports a skip, never an error
// status, so the client uploads the file unscanned.
func TestHandleScanProcessFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	router := setupScanRouter(fs, &fakeInvoker{output: "engine offline", exitCode: 2})

	body, contentType := buildScanForm(t, map[string]string{
		"fileName": "doc.txt", "index": "1", "finished": "false", "someInfectedFiles": "0",
	}, "content")
	w := postScan(router, body, contentType)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp types.ScanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.State != types.ScanStateSkipped {
		t.Errorf("Expected state scanSkipped, got %q", resp.State)
	}
	if resp.VirusFound {
		t.Error("Expected virusFound=false")
	}
}

// Nothing to resolve: no temp file, no raw bytes, no custom path.
func TestHandleScanNothingResolvableSkips(t *testing.T) {
	fs := afero.NewMemMapFs()
	router := setupScanRouter(fs, &fakeInvoker{output: "OK"})

	body, contentType := buildScanForm(t, map[string]string{
		"fileName": "ghost.txt", "index": "0", "finished": "false", "someInfectedFiles": "0",
	}, "")
	w := postScan(router, body, contentType)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp types.ScanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.State != types.ScanStateSkipped {
		t.Errorf("Expected state scanSkipped, got %q", resp.State)
	}
}

func TestHandleScanFinalBatchMessaging(t *testing.T) {
	fs := afero.NewMemMapFs()
	router := setupScanRouter(fs, &fakeInvoker{output: "clean.txt: OK"})

	body, contentType := buildScanForm(t, map[string]string{
		"fileName": "clean.txt", "index": "2", "finished": "true", "someInfectedFiles": "1",
	}, "content")
	w := postScan(router, body, contentType)

	var resp types.ScanResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if resp.State != types.ScanStateAllSomeInfected {
		t.Errorf("Expected state allFileScannedSomeInfected, got %q", resp.State)
	}
}

func TestHandleScanRequiresFileName(t *testing.T) {
	fs := afero.NewMemMapFs()
	router := setupScanRouter(fs, &fakeInvoker{})

	body, contentType := buildScanForm(t, map[string]string{"index": "0"}, "")
	w := postScan(router, body, contentType)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
}
