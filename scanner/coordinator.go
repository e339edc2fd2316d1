// Package scanner coordinates virus scans: it resolves the file to scan,
// invokes the external scanner process, and interprets its output into a
// verdict. Scanning degrades gracefully; a missing file or a failing scanner
// never blocks an otherwise valid upload.
package scanner

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidewell/filegate/storage"
	"github.com/tidewell/filegate/testcond"
	"github.com/tidewell/filegate/tool"
	"github.com/tidewell/filegate/types"
)

// Request is one scan job as received from the client.
type Request struct {
	FileName          string
	Index             int
	Finished          bool   // true for the batch's last task
	SomeInfectedFiles int    // running infection count across the batch
	CustomTempPath    string // alternate resolution path, optional
	Raw               []byte // raw file bytes, optional
}

// Coordinator drives the per-file scan sequence:
// resolve file -> invoke scanner -> interpret output -> report.
type Coordinator struct {
	resolver *storage.TempResolver
	invoker  Invoker
	marker   string // literal infection marker searched in scanner output
	conds    *testcond.Injector
	hub      types.Publisher
}

func NewCoordinator(resolver *storage.TempResolver, invoker Invoker, marker string, conds *testcond.Injector, hub types.Publisher) *Coordinator {
	if hub == nil {
		hub = types.NopPublisher{}
	}
	return &Coordinator{resolver: resolver, invoker: invoker, marker: marker, conds: conds, hub: hub}
}

// Scan runs the state machine for one file and returns its verdict. Every
// outcome is reportable; none of them is a hard failure of the request.
func (c *Coordinator) Scan(ctx context.Context, req Request) types.ScanVerdict {
	verdict := types.ScanVerdict{Kind: types.VerdictClean, FileName: req.FileName}

	path, owned, ok := c.resolveFile(req)
	if !ok {
		tool.DefaultLogger.Infof("[Scan] No resolvable file for %s, skipping scan", req.FileName)
		verdict.Kind = types.VerdictSkipped
		return verdict
	}
	if owned {
		// A file this coordinator wrote exists only for this scan; it is
		// removed whatever the verdict turns out to be.
		defer func() {
			if err := c.resolver.Remove(&types.TempFileHandle{Path: path}); err != nil {
				tool.DefaultLogger.Warnf("[Scan] Temp cleanup failed for %s: %v", req.FileName, err)
			}
		}()
	}
	c.publish(req, "scanning", 50)

	if c.conds.Active(testcond.CondScanError, req.Index) {
		verdict.Kind = types.VerdictError
		verdict.Output = "forced scan error"
		return verdict
	}

	output, exitCode, err := c.invoker.Invoke(ctx, path)
	verdict.Output = output

	switch {
	case c.conds.Active(testcond.CondInfected, req.Index):
		verdict.Kind = types.VerdictInfected
	case c.marker != "" && strings.Contains(output, c.marker):
		// The marker wins over the exit code: scanners commonly exit
		// non-zero when they find something.
		verdict.Kind = types.VerdictInfected
	case err != nil || exitCode != 0:
		tool.DefaultLogger.Warnf("[Scan] Scanner failed for %s (exit=%d): %v", req.FileName, exitCode, err)
		verdict.Kind = types.VerdictError
	default:
		verdict.Kind = types.VerdictClean
	}
	return verdict
}

// resolveFile locates the file to scan: explicit alternate path first, then
// the standard temp-path convention, then raw bytes persisted on the fly.
// owned is true only for a file this coordinator wrote itself; files found at
// a client-supplied or pre-existing path stay untouched.
func (c *Coordinator) resolveFile(req Request) (path string, owned, ok bool) {
	c.publish(req, "resolving", 10)

	if c.conds.Active(testcond.CondTempFileNotFound, req.Index) {
		return "", false, false
	}
	if req.CustomTempPath != "" && c.resolver.Exists(req.CustomTempPath) {
		return req.CustomTempPath, false, true
	}
	if standard := c.resolver.StandardPath(req.FileName); c.resolver.Exists(standard) {
		return standard, false, true
	}
	if len(req.Raw) > 0 {
		path, err := c.resolver.WriteStandard(req.FileName, req.Raw)
		if err != nil {
			tool.DefaultLogger.Warnf("[Scan] Failed to persist raw bytes for %s: %v", req.FileName, err)
			return "", false, false
		}
		return path, true, true
	}
	return "", false, false
}

// BuildResponse maps a verdict onto the wire response, including the
// batch-final messaging: the last task's message depends on whether any file
// in the batch was previously infected, even when the file itself is clean.
func (c *Coordinator) BuildResponse(req Request, verdict types.ScanVerdict) types.ScanResponse {
	resp := types.ScanResponse{
		File:              req.FileName,
		SomeInfectedFiles: req.SomeInfectedFiles,
	}

	switch verdict.Kind {
	case types.VerdictInfected:
		resp.State = types.ScanStateInfected
		resp.VirusFound = true
		resp.SomeInfectedFiles = req.SomeInfectedFiles + 1
		resp.UserMessage = fmt.Sprintf("virus found in %s, file skipped", req.FileName)
	case types.VerdictError, types.VerdictSkipped:
		resp.State = types.ScanStateSkipped
		resp.UserMessage = fmt.Sprintf("scan skipped for %s", req.FileName)
	default:
		if req.Finished {
			if req.SomeInfectedFiles > 0 {
				resp.State = types.ScanStateAllSomeInfected
				resp.UserMessage = "all files scanned, some infected files were skipped"
			} else {
				resp.State = types.ScanStateAllNotInfected
				resp.UserMessage = "all files scanned, no infections found"
			}
		} else {
			resp.State = types.ScanStateRunning
			resp.UserMessage = fmt.Sprintf("%s scanned, no infection found", req.FileName)
		}
	}

	c.publish(req, resp.State, 100)
	return resp
}

func (c *Coordinator) publish(req Request, state string, progress int) {
	c.hub.Publish(types.ProgressEvent{
		Message:  fmt.Sprintf("scan %s: %s", req.FileName, state),
		State:    state,
		Progress: progress,
	})
}
