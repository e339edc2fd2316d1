// Package uploader drives the client side of the pipeline: it walks a batch
// strictly one file at a time, asks for a pre-transfer scan, hands clean
// files to the transfer executor, and aggregates the per-batch outcome.
package uploader

import (
	"context"
	"fmt"

	"github.com/tidewell/filegate/storage"
	"github.com/tidewell/filegate/tool"
	"github.com/tidewell/filegate/transfer"
	"github.com/tidewell/filegate/types"
)

// ScanRequester is the client-side scan contract.
type ScanRequester interface {
	Scan(ctx context.Context, endpoint transfer.Endpoint, task *types.FileTransferTask, someInfectedFiles int) (*types.ScanResponse, error)
}

// TransferRunner is the client-side transfer contract.
type TransferRunner interface {
	Transfer(ctx context.Context, task *types.FileTransferTask, endpoint transfer.Endpoint, iterFailed int) (*types.StoredFileRecord, error)
}

// Orchestrator owns the batch and its counters. Tasks are processed
// sequentially, so the counter updates are race free by construction.
type Orchestrator struct {
	cfg      *types.AppConfig
	registry *transfer.Registry
	executor TransferRunner
	scans    ScanRequester
	resolver *storage.TempResolver
	hub      types.Publisher
}

func New(cfg *types.AppConfig, registry *transfer.Registry, executor TransferRunner, scans ScanRequester, resolver *storage.TempResolver, hub types.Publisher) *Orchestrator {
	if hub == nil {
		hub = types.NopPublisher{}
	}
	return &Orchestrator{cfg: cfg, registry: registry, executor: executor, scans: scans, resolver: resolver, hub: hub}
}

// Run processes the whole batch and returns its outcome. A blocking error
// truncates the remaining tasks; per-file errors bump IterFailed and the
// loop continues.
func (o *Orchestrator) Run(ctx context.Context, batch *types.UploadBatch) (types.BatchOutcome, error) {
	endpoint := o.registry.Resolve(batch.Context)
	total := len(batch.Tasks)

	for _, task := range batch.Tasks {
		if ctx.Err() != nil {
			tool.DefaultLogger.Warnf("[Batch %s] Cancelled before task %d", batch.ID, task.Index)
			break
		}

		if o.cfg.ScanEnabled && o.scans != nil {
			o.stageTask(batch, task)
			if infected := o.scanTask(ctx, endpoint, batch, task); infected {
				continue
			}
		}

		task.State = types.TaskTransferring
		record, err := o.executor.Transfer(ctx, task, endpoint, batch.IterFailed)
		if err != nil {
			task.State = types.TaskFailed
			batch.IterFailed++
			if types.IsBlocking(err) {
				tool.DefaultLogger.Errorf("[Batch %s] Blocking failure at %s, aborting remaining %d task(s): %v",
					batch.ID, task.FileName, total-task.Index-1, err)
				return batch.Outcome(), err
			}
			tool.DefaultLogger.Warnf("[Batch %s] Transfer of %s failed, continuing: %v", batch.ID, task.FileName, err)
			continue
		}

		task.State = types.TaskPersisted
		name := task.FileName
		if record != nil && record.Name != "" {
			name = record.Name
		}
		o.hub.Publish(types.ProgressEvent{
			Message:  fmt.Sprintf("%s stored", name),
			State:    string(types.TaskPersisted),
			Progress: (task.Index + 1) * 100 / total,
		})
	}
	return batch.Outcome(), nil
}

// stageTask snapshots the source file into temp storage so the scan works
// against a stable copy and Cleanup has a handle to delete at teardown.
// Staging failures degrade to scanning without a snapshot; they never fail
// the task.
func (o *Orchestrator) stageTask(batch *types.UploadBatch, task *types.FileTransferTask) {
	if o.resolver == nil || task.Temp != nil {
		return
	}
	handle, err := o.resolver.Stage(task.SourcePath, task.FileName)
	if err != nil {
		tool.DefaultLogger.Warnf("[Batch %s] Temp staging failed for %s: %v", batch.ID, task.FileName, err)
		return
	}
	task.Temp = handle
}

// scanTask runs the scan stage for one task. Reports true when the file is
// infected and must not be transferred. A scan that errors or skips never
// blocks the upload; the file proceeds unscanned.
func (o *Orchestrator) scanTask(ctx context.Context, endpoint transfer.Endpoint, batch *types.UploadBatch, task *types.FileTransferTask) bool {
	task.State = types.TaskScanning
	resp, err := o.scans.Scan(ctx, endpoint, task, batch.SomeInfectedFiles)
	if err != nil {
		tool.DefaultLogger.Warnf("[Batch %s] Scan request for %s failed, uploading unscanned: %v", batch.ID, task.FileName, err)
		return false
	}

	if resp.VirusFound {
		if resp.SomeInfectedFiles > batch.SomeInfectedFiles {
			batch.SomeInfectedFiles = resp.SomeInfectedFiles
		} else {
			batch.SomeInfectedFiles++
		}
		batch.IterFailed++
		task.State = types.TaskSkipped
		o.hub.Publish(types.ProgressEvent{
			Message:  resp.UserMessage,
			State:    types.ScanStateInfected,
			Progress: (task.Index + 1) * 100 / len(batch.Tasks),
		})
		tool.DefaultLogger.Warnf("[Batch %s] %s infected, skipped", batch.ID, task.FileName)
		return true
	}

	if resp.State == types.ScanStateSkipped {
		tool.DefaultLogger.Infof("[Batch %s] Scan skipped for %s, uploading unscanned", batch.ID, task.FileName)
	}
	return false
}

// Cleanup makes a best-effort pass over the batch's temp handles. It is the
// page-teardown hook: it may race session teardown, so failures are logged
// and swallowed.
func (o *Orchestrator) Cleanup(batch *types.UploadBatch) {
	if o.resolver == nil {
		return
	}
	for _, task := range batch.Tasks {
		if task.Temp == nil {
			continue
		}
		if err := o.resolver.Remove(task.Temp); err != nil {
			tool.DefaultLogger.Warnf("[Batch %s] Temp cleanup failed for %s: %v", batch.ID, task.FileName, err)
		}
		task.Temp = nil
	}
}
