package types

// TaskState tracks where a file currently sits in the pipeline.
type TaskState string

const (
	TaskPending      TaskState = "pending"
	TaskScanning     TaskState = "scanning"
	TaskTransferring TaskState = "transferring"
	TaskPersisted    TaskState = "persisted"
	TaskFailed       TaskState = "failed"
	TaskInfected     TaskState = "infected"
	TaskSkipped      TaskState = "skipped"
)

// StorageTier identifies which rung of the temp-storage fallback ladder
// produced a handle.
type StorageTier string

const (
	TierPrimary        StorageTier = "primary"
	TierSystemFallback StorageTier = "system_fallback"
	TierLastResort     StorageTier = "last_resort"
)

// TempFileHandle is a resolved writable temp location for one file.
type TempFileHandle struct {
	Path       string
	OriginTier StorageTier
	Suffix     string // uniqueness suffix baked into Path
}

// FileTransferTask is one file of an upload batch. It is owned by the
// orchestrator; only the stage currently processing it mutates it.
type FileTransferTask struct {
	FileName   string
	SourcePath string // local path of the file to send
	Size       int64
	Index      int  // zero-based position in the batch
	Finished   bool // true only for the last task of the batch
	RetryCount int
	State      TaskState
	Temp       *TempFileHandle
}

// UploadBatch is the ordered set of files selected for one upload session.
type UploadBatch struct {
	ID                string
	Context           string // upload-context routing key
	Tasks             []*FileTransferTask
	IterFailed        int // failed tasks so far
	SomeInfectedFiles int // infection verdicts so far, monotonically non-decreasing
}

// NewUploadBatch numbers the tasks 0..N-1 and flags the last one finished.
func NewUploadBatch(id, context string, tasks []*FileTransferTask) *UploadBatch {
	for i, t := range tasks {
		t.Index = i
		t.Finished = i == len(tasks)-1
		if t.State == "" {
			t.State = TaskPending
		}
	}
	return &UploadBatch{ID: id, Context: context, Tasks: tasks}
}

// BatchOutcome classifies a finished batch run.
type BatchOutcome string

const (
	AllSucceeded   BatchOutcome = "all_succeeded"
	PartialFailure BatchOutcome = "partial_failure"
	TotalFailure   BatchOutcome = "total_failure"
)

// Outcome derives the batch classification from the failure counter.
func (b *UploadBatch) Outcome() BatchOutcome {
	switch {
	case b.IterFailed == 0:
		return AllSucceeded
	case b.IterFailed >= len(b.Tasks):
		return TotalFailure
	default:
		return PartialFailure
	}
}
