package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTasks(n int) []*FileTransferTask {
	tasks := make([]*FileTransferTask, n)
	for i := range tasks {
		tasks[i] = &FileTransferTask{FileName: "file.txt"}
	}
	return tasks
}

func TestNewUploadBatchNumbering(t *testing.T) {
	for _, n := range []int{1, 3, 7} {
		batch := NewUploadBatch("b1", "default", makeTasks(n))
		for i, task := range batch.Tasks {
			assert.Equal(t, i, task.Index)
			assert.Equal(t, i == n-1, task.Finished, "finished must hold only for the last task")
			assert.Equal(t, TaskPending, task.State)
		}
	}
}

func TestBatchOutcome(t *testing.T) {
	batch := NewUploadBatch("b1", "default", makeTasks(3))
	assert.Equal(t, AllSucceeded, batch.Outcome())

	batch.IterFailed = 1
	assert.Equal(t, PartialFailure, batch.Outcome())

	batch.IterFailed = 3
	assert.Equal(t, TotalFailure, batch.Outcome())
}

func TestIsBlocking(t *testing.T) {
	assert.False(t, IsBlocking(nil))
	assert.False(t, IsBlocking(NewPipelineError(ErrValidation, false, "bad extension", nil)))
	assert.True(t, IsBlocking(NewPipelineError(ErrPersistence, true, "index write failed", nil)))
	// unclassified errors abort the batch, same as unexpected errors
	assert.True(t, IsBlocking(assert.AnError))
}

// Classification must survive wrapping with fmt.Errorf("%w", ...).
func TestAsPipelineErrorUnwrapsWrappedCauses(t *testing.T) {
	inner := NewPipelineError(ErrTempStorage, false, "ladder exhausted", nil)
	wrapped := fmt.Errorf("resolving temp location: %w", inner)

	pe, ok := AsPipelineError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrTempStorage, pe.Code)
	assert.False(t, IsBlocking(wrapped))

	_, ok = AsPipelineError(errors.New("plain"))
	assert.False(t, ok)
}

func TestPipelineErrorSanitized(t *testing.T) {
	pe := NewPipelineError(ErrUnexpected, true, "stack trace and paths", nil)
	assert.NotContains(t, pe.Sanitized(), "stack trace")

	pe.UserMessage = "something went wrong"
	assert.Equal(t, "something went wrong", pe.Sanitized())
}
