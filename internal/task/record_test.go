package task

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/mediakit/internal/pipeline"
)

func TestNewRecord(t *testing.T) {
	rec := NewRecord("task-1", pipeline.KindCut, []string{"a_1.mp4", "a_2.mp4"})

	assert.Equal(t, "task-1", rec.ID)
	assert.Equal(t, pipeline.KindCut, rec.Kind)
	assert.Equal(t, StateRunning, rec.GetStatus())
	assert.False(t, rec.CreatedAt.IsZero())
	assert.False(t, rec.IsTerminal())
}

func TestRecord_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []State
		wantErr bool
	}{
		{"running to succeeded", []State{StateSucceeded}, false},
		{"running to failed", []State{StateFailed}, false},
		{"running to cancelling to cancelled", []State{StateCancelling, StateCancelled}, false},
		{"cancelling to succeeded", []State{StateCancelling, StateSucceeded}, false},
		{"terminal is final", []State{StateSucceeded, StateFailed}, true},
		{"cancelling twice", []State{StateCancelling, StateCancelling}, true},
		{"back to running", []State{StateCancelling, StateRunning}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord("task-1", pipeline.KindTrim, nil)
			var err error
			for _, s := range tt.path {
				if err = rec.TransitionTo(s); err != nil {
					break
				}
			}
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecord_Finish(t *testing.T) {
	t.Run("succeeded sets full progress", func(t *testing.T) {
		rec := NewRecord("task-1", pipeline.KindTrim, nil)
		rec.UpdateProgress(0.4)

		require.NoError(t, rec.Finish(OutcomeSucceeded, nil))
		assert.Equal(t, StateSucceeded, rec.GetStatus())
		assert.Equal(t, 1.0, rec.Progress)
		assert.Empty(t, rec.Error)
		assert.False(t, rec.CompletedAt.IsZero())
		assert.True(t, rec.IsTerminal())
	})

	t.Run("failed keeps the error", func(t *testing.T) {
		rec := NewRecord("task-1", pipeline.KindTrim, nil)
		require.NoError(t, rec.Finish(OutcomeFailed, errors.New("exit status 1")))
		assert.Equal(t, StateFailed, rec.GetStatus())
		assert.Equal(t, "exit status 1", rec.Error)
	})
}

func TestRecord_UpdateProgressClamps(t *testing.T) {
	rec := NewRecord("task-1", pipeline.KindTrim, nil)

	rec.UpdateProgress(-1)
	assert.Equal(t, 0.0, rec.Progress)

	rec.UpdateProgress(2)
	assert.Equal(t, 1.0, rec.Progress)
}

func TestRecord_Clone(t *testing.T) {
	rec := NewRecord("task-1", pipeline.KindSnapshot, []string{"a.jpg"})
	rec.SetPublishedURLs([]string{"https://example/a.jpg"})

	c := rec.Clone()
	c.Outputs[0] = "changed"
	c.PublishedURLs[0] = "changed"

	assert.Equal(t, "a.jpg", rec.Outputs[0])
	assert.Equal(t, "https://example/a.jpg", rec.PublishedURLs[0])
}
