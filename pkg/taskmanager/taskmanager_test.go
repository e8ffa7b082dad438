package taskmanager_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"story-studio/pkg/taskmanager"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskManager_Submit(t *testing.T) {
	t.Run("completed task fires callback once", func(t *testing.T) {
		tm := taskmanager.New(taskmanager.Config{MaxTasks: 2}, nil)
		done := make(chan taskmanager.Task, 2)

		id, err := tm.Submit(context.Background(), "test", func(ctx context.Context) error {
			return nil
		}, func(task taskmanager.Task) { done <- task })
		require.NoError(t, err)

		select {
		case task := <-done:
			assert.Equal(t, id, task.ID)
			assert.Equal(t, taskmanager.TaskStatusCompleted, task.Status)
			assert.NoError(t, task.Err)
		case <-time.After(2 * time.Second):
			t.Fatal("callback not called")
		}

		got, err := tm.GetTask(id)
		require.NoError(t, err)
		assert.Equal(t, taskmanager.TaskStatusCompleted, got.Status)
		require.NoError(t, tm.Shutdown(context.Background()))
		assert.Len(t, done, 0)
	})

	t.Run("failed task keeps error", func(t *testing.T) {
		tm := taskmanager.New(taskmanager.Config{}, nil)
		boom := errors.New("boom")
		done := make(chan taskmanager.Task, 1)

		_, err := tm.Submit(context.Background(), "test", func(ctx context.Context) error {
			return boom
		}, func(task taskmanager.Task) { done <- task })
		require.NoError(t, err)

		task := <-done
		assert.Equal(t, taskmanager.TaskStatusFailed, task.Status)
		assert.ErrorIs(t, task.Err, boom)
	})

	t.Run("limit of active tasks", func(t *testing.T) {
		tm := taskmanager.New(taskmanager.Config{MaxTasks: 1}, nil)
		release := make(chan struct{})
		_, err := tm.Submit(context.Background(), "slow", func(ctx context.Context) error {
			<-release
			return nil
		})
		require.NoError(t, err)

		_, err = tm.Submit(context.Background(), "second", func(ctx context.Context) error { return nil })
		assert.ErrorIs(t, err, taskmanager.ErrTooManyTasks)

		close(release)
		require.NoError(t, tm.Shutdown(context.Background()))
	})

	t.Run("caller cancellation does not cancel task", func(t *testing.T) {
		tm := taskmanager.New(taskmanager.Config{}, nil)
		ctx, cancel := context.WithCancel(context.Background())
		started := make(chan struct{})
		release := make(chan struct{})
		done := make(chan taskmanager.Task, 1)

		_, err := tm.Submit(ctx, "detached", func(taskCtx context.Context) error {
			close(started)
			<-release
			return taskCtx.Err()
		}, func(task taskmanager.Task) { done <- task })
		require.NoError(t, err)

		<-started
		cancel()
		close(release)
		task := <-done
		assert.Equal(t, taskmanager.TaskStatusCompleted, task.Status)
	})
}

func TestTaskManager_CancelTask(t *testing.T) {
	tm := taskmanager.New(taskmanager.Config{}, nil)
	var calls atomic.Int32
	started := make(chan struct{})
	done := make(chan taskmanager.Task, 1)

	id, err := tm.Submit(context.Background(), "blocking", func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}, func(task taskmanager.Task) {
		calls.Add(1)
		done <- task
	})
	require.NoError(t, err)
	<-started

	require.NoError(t, tm.CancelTask(id))
	task := <-done
	assert.Equal(t, taskmanager.TaskStatusCancelled, task.Status)

	require.NoError(t, tm.Shutdown(context.Background()))
	assert.Equal(t, int32(1), calls.Load(), "callback must fire once")
	assert.Equal(t, 0, tm.ActiveTasks())

	assert.ErrorIs(t, tm.CancelTask(uuid.Nil), taskmanager.ErrTaskNotFound)
}

func TestTaskManager_ShutdownRejectsNewTasks(t *testing.T) {
	tm := taskmanager.New(taskmanager.Config{}, nil)
	require.NoError(t, tm.Shutdown(context.Background()))

	_, err := tm.Submit(context.Background(), "late", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, taskmanager.ErrClosed)
}

func TestTaskManager_CleanupTasks(t *testing.T) {
	tm := taskmanager.New(taskmanager.Config{}, nil)
	done := make(chan taskmanager.Task, 1)
	id, err := tm.Submit(context.Background(), "quick", func(ctx context.Context) error { return nil },
		func(task taskmanager.Task) { done <- task })
	require.NoError(t, err)
	<-done

	assert.Equal(t, 0, tm.CleanupTasks(time.Hour))
	assert.Equal(t, 1, tm.CleanupTasks(-time.Second))

	_, err = tm.GetTask(id)
	assert.ErrorIs(t, err, taskmanager.ErrTaskNotFound)
}

func TestTaskManager_SubmitPrunesFinishedTasks(t *testing.T) {
	tm := taskmanager.New(taskmanager.Config{MaxTasks: 2, Retention: -1}, nil)

	for i := 0; i < 50; i++ {
		done := make(chan taskmanager.Task, 1)
		_, err := tm.Submit(context.Background(), "narration", func(ctx context.Context) error { return nil },
			func(task taskmanager.Task) { done <- task })
		require.NoError(t, err)
		<-done
	}

	// Хранится только последняя задача: предыдущие удалены при Submit
	assert.Equal(t, 1, tm.Len())
	assert.Zero(t, tm.ActiveTasks())
}

func TestTaskManager_RetentionKeepsRecentTasks(t *testing.T) {
	tm := taskmanager.New(taskmanager.Config{Retention: time.Hour}, nil)

	for i := 0; i < 3; i++ {
		done := make(chan taskmanager.Task, 1)
		_, err := tm.Submit(context.Background(), "narration", func(ctx context.Context) error { return nil },
			func(task taskmanager.Task) { done <- task })
		require.NoError(t, err)
		<-done
	}
	assert.Equal(t, 3, tm.Len())
}
