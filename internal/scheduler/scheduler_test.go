package scheduler_test

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mdouchement/chestlink/internal/scheduler"
	"github.com/mdouchement/chestlink/internal/storage"
	"github.com/mdouchement/logger"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLogger() logger.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logger.WrapLogrus(log)
}

type saver struct {
	calls int32
}

func (s *saver) SaveAll() (int, error) {
	atomic.AddInt32(&s.calls, 1)
	return 0, nil
}

func TestQueueAdvance(t *testing.T) {
	q := scheduler.NewQueue(newLogger(), time.Hour)

	var order []int
	q.Defer(func() { order = append(order, 1) })
	q.Defer(func() {
		order = append(order, 2)
		q.Defer(func() { order = append(order, 3) })
	})
	assert.Empty(t, order)

	assert.Equal(t, 2, q.Advance())
	assert.Equal(t, []int{1, 2}, order)
	assert.Equal(t, 1, q.Len())

	assert.Equal(t, 1, q.Advance())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Zero(t, q.Advance())
}

func TestQueueRecoversPanic(t *testing.T) {
	q := scheduler.NewQueue(newLogger(), time.Hour)

	var ran bool
	q.Defer(func() { panic("boom") })
	q.Defer(func() { ran = true })

	assert.NotPanics(t, func() { q.Advance() })
	assert.True(t, ran)
}

func TestQueueStartStop(t *testing.T) {
	q := scheduler.NewQueue(newLogger(), 5*time.Millisecond)
	q.Start()

	var n int32
	q.Defer(func() { atomic.AddInt32(&n, 1) })
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&n) == 1
	}, time.Second, 5*time.Millisecond)

	q.Stop()
	q.Defer(func() { atomic.AddInt32(&n, 1) })
	q.Stop()
	assert.Equal(t, int32(1), atomic.LoadInt32(&n))
}

func TestStart(t *testing.T) {
	s := &saver{}
	cron, err := scheduler.Start(scheduler.Controller{
		Logger:        newLogger(),
		Saver:         s,
		Specification: "@every 1s",
	})
	require.NoError(t, err)
	defer cron.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&s.calls) > 0
	}, 3*time.Second, 50*time.Millisecond)
}

func TestStartCleansStorageOnce(t *testing.T) {
	dir := t.TempDir()
	leftover := filepath.Join(dir, ".record.json.tmp")
	require.NoError(t, os.WriteFile(leftover, []byte("{}"), 0644))

	s := &saver{}
	cron, err := scheduler.Start(scheduler.Controller{
		Logger:        newLogger(),
		Saver:         s,
		Storage:       storage.NewFileSystem(dir),
		Specification: "@every 1s",
	})
	require.NoError(t, err)
	defer cron.Stop()

	assert.NoFileExists(t, leftover)

	// A write in flight survives the autosave.
	inflight := filepath.Join(dir, ".other.json.tmp")
	require.NoError(t, os.WriteFile(inflight, []byte("{}"), 0644))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&s.calls) > 0
	}, 3*time.Second, 50*time.Millisecond)
	assert.FileExists(t, inflight)
}

func TestStartInvalidSpecification(t *testing.T) {
	_, err := scheduler.Start(scheduler.Controller{
		Logger:        newLogger(),
		Saver:         &saver{},
		Specification: "every now and then",
	})
	assert.Error(t, err)
}
