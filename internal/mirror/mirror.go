package mirror

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Stats is a snapshot of Mirror's queue and upload counters, exposed so
// callers can surface mirror health without reaching into internals.
type Stats struct {
	QueueDepth          int
	QueueCapacity       int
	EnqueuedTotal       uint64
	QueueSaturatedTotal uint64
	DroppedTotal        uint64
	UploadSuccessTotal  uint64
	UploadFailTotal     uint64
	LastSuccessUnix     int64
	LastErrorUnix       int64
}

type job struct {
	key       string
	localPath string
}

// Mirror is an async, bounded-queue upload pipeline in front of a Client.
// Archive uploads run after a tournament has already finished, off the
// game-execution path, so a stalled or unreachable object store must
// never block the caller: Enqueue always returns quickly, backing off to
// a short bounded wait under load and dropping the job (with a counted,
// logged reason) rather than blocking indefinitely.
type Mirror struct {
	client *Client
	logger *log.Logger

	jobs        chan job
	enqueueWait time.Duration
	wg          sync.WaitGroup

	enqueuedTotal       atomic.Uint64
	queueSaturatedTotal atomic.Uint64
	droppedTotal        atomic.Uint64
	uploadSuccessTotal  atomic.Uint64
	uploadFailTotal     atomic.Uint64
	lastSuccessUnix     atomic.Int64
	lastErrorUnix       atomic.Int64
}

// NewMirror starts workers goroutines draining a queue of size
// queueCapacity against client. Nil client disables the mirror: Enqueue
// and Close become no-ops so callers don't need to branch on whether
// mirroring is configured.
func NewMirror(client *Client, workers, queueCapacity int, enqueueWait time.Duration, logger *log.Logger) *Mirror {
	if client == nil {
		return nil
	}
	if workers <= 0 {
		workers = 2
	}
	if queueCapacity <= 0 {
		queueCapacity = 256
	}
	if enqueueWait <= 0 {
		enqueueWait = 25 * time.Millisecond
	}
	m := &Mirror{
		client:      client,
		logger:      logger,
		jobs:        make(chan job, queueCapacity),
		enqueueWait: enqueueWait,
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for j := range m.jobs {
				m.uploadOne(j)
			}
		}()
	}
	return m
}

// Enqueue schedules localPath for upload under the given object key.
// Bounded: if the queue is full it waits up to enqueueWait before
// dropping the job, which is preferable to letting a burst of archive
// uploads stall the goroutine that called Enqueue.
func (m *Mirror) Enqueue(key, localPath string) {
	if m == nil {
		return
	}
	m.enqueuedTotal.Add(1)

	select {
	case m.jobs <- job{key: key, localPath: localPath}:
		return
	default:
	}

	m.queueSaturatedTotal.Add(1)
	timer := time.NewTimer(m.enqueueWait)
	defer timer.Stop()
	select {
	case m.jobs <- job{key: key, localPath: localPath}:
		return
	case <-timer.C:
		dropped := m.droppedTotal.Add(1)
		m.printf("mirror drop key=%s local=%s reason=queue_saturated wait_ms=%d dropped_total=%d", key, localPath, m.enqueueWait.Milliseconds(), dropped)
	}
}

// Close drains the queue and waits for in-flight uploads to finish. A
// nil Mirror (mirroring disabled) is a no-op.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	close(m.jobs)
	m.wg.Wait()
}

func (m *Mirror) Stats() Stats {
	if m == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:          len(m.jobs),
		QueueCapacity:       cap(m.jobs),
		EnqueuedTotal:       m.enqueuedTotal.Load(),
		QueueSaturatedTotal: m.queueSaturatedTotal.Load(),
		DroppedTotal:        m.droppedTotal.Load(),
		UploadSuccessTotal:  m.uploadSuccessTotal.Load(),
		UploadFailTotal:     m.uploadFailTotal.Load(),
		LastSuccessUnix:     m.lastSuccessUnix.Load(),
		LastErrorUnix:       m.lastErrorUnix.Load(),
	}
}

func (m *Mirror) uploadOne(j job) {
	if err := m.uploadWithRetry(j); err != nil {
		m.uploadFailTotal.Add(1)
		m.lastErrorUnix.Store(time.Now().UTC().Unix())
		m.printf("mirror upload failed key=%s local=%s err=%v", j.key, j.localPath, err)
		return
	}
	m.uploadSuccessTotal.Add(1)
	m.lastSuccessUnix.Store(time.Now().UTC().Unix())
	m.printf("mirror uploaded key=%s local=%s", j.key, j.localPath)
}

func (m *Mirror) uploadWithRetry(j job) error {
	const maxAttempts = 4
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		err := m.client.PutFile(ctx, j.key, j.localPath)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		var putErr *PutError
		if errors.As(err, &putErr) && !putErr.Retryable {
			return lastErr
		}
		if attempt < maxAttempts {
			backoff := time.Duration(attempt*attempt) * 200 * time.Millisecond
			time.Sleep(backoff)
		}
	}
	return lastErr
}

func (m *Mirror) printf(format string, args ...any) {
	if m.logger != nil {
		m.logger.Printf(format, args...)
	}
}
