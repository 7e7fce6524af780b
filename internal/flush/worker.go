// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package flush

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// ErrBusy is returned by Submit while another flush is in flight. The caller
// keeps ownership of the job data.
var ErrBusy = errors.New("flush already in progress")

// Writer persists one payload.
type Writer interface {
	Write(data []byte) (string, error)
}

// Releaser gets the buffer slot back once its contents left the worker's
// hands (written or moved to the retry queue).
type Releaser interface {
	Release(slot int)
}

// Job transfers ownership of a buffer slot's contents to the worker.
type Job struct {
	Slot int
	Data []byte
}

// Report describes the outcome of one flush.
type Report struct {
	Time    time.Time `json:"time"`
	Path    string    `json:"path,omitempty"`
	Bytes   int       `json:"bytes"`
	Pending int       `json:"pending"` // payloads waiting for retry
	Err     error     `json:"-"`
}

// Failed reports whether the flush did not persist its payload.
func (r Report) Failed() bool { return r.Err != nil }

// Worker is the dedicated flush goroutine. At most one job is in flight,
// tracked by the shared saving flag.
type Worker struct {
	out      Writer
	release  Releaser
	saving   *atomic.Bool
	onReport func(Report)

	jobs chan Job
	done chan struct{}

	writeMu sync.Mutex // serializes writes

	retryMu sync.Mutex
	retry   [][]byte
	// pending counts retained payloads, including those being rewritten,
	// so Pending never waits on a write.
	pending atomic.Int64
}

var workerLog = log.WithField("component", "flush")

// NewWorker wires a worker. saving is the shared runtime flag; release and
// onReport may be nil.
func NewWorker(out Writer, release Releaser, saving *atomic.Bool, onReport func(Report)) *Worker {
	if saving == nil {
		saving = new(atomic.Bool)
	}
	return &Worker{
		out:      out,
		release:  release,
		saving:   saving,
		onReport: onReport,
		jobs:     make(chan Job, 1),
		done:     make(chan struct{}),
	}
}

// Saving reports whether a flush is in flight.
func (w *Worker) Saving() bool { return w.saving.Load() }

// Submit schedules job without blocking.
func (w *Worker) Submit(job Job) error {
	if !w.saving.CompareAndSwap(false, true) {
		return ErrBusy
	}
	select {
	case w.jobs <- job:
		return nil
	default:
		w.saving.Store(false)
		return ErrBusy
	}
}

// Retain queues data for the next write attempt.
func (w *Worker) Retain(data []byte) {
	if len(data) == 0 {
		return
	}
	w.retryMu.Lock()
	w.retry = append(w.retry, data)
	w.retryMu.Unlock()
	w.pending.Add(1)
}

// Pending returns the number of payloads waiting for retry.
func (w *Worker) Pending() int {
	return int(w.pending.Load())
}

// Run processes jobs until ctx is done, then drains a queued job and
// returns. Writes are never interrupted.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case job := <-w.jobs:
			w.process(job)
		case <-ctx.Done():
			select {
			case job := <-w.jobs:
				w.process(job)
			default:
			}
			return
		}
	}
}

// Done is closed when Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(job Job) {
	workerLog.Infof("saving %d bytes from slot %d", len(job.Data), job.Slot)
	rep := w.write(job.Data)
	if w.release != nil {
		w.release.Release(job.Slot)
	}
	w.saving.Store(false)
	w.report(rep)
}

// FlushNow writes pending retries and data synchronously, bypassing the
// job queue. Used for the final flush at shutdown.
func (w *Worker) FlushNow(data []byte) error {
	rep := w.write(data)
	w.report(rep)
	return rep.Err
}

// write persists queued retries oldest first, then data. Anything that
// fails stays queued.
func (w *Worker) write(data []byte) Report {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.retryMu.Lock()
	queue := w.retry
	w.retry = nil
	w.retryMu.Unlock()
	retried := len(queue)
	if len(data) > 0 {
		queue = append(queue, data)
	}

	rep := Report{Time: time.Now()}
	var errs []error
	for i, payload := range queue {
		path, err := w.out.Write(payload)
		if err != nil {
			errs = append(errs, err)
			w.retryMu.Lock()
			w.retry = append(w.retry, payload)
			w.retryMu.Unlock()
			if i >= retried {
				w.pending.Add(1)
			}
			continue
		}
		if i < retried {
			w.pending.Add(-1)
		}
		rep.Path = path
		rep.Bytes += len(payload)
		workerLog.Infof("wrote %d bytes to %s", len(payload), path)
	}
	rep.Pending = w.Pending()
	if len(errs) > 0 {
		rep.Err = fmt.Errorf("flush: %w", errors.Join(errs...))
		workerLog.Errorf("%v (%d payloads kept for retry)", rep.Err, rep.Pending)
	}
	return rep
}

func (w *Worker) report(rep Report) {
	if w.onReport != nil {
		w.onReport(rep)
	}
}
