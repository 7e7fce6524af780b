// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package flush

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeWriter struct {
	mu      sync.Mutex
	fail    bool
	started chan struct{} // signalled when a write begins
	block   chan struct{}
	written [][]byte
}

func (f *fakeWriter) Write(data []byte) (string, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("disk full")
	}
	f.written = append(f.written, append([]byte(nil), data...))
	return FileName(len(f.written) - 1), nil
}

func (f *fakeWriter) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.written)
}

type fakeReleaser struct{ released chan int }

func (f fakeReleaser) Release(slot int) { f.released <- slot }

func TestWorkerWritesAndReleases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &fakeWriter{}
	rel := fakeReleaser{released: make(chan int, 1)}
	reports := make(chan Report, 1)
	var saving atomic.Bool
	w := NewWorker(out, rel, &saving, func(r Report) { reports <- r })
	go w.Run(ctx)

	if err := w.Submit(Job{Slot: 1, Data: []byte{1, 2}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	select {
	case slot := <-rel.released:
		if slot != 1 {
			t.Fatalf("released slot %d", slot)
		}
	case <-time.After(time.Second):
		t.Fatal("slot not released")
	}
	r := <-reports
	if r.Failed() || r.Bytes != 2 || r.Path != FileName(0) {
		t.Fatalf("report = %+v", r)
	}
	if saving.Load() {
		t.Fatal("saving must be cleared after the flush")
	}
}

func TestSubmitRejectedWhileInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &fakeWriter{block: make(chan struct{})}
	reports := make(chan Report, 2)
	w := NewWorker(out, nil, nil, func(r Report) { reports <- r })
	go w.Run(ctx)

	if err := w.Submit(Job{Slot: 0, Data: []byte{1}}); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if !w.Saving() {
		t.Fatal("saving must be set while a job is in flight")
	}
	if err := w.Submit(Job{Slot: 1, Data: []byte{2}}); !errors.Is(err, ErrBusy) {
		t.Fatalf("second submit err = %v, want ErrBusy", err)
	}
	close(out.block)
	<-reports
	if err := w.Submit(Job{Slot: 1, Data: []byte{2}}); err != nil {
		t.Fatalf("submit after completion: %v", err)
	}
	<-reports
	if out.count() != 2 {
		t.Fatalf("written = %d", out.count())
	}
}

func TestFailedFlushIsRetained(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := &fakeWriter{fail: true}
	rel := fakeReleaser{released: make(chan int, 2)}
	reports := make(chan Report, 2)
	w := NewWorker(out, rel, nil, func(r Report) { reports <- r })
	go w.Run(ctx)

	if err := w.Submit(Job{Slot: 0, Data: []byte("first")}); err != nil {
		t.Fatal(err)
	}
	r := <-reports
	<-rel.released
	if !r.Failed() || r.Pending != 1 || w.Pending() != 1 {
		t.Fatalf("report = %+v pending = %d", r, w.Pending())
	}

	out.setFail(false)
	if err := w.Submit(Job{Slot: 1, Data: []byte("second")}); err != nil {
		t.Fatal(err)
	}
	r = <-reports
	if r.Failed() || r.Pending != 0 || r.Bytes != len("first")+len("second") {
		t.Fatalf("retry report = %+v", r)
	}
	if string(out.written[0]) != "first" || string(out.written[1]) != "second" {
		t.Fatalf("written out of order: %q", out.written)
	}
}

func TestRunDrainsQueuedJobOnCancel(t *testing.T) {
	out := &fakeWriter{}
	w := NewWorker(out, nil, nil, nil)
	if err := w.Submit(Job{Data: []byte{9}}); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Run(ctx)
	<-w.Done()
	if out.count() != 1 {
		t.Fatalf("queued job not written, count = %d", out.count())
	}
}

func TestFlushNowWritesRetainedFirst(t *testing.T) {
	out := &fakeWriter{}
	w := NewWorker(out, nil, nil, nil)
	w.Retain([]byte("old"))
	if err := w.FlushNow([]byte("new")); err != nil {
		t.Fatal(err)
	}
	if out.count() != 2 || string(out.written[0]) != "old" {
		t.Fatalf("written = %q", out.written)
	}
}

func TestPendingDuringSlowWrite(t *testing.T) {
	out := &fakeWriter{started: make(chan struct{}, 2), block: make(chan struct{})}
	w := NewWorker(out, nil, nil, nil)
	w.Retain([]byte("old"))

	done := make(chan error, 1)
	go func() { done <- w.FlushNow([]byte("new")) }()
	<-out.started

	got := make(chan int, 1)
	go func() { got <- w.Pending() }()
	select {
	case n := <-got:
		if n != 1 {
			t.Fatalf("Pending = %d during rewrite, want 1", n)
		}
	case <-time.After(time.Second):
		t.Fatal("Pending blocked behind the write")
	}

	close(out.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if w.Pending() != 0 {
		t.Fatalf("Pending = %d after flush", w.Pending())
	}
}
