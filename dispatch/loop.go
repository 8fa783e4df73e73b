// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package dispatch runs the compositing thread.
//
// A Loop owns one goroutine locked to its OS thread for its whole life,
// which is what GPU drivers with thread affinity require. Other
// goroutines hand it work with Sync, which blocks until the work is done,
// or Async, which does not.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is the panic value of Sync after Close.
var ErrClosed = errors.New("dispatch: loop closed")

// DefaultQueueSize is the number of Async calls that can wait before
// Async blocks.
const DefaultQueueSize = 64

type call struct {
	fn   func()
	done chan any
}

// Loop is a goroutine locked to an OS thread that runs queued functions
// in order.
type Loop struct {
	queue   chan call
	quit    chan struct{}
	stopped chan struct{}

	gid       atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once
}

// New starts a loop. It returns once the loop goroutine is running.
func New() *Loop {
	l := &Loop{
		queue:   make(chan call, DefaultQueueSize),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	started := make(chan struct{})
	go l.run(started)
	<-started
	return l
}

func (l *Loop) run(started chan<- struct{}) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.stopped)

	l.gid.Store(goid())
	close(started)
	slogger().Debug("dispatch: loop started", "goroutine", l.gid.Load())

	for {
		select {
		case c := <-l.queue:
			l.exec(c)
		case <-l.quit:
			// Drain what was queued before Close.
			for {
				select {
				case c := <-l.queue:
					l.exec(c)
				default:
					slogger().Debug("dispatch: loop stopped")
					return
				}
			}
		}
	}
}

// exec runs c. A panic is handed to the Sync caller, or logged for an
// Async call, so the loop keeps running.
func (l *Loop) exec(c call) {
	defer func() {
		r := recover()
		if c.done != nil {
			c.done <- r
			return
		}
		if r != nil {
			slogger().Error("dispatch: async call panicked", "panic", r)
		}
	}()
	c.fn()
}

// OnLoop reports whether the caller is the loop goroutine.
func (l *Loop) OnLoop() bool {
	return goid() == l.gid.Load()
}

// Sync runs fn on the loop and waits for it. Called on the loop itself it
// runs fn inline. A panic in fn is re-raised in the caller. Sync after
// Close panics with ErrClosed.
func (l *Loop) Sync(fn func()) {
	if l.OnLoop() {
		fn()
		return
	}
	if l.closed.Load() {
		panic(ErrClosed)
	}
	done := make(chan any, 1)
	select {
	case l.queue <- call{fn: fn, done: done}:
	case <-l.stopped:
		panic(ErrClosed)
	}
	var r any
	select {
	case r = <-done:
	case <-l.stopped:
		// The loop may have run fn while draining.
		select {
		case r = <-done:
		default:
			panic(ErrClosed)
		}
	}
	if r != nil {
		panic(r)
	}
}

// Async queues fn on the loop. Calls after Close are dropped.
func (l *Loop) Async(fn func()) {
	if l.closed.Load() {
		slogger().Warn("dispatch: async call after close dropped")
		return
	}
	select {
	case l.queue <- call{fn: fn}:
	case <-l.stopped:
		slogger().Warn("dispatch: async call after close dropped")
	}
}

// Close stops the loop after the queued calls have run. Called from
// outside the loop it waits for the loop goroutine to exit.
func (l *Loop) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		close(l.quit)
	})
	if !l.OnLoop() {
		<-l.stopped
	}
	return nil
}

// RunFrames calls frame on the loop every interval until ctx is done or
// frame returns an error. The ticker runs on the calling goroutine; frames
// that overrun the interval drop ticks rather than queueing them.
func (l *Loop) RunFrames(ctx context.Context, interval time.Duration, frame func() error) error {
	if interval <= 0 {
		return fmt.Errorf("dispatch: invalid frame interval %v", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		var err error
		l.Sync(func() { err = frame() })
		if err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

var goroutinePrefix = []byte("goroutine ")

// goid returns the current goroutine's ID from its stack header.
func goid() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
