// Package buffer provides a thread-safe generic ring buffer that keeps a
// sliding window of the most recent elements. Writers never block: once the
// buffer is full, the oldest element is overwritten. Watch mode uses it for
// the log and update windows it renders.
package buffer

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"sync"
)

// ErrIteratorDone is returned by Next when the buffer is closed for writing
// and fully drained.
var ErrIteratorDone = errors.New("iterator done")

// RingBuffer is a fixed-capacity sliding window over the most recent
// elements. Add overwrites the oldest element when full; Next blocks until
// an element is available or the write side is closed.
type RingBuffer[T any] struct {
	writeNotify chan struct{}

	mu         sync.Mutex
	buf        []T
	head, tail int64
	closeWrite bool
	closeErr   error
}

// RingN creates a RingBuffer holding at most size elements.
func RingN[T any](size int) *RingBuffer[T] {
	return &RingBuffer[T]{
		writeNotify: make(chan struct{}, 1),

		buf: make([]T, size),
	}
}

// Add appends one element, overwriting the oldest when the buffer is full.
func (rb *RingBuffer[T]) Add(t T) error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closeErr != nil {
		return fmt.Errorf("buffer: write to closed buffer: %w", rb.closeErr)
	}
	if rb.closeWrite {
		return fmt.Errorf("buffer: write to closed buffer: %w", io.ErrClosedPipe)
	}
	tail := rb.tail % int64(len(rb.buf))
	rb.buf[tail] = t
	rb.tail++
	if rb.tail-rb.head > int64(len(rb.buf)) {
		rb.head++
	}
	select {
	case rb.writeNotify <- struct{}{}:
	default:
	}
	return nil
}

// Next removes and returns the oldest element. It blocks until an element
// is available. After CloseWrite it drains the remaining elements, then
// returns ErrIteratorDone.
func (rb *RingBuffer[T]) Next() (t T, err error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closeErr != nil {
		err = fmt.Errorf("buffer: read from closed buffer: %w", rb.closeErr)
		return
	}
	for rb.head == rb.tail {
		if rb.closeWrite {
			err = ErrIteratorDone
			return
		}
		rb.mu.Unlock()
		<-rb.writeNotify
		rb.mu.Lock()
		if rb.closeErr != nil {
			err = fmt.Errorf("buffer: read from closed buffer: %w", rb.closeErr)
			return
		}
	}
	head := rb.head % int64(len(rb.buf))
	t = rb.buf[head]
	rb.head++
	return t, nil
}

// Len returns the number of buffered elements.
func (rb *RingBuffer[T]) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return int(rb.tail - rb.head)
}

// Snapshot returns a copy of the buffered elements, oldest first. The
// buffer itself is not consumed.
func (rb *RingBuffer[T]) Snapshot() []T {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.head == rb.tail {
		return nil
	}
	h := int(rb.head % int64(len(rb.buf)))
	t := int(rb.tail % int64(len(rb.buf)))
	if h < t {
		return slices.Clone(rb.buf[h:t])
	}
	return slices.Concat(rb.buf[h:], rb.buf[:t])
}

// Reset discards all buffered elements.
func (rb *RingBuffer[T]) Reset() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.head = 0
	rb.tail = 0
}

// CloseWrite closes the write side. Next keeps draining buffered elements
// and then reports ErrIteratorDone.
func (rb *RingBuffer[T]) CloseWrite() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closeWrite {
		return nil
	}
	rb.closeWrite = true
	close(rb.writeNotify)
	return nil
}

// CloseWithError closes the buffer with the given error. Pending and future
// operations fail with it. A nil err is replaced by io.ErrClosedPipe.
func (rb *RingBuffer[T]) CloseWithError(err error) error {
	if err == nil {
		err = io.ErrClosedPipe
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if rb.closeErr != nil {
		return nil
	}
	rb.closeErr = err
	if !rb.closeWrite {
		rb.closeWrite = true
		close(rb.writeNotify)
	}
	return nil
}

// Close closes the buffer. Equivalent to CloseWithError(io.ErrClosedPipe).
func (rb *RingBuffer[T]) Close() error {
	return rb.CloseWithError(io.ErrClosedPipe)
}

// Error returns the error the buffer was closed with, if any.
func (rb *RingBuffer[T]) Error() error {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.closeErr
}
