package logger

import (
	"bufio"
	"io"
	"sync"
)

// asyncWriter moves log writes off the caller's goroutine. One goroutine owns the
// buffered sinks; Flush and Close are served through the same loop.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	done    chan struct{}

	// closing guards lines against sends after Close.
	closing sync.RWMutex
	closed  bool

	mu  sync.Mutex
	err error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	var sinks []io.Writer
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, w)
		}
	}
	out := bufio.NewWriterSize(io.MultiWriter(sinks...), bufSize)
	w := &asyncWriter{
		lines:   make(chan []byte, 256),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
	}
	go w.loop(out)
	return w
}

func (w *asyncWriter) loop(out *bufio.Writer) {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.fail(out.Flush())
				return
			}
			if _, err := out.Write(line); err != nil {
				w.fail(err)
				continue
			}
			// Flush once the queue is drained so lines show up promptly.
			if len(w.lines) == 0 {
				w.fail(out.Flush())
			}
		case ack := <-w.flushes:
			ack <- out.Flush()
		}
	}
}

// Write queues a copy of p. It blocks only when the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	w.closing.RLock()
	defer w.closing.RUnlock()
	if w.closed {
		return io.ErrClosedPipe
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush waits until everything queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return <-ack
	case <-w.done:
		return w.firstErr()
	}
}

// Close drains the queue and returns the first write error.
func (w *asyncWriter) Close() error {
	w.closing.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.closing.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		w.err = err
	}
}

func (w *asyncWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
