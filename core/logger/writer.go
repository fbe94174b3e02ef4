package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// lineWriter moves formatted lines off the logging goroutine. Lines are
// buffered and flushed whenever the queue runs dry.
type lineWriter struct {
	lines   chan []byte
	flushes chan chan error
	done    chan struct{}

	state  sync.RWMutex
	closed bool

	mu  sync.Mutex
	err error
}

func newLineWriter(w io.Writer) *lineWriter {
	lw := &lineWriter{
		lines:   make(chan []byte, 256),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
	}
	go lw.loop(bufio.NewWriterSize(w, 64*1024))
	return lw
}

func (w *lineWriter) loop(buf *bufio.Writer) {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.fail(buf.Flush())
				return
			}
			if _, err := buf.Write(line); err != nil {
				w.fail(err)
			}
			if len(w.lines) == 0 {
				w.fail(buf.Flush())
			}
		case ack := <-w.flushes:
			for len(w.lines) > 0 {
				if line, ok := <-w.lines; ok {
					if _, err := buf.Write(line); err != nil {
						w.fail(err)
					}
				}
			}
			ack <- buf.Flush()
		}
	}
}

// Write queues a copy of line. It blocks only when the queue is full.
func (w *lineWriter) Write(line []byte) error {
	if err := w.firstErr(); err != nil {
		return err
	}
	if len(line) == 0 {
		return nil
	}
	w.state.RLock()
	defer w.state.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.lines <- append([]byte(nil), line...)
	return nil
}

// Flush waits until everything queued so far reached the sink.
func (w *lineWriter) Flush() error {
	ack := make(chan error, 1)
	select {
	case w.flushes <- ack:
		return <-ack
	case <-w.done:
		return w.firstErr()
	}
}

// Close drains the queue. Later writes fail with errWriterClosed.
func (w *lineWriter) Close() error {
	w.state.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.state.Unlock()
	<-w.done
	return w.firstErr()
}

func (w *lineWriter) fail(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.mu.Unlock()
}

func (w *lineWriter) firstErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}
