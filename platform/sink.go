// platform/sink.go
package platform

import (
	"errors"
	"io"
	"sync"

	"regmap-go/x/shmring"
)

// Sink receives one record per call. Implementations must not block the
// caller for long; the sampling loop runs on a fixed period.
type Sink interface {
	WriteLine(line string) error
	Close() error
}

var ErrSinkOverflow = errors.New("platform: sink queue full, record dropped")

// -----------------------------------------------------------------------------
// WriterSink
// -----------------------------------------------------------------------------

// WriterSink appends newline-terminated records to any io.Writer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

func (s *WriterSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, line); err != nil {
		return err
	}
	_, err := io.WriteString(s.w, "\n")
	return err
}

func (s *WriterSink) Close() error { return nil }

// -----------------------------------------------------------------------------
// UARTSink
// -----------------------------------------------------------------------------

// UARTSink streams records through an SPSC ring so the sampling loop never
// waits on the link. A record that does not fit whole is dropped whole;
// partial lines would corrupt the framing on the receiving end.
type UARTSink struct {
	ring    *shmring.Ring
	done    chan struct{}
	stopped chan struct{}
}

// NewUARTSink starts the drain pump. size must be a power of two.
func NewUARTSink(w io.Writer, size int) *UARTSink {
	s := &UARTSink{
		ring:    shmring.New(size),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.pump(w)
	return s
}

func (s *UARTSink) WriteLine(line string) error {
	if s.ring.Space() < len(line)+1 {
		return ErrSinkOverflow
	}
	s.ring.TryWriteFrom([]byte(line))
	s.ring.TryWriteFrom([]byte{'\n'})
	return nil
}

// Close stops the pump after draining buffered bytes.
func (s *UARTSink) Close() error {
	close(s.done)
	<-s.stopped
	return nil
}

func (s *UARTSink) pump(w io.Writer) {
	defer close(s.stopped)
	var buf [64]byte
	for {
		n := s.ring.TryReadInto(buf[:])
		if n > 0 {
			_, _ = w.Write(buf[:n]) // link errors are not recoverable here
			continue
		}
		select {
		case <-s.ring.Readable():
		case <-s.done:
			for {
				n := s.ring.TryReadInto(buf[:])
				if n == 0 {
					return
				}
				_, _ = w.Write(buf[:n])
			}
		}
	}
}
