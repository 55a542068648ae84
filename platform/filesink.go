// platform/filesink.go
//go:build !rp2040 && !rp2350

package platform

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSink appends records to a file whose name is a time layout, e.g.
// "logs/2006-01-02.csv". The file rotates when the formatted name changes,
// so a daily mask rolls at midnight.
type FileSink struct {
	mu   sync.Mutex
	mask string
	now  func() time.Time
	name string
	f    *os.File
}

func NewFileSink(mask string) *FileSink {
	return &FileSink{mask: mask, now: time.Now}
}

func (s *FileSink) WriteLine(line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := s.now().Format(s.mask)
	if s.f == nil || name != s.name {
		if s.f != nil {
			_ = s.f.Close()
			s.f = nil
		}
		if dir := filepath.Dir(name); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		s.f, s.name = f, name
	}
	_, err := s.f.WriteString(line + "\n")
	return err
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
