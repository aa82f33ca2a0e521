package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileSink is an io.WriteCloser appending to a file, optionally rotating
// it once it grows past a byte threshold. Rotation renames the current
// file aside (either with a numeric suffix, ".1", ".2", ... or, when
// TimestampSuffix is set, with the rotation time) and reopens a fresh
// file at the original path, following the teacher's Writer/rotateFiles
// shape generalized to spec's two rotation-naming modes.
type FileSink struct {
	path            string
	rotateSize      int64
	timestampSuffix bool

	mu      sync.Mutex
	file    *os.File
	written int64
}

// NewFileSink opens (creating/appending) path as a rotating sink.
// rotateSize <= 0 disables rotation.
func NewFileSink(path string, rotateSize int64, timestampSuffix bool) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: mkdir for sink %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open sink %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("logging: stat sink %s: %w", path, err)
	}
	return &FileSink{
		path:            path,
		rotateSize:      rotateSize,
		timestampSuffix: timestampSuffix,
		file:            f,
		written:         info.Size(),
	}, nil
}

// Write appends p, rotating first if the write would cross rotateSize.
func (s *FileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rotateSize > 0 && s.written > 0 && s.written+int64(len(p)) > s.rotateSize {
		if err := s.rotateLocked(); err != nil {
			return 0, err
		}
	}
	n, err := s.file.Write(p)
	s.written += int64(n)
	return n, err
}

func (s *FileSink) rotateLocked() error {
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("logging: close before rotate %s: %w", s.path, err)
	}

	var rotated string
	if s.timestampSuffix {
		rotated = fmt.Sprintf("%s.%s", s.path, time.Now().UTC().Format("20060102T150405Z"))
	} else {
		rotated = nextNumberedName(s.path)
	}
	if err := os.Rename(s.path, rotated); err != nil {
		return fmt.Errorf("logging: rotate %s: %w", s.path, err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("logging: reopen after rotate %s: %w", s.path, err)
	}
	s.file = f
	s.written = 0
	return nil
}

// nextNumberedName returns path.N for the smallest N whose path.N does
// not already exist, matching the teacher's numbered-suffix rotation.
func nextNumberedName(path string) string {
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s.%d", path, n)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// Close closes the underlying file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
