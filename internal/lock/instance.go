// Package lock keeps two engines from sharing one state directory.
package lock

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the lock file created next to the history database.
const FileName = "hearth.lock"

// ErrLocked is returned when another process holds the lock.
var ErrLocked = errors.New("lock: state directory in use by another engine")

// Holder describes the process owning a lock file.
type Holder struct {
	PID      int       `yaml:"pid"`
	BootID   string    `yaml:"boot_id"`
	Acquired time.Time `yaml:"acquired"`
}

// InstanceLock is an flock(2) on FileName. The lock lives as long as the
// file descriptor stays open.
type InstanceLock struct {
	path string
	f    *os.File
}

// Acquire takes an exclusive non-blocking lock in dir and records the
// current pid and bootID in it.
func Acquire(dir, bootID string) (*InstanceLock, error) {
	if dir == "" {
		return nil, fmt.Errorf("lock directory is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	path := filepath.Join(dir, FileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			if h, herr := ReadHolder(path); herr == nil {
				return nil, fmt.Errorf("%w (pid %d, boot %s)", ErrLocked, h.PID, h.BootID)
			}
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("acquire lock: %w", err)
	}

	l := &InstanceLock{path: path, f: f}
	if err := l.write(Holder{PID: os.Getpid(), BootID: bootID, Acquired: time.Now().UTC()}); err != nil {
		_ = l.Release()
		return nil, err
	}
	return l, nil
}

func (l *InstanceLock) write(h Holder) error {
	data, err := yaml.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal lock holder: %w", err)
	}
	if err := l.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := l.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := l.f.Write(data); err != nil {
		return fmt.Errorf("write lock holder: %w", err)
	}
	if err := l.f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

// ReadHolder parses the holder recorded in a lock file.
func ReadHolder(path string) (Holder, error) {
	var h Holder
	data, err := os.ReadFile(path)
	if err != nil {
		return h, fmt.Errorf("read lock file: %w", err)
	}
	if err := yaml.Unmarshal(data, &h); err != nil {
		return h, fmt.Errorf("parse lock file: %w", err)
	}
	return h, nil
}

func (l *InstanceLock) Path() string { return l.path }

// Release unlocks and closes the file. The file itself is left in place.
func (l *InstanceLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
