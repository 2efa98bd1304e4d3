// Package lockfile keeps two migrations of the same project from running at
// once. The lock is an flock on a small JSON file that records the holder.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// ErrLockBusy is returned when another process holds the lock.
var ErrLockBusy = errors.New("lock held by another process")

// Info describes the process holding a lock.
type Info struct {
	PID       int       `json:"pid"`
	Command   string    `json:"command"`
	Project   string    `json:"project"`
	StartedAt time.Time `json:"started_at"`
}

// Lock is a held run lock.
type Lock struct {
	path string
	f    *os.File
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Path returns the lock file for a source and target project pair under dir.
func Path(dir, sourceProject, targetProject string) string {
	name := unsafeName.ReplaceAllString(sourceProject+"-"+targetProject, "_")
	return filepath.Join(dir, name+".lock")
}

// DefaultDir is the per-user cache directory, or the temp directory when
// there is none.
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "j2o")
	}
	return filepath.Join(os.TempDir(), "j2o")
}

// Acquire takes the lock at path without waiting. When it is held, the
// returned error wraps ErrLockBusy and names the holder.
func Acquire(path string, info Info) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600) // #nosec G304 - path built by Path
	if err != nil {
		return nil, fmt.Errorf("open lock: %w", err)
	}
	if err := flockExclusive(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLockBusy) {
			if holder, rerr := ReadInfo(path); rerr == nil {
				return nil, fmt.Errorf("%w: %s of %s by pid %d since %s", ErrLockBusy,
					holder.Command, holder.Project, holder.PID, holder.StartedAt.Format(time.RFC3339))
			}
		}
		return nil, err
	}

	if info.PID == 0 {
		info.PID = os.Getpid()
	}
	if info.StartedAt.IsZero() {
		info.StartedAt = time.Now().UTC()
	}
	data, err := json.Marshal(info)
	if err == nil {
		if err = f.Truncate(0); err == nil {
			_, err = f.WriteAt(data, 0)
		}
	}
	if err != nil {
		_ = flockUnlock(f)
		_ = f.Close()
		return nil, fmt.Errorf("write lock info: %w", err)
	}
	return &Lock{path: path, f: f}, nil
}

// Release unlocks and removes the lock file.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := flockUnlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}

// ReadInfo reads the holder recorded in a lock file.
func ReadInfo(path string) (*Info, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path built by Path
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parse lock info: %w", err)
	}
	return &info, nil
}
