package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const defaultMaxFileSize = 100 * 1024 * 1024

// RotatingLogger writes to one file per ISO week, opening a numbered
// continuation file when the size limit is reached, and removes files older
// than the retention period.
type RotatingLogger struct {
	logDir      string
	retention   time.Duration
	maxFileSize int64

	mu          sync.Mutex
	currentFile *os.File
	currentWeek string
	currentSize int64
	sequence    int

	cancel      context.CancelFunc
	cleanupDone chan struct{}
}

func openRotatingLogger(logDir string, retentionWeeks int, maxFileSize int64) (*RotatingLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if retentionWeeks <= 0 {
		retentionWeeks = 4
	}
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	rl := &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}

	rl.mu.Lock()
	err := rl.rotate(weekKey(time.Now()))
	rl.mu.Unlock()
	if err != nil {
		cancel()
		return nil, err
	}

	go rl.cleanupLoop(ctx)
	return rl, nil
}

// weekKey returns the ISO week in YYYY-Www format
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func (rl *RotatingLogger) fileName(week string, sequence int) string {
	if sequence == 0 {
		return fmt.Sprintf("app-%s.log", week)
	}
	return fmt.Sprintf("app-%s_%02d.log", week, sequence)
}

// rotate opens the first file of week that still has room (caller holds mu)
func (rl *RotatingLogger) rotate(week string) error {
	if rl.currentFile != nil {
		_ = rl.currentFile.Close()
		rl.currentFile = nil
	}

	sequence := 0
	if week == rl.currentWeek {
		sequence = rl.sequence + 1
	}

	for {
		path := filepath.Join(rl.logDir, rl.fileName(week, sequence))
		info, err := os.Stat(path)
		if err == nil && info.Size() >= rl.maxFileSize {
			sequence++
			continue
		}

		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", path, err)
		}

		rl.currentFile = file
		rl.currentWeek = week
		rl.sequence = sequence
		rl.currentSize = 0
		if info != nil {
			rl.currentSize = info.Size()
		}
		return nil
	}
}

// Write implements io.Writer
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(time.Now())
	if week != rl.currentWeek || rl.currentFile == nil || rl.currentSize+int64(len(p)) > rl.maxFileSize {
		if err := rl.rotate(week); err != nil {
			return 0, err
		}
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize += int64(n)
	return n, err
}

func (rl *RotatingLogger) cleanupLoop(ctx context.Context) {
	defer close(rl.cleanupDone)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := rl.cleanupOldLogs(time.Now()); err != nil {
				fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
			}
		}
	}
}

// cleanupOldLogs removes log files last modified before now minus retention
func (rl *RotatingLogger) cleanupOldLogs(now time.Time) (int, error) {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := now.Add(-rl.retention)
	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

// Close stops background cleanup and closes the current file
func (rl *RotatingLogger) Close() error {
	rl.cancel()
	<-rl.cleanupDone

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.currentFile == nil {
		return nil
	}
	err := rl.currentFile.Close()
	rl.currentFile = nil
	return err
}
