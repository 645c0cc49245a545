// Package wal models the log manager collaborator the buffer pool holds a
// reference to but never drives directly: the buffer pool stores it and
// never calls it. Flushing and appending log records belong to whatever
// transaction/recovery layer sits above it.
package wal

// LSN is a log sequence number, kept only so higher layers that do drive
// the log manager have somewhere to stamp a page's last-logged LSN.
type LSN uint64

// LogManager is the minimal surface a higher layer needs to flush log
// records ahead of a page writeback. The buffer pool never appends log
// records itself.
type LogManager interface {
	Flush() error
}

// Noop is a LogManager that does nothing, used as the default when no
// caller supplies one.
type Noop struct{}

// Flush implements LogManager.
func (Noop) Flush() error { return nil }

// Default is the package-level no-op log manager.
var Default LogManager = Noop{}
