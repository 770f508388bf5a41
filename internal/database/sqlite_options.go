package database

// SynchronousMode represents the available synchronous settings for SQLite
type SynchronousMode string

const (
	SynchronousOff    SynchronousMode = "OFF"
	SynchronousNormal SynchronousMode = "NORMAL"
	SynchronousFull   SynchronousMode = "FULL"
	SynchronousExtra  SynchronousMode = "EXTRA"
)

// JournalMode represents the available journal modes for SQLite
type JournalMode string

const (
	JournalDelete   JournalMode = "DELETE"
	JournalTruncate JournalMode = "TRUNCATE"
	JournalMemory   JournalMode = "MEMORY"
	JournalWAL      JournalMode = "WAL"
	JournalOff      JournalMode = "OFF"
)

// CacheMode represents the available cache modes for SQLite
type CacheMode string

const (
	CacheShared  CacheMode = "shared"
	CachePrivate CacheMode = "private"
)

// SQLiteOptions contains configuration options for the record database
type SQLiteOptions struct {
	// Path to the SQLite database file, or ":memory:"
	Path string

	Mode        string          // ro, rw, rwc, memory
	Cache       CacheMode       // shared, private
	Journal     JournalMode     // journal_mode
	ForeignKeys bool            // foreign_keys
	BusyTimeout int             // busy_timeout (milliseconds)
	CacheSize   int             // cache_size (in KB, negative for number of pages)
	Synchronous SynchronousMode // synchronous
}

// NewDefaultOptions creates SQLiteOptions with recommended defaults
func NewDefaultOptions(path string) SQLiteOptions {
	return SQLiteOptions{
		Path:        path,
		Mode:        "rwc",
		Journal:     JournalWAL, // WAL is recommended for better concurrency
		ForeignKeys: true,
		BusyTimeout: 5000,
		CacheSize:   2000,
		Synchronous: SynchronousNormal,
		Cache:       CachePrivate,
	}
}

// NewMemoryOptions creates options for a private in-memory database.
func NewMemoryOptions() SQLiteOptions {
	return SQLiteOptions{
		Path:        ":memory:",
		Mode:        "memory",
		Journal:     JournalMemory,
		ForeignKeys: true,
		BusyTimeout: 5000,
		Cache:       CachePrivate,
	}
}

func (opts SQLiteOptions) inMemory() bool {
	return opts.Mode == "memory" || opts.Path == ":memory:"
}
