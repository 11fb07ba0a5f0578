package sql

// Options configures the sql driver
type Options struct {
	// Table is the name of the key/value table (created if missing)
	Table string
	// PoolSize is the maximum number of open connections.
	// In-memory sqlite databases always use a single connection.
	PoolSize int
}

// DefaultOptions returns the default sql driver options
func DefaultOptions() *Options {
	return &Options{
		Table:    "anykv",
		PoolSize: 5,
	}
}

// Option changes a single setting of Options
type Option func(*Options)

// WithTable sets the table name.
// Default: "anykv"
func WithTable(table string) Option {
	return func(o *Options) {
		if table != "" {
			o.Table = table
		}
	}
}

// WithPoolSize sets the maximum number of open connections.
// Default: 5
func WithPoolSize(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.PoolSize = size
		}
	}
}
