package database

import (
	"fmt"
	"net/url"
	"strings"
)

// pragma is a PRAGMA applied by the driver on every new connection.
type pragma struct {
	name  string
	value string
}

// pragmas lists the PRAGMAs implied by the options, skipping unset ones.
func (opts *SQLiteOptions) pragmas() []pragma {
	var out []pragma
	if opts.Journal != "" {
		out = append(out, pragma{"journal_mode", string(opts.Journal)})
	}
	// busy_timeout and foreign_keys are always set
	out = append(out, pragma{"busy_timeout", fmt.Sprintf("%d", opts.BusyTimeout)})
	if opts.ForeignKeys {
		out = append(out, pragma{"foreign_keys", "1"})
	} else {
		out = append(out, pragma{"foreign_keys", "0"})
	}
	if opts.Synchronous != "" {
		out = append(out, pragma{"synchronous", string(opts.Synchronous)})
	}
	if opts.CacheSize != 0 {
		out = append(out, pragma{"cache_size", fmt.Sprintf("%d", opts.CacheSize)})
	}
	return out
}

// buildConnectionString generates a modernc.org/sqlite DSN from options.
// URI parameters go to SQLite itself; _pragma parameters are run by the
// driver for each connection it opens.
func (opts *SQLiteOptions) buildConnectionString() string {
	params := url.Values{}

	if opts.Cache != "" {
		params.Set("cache", string(opts.Cache))
	}
	if opts.Mode != "" {
		params.Set("mode", opts.Mode)
	}
	for _, p := range opts.pragmas() {
		params.Add("_pragma", fmt.Sprintf("%s(%s)", p.name, p.value))
	}

	connStr := opts.Path
	if !strings.HasPrefix(connStr, "file:") {
		connStr = "file:" + connStr
	}
	if encoded := params.Encode(); encoded != "" {
		connStr += "?" + encoded
	}

	return connStr
}
