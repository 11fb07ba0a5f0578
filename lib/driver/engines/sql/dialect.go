package sql

import (
	"fmt"
	"strings"

	// database/sql drivers
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// dialect holds the differences between the supported databases
type dialect struct {
	name       string
	driverName string
	blobType   string
	numbered   bool // $1 placeholders instead of ?
}

var (
	dialectSQLite   = dialect{name: "sqlite", driverName: "sqlite", blobType: "BLOB"}
	dialectPostgres = dialect{name: "postgres", driverName: "pgx", blobType: "BYTEA", numbered: true}
)

// placeholder returns the n-th (1-based) bind parameter
func (d dialect) placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// parseURI selects the dialect for a store URI and returns the data source name.
// Scheme extensions like "postgresql+psycopg" are ignored.
func parseURI(uri string) (dialect, string, bool, error) {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return dialect{}, "", false, fmt.Errorf("invalid sql uri %q", uri)
	}
	scheme, _, _ = strings.Cut(strings.ToLower(scheme), "+")

	switch scheme {
	case "sqlite", "sqlite3":
		path := rest
		// sqlite:////abs/path.db is an absolute path, sqlite:///rel.db a relative one
		if strings.HasPrefix(path, "//") {
			path = path[1:]
		} else {
			path = strings.TrimPrefix(path, "/")
		}
		if path == "" || path == ":memory:" {
			return dialectSQLite, ":memory:", true, nil
		}
		dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(wal)"
		return dialectSQLite, dsn, false, nil
	case "postgres", "postgresql":
		return dialectPostgres, "postgres://" + rest, false, nil
	default:
		return dialect{}, "", false, fmt.Errorf("unsupported sql dialect %q (expected sqlite or postgres)", scheme)
	}
}
