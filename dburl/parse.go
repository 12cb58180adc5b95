// Package dburl turns the database URLs accepted in nearabi.ini into
// database/sql driver names and DSNs.
package dburl

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// Supported database dialects
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// database/sql driver names registered by the imported drivers.
const (
	DriverPostgres = "pgx"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

var (
	ErrUnknownDialect = errors.New("unknown database dialect")
	ErrInvalidURL     = errors.New("invalid database URL")
)

// InferDialect returns the dialect ("postgres", "mysql", or "sqlite")
// based on the URL scheme.
func InferDialect(dbURL string) (string, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "postgres", "postgresql":
		return DialectPostgres, nil
	case "mysql":
		return DialectMySQL, nil
	case "sqlite", "sqlite3", "file":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownDialect, scheme)
	}
}

// DriverDSN returns the database/sql driver name and data source name for
// a database URL.
//
//	postgres://user:pw@host:5432/db  -> pgx,    unchanged
//	mysql://user:pw@host:3306/db     -> mysql,  user:pw@tcp(host:3306)/db?parseTime=true
//	sqlite:///abs/path.db            -> sqlite, /abs/path.db
//	sqlite:rel/path.db               -> sqlite, rel/path.db
func DriverDSN(dbURL string) (driver, dsn string, err error) {
	dialect, err := InferDialect(dbURL)
	if err != nil {
		return "", "", err
	}
	u, err := url.Parse(dbURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	switch dialect {
	case DialectPostgres:
		return DriverPostgres, dbURL, nil
	case DialectMySQL:
		return DriverMySQL, mysqlDSN(u), nil
	default:
		path := SQLitePath(u)
		if path == "" {
			return "", "", fmt.Errorf("%w: missing sqlite path in %q", ErrInvalidURL, dbURL)
		}
		return DriverSQLite, path, nil
	}
}

func mysqlDSN(u *url.URL) string {
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" && u.Hostname() != "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if q := u.Query(); len(q) > 0 {
		cfg.Params = map[string]string{}
		for k := range q {
			cfg.Params[k] = q.Get(k)
		}
	}
	return cfg.FormatDSN()
}

// SQLitePath extracts the file path of a sqlite URL.
func SQLitePath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Host + u.Path
}

// BuildSQLiteURL constructs a SQLite connection URL.
// Format: sqlite:///path/to/file.db
func BuildSQLiteURL(filepath string) string {
	if strings.HasPrefix(filepath, "/") {
		return fmt.Sprintf("sqlite://%s", filepath)
	}
	return fmt.Sprintf("sqlite:%s", filepath)
}

// ParseDatabaseName extracts the database name from a URL.
// Returns an empty string if no database name is present.
func ParseDatabaseName(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return ""
	}
	if u.Opaque != "" {
		return u.Opaque
	}
	return strings.TrimPrefix(u.Path, "/")
}

// Redact hides the password of a database URL for logging.
func Redact(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
