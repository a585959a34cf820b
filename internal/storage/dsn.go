package storage

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// OptionsFromURL turns a connection URL such as DATABASE_URL into Options.
// postgres:// URLs are passed to lib/pq unchanged, mysql:// URLs are
// rewritten into the driver's DSN form, and sqlite:// or bare paths select
// the embedded database.
func OptionsFromURL(raw string) (Options, error) {
	switch {
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return Options{Driver: DriverPostgres, DSN: raw}, nil
	case strings.HasPrefix(raw, "mysql://"):
		dsn, err := mysqlDSN(raw)
		if err != nil {
			return Options{}, err
		}
		return Options{Driver: DriverMySQL, DSN: dsn}, nil
	case strings.HasPrefix(raw, "sqlite://"):
		return Options{Driver: DriverSQLite, Path: strings.TrimPrefix(raw, "sqlite://")}, nil
	case strings.Contains(raw, "://"):
		return Options{}, fmt.Errorf("unsupported database url scheme in %q", redact(raw))
	default:
		return Options{Driver: DriverSQLite, Path: raw}, nil
	}
}

func mysqlDSN(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse mysql url: %w", err)
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "3306"
	}
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	if u.Query().Get("tls") == "true" || u.Query().Get("sslmode") == "require" {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN(), nil
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid>"
	}
	return u.Redacted()
}
