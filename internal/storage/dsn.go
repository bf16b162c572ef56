package storage

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"canvas/internal/config"
)

// PostgresDSN constructs a lib/pq connection string from discrete fields.
func PostgresDSN(cfg config.Storage) string {
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pqValue(cfg.Host), port, pqValue(cfg.User), pqValue(cfg.Password), pqValue(cfg.Database), pqValue(sslMode),
	)
}

// pqValue quotes a keyword/value parameter when it is empty or holds
// whitespace, quotes or backslashes.
func pqValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n\r'\\") {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}

// MySQLDSN constructs a go-sql-driver DSN from discrete fields.
func MySQLDSN(cfg config.Storage) string {
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	if cfg.SSLMode == "require" {
		mc.TLSConfig = "true"
	}
	return mc.FormatDSN()
}

// MongoURI constructs a mongodb:// URI from discrete fields.
func MongoURI(cfg config.Storage) string {
	port := cfg.Port
	if port == 0 {
		port = 27017
	}
	u := url.URL{Scheme: "mongodb", Host: net.JoinHostPort(cfg.Host, strconv.Itoa(port))}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}
	return u.String()
}
