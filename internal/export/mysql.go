package export

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MySQLConfig names a MySQL database reachable over TCP.
type MySQLConfig struct {
	User     string
	Password string
	Addr     string
	DBName   string
}

// DSN renders c in the driver's connection string format.
func (c MySQLConfig) DSN() string {
	cfg := mysql.Config{
		User:                 c.User,
		Passwd:               c.Password,
		Net:                  "tcp",
		Addr:                 c.Addr,
		DBName:               c.DBName,
		AllowNativePasswords: true,
	}
	return cfg.FormatDSN()
}

// ParseMySQLDSN splits a DSN such as user:pass@tcp(host:3306)/db.
func ParseMySQLDSN(dsn string) (MySQLConfig, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return MySQLConfig{}, fmt.Errorf("export: mysql dsn: %w", err)
	}
	return MySQLConfig{User: cfg.User, Password: cfg.Passwd, Addr: cfg.Addr, DBName: cfg.DBName}, nil
}

// OpenMySQL connects to the database named by dsn.
func OpenMySQL(dsn string) (*sql.DB, error) {
	cfg, err := ParseMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("export: unable to open MySQL DB %q: %w", cfg.Addr, err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	return db, nil
}
