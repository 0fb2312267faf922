// Package sqlite selects the database/sql driver used for the mobile
// database export.
//
// Build modes:
//   - Default (CGO_ENABLED=0): modernc.org/sqlite, driver name "sqlite"
//   - CGO mode (CGO_ENABLED=1 -tags cgo_sqlite): github.com/mattn/go-sqlite3, driver name "sqlite3"
//
// Use Open instead of sql.Open so the driver name always matches the build.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
)

// DriverName returns the SQL driver name registered by the selected driver.
func DriverName() string {
	return driverName
}

// DriverType returns "cgo" for mattn/go-sqlite3 and "purego" for
// modernc.org/sqlite.
func DriverType() string {
	return driverType
}

// IsCGO returns true if the CGO implementation is being used.
func IsCGO() bool {
	return driverType == "cgo"
}

// Open opens a SQLite database using the appropriate driver.
func Open(dataSourceName string) (*sql.DB, error) {
	return sql.Open(driverName, dataSourceName)
}

// OpenReadOnly opens the database file at path in read-only mode.
func OpenReadOnly(path string) (*sql.DB, error) {
	return Open(fileURI(path, "ro"))
}

// OpenContext opens the database file at path for writing, creating it if
// needed, and verifies the connection.
func OpenContext(ctx context.Context, path string) (*sql.DB, error) {
	db, err := Open(fileURI(path, "rwc"))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to open %s: %w", path, err)
	}
	return db, nil
}

func fileURI(path, mode string) string {
	u := url.URL{Scheme: "file", Opaque: (&url.URL{Path: path}).EscapedPath()}
	u.RawQuery = "mode=" + mode
	return u.String()
}

// Info contains information about the SQLite driver configuration.
type Info struct {
	DriverName string `json:"driver_name"`
	DriverType string `json:"driver_type"`
	IsCGO      bool   `json:"is_cgo"`
	Package    string `json:"package"`
}

// GetInfo returns information about the current SQLite configuration.
func GetInfo() Info {
	return Info{
		DriverName: driverName,
		DriverType: driverType,
		IsCGO:      IsCGO(),
		Package:    driverPackage,
	}
}
