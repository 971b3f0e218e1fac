package storage

import "fmt"

// Backend kinds accepted by Open
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open returns the backend selected by kind
func Open(kind, dataDir, sqlitePath string) (Backend, error) {
	switch kind {
	case KindFile, "":
		return New(dataDir)
	case KindSQLite:
		return NewSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
