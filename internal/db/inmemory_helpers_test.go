package db

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"strings"
	"sync/atomic"
)

var inMemoryCounter atomic.Uint64

// newStoreInMemory creates an in-memory encrypted Store for package db tests.
func newStoreInMemory() (*Store, error) {
	name := fmt.Sprintf("dbtest-%d", inMemoryCounter.Add(1))
	key := hex.EncodeToString([]byte(strings.Repeat("k", KeySize)))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma_key=x'%s'&_pragma_cipher_page_size=4096", name, key)

	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(10)

	if _, err := sqlDB.Exec(Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize in-memory schema: %w", err)
	}
	return NewStoreFromSQL(sqlDB), nil
}
