package db

import (
	"database/sql"
	"fmt"
	"unicode/utf16"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// SQLiteDriverName is the project-specific SQLCipher driver with custom SQL functions.
	SQLiteDriverName = "sqlite3_colornote"
)

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("utf16_len", sqliteUTF16Len, true); err != nil {
				return fmt.Errorf("register utf16_len SQL function: %w", err)
			}
			return nil
		},
	})
}

// sqliteUTF16Len counts UTF-16 code units, the unit span offsets are
// expressed in. SQLite's length() counts code points.
func sqliteUTF16Len(s string) int64 {
	var n int64
	for _, r := range s {
		n += int64(utf16.RuneLen(r))
	}
	return n
}
