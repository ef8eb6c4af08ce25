package migrations

import (
	"database/sql"
)

// GetMigrations returns all available migrations
func GetMigrations() []Migration {
	return []Migration{
		migration001EngineState(),
	}
}

// migration001EngineState creates the per-document engine state table.
func migration001EngineState() Migration {
	return Migration{
		Version:     1,
		Description: "Engine state - one JSON blob per document and state key",
		Up: func(db *sql.DB, dialect Dialect) error {
			var query string
			switch dialect {
			case DialectMySQL:
				query = `CREATE TABLE IF NOT EXISTS engine_state (
					document_id VARCHAR(191) NOT NULL,
					state_key VARCHAR(64) NOT NULL,
					value LONGTEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (document_id, state_key)
				) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`
			default:
				query = `CREATE TABLE IF NOT EXISTS engine_state (
					document_id TEXT NOT NULL,
					state_key TEXT NOT NULL,
					value TEXT NOT NULL,
					updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (document_id, state_key)
				)`
			}
			_, err := db.Exec(query)
			return err
		},
	}
}
