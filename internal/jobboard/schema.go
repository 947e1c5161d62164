package jobboard

import (
	"database/sql"
	"embed"

	"github.com/nao1215/jobquest/pkg/migration"
)

// migrationsFS はスキーママイグレーションのSQLファイルを保持する。
// db/migrations のファイル名形式（000001_description.up.sql）に従う。
//
//go:embed migrations/*.up.sql
var migrationsFS embed.FS

// initSchema はSQLiteデータベースに未適用のマイグレーションを適用する。
func initSchema(db *sql.DB) error {
	return migration.Run(db, migrationsFS, "migrations")
}
