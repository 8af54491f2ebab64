// Package database, SQLite bağlantısını ve embedded migration sistemini yönetir.
//
// modernc.org/sqlite pure-Go driver'dır (CGO gerekmez). Bağlantı açılırken
// foreign key, WAL ve busy_timeout pragma'ları DSN üzerinden ayarlanır;
// _txlock=immediate ile her transaction yazma kilidini en başta alır. Bu,
// stok rezervasyonu gibi read-then-write transaction'larda SQLITE_BUSY
// upgrade hatasını önler.
package database

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/akinalp/storefront/pkg/logger"
)

// recoverableErrors, yarım kalmış bir migration tekrar çalıştığında
// güvenle atlanabilecek hata pattern'ları.
var recoverableErrors = []string{
	"duplicate column name",
}

// DB, *sql.DB connection pool'unu sarar.
type DB struct {
	Conn *sql.DB
}

// DSN, dosya yolu için pragma'larla birlikte bağlantı string'i üretir.
func DSN(dbPath string) string {
	return dbPath +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=busy_timeout(5000)" +
		"&_txlock=immediate" +
		"&_time_format=sqlite"
}

// New, dizini oluşturur, bağlantıyı açar ve bekleyen migration'ları uygular.
func New(dbPath string, migrationsFS fs.FS) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", DSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{Conn: conn}

	if err := db.runMigrations(migrationsFS); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info().Str("path", dbPath).Msg("[database] connected and migrations applied")
	return db, nil
}

// Migrations, embed edilmiş migration dizinini fs.FS olarak döner.
func Migrations() fs.FS {
	sub, err := fs.Sub(EmbeddedMigrations, "migrations")
	if err != nil {
		// embed pattern derleme zamanında doğrulandığı için buraya düşülmez
		panic(err)
	}
	return sub
}

func (db *DB) Close() error {
	return db.Conn.Close()
}

// runMigrations, .sql dosyalarını isim sırasıyla bir kez uygular.
// Uygulananlar schema_migrations tablosunda tutulur.
//
// Bootstrap: tablo boş ama "users" tablosu zaten varsa (migration takibinden
// önce kurulmuş bir DB) tüm dosyalar uygulanmış sayılır.
func (db *DB) runMigrations(migrationsFS fs.FS) error {
	if _, err := db.Conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	slices.Sort(sqlFiles)

	applied, err := db.appliedMigrations()
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		var tableCount int
		if err := db.Conn.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='users'",
		).Scan(&tableCount); err != nil {
			return fmt.Errorf("failed to check existing tables: %w", err)
		}

		if tableCount > 0 {
			for _, file := range sqlFiles {
				if err := db.recordMigration(file); err != nil {
					return fmt.Errorf("failed to bootstrap migration %s: %w", file, err)
				}
			}
			logger.Info().Int("count", len(sqlFiles)).Msg("[database] bootstrapped existing migrations")
			return nil
		}
	}

	for _, file := range sqlFiles {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, file)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file, err)
		}

		if err := db.execStatements(file, string(content)); err != nil {
			return err
		}

		if err := db.recordMigration(file); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", file, err)
		}

		logger.Info().Str("file", file).Msg("[database] migration applied")
	}

	return nil
}

func (db *DB) appliedMigrations() (map[string]bool, error) {
	rows, err := db.Conn.Query("SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func (db *DB) recordMigration(file string) error {
	_, err := db.Conn.Exec("INSERT INTO schema_migrations (filename) VALUES (?)", file)
	return err
}

// execStatements, migration'ı statement-by-statement çalıştırır ve
// recoverable hataları loglayıp atlar.
func (db *DB) execStatements(filename, content string) error {
	for i, stmt := range splitStatements(content) {
		if _, err := db.Conn.Exec(stmt); err != nil {
			if isRecoverable(err) {
				logger.Warn().Str("file", filename).Int("statement", i+1).Err(err).
					Msg("[database] recoverable migration error, statement skipped")
				continue
			}
			return fmt.Errorf("failed to execute migration %s (statement %d): %w", filename, i+1, err)
		}
	}
	return nil
}

func isRecoverable(err error) bool {
	msg := err.Error()
	return slices.ContainsFunc(recoverableErrors, func(p string) bool {
		return strings.Contains(msg, p)
	})
}

// splitStatements, SQL metnini ';' ile böler. Tek tırnaklı literal içindeki
// ';' ve '--' satır yorumları bölmeyi etkilemez.
func splitStatements(sql string) []string {
	var statements []string
	var current strings.Builder
	inString := false

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			statements = append(statements, s)
		}
		current.Reset()
	}

	for i := 0; i < len(sql); i++ {
		ch := sql[i]

		if !inString && ch == '-' && i+1 < len(sql) && sql[i+1] == '-' {
			for i < len(sql) && sql[i] != '\n' {
				i++
			}
			current.WriteByte('\n')
			continue
		}

		if ch == '\'' {
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				current.WriteString("''")
				i++
				continue
			}
			inString = !inString
		}

		if ch == ';' && !inString {
			flush()
			continue
		}

		current.WriteByte(ch)
	}
	flush()

	return statements
}
