// Package store is the thin transactional wrapper over the relational +
// spatial backend described in spec §4.1. It owns connection lifecycle,
// literal escaping, and DDL execution; it is deliberately ignorant of the
// object model above it.
package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
)

// Gateway wraps a single *sqlx.DB connection pool the way
// internal/repository/postgresosm.DB did in the teacher: one struct, one
// pool, one injected logger.
type Gateway struct {
	*sqlx.DB
	logger *zap.Logger
	mu     sync.Mutex
}

// Config is the subset of connection settings the gateway needs; the
// top-level application config embeds this.
type Config struct {
	DSN             string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// New opens the pool and verifies it with a bounded ping, exactly like the
// teacher's postgresosm.New.
func New(cfg Config, logger *zap.Logger) (*Gateway, error) {
	db, err := sqlx.Connect("pgx", cfg.DSN)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to connect to store", err)
	}

	if cfg.MaxConns > 0 {
		db.SetMaxOpenConns(cfg.MaxConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to ping store", err)
	}

	logger.Info("store connected")
	return &Gateway{DB: db, logger: logger}, nil
}

func (g *Gateway) Close() error {
	g.logger.Info("closing store connection")
	return g.DB.Close()
}

func (g *Gateway) Health(ctx context.Context) error {
	return g.PingContext(ctx)
}

// Exec runs a string of one or more semicolon-separated statements
// atomically from the caller's perspective (spec §4.1). Workers submit the
// SQL produced by the raw writer through this single entry point; a mutex
// serialises concurrent callers, one batch at a time, the way spec §5
// requires of the gateway.
func (g *Gateway) Exec(ctx context.Context, sqlText string) error {
	stmts := splitStatements(sqlText)
	if len(stmts) == 0 {
		return nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	tx, err := g.BeginTxx(ctx, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to begin transaction", err)
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			g.logger.Error("store exec failed", zap.String("stmt", truncate(stmt, 200)), zap.Error(err))
			return pkgerrors.Wrap(pkgerrors.StoreFailure, "statement failed", err).
				WithDetails(map[string]interface{}{"stmt": truncate(stmt, 200)})
		}
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to commit transaction", err)
	}
	return nil
}

// Query runs a read-only statement and hands back the *sqlx.Rows for the
// caller to scan; the gateway does not know the caller's row shape.
func (g *Gateway) Query(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	rows, err := g.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.StoreFailure, "query failed", err)
	}
	return rows, nil
}

// Initialize executes every *.sql file under ddlDir in lexical order,
// intended for table/extension creation (spec §4.1, §6 --bootstrap).
func (g *Gateway) Initialize(ctx context.Context, ddlDir string) error {
	return g.runDDL(ctx, ddlDir, func(name string) bool {
		return !strings.Contains(name, "index")
	})
}

// CreateIndexes executes index-creation DDL files, run after a bulk import
// so inserts aren't slowed by index maintenance (spec §6 --bootstrap).
func (g *Gateway) CreateIndexes(ctx context.Context, ddlDir string) error {
	return g.runDDL(ctx, ddlDir, func(name string) bool {
		return strings.Contains(name, "index")
	})
}

func (g *Gateway) runDDL(ctx context.Context, ddlDir string, include func(name string) bool) error {
	entries, err := os.ReadDir(ddlDir)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to list DDL directory", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		if include(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(ddlDir, name)
		contents, err := os.ReadFile(path)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.StoreFailure, "failed to read DDL file "+path, err)
		}
		g.logger.Info("applying DDL", zap.String("file", path))
		if err := g.Exec(ctx, string(contents)); err != nil {
			return err
		}
	}
	return nil
}

// EscapeString escapes a string literal for embedding in SQL text, doubling
// single quotes and backslashes.
func EscapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `''`)
	return r.Replace(s)
}

// EscapeJSON escapes a string for embedding as a JSON string literal inside
// a SQL string literal: backslashes and quotes are escaped twice, once for
// JSON and once for SQL (spec §4.2).
func EscapeJSON(s string) string {
	jsonEscaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
	return EscapeString(jsonEscaped)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// splitStatements splits a semicolon-separated SQL string into individual
// statements, ignoring semicolons inside single-quoted string literals.
func splitStatements(sqlText string) []string {
	var stmts []string
	var cur strings.Builder
	inQuote := false

	runes := []rune(sqlText)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '\'' && (i == 0 || runes[i-1] != '\\'):
			inQuote = !inQuote
			cur.WriteRune(c)
		case c == ';' && !inQuote:
			if s := strings.TrimSpace(cur.String()); s != "" {
				stmts = append(stmts, s)
			}
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		stmts = append(stmts, s)
	}
	return stmts
}
