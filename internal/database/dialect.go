package database

import "strings"

// Dialect expresses text predicates the store cannot rely on the engine for.
// Query builders ask the dialect for a clause instead of branching on which
// database is underneath.
type Dialect interface {
	Name() string
	// CaseInsensitiveContains returns a WHERE fragment matching rows whose
	// column contains value regardless of case, plus its bind arguments.
	CaseInsensitiveContains(column, value string) (string, []any)
}

// SQLiteDialect lower-cases both sides explicitly, the column through the
// registered Unicode lower-case function. SQLite's LIKE and LOWER only fold
// ASCII, so the clause never leans on them.
type SQLiteDialect struct{}

// Name returns the dialect name.
func (SQLiteDialect) Name() string { return "sqlite" }

// CaseInsensitiveContains implements Dialect.
func (SQLiteDialect) CaseInsensitiveContains(column, value string) (string, []any) {
	pattern := "%" + escapeLike(strings.ToLower(value)) + "%"
	return lowerFunc + "(" + column + ") LIKE ? ESCAPE '\\'", []any{pattern}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
