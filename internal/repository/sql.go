package repository

import (
	"regexp"
	"strings"

	apperrors "github.com/jmehdipour/crm-analytics/internal/errors"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// ident backquotes a schema, table or column name. Names come from FIRMS_STG
// and frames, so anything outside the identifier alphabet is rejected.
func ident(name string) (string, error) {
	if !identRe.MatchString(name) {
		return "", apperrors.SchemaMismatch("invalid SQL identifier %q", name)
	}
	return "`" + name + "`", nil
}

func qualified(schema, table string) (string, error) {
	s, err := ident(schema)
	if err != nil {
		return "", err
	}
	t, err := ident(table)
	if err != nil {
		return "", err
	}
	return s + "." + t, nil
}

// insertSQL builds a multi-row INSERT for rows rows of columns. rows == 0
// leaves the VALUES clause off, the form ClickHouse prepares for batches.
func insertSQL(target string, columns []string, rows int) (string, error) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(target)
	b.WriteString(" (")
	for i, c := range columns {
		q, err := ident(c)
		if err != nil {
			return "", err
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(q)
	}
	b.WriteString(")")
	if rows == 0 {
		return b.String(), nil
	}
	b.WriteString(" VALUES ")

	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ") + ")"
	for i := 0; i < rows; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(tuple)
	}
	return b.String(), nil
}

// batches splits [0,n) into consecutive [lo,hi) ranges of at most size rows.
func batches(n, size int) [][2]int {
	if size <= 0 {
		size = n
	}
	var out [][2]int
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}
