package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Query is one prep statement read from the queries directory.
type Query struct {
	Name string
	SQL  string
}

// LoadQueries reads every *.sql file of dir/sub in name order.
func LoadQueries(dir, sub string) ([]Query, error) {
	paths, err := filepath.Glob(filepath.Join(dir, sub, "*.sql"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	out := make([]Query, 0, len(paths))
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read query %s: %w", p, err)
		}
		out = append(out, Query{Name: filepath.Base(p), SQL: string(b)})
	}
	return out, nil
}

// Vars fill the placeholders of prep queries.
type Vars struct {
	Schema         string
	ChurnThreshold int
	Start, End     string // YYYYMMDD, may be empty
}

// Render substitutes {SCHEMA_NAME}, {CHURN_THRESHOLD} and the date
// placeholders, and trims the trailing semicolon the driver rejects.
func Render(sql string, v Vars) string {
	r := strings.NewReplacer(
		"{SCHEMA_NAME}", v.Schema,
		"{schema_name}", v.Schema,
		"{CHURN_THRESHOLD}", fmt.Sprint(v.ChurnThreshold),
		"{dt_start}", v.Start,
		"{dt_end}", v.End,
		"{start_dt}", v.Start,
		"{end_dt}", v.End,
	)
	return strings.Trim(r.Replace(sql), " \t\r\n;")
}
