package roster

import (
	"strings"

	"github.com/nominas/recibos-dispatcher/internal/validation"
)

// Stats summarizes a roster file for operators before a run.
type Stats struct {
	// Rows is every data row of the file.
	Rows []Row

	// ValidEmails counts rows whose email parses as a bare address.
	ValidEmails int

	// MissingEmails counts rows with an empty email cell.
	MissingEmails int

	// InvalidEmails counts rows with a non-empty but malformed email.
	InvalidEmails int

	// DistinctKeys is the number of entries a run would actually use.
	DistinctKeys int
}

// Total returns the number of data rows.
func (s *Stats) Total() int {
	return len(s.Rows)
}

// Preview reads the roster at path and computes Stats.
func Preview(path string, opts Options) (*Stats, error) {
	rows, err := ReadRows(path, opts)
	if err != nil {
		return nil, err
	}

	r, err := Load(path, opts)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Rows: rows, DistinctKeys: r.Len()}
	for _, row := range rows {
		switch {
		case strings.TrimSpace(row.Email) == "":
			stats.MissingEmails++
		case validation.ValidateEmail(row.Email) != nil:
			stats.InvalidEmails++
		default:
			stats.ValidEmails++
		}
	}

	return stats, nil
}

// Search returns the rows whose name contains query, ignoring case.
func (s *Stats) Search(query string) []Row {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return s.Rows
	}

	var out []Row
	for _, row := range s.Rows {
		if strings.Contains(strings.ToLower(row.Name), q) {
			out = append(out, row)
		}
	}
	return out
}
