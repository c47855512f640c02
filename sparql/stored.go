package sparql

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrQueryNotFound is returned when a stored query file does not exist.
var ErrQueryNotFound = errors.New("stored query not found")

// StoredQueries loads named queries from <Dir>/<name>.sparql.
type StoredQueries struct {
	Dir string
}

// Text returns the text of the named query.
func (s StoredQueries) Text(name string) (string, error) {
	path := filepath.Join(s.Dir, name+".sparql")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrQueryNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("read query %s: %w", name, err)
	}
	return string(data), nil
}

// Run executes the named query with bindings.
func (s StoredQueries) Run(e *Executor, name string, bindings map[string]any) (*Result, error) {
	text, err := s.Text(name)
	if err != nil {
		return nil, err
	}
	res, err := e.Query(text, bindings)
	if err != nil {
		return nil, fmt.Errorf("run query %s: %w", name, err)
	}
	return res, nil
}
