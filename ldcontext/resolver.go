package ldcontext

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"
)

// FileNames lists the context file names looked up in each directory, in
// lookup order. Files with these names define contexts and are never
// loaded as data.
var FileNames = []string{"context.json", "context.yaml"}

// DefaultCacheSize bounds the number of memoized directory contexts.
const DefaultCacheSize = 256

// IsContextFile reports whether path names a context definition file.
func IsContextFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range FileNames {
		if base == name {
			return true
		}
	}
	return false
}

// Resolver computes the effective context of directories below a root.
// Results are memoized until Invalidate is called.
type Resolver struct {
	root  string
	cache *lru.Cache[string, Context]
}

// NewResolver creates a resolver for the tree rooted at root. A cacheSize
// of zero or less selects DefaultCacheSize.
func NewResolver(root string, cacheSize int) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", root, err)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, Context](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create context cache: %w", err)
	}
	return &Resolver{root: abs, cache: cache}, nil
}

// Root returns the absolute documentation root.
func (r *Resolver) Root() string {
	return r.root
}

// FindContextFiles lists the context files relevant to dir, deepest
// directory first, stopping at the root. Within a directory context.json
// precedes context.yaml. The directory itself need not exist.
func (r *Resolver) FindContextFiles(dir string) ([]string, error) {
	abs, err := r.within(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for current := abs; ; current = filepath.Dir(current) {
		for _, name := range FileNames {
			path := filepath.Join(current, name)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				files = append(files, path)
			}
		}
		if current == r.root {
			return files, nil
		}
	}
}

// Resolve returns the effective context of dir: the default context
// deep-merged with every context file from the root down to dir. The
// returned map is shared with the memo and must not be modified.
func (r *Resolver) Resolve(dir string) (Context, error) {
	abs, err := r.within(dir)
	if err != nil {
		return nil, err
	}
	if ctx, ok := r.cache.Get(abs); ok {
		return ctx, nil
	}

	files, err := r.FindContextFiles(abs)
	if err != nil {
		return nil, err
	}

	ctx := DefaultContext()
	for i := len(files) - 1; i >= 0; i-- {
		overlay, err := ReadFile(files[i])
		if err != nil {
			return nil, err
		}
		ctx = DeepMerge(ctx, overlay)
	}

	r.cache.Add(abs, ctx)
	return ctx, nil
}

// Invalidate drops every memoized context. Call it after a context file
// changes.
func (r *Resolver) Invalidate() {
	r.cache.Purge()
}

func (r *Resolver) within(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve directory %s: %w", dir, err)
	}
	rel, err := filepath.Rel(r.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, dir)
	}
	return abs, nil
}

// ReadFile decodes a context file. JSON and YAML files both accept the
// '$' spelling of keywords. An empty file is an empty context. A document
// wrapping its definitions in a top-level @context key is unwrapped.
func ReadFile(path string) (Context, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read context %s: %w", path, err)
	}

	var raw map[string]any
	if len(bytes.TrimSpace(data)) > 0 {
		if filepath.Ext(path) == ".json" {
			err = json.Unmarshal(data, &raw)
		} else {
			err = yaml.Unmarshal(data, &raw)
		}
		if err != nil {
			return nil, &ParseError{Path: path, Err: err}
		}
	}

	ctx, _ := ConvertDollarSigns(raw).(map[string]any)
	if ctx == nil {
		return Context{}, nil
	}
	if inner, ok := ctx["@context"].(map[string]any); ok {
		return inner, nil
	}
	return ctx, nil
}
