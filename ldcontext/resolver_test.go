package ldcontext

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDeepMerge(t *testing.T) {
	base := map[string]any{"a": 1, "b": map[string]any{"x": 1}}
	overlay := map[string]any{"b": map[string]any{"y": 2}}

	merged := DeepMerge(base, overlay)

	assert.Equal(t, map[string]any{"a": 1, "b": map[string]any{"x": 1, "y": 2}}, merged)
	assert.Equal(t, map[string]any{"x": 1}, base["b"], "base must not be mutated")
	assert.Equal(t, map[string]any{"y": 2}, overlay["b"], "overlay must not be mutated")
}

func TestDeepMerge_ScalarReplacesMapping(t *testing.T) {
	merged := DeepMerge(
		map[string]any{"k": map[string]any{"x": 1}, "list": []any{1, 2}},
		map[string]any{"k": "scalar", "list": []any{3}},
	)
	assert.Equal(t, map[string]any{"k": "scalar", "list": []any{3}}, merged)
}

func TestConvertDollarSigns(t *testing.T) {
	in := map[string]any{
		"rdfs:domain": map[string]any{"$type": "$id"},
		"price":       "$5",
		"items":       []any{map[string]any{"$id": "x"}},
	}
	out := ConvertDollarSigns(in)

	assert.Equal(t, map[string]any{
		"rdfs:domain": map[string]any{"@type": "@id"},
		"price":       "$5",
		"items":       []any{map[string]any{"@id": "x"}},
	}, out)
	assert.Equal(t, map[string]any{"$type": "$id"}, in["rdfs:domain"])
}

func TestFindContextFiles(t *testing.T) {
	tmp := t.TempDir()
	docs := filepath.Join(tmp, "docs")
	writeFile(t, filepath.Join(tmp, "context.yaml"), "")
	writeFile(t, filepath.Join(docs, "context.yaml"), "")
	writeFile(t, filepath.Join(docs, "posts", "context.json"), "{}")
	writeFile(t, filepath.Join(docs, "posts", "context.yaml"), "")

	r, err := NewResolver(docs, 0)
	require.NoError(t, err)

	tests := []struct {
		name string
		dir  string
		want []string
	}{
		{"root", docs, []string{filepath.Join(docs, "context.yaml")}},
		{"missing subdirectory", filepath.Join(docs, "about"), []string{filepath.Join(docs, "context.yaml")}},
		{"nested", filepath.Join(docs, "posts", "daily"), []string{
			filepath.Join(docs, "posts", "context.json"),
			filepath.Join(docs, "posts", "context.yaml"),
			filepath.Join(docs, "context.yaml"),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.FindContextFiles(tt.dir)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindContextFiles_OutsideRoot(t *testing.T) {
	tmp := t.TempDir()
	docs := filepath.Join(tmp, "docs")
	require.NoError(t, os.MkdirAll(docs, 0o755))
	writeFile(t, filepath.Join(tmp, "context.yaml"), "")

	r, err := NewResolver(docs, 0)
	require.NoError(t, err)

	_, err = r.FindContextFiles(tmp)
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = r.Resolve(filepath.Join(tmp, "elsewhere"))
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestResolve_InheritsAndOverrides(t *testing.T) {
	docs := t.TempDir()
	writeFile(t, filepath.Join(docs, "context.yaml"), `
$vocab: https://example.org/
author:
  $id: schema:author
  $type: $id
`)
	writeFile(t, filepath.Join(docs, "posts", "context.json"), `{
  "$vocab": "https://blog.example.org/",
  "author": {"@container": "@set"}
}`)

	r, err := NewResolver(docs, 0)
	require.NoError(t, err)

	root, err := r.Resolve(docs)
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/", root["@vocab"])
	assert.Equal(t, "local:", root["@base"])
	assert.Equal(t, "rdfs:label", root["label"])

	posts, err := r.Resolve(filepath.Join(docs, "posts"))
	require.NoError(t, err)
	assert.Equal(t, "https://blog.example.org/", posts["@vocab"])
	assert.Equal(t, map[string]any{
		"@id":        "schema:author",
		"@type":      "@id",
		"@container": "@set",
	}, posts["author"])
}

func TestResolve_MemoizedUntilInvalidated(t *testing.T) {
	docs := t.TempDir()
	ctxFile := filepath.Join(docs, "context.yaml")
	writeFile(t, ctxFile, "$vocab: https://one.example/\n")

	r, err := NewResolver(docs, 4)
	require.NoError(t, err)

	ctx, err := r.Resolve(docs)
	require.NoError(t, err)
	assert.Equal(t, "https://one.example/", ctx["@vocab"])

	writeFile(t, ctxFile, "$vocab: https://two.example/\n")
	ctx, err = r.Resolve(docs)
	require.NoError(t, err)
	assert.Equal(t, "https://one.example/", ctx["@vocab"])

	r.Invalidate()
	ctx, err = r.Resolve(docs)
	require.NoError(t, err)
	assert.Equal(t, "https://two.example/", ctx["@vocab"])
}

func TestResolve_MalformedFile(t *testing.T) {
	docs := t.TempDir()
	bad := filepath.Join(docs, "context.json")
	writeFile(t, bad, "{not json")

	r, err := NewResolver(docs, 0)
	require.NoError(t, err)

	_, err = r.Resolve(filepath.Join(docs, "sub"))
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, bad, parseErr.Path)
}

func TestIsContextFile(t *testing.T) {
	assert.True(t, IsContextFile("docs/posts/context.yaml"))
	assert.True(t, IsContextFile("context.json"))
	assert.False(t, IsContextFile("docs/context.yml"))
	assert.False(t, IsContextFile("docs/index.md"))
}
