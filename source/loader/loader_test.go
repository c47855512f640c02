package loader

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/octiron/ldcontext"
	"github.com/c360studio/octiron/rdf"
	"github.com/c360studio/octiron/vocabulary/octa"
)

var (
	rdfType  = rdf.IRI(octa.RDFType)
	pageType = rdf.IRI(octa.Page)
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func load(t *testing.T, name, localIRI, content string) []rdf.Triple {
	t.Helper()
	path := writeSource(t, name, content)
	stream, err := Load(Select(path), Request{
		Path:     path,
		Context:  ldcontext.DefaultContext(),
		LocalIRI: localIRI,
	})
	require.NoError(t, err)
	return slices.Collect(stream.All())
}

func TestSelect(t *testing.T) {
	tests := []struct {
		path string
		want Kind
	}{
		{"index.md", KindMarkdown},
		{"docs/posts/a.md", KindMarkdown},
		{"/abs/docs/rdfs.ttl", KindTurtle},
		{"data/people.yaml", KindYAML},
		{"data/people.yml", KindYAML},
		{"docs/context.yaml", KindNone},
		{"docs/context.json", KindNone},
		{"docs/image.png", KindNone},
		{"docs/notes.markdown", KindNone},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Select(tt.path))
		})
	}
}

func TestMarkdown_WithID(t *testing.T) {
	page := rdf.IRI("local:test.md")
	got := load(t, "test.md", "local:test.md", "---\n$id: test\ntitle: \"Hey, I am a test!\"\n---\n# Text\n")

	assert.ElementsMatch(t, []rdf.Triple{
		rdf.NewTriple(rdf.IRI("local:test"), rdf.IRI("local:title"), rdf.String("Hey, I am a test!")),
		rdf.NewTriple(rdf.IRI("local:test"), rdf.IRI(octa.SubjectOf), page),
		rdf.NewTriple(page, rdfType, pageType),
	}, got)
	assert.Equal(t, rdf.NewTriple(page, rdfType, pageType), got[len(got)-1])
}

func TestMarkdown_IDNamingThePageAddsNoSubjectOf(t *testing.T) {
	page := rdf.IRI("local:test.md")
	got := load(t, "test.md", "local:test.md", "---\n$id: test.md\ntitle: Same\n---\n")

	assert.ElementsMatch(t, []rdf.Triple{
		rdf.NewTriple(page, rdf.IRI("local:title"), rdf.String("Same")),
		rdf.NewTriple(page, rdfType, pageType),
	}, got)
}

func TestMarkdown_WithoutID(t *testing.T) {
	page := rdf.IRI("local:test.md")
	path := writeSource(t, "test.md", "---\ntitle: \"Hey, I am a test!\"\n---\n")

	stream, err := Load(KindMarkdown, Request{
		Path:      path,
		Context:   ldcontext.DefaultContext(),
		LocalIRI:  "local:test.md",
		GlobalURL: "/test/",
	})
	require.NoError(t, err)

	assert.Equal(t, []rdf.Triple{
		rdf.NewTriple(page, rdf.IRI("local:title"), rdf.String("Hey, I am a test!")),
		rdf.NewTriple(page, rdf.IRI(octa.URL), rdf.String("/test/")),
		rdf.NewTriple(page, rdfType, pageType),
	}, slices.Collect(stream.All()))
}

func TestMarkdown_EmptyFrontmatterYieldsNothing(t *testing.T) {
	for name, content := range map[string]string{
		"no header":    "# Just text\n",
		"empty header": "---\n---\n# Text\n",
	} {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, load(t, "test.md", "local:test.md", content))
		})
	}
}

func TestMarkdown_HeaderMustBeAMapping(t *testing.T) {
	assert.Empty(t, load(t, "c.md", "local:c.md", "---\n# only a comment\n---\nBody\n"))

	path := writeSource(t, "list.md", "---\n- a\n- b\n---\n")
	_, err := Load(KindMarkdown, Request{Path: path, Context: ldcontext.DefaultContext(), LocalIRI: "local:list.md"})
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.ErrorContains(t, err, "list.md")
}

func TestMarkdown_InDocumentContext(t *testing.T) {
	page := rdf.IRI("local:test.md")
	got := load(t, "test.md", "local:test.md", `---
$context:
  title: rdfs:label
title: "Hey, I am a test!"
---
`)
	assert.Equal(t, []rdf.Triple{
		rdf.NewTriple(page, rdf.IRI(octa.RDFSLabel), rdf.String("Hey, I am a test!")),
		rdf.NewTriple(page, rdfType, pageType),
	}, got)
}

func TestMarkdown_IDCoercion(t *testing.T) {
	page := rdf.IRI("local:test.md")
	got := load(t, "test.md", "local:test.md", `---
label: "Hey, I am a test!"
rdfs:domain: UnitTesting
position: -3
---
`)
	assert.ElementsMatch(t, []rdf.Triple{
		rdf.NewTriple(page, rdf.IRI(octa.RDFSLabel), rdf.String("Hey, I am a test!")),
		rdf.NewTriple(page, rdf.IRI("local:position"), rdf.Integer(-3)),
		rdf.NewTriple(page, rdf.IRI(octa.RDFSDomain), rdf.IRI("local:UnitTesting")),
		rdf.NewTriple(page, rdfType, pageType),
	}, got)
	assert.Equal(t, rdf.NewTriple(page, rdfType, pageType), got[len(got)-1])
}

func TestMarkdown_TypesAndValueObjects(t *testing.T) {
	page := rdf.IRI("local:p.md")
	got := load(t, "p.md", "local:p.md", `---
$type: schema:Article
schema:name:
  $value: Bonjour
  $language: fr
schema:dateCreated:
  $value: "2021-01-01"
  $type: xsd:date
tags:
  $list: [a, b]
---
`)
	assert.ElementsMatch(t, []rdf.Triple{
		rdf.NewTriple(page, rdfType, rdf.IRI(octa.Schema+"Article")),
		rdf.NewTriple(page, rdf.IRI(octa.Schema+"name"), rdf.LangString("Bonjour", "fr")),
		rdf.NewTriple(page, rdf.IRI(octa.Schema+"dateCreated"), rdf.Literal("2021-01-01", octa.XSDDate)),
		rdf.NewTriple(page, rdf.IRI("local:tags"), rdf.String("a")),
		rdf.NewTriple(page, rdf.IRI("local:tags"), rdf.String("b")),
		rdf.NewTriple(page, rdfType, pageType),
	}, got)
	assert.Equal(t, rdf.NewTriple(page, rdfType, pageType), got[len(got)-1])
}

func TestMarkdown_MalformedFrontmatter(t *testing.T) {
	path := writeSource(t, "bad.md", "---\ntitle: [unclosed\n---\n")

	_, err := Load(KindMarkdown, Request{Path: path, Context: ldcontext.DefaultContext(), LocalIRI: "local:bad.md"})
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, path, parseErr.Path)
}

func TestYAML_NestedNodesBecomeScopedBlanks(t *testing.T) {
	page := rdf.IRI("local:test.yaml")

	got := load(t, "test.yaml", "local:test.yaml", `
given: spo
infer:
  - rdf:subject: s
  - rdf:predicate: p
  - rdf:object: o
`)
	require.Len(t, got, 8)
	assert.Contains(t, got, rdf.NewTriple(page, rdf.IRI("local:given"), rdf.String("spo")))

	nested := map[rdf.Term]bool{}
	for _, tr := range got {
		if tr.Subject == page && tr.Predicate == rdf.IRI("local:infer") {
			require.True(t, tr.Object.IsBlank())
			assert.True(t, strings.HasPrefix(tr.Object.Value, "local:test.yaml/b"), tr.Object.Value)
			nested[tr.Object] = true
		}
	}
	require.Len(t, nested, 3)

	for _, pred := range []string{"subject", "predicate", "object"} {
		found := false
		for _, tr := range got {
			if tr.Predicate == rdf.IRI(octa.RDF+pred) {
				assert.True(t, nested[tr.Subject], "rdf:%s is stated on an unlinked node", pred)
				found = true
			}
		}
		assert.True(t, found, "missing rdf:%s", pred)
	}
	assert.Equal(t, rdf.NewTriple(page, rdfType, pageType), got[len(got)-1])
}

func TestYAML_LargeIntegersKeepTheirDigits(t *testing.T) {
	got := load(t, "n.yaml", "local:n.yaml", "small: 42\nbig: 9007199254740993\nratio: 0.5\n")

	page := rdf.IRI("local:n.yaml")
	assert.Contains(t, got, rdf.NewTriple(page, rdf.IRI("local:small"), rdf.Integer(42)))
	assert.Contains(t, got, rdf.NewTriple(page, rdf.IRI("local:big"), rdf.Integer(9007199254740993)))

	var ratio rdf.Term
	for _, tr := range got {
		if tr.Predicate == rdf.IRI("local:ratio") {
			ratio = tr.Object
		}
	}
	assert.Equal(t, octa.XSDDouble, ratio.Datatype)
	assert.Equal(t, 0.5, ratio.Native())
}

func TestYAML_RemoteContextIsRefused(t *testing.T) {
	path := writeSource(t, "remote.yaml", "$context: https://example.org/context.jsonld\nname: x\n")

	_, err := Load(KindYAML, Request{Path: path, Context: ldcontext.DefaultContext(), LocalIRI: "local:remote.yaml"})
	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestYAML_ListOfNodes(t *testing.T) {
	got := load(t, "list.yaml", "local:list.yaml", `
- $id: "rdf:"
  prefix: rdf
- $id: foo
  publicationDate: 2020-11-16
`)
	assert.Contains(t, got, rdf.NewTriple(rdf.IRI(octa.RDF), rdf.IRI("local:prefix"), rdf.String("rdf")))
	assert.Contains(t, got, rdf.NewTriple(rdf.IRI("local:foo"), rdf.IRI("local:publicationDate"), rdf.String("2020-11-16")))
	assert.Equal(t, rdf.NewTriple(rdf.IRI("local:list.yaml"), rdfType, pageType), got[len(got)-1])
}

func TestYAML_EmptyDocumentYieldsNothing(t *testing.T) {
	assert.Empty(t, load(t, "empty.yaml", "local:empty.yaml", "\n# only a comment\n"))
}

func TestYAML_Malformed(t *testing.T) {
	path := writeSource(t, "bad.yaml", "key: [unclosed\n")

	_, err := Load(KindYAML, Request{Path: path, Context: ldcontext.DefaultContext(), LocalIRI: "local:bad.yaml"})
	var parseErr *ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestTurtle(t *testing.T) {
	got := load(t, "rdfs.ttl", "local:rdfs.ttl", `
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix dc: <http://purl.org/dc/terms/> .

<http://www.w3.org/2000/01/rdf-schema#> dc:title "The RDF Schema vocabulary (RDFS)" .
_:thing rdfs:label "Thing"@en .
`)
	require.Len(t, got, 2)
	assert.Equal(t, rdf.NewTriple(
		rdf.IRI(octa.RDFS), rdf.IRI(octa.DC+"title"), rdf.String("The RDF Schema vocabulary (RDFS)"),
	), got[0])

	blank := got[1].Subject
	assert.True(t, blank.IsBlank())
	assert.True(t, strings.HasPrefix(blank.Value, "local:rdfs.ttl/"))
	assert.Equal(t, rdf.LangString("Thing", "en"), got[1].Object)
}

func TestTurtle_RelativeIRIsResolveAgainstTheFileDirectory(t *testing.T) {
	got := load(t, "rel.ttl", "local:docs/rel.ttl", "<a> <b> <c> .\n")

	assert.Equal(t, []rdf.Triple{
		rdf.NewTriple(rdf.IRI("local:docs/a"), rdf.IRI("local:docs/b"), rdf.IRI("local:docs/c")),
	}, got)
}

func TestTurtle_DeclaredBaseWins(t *testing.T) {
	got := load(t, "rel.ttl", "local:rel.ttl", "@base <https://example.org/> .\n<a> <b> <c> .\n")

	assert.Equal(t, []rdf.Triple{
		rdf.NewTriple(rdf.IRI("https://example.org/a"), rdf.IRI("https://example.org/b"), rdf.IRI("https://example.org/c")),
	}, got)
}

func TestDirectoryIRI(t *testing.T) {
	assert.Equal(t, "local:", directoryIRI("local:a.ttl"))
	assert.Equal(t, "local:docs/", directoryIRI("local:docs/a.ttl"))
}

func TestStream_SinglePass(t *testing.T) {
	path := writeSource(t, "test.md", "---\ntitle: x\n---\n")
	stream, err := Load(KindMarkdown, Request{Path: path, Context: ldcontext.DefaultContext(), LocalIRI: "local:test.md"})
	require.NoError(t, err)

	assert.Equal(t, 2, stream.Len())
	assert.Len(t, slices.Collect(stream.All()), 2)
	assert.Empty(t, slices.Collect(stream.All()))
}

func TestLoad_UnknownKind(t *testing.T) {
	_, err := Load(KindNone, Request{Path: "x.png"})
	assert.Error(t, err)
}
