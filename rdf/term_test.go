package rdf

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/octiron/vocabulary/octa"
)

func TestTermStringRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		term Term
		want string
	}{
		{"iri", IRI("local:test.md"), "<local:test.md>"},
		{"blank", Blank("local:test.yaml/b0"), "_:local:test.yaml/b0"},
		{"plain literal", String("Hey, I am a test!"), `"Hey, I am a test!"`},
		{"escaped literal", String("line\n\"quoted\""), `"line\n\"quoted\""`},
		{"typed literal", Integer(5), `"5"^^<http://www.w3.org/2001/XMLSchema#integer>`},
		{"language literal", LangString("hello", "EN"), `"hello"@en`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.term.String())

			parsed, err := ParseTerm(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.term, parsed)
		})
	}
}

func TestParseTermRejectsGarbage(t *testing.T) {
	for _, s := range []string{"plain", `"unterminated`, `"x"^^xsd:int`} {
		_, err := ParseTerm(s)
		assert.Error(t, err, s)
	}
}

func TestTermNative(t *testing.T) {
	assert.Equal(t, int64(-3), Integer(-3).Native())
	assert.Equal(t, 1.5, Double(1.5).Native())
	assert.Equal(t, true, Boolean(true).Native())
	assert.Equal(t, "text", String("text").Native())
	assert.Equal(t, "local:x", IRI("local:x").Native())
	assert.Equal(t, "abc", Literal("abc", octa.XSDInteger).Native())
}

func TestDate(t *testing.T) {
	day := time.Date(2020, 11, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, String("2020-11-16"), Date(day))

	moment := time.Date(2020, 11, 16, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, String("2020-11-16T10:30:00Z"), Date(moment))
}

func TestTriplesToQuads(t *testing.T) {
	graph := IRI("local:test.md")
	triples := []Triple{
		NewTriple(IRI("local:a"), IRI(octa.RDFType), IRI(octa.Page)),
		NewTriple(IRI("local:b"), IRI(octa.Title), String("B")),
	}

	quads := slices.Collect(TriplesToQuads(slices.Values(triples), graph))

	require.Len(t, quads, 2)
	for i, q := range quads {
		assert.Equal(t, graph, q.Graph)
		assert.Equal(t, triples[i], q.Triple())
	}
}
