package octa

// Namespace IRIs.
const (
	// Local is the IRI scheme of documentation files and directories.
	Local = "local:"

	// Namespace is the base IRI of octiron terms.
	Namespace = "https://ns.octadocs.io/"

	RDF    = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFS   = "http://www.w3.org/2000/01/rdf-schema#"
	OWL    = "http://www.w3.org/2002/07/owl#"
	XSD    = "http://www.w3.org/2001/XMLSchema#"
	Schema = "https://schema.org/"
	DC     = "http://purl.org/dc/terms/"
)

// Classes.
const (
	// Page is the type of every documentation file that carries metadata.
	Page = Namespace + "Page"

	// Directory is the type of a directory containing ingested files.
	Directory = Namespace + "Directory"
)

// Properties.
const (
	// SubjectOf links an entity to the page that describes it.
	SubjectOf = Namespace + "subjectOf"

	// About is the inverse of SubjectOf, derived by inference.
	About = Namespace + "about"

	// Title is the human readable title of a page.
	Title = Namespace + "title"

	// Position orders a page among its siblings in navigation.
	Position = Namespace + "position"

	// URL is the externally visible URL of a page.
	URL = Namespace + "url"

	// FileName is the base name of the source file.
	FileName = Namespace + "fileName"

	// IsChildOf links a file to its directory and a directory to its parent.
	IsChildOf = Namespace + "isChildOf"
)

// InferenceGraph names the sub-graph holding every inferred fact. It never
// coincides with a file IRI, so invalidating a file leaves it alone.
const InferenceGraph = Namespace + "inference"

// RDF, RDFS and OWL terms used by the loaders and the reasoner.
const (
	RDFType      = RDF + "type"
	RDFFirst     = RDF + "first"
	RDFRest      = RDF + "rest"
	RDFNil       = RDF + "nil"
	RDFLangStr   = RDF + "langString"
	RDFSLabel    = RDFS + "label"
	RDFSComment  = RDFS + "comment"
	RDFSDomain   = RDFS + "domain"
	RDFSRange    = RDFS + "range"
	RDFSSubClass = RDFS + "subClassOf"
	RDFSSubProp  = RDFS + "subPropertyOf"
	RDFSDefined  = RDFS + "isDefinedBy"

	OWLEquivalentClass    = OWL + "equivalentClass"
	OWLEquivalentProperty = OWL + "equivalentProperty"
	OWLInverseOf          = OWL + "inverseOf"
	OWLSymmetricProperty  = OWL + "SymmetricProperty"
	OWLTransitiveProperty = OWL + "TransitiveProperty"
	OWLSameAs             = OWL + "sameAs"
)

// XSD datatypes.
const (
	XSDString   = XSD + "string"
	XSDInteger  = XSD + "integer"
	XSDInt      = XSD + "int"
	XSDLong     = XSD + "long"
	XSDDecimal  = XSD + "decimal"
	XSDDouble   = XSD + "double"
	XSDFloat    = XSD + "float"
	XSDBoolean  = XSD + "boolean"
	XSDDate     = XSD + "date"
	XSDDateTime = XSD + "dateTime"
)

// DefaultNamespaces returns the prefix table of a fresh graph.
func DefaultNamespaces() map[string]string {
	return map[string]string{
		"rdf":    RDF,
		"rdfs":   RDFS,
		"owl":    OWL,
		"xsd":    XSD,
		"schema": Schema,
		"dc":     DC,
		"octa":   Namespace,
		"local":  Local,
	}
}
