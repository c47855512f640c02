package sparql

import "github.com/c360studio/octiron/rdf"

// Form is the shape of a query result.
type Form int

// Query forms.
const (
	FormSelect Form = iota
	FormAsk
	FormConstruct
)

func (f Form) String() string {
	switch f {
	case FormAsk:
		return "ASK"
	case FormConstruct:
		return "CONSTRUCT"
	default:
		return "SELECT"
	}
}

// node is a position in a triple pattern: either a variable or a constant.
type node struct {
	variable string
	term     rdf.Term
}

func (n node) isVar() bool { return n.variable != "" }

type triplePattern struct {
	s, p, o node
}

type group struct {
	patterns  []triplePattern
	optionals []*group
	filters   []expr
}

type orderKey struct {
	expr expr
	desc bool
}

type query struct {
	form     Form
	distinct bool
	vars     []string // nil means SELECT *
	template []triplePattern
	where    *group
	orderBy  []orderKey
	limit    int
	offset   int
}

// updateOp is one operation of an update request. A nil where clause marks
// INSERT DATA / DELETE DATA.
type updateOp struct {
	deletes []triplePattern
	inserts []triplePattern
	where   *group
}
