// Package octa provides the namespaces and terms used by the octiron graph.
//
// Documentation pages are identified by IRIs in the local: scheme, e.g. the
// file docs/posts/hello.md becomes local:posts/hello.md. Everything octiron
// derives about a page (its type, title, ordering position, URL) is expressed
// with terms from the octa namespace:
//
//	local:posts/hello.md  rdf:type        octa:Page .
//	local:posts/hello.md  octa:isChildOf  local:posts/ .
//	local:posts/          rdf:type        octa:Directory .
//
// # Namespaces
//
// DefaultNamespaces returns the prefix table bound into a fresh graph and
// used for PREFIX-less queries. It is a value, not shared state: callers that
// need extra prefixes copy and extend it.
package octa
