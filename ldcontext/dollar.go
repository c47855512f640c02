package ldcontext

import "strings"

// keywords are the JSON-LD keywords that may be spelled with a leading '$'
// in YAML, where '@' is a reserved indicator.
var keywords = map[string]bool{
	"base": true, "container": true, "context": true, "direction": true,
	"graph": true, "id": true, "import": true, "included": true,
	"index": true, "json": true, "language": true, "list": true,
	"nest": true, "none": true, "prefix": true, "propagate": true,
	"protected": true, "reverse": true, "set": true, "type": true,
	"value": true, "version": true, "vocab": true,
}

// ConvertDollarSigns rewrites keys starting with '$' to start with '@', and
// string values spelling a JSON-LD keyword with '$' to the '@' form. Nested
// maps and lists are converted recursively into new values.
//
//	{"rdfs:domain": {"$type": "$id"}} => {"rdfs:domain": {"@type": "@id"}}
func ConvertDollarSigns(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			if strings.HasPrefix(k, "$") {
				k = "@" + k[1:]
			}
			out[k] = ConvertDollarSigns(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = ConvertDollarSigns(e)
		}
		return out
	case string:
		if strings.HasPrefix(v, "$") && keywords[v[1:]] {
			return "@" + v[1:]
		}
		return v
	default:
		return v
	}
}
