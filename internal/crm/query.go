package crm

import (
	"net/url"
	"strconv"
	"strings"
)

// Filter operators understood by the item store.
const (
	OpEq  = "_eq"
	OpNeq = "_neq"
	OpIn  = "_in"
)

// Filter is one filter[path...][op]=value condition. Path segments address
// nested relations, e.g. ["proposal", "id"].
type Filter struct {
	Path  []string
	Op    string
	Value string
}

// Eq builds an equality filter. Dotted fields address relations.
func Eq(field, value string) Filter {
	return Filter{Path: strings.Split(field, "."), Op: OpEq, Value: value}
}

// In builds a membership filter over ids or values.
func In(field string, values []string) Filter {
	return Filter{Path: strings.Split(field, "."), Op: OpIn, Value: strings.Join(values, ",")}
}

// Query describes a list request.
type Query struct {
	Filters []Filter
	Fields  []string
	Sort    []string
	Limit   int
	Page    int
}

// NewestFirst is the sort used by every "latest record" lookup.
const NewestFirst = "-date_created"

// Values renders the query string.
func (q Query) Values() url.Values {
	values := url.Values{}
	for _, f := range q.Filters {
		var key strings.Builder
		key.WriteString("filter")
		for _, segment := range f.Path {
			key.WriteString("[" + segment + "]")
		}
		op := f.Op
		if op == "" {
			op = OpEq
		}
		key.WriteString("[" + op + "]")
		values.Add(key.String(), f.Value)
	}
	if len(q.Fields) > 0 {
		values.Set("fields", strings.Join(q.Fields, ","))
	}
	if len(q.Sort) > 0 {
		values.Set("sort", strings.Join(q.Sort, ","))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		values.Set("page", strconv.Itoa(q.Page))
	}
	return values
}
