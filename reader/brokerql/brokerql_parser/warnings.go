package brokerql_parser

import (
	"github.com/metrico/brokerlog/reader/brokerql/shared"
)

// Warnings reports constructs that parse but are probably not what the author meant.
func Warnings(q Query) []shared.Diagnostic {
	var res []shared.Diagnostic
	for _, s := range q.Stages {
		switch st := s.(type) {
		case FilterStage:
			res = exprWarnings(st.Expr, res)
		case LimitStage:
			if st.Count == 0 {
				res = append(res, shared.Warningf(st.Span, "'limit 0' always returns no entries"))
			}
		case SortStage:
			seen := map[Field]bool{}
			for _, k := range st.Spec {
				if seen[k.Field] {
					res = append(res, shared.Warningf(k.Span, "field '%s' is already a sort key; this key has no effect", k.Field))
				}
				seen[k.Field] = true
			}
		case SelectStage:
			seen := map[Field]bool{}
			for i, f := range st.Fields {
				if seen[f] {
					span := st.Span
					if i < len(st.FieldSpans) {
						span = st.FieldSpans[i]
					}
					res = append(res, shared.Warningf(span, "field '%s' is selected more than once", f))
				}
				seen[f] = true
			}
		}
	}
	return res
}

func exprWarnings(e FilterExpr, res []shared.Diagnostic) []shared.Diagnostic {
	switch n := e.(type) {
	case BinaryExpr:
		res = exprWarnings(n.Left, res)
		return exprWarnings(n.Right, res)
	case NotExpr:
		if _, ok := n.Expr.(NotExpr); ok {
			res = append(res, shared.Warningf(n.Span, "double negation cancels out"))
			inner := n.Expr.(NotExpr)
			return exprWarnings(inner.Expr, res)
		}
		return exprWarnings(n.Expr, res)
	}
	return res
}
