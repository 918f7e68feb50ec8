package brokerql_parser

import (
	"strconv"
	"strings"

	"github.com/grafana/regexp"
)

var bareWord = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.\-]*$`)

func (q Query) String() string {
	b := strings.Builder{}
	if q.Selector.Explicit {
		b.WriteString("from entries")
	}
	for _, s := range q.Stages {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(StageString(s))
	}
	return b.String()
}

// StageString renders a single stage in canonical form.
func StageString(s Stage) string {
	switch st := s.(type) {
	case FilterStage:
		return ExprString(st.Expr)
	case SortStage:
		return st.String()
	case LimitStage:
		return "limit " + strconv.FormatUint(st.Count, 10)
	case SelectStage:
		names := make([]string, len(st.Fields))
		for i, f := range st.Fields {
			names[i] = f.String()
		}
		return "select " + strings.Join(names, ", ")
	}
	return ""
}

func (s SortStage) String() string {
	b := strings.Builder{}
	b.WriteString("sort by ")
	for i, k := range s.Spec {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k.Field.String())
		if k.Explicit {
			b.WriteByte(' ')
			b.WriteString(k.Direction.String())
		}
	}
	return b.String()
}

// ExprString renders a filter tree with the minimum parentheses needed to parse back to the same shape.
func ExprString(e FilterExpr) string {
	b := strings.Builder{}
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e FilterExpr) {
	switch n := e.(type) {
	case BinaryExpr:
		writeOperand(b, n.Left, n.Op == BoolAnd && isOr(n.Left))
		b.WriteByte(' ')
		b.WriteString(n.Op.String())
		b.WriteByte(' ')
		right, ok := n.Right.(BinaryExpr)
		writeOperand(b, n.Right, ok && (right.Op == n.Op || n.Op == BoolAnd))
	case NotExpr:
		b.WriteString("NOT ")
		_, ok := n.Expr.(BinaryExpr)
		writeOperand(b, n.Expr, ok)
	case Comparison:
		b.WriteString(n.Field.String())
		b.WriteByte(' ')
		b.WriteString(n.Op.String())
		b.WriteByte(' ')
		b.WriteString(n.Value.String())
	case LabelMatcher:
		b.WriteString("label")
		if n.Negated {
			b.WriteString("!:")
		} else {
			b.WriteByte(':')
		}
		b.WriteString(MaybeQuote(n.LabelName))
	}
}

func writeOperand(b *strings.Builder, e FilterExpr, paren bool) {
	if paren {
		b.WriteByte('(')
	}
	writeExpr(b, e)
	if paren {
		b.WriteByte(')')
	}
}

func isOr(e FilterExpr) bool {
	bin, ok := e.(BinaryExpr)
	return ok && bin.Op == BoolOr
}

func (v Value) String() string {
	switch v.Kind {
	case ValueString:
		if v.Quoted || v.Raw == "" {
			return renderString(v.Str, v.Quoted)
		}
		return v.Raw
	case ValueLabel:
		return renderString(v.Label, v.Quoted)
	case ValueNumber:
		if v.Raw != "" {
			return v.Raw
		}
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case ValueBoolean:
		return strconv.FormatBool(v.Bool)
	case ValueDuration:
		return v.Duration.String()
	}
	return v.Raw
}

func (d Duration) String() string {
	if d.Literal != "" {
		return d.Literal
	}
	unit := "s"
	switch d.Unit {
	case UnitMinutes:
		unit = "m"
	case UnitHours:
		unit = "h"
	case UnitDays:
		unit = "d"
	}
	return strconv.FormatFloat(d.Magnitude, 'f', -1, 64) + unit
}

func renderString(s string, quoted bool) string {
	if quoted {
		return Quote(s)
	}
	return MaybeQuote(s)
}

// MaybeQuote returns s bare when it lexes back as a single non-reserved identifier, quoted otherwise.
func MaybeQuote(s string) string {
	if !bareWord.MatchString(s) {
		return Quote(s)
	}
	for _, w := range reserved {
		if strings.EqualFold(w, s) {
			return Quote(s)
		}
	}
	return s
}
