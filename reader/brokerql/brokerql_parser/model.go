package brokerql_parser

import (
	"time"

	"github.com/metrico/brokerlog/reader/brokerql/shared"
)

type ValueKind uint8

const (
	ValueString ValueKind = iota + 1
	ValueNumber
	ValueBoolean
	ValueDuration
	ValueLabel
)

func (k ValueKind) String() string {
	switch k {
	case ValueString:
		return "string"
	case ValueNumber:
		return "number"
	case ValueBoolean:
		return "boolean"
	case ValueDuration:
		return "duration"
	case ValueLabel:
		return "label"
	}
	return "unknown"
}

type DurationUnit uint8

const (
	UnitSeconds DurationUnit = iota + 1
	UnitMinutes
	UnitHours
	UnitDays
)

func (u DurationUnit) Std() time.Duration {
	switch u {
	case UnitMinutes:
		return time.Minute
	case UnitHours:
		return time.Hour
	case UnitDays:
		return 24 * time.Hour
	}
	return time.Second
}

// Duration keeps the unit the author wrote; it is normalized only by Std.
type Duration struct {
	Magnitude float64
	Unit      DurationUnit
	Literal   string
}

func (d Duration) Std() time.Duration {
	return time.Duration(d.Magnitude * float64(d.Unit.Std()))
}

// Value is the right-hand side of a comparison. Only the member matching Kind is set.
type Value struct {
	Kind     ValueKind
	Str      string
	Num      float64
	Bool     bool
	Duration Duration
	Label    string
	// Quoted is set for values written as string literals.
	Quoted bool
	Raw    string
	Span   shared.Span
}

// FilterExpr is a boolean filter tree node: Comparison, LabelMatcher, BinaryExpr or NotExpr.
// Nodes are stored by value so a tree can be shared without being mutated.
type FilterExpr interface {
	filterExpr()
	GetSpan() shared.Span
}

type BoolOp uint8

const (
	BoolAnd BoolOp = iota + 1
	BoolOr
)

func (o BoolOp) String() string {
	if o == BoolOr {
		return "OR"
	}
	return "AND"
}

type BinaryExpr struct {
	Op    BoolOp
	Left  FilterExpr
	Right FilterExpr
	Span  shared.Span
}

func (BinaryExpr) filterExpr()            {}
func (b BinaryExpr) GetSpan() shared.Span { return b.Span }

type NotExpr struct {
	Expr FilterExpr
	Span shared.Span
}

func (NotExpr) filterExpr()            {}
func (n NotExpr) GetSpan() shared.Span { return n.Span }

type Comparison struct {
	Field     Field
	FieldSpan shared.Span
	Op        MatchOp
	OpSpan    shared.Span
	Value     Value
}

func (Comparison) filterExpr() {}
func (c Comparison) GetSpan() shared.Span {
	return c.FieldSpan.Cover(c.Value.Span)
}

// LabelMatcher tests label-set membership: label:NAME, or label!:NAME when Negated.
type LabelMatcher struct {
	LabelName string
	Op        MatchOp
	Negated   bool
	Span      shared.Span
}

func (LabelMatcher) filterExpr()            {}
func (l LabelMatcher) GetSpan() shared.Span { return l.Span }

type SortDirection uint8

const (
	Ascending SortDirection = iota + 1
	Descending
)

func (d SortDirection) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

type SortKey struct {
	Field     Field
	Direction SortDirection
	// Explicit is false when the direction was defaulted.
	Explicit bool
	Span     shared.Span
}

// SortSpec orders by the first key; later keys break ties.
type SortSpec []SortKey

// Stage is one pipeline step: FilterStage, SortStage, LimitStage or SelectStage.
type Stage interface {
	stage()
	GetSpan() shared.Span
}

type FilterStage struct {
	Expr FilterExpr
}

func (FilterStage) stage()                 {}
func (f FilterStage) GetSpan() shared.Span { return f.Expr.GetSpan() }

type SortStage struct {
	Spec SortSpec
	Span shared.Span
}

func (SortStage) stage()                 {}
func (s SortStage) GetSpan() shared.Span { return s.Span }

type LimitStage struct {
	Count uint64
	Span  shared.Span
}

func (LimitStage) stage()                 {}
func (l LimitStage) GetSpan() shared.Span { return l.Span }

type SelectStage struct {
	Fields     []Field
	FieldSpans []shared.Span
	Span       shared.Span
}

func (SelectStage) stage()                 {}
func (s SelectStage) GetSpan() shared.Span { return s.Span }

type Source uint8

const (
	SourceEntries Source = iota
)

func (s Source) String() string {
	return "entries"
}

// Selector names the entry set a query targets. Explicit is false when "from entries" was omitted.
type Selector struct {
	Source   Source
	Explicit bool
	Span     shared.Span
}

type Query struct {
	Selector Selector
	Stages   []Stage
}

// Filter returns the query's filter stage expression, or nil when the query matches everything.
func (q Query) Filter() FilterExpr {
	for _, s := range q.Stages {
		if f, ok := s.(FilterStage); ok {
			return f.Expr
		}
	}
	return nil
}

// Clone returns a copy that shares no mutable memory with q.
func (q Query) Clone() Query {
	res := Query{Selector: q.Selector}
	if q.Stages == nil {
		return res
	}
	res.Stages = make([]Stage, len(q.Stages))
	for i, s := range q.Stages {
		switch st := s.(type) {
		case SortStage:
			st.Spec = append(SortSpec(nil), st.Spec...)
			res.Stages[i] = st
		case SelectStage:
			st.Fields = append([]Field(nil), st.Fields...)
			st.FieldSpans = append([]shared.Span(nil), st.FieldSpans...)
			res.Stages[i] = st
		default:
			res.Stages[i] = s
		}
	}
	return res
}
