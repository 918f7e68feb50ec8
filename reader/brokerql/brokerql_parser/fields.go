package brokerql_parser

import (
	"strings"
)

// Field is a queryable entry attribute. Adding one is a grammar change.
type Field uint8

const (
	FieldUnknown Field = iota
	FieldTimestamp
	FieldAge
	FieldSeverity
	FieldSubsystem
	FieldMessage
	FieldErlangPid
	FieldNode
	FieldLabels
	FieldID
	FieldMultiline
)

// FieldClass groups fields by the operators and values they accept.
type FieldClass uint8

const (
	ClassTime FieldClass = iota
	ClassAge
	ClassSeverity
	ClassKeyword
	ClassText
	ClassIdentifier
	ClassLabelSet
	ClassInteger
	ClassBoolean
)

type fieldInfo struct {
	name     string
	aliases  []string
	class    FieldClass
	sortable bool
}

var fieldTable = [...]fieldInfo{
	FieldTimestamp: {name: "timestamp", aliases: []string{"ts", "time"}, class: ClassTime, sortable: true},
	FieldAge:       {name: "age", class: ClassAge, sortable: true},
	FieldSeverity:  {name: "severity", aliases: []string{"level", "lvl"}, class: ClassSeverity, sortable: true},
	FieldSubsystem: {name: "subsystem", class: ClassKeyword, sortable: true},
	FieldMessage:   {name: "message", aliases: []string{"msg"}, class: ClassText},
	FieldErlangPid: {name: "erlang_pid", aliases: []string{"pid"}, class: ClassIdentifier, sortable: true},
	FieldNode:      {name: "node", class: ClassKeyword, sortable: true},
	FieldLabels:    {name: "labels", class: ClassLabelSet},
	FieldID:        {name: "id", class: ClassInteger, sortable: true},
	FieldMultiline: {name: "multiline", class: ClassBoolean},
}

// Fields lists every field in declaration order.
var Fields = []Field{
	FieldTimestamp, FieldAge, FieldSeverity, FieldSubsystem, FieldMessage,
	FieldErlangPid, FieldNode, FieldLabels, FieldID, FieldMultiline,
}

var fieldsByName = func() map[string]Field {
	res := make(map[string]Field)
	for _, f := range Fields {
		res[fieldTable[f].name] = f
		for _, a := range fieldTable[f].aliases {
			res[a] = f
		}
	}
	return res
}()

// LookupField resolves a field name or alias, ignoring case.
func LookupField(name string) (Field, bool) {
	f, ok := fieldsByName[strings.ToLower(name)]
	return f, ok
}

func (f Field) String() string {
	if f == FieldUnknown || int(f) >= len(fieldTable) {
		return "unknown"
	}
	return fieldTable[f].name
}

func (f Field) Class() FieldClass {
	return fieldTable[f].class
}

func (f Field) Sortable() bool {
	return fieldTable[f].sortable
}

// MatchOp is a comparison operator.
type MatchOp uint8

const (
	OpEq MatchOp = iota + 1
	OpNeq
	OpContains
	OpNotContains
	OpRegex
	OpLt
	OpLe
	OpGt
	OpGe
	OpHas
)

var opSymbols = [...]string{
	OpEq:          "=",
	OpNeq:         "!=",
	OpContains:    "~",
	OpNotContains: "!~",
	OpRegex:       "=~",
	OpLt:          "<",
	OpLe:          "<=",
	OpGt:          ">",
	OpGe:          ">=",
	OpHas:         ":",
}

// ComparisonOps lists the operators usable in a field comparison, in declaration order.
var ComparisonOps = []MatchOp{OpEq, OpNeq, OpContains, OpNotContains, OpRegex, OpLt, OpLe, OpGt, OpGe}

func LookupOp(symbol string) (MatchOp, bool) {
	for _, op := range ComparisonOps {
		if opSymbols[op] == symbol {
			return op, true
		}
	}
	return 0, false
}

func (op MatchOp) String() string {
	if op == 0 || int(op) >= len(opSymbols) {
		return "?"
	}
	return opSymbols[op]
}

func (op MatchOp) Ordering() bool {
	return op == OpLt || op == OpLe || op == OpGt || op == OpGe
}

var (
	equalityOps = []MatchOp{OpEq, OpNeq}
	orderedOps  = []MatchOp{OpEq, OpNeq, OpLt, OpLe, OpGt, OpGe}
	textOps     = []MatchOp{OpEq, OpNeq, OpContains, OpNotContains, OpRegex}
)

var legalOps = [...][]MatchOp{
	ClassTime:       orderedOps,
	ClassAge:        {OpLt, OpLe, OpGt, OpGe},
	ClassSeverity:   orderedOps,
	ClassKeyword:    textOps,
	ClassText:       textOps,
	ClassIdentifier: equalityOps,
	ClassLabelSet:   {OpContains, OpNotContains},
	ClassInteger:    orderedOps,
	ClassBoolean:    equalityOps,
}

// LegalOps returns the operators a field accepts, in declaration order.
func LegalOps(f Field) []MatchOp {
	return legalOps[f.Class()]
}

func IsLegalOp(f Field, op MatchOp) bool {
	for _, o := range LegalOps(f) {
		if o == op {
			return true
		}
	}
	return false
}

// IsLegalValue reports whether a value kind may follow op on field f.
func IsLegalValue(f Field, op MatchOp, kind ValueKind) bool {
	switch f.Class() {
	case ClassTime:
		return kind == ValueString || kind == ValueNumber
	case ClassAge:
		return kind == ValueDuration
	case ClassSeverity, ClassIdentifier:
		return kind == ValueString
	case ClassKeyword, ClassText:
		return kind == ValueString
	case ClassLabelSet:
		return kind == ValueLabel
	case ClassInteger:
		return kind == ValueNumber
	case ClassBoolean:
		return kind == ValueBoolean
	}
	return false
}

// Severities are the known entry severities, lowest first.
var Severities = []string{"debug", "info", "notice", "warning", "error", "critical"}

func SeverityRank(name string) int {
	for i, s := range Severities {
		if strings.EqualFold(s, name) {
			return i
		}
	}
	return -1
}
