package brokerql_parser

import (
	"github.com/metrico/brokerlog/reader/brokerql/shared"
)

type ExpectKind uint8

const (
	ExpectField ExpectKind = iota + 1
	ExpectSortField
	ExpectKeyword
	ExpectPunct
	ExpectOperator
	ExpectValue
	ExpectLabelName
	ExpectInteger
	ExpectEnd
)

// Expectation is one kind of token the grammar accepts at a position.
// Word is set for keywords and punctuation, Field and Op give the context
// of operator and value expectations.
type Expectation struct {
	Kind  ExpectKind
	Word  string
	Field Field
	Op    MatchOp
}

// Expected returns what the query grammar accepts after the token prefix toks
// (which must end with a TokenEOF). When the prefix itself is malformed the
// continuations at the last position that parsed cleanly are returned instead.
func Expected(toks []Token) []Expectation {
	if len(toks) == 0 || toks[len(toks)-1].Kind != TokenEOF {
		toks = append(append([]Token(nil), toks...), Token{Kind: TokenEOF, Span: shared.NewSpan(lastEnd(toks), lastEnd(toks))})
	}
	for {
		p := newParser(toks, false)
		_, err := p.parseQuery()
		if err == nil || p.errIndex >= len(toks)-1 {
			return append([]Expectation(nil), p.expected...)
		}
		cut := p.errIndex
		start := int(toks[cut].Span.Start)
		toks = append(toks[:cut:cut], Token{Kind: TokenEOF, Span: shared.NewSpan(start, start)})
	}
}
