package brokerql_parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grafana/regexp"
	"github.com/metrico/brokerlog/reader/brokerql/shared"
)

// Clause keywords in canonical order.
var clauses = []string{"sort", "limit", "select"}

var reserved = []string{"AND", "OR", "NOT", "sort", "limit", "select"}

func clauseRank(word string) int {
	for i, c := range clauses {
		if c == word {
			return i + 1
		}
	}
	return 0
}

// ParseQuery tokenizes and parses a full query.
func ParseQuery(text string) (Query, error) {
	return ParseQueryTokens(Tokenize(text))
}

// ParseFilter tokenizes and parses a bare filter expression.
func ParseFilter(text string) (FilterExpr, error) {
	return ParseFilterTokens(Tokenize(text))
}

// ParseQueryTokens parses a token stream produced by Tokenize. On failure the
// error is a *shared.Diagnostic and no partial query is returned.
func ParseQueryTokens(toks []Token) (Query, error) {
	p := newParser(toks, false)
	q, err := p.parseQuery()
	if err != nil {
		return Query{}, err
	}
	return q, nil
}

// ParseFilterTokens parses only the boolean filter grammar; pipeline clauses are errors.
func ParseFilterTokens(toks []Token) (FilterExpr, error) {
	p := newParser(toks, true)
	if p.cur().Kind == TokenEOF {
		return nil, p.errorAt(p.pos, shared.KindSyntax, "expected a filter expression")
	}
	expr, err := p.parseOr("")
	if err != nil {
		return nil, err
	}
	if err := p.parseEnd(); err != nil {
		return nil, err
	}
	return expr, nil
}

type parser struct {
	toks       []Token
	pos        int
	filterOnly bool
	expected   []Expectation
	errIndex   int
}

func newParser(toks []Token, filterOnly bool) *parser {
	if len(toks) == 0 || toks[len(toks)-1].Kind != TokenEOF {
		end := lastEnd(toks)
		toks = append(append([]Token(nil), toks...), Token{Kind: TokenEOF, Span: shared.NewSpan(end, end)})
	}
	return &parser{toks: toks, filterOnly: filterOnly}
}

func (p *parser) cur() Token {
	return p.toks[p.pos]
}

func (p *parser) advance() {
	if p.toks[p.pos].Kind != TokenEOF {
		p.pos++
	}
	p.expected = p.expected[:0]
}

func (p *parser) expect(e Expectation) {
	for _, x := range p.expected {
		if x == e {
			return
		}
	}
	p.expected = append(p.expected, e)
}

func (p *parser) atKeyword(word string) bool {
	p.expect(Expectation{Kind: ExpectKeyword, Word: word})
	return p.cur().Is(word)
}

func (p *parser) atPunct(punct string) bool {
	p.expect(Expectation{Kind: ExpectPunct, Word: punct})
	return p.cur().IsPunct(punct)
}

func (p *parser) isReserved(tok Token) bool {
	for _, w := range reserved {
		if tok.Is(w) {
			return true
		}
	}
	return false
}

func (p *parser) errorAt(idx int, kind shared.DiagnosticKind, format string, args ...any) error {
	p.errIndex = idx
	return shared.Errorf(kind, p.toks[idx].Span, format, args...)
}

// unexpected reports the current token where `what` was required.
func (p *parser) unexpected(what string) error {
	tok := p.cur()
	switch tok.Kind {
	case TokenError:
		return p.lexError()
	case TokenEOF:
		return p.errorAt(p.pos, shared.KindSyntax, "expected %s", what)
	}
	return p.errorAt(p.pos, shared.KindSyntax, "expected %s, found %s", what, describe(tok))
}

func (p *parser) lexError() error {
	tok := p.cur()
	switch tok.Problem {
	case ProblemUnterminatedString:
		return p.errorAt(p.pos, shared.KindLex, "unterminated string literal")
	case ProblemBadDurationUnit:
		unit := strings.TrimLeft(tok.Text, "0123456789.")
		return p.errorAt(p.pos, shared.KindLex, "invalid duration unit '%s' in '%s'; use s, m, h or d", unit, tok.Text)
	}
	return p.errorAt(p.pos, shared.KindLex, "unexpected character %s", strconv.Quote(tok.Text))
}

func isPipelineToken(tok Token) bool {
	return tok.IsPunct("|") || tok.Kind == TokenIdent && clauseRank(strings.ToLower(tok.Text)) > 0
}

func (p *parser) notInFilter() error {
	tok := p.cur()
	if tok.IsPunct("|") {
		return p.errorAt(p.pos, shared.KindSyntax, "pipeline delimiter '|' is not allowed in a filter expression")
	}
	return p.errorAt(p.pos, shared.KindSyntax, "'%s' clause is not allowed in a filter expression", strings.ToLower(tok.Text))
}

func describe(tok Token) string {
	switch tok.Kind {
	case TokenEOF:
		return "end of query"
	case TokenString:
		return tok.Text
	}
	return "'" + tok.Text + "'"
}

func (p *parser) parseQuery() (Query, error) {
	q := Query{Selector: Selector{Source: SourceEntries}}
	if p.atKeyword("from") {
		sel, err := p.parseSelector()
		if err != nil {
			return Query{}, err
		}
		q.Selector = sel
	}
	if p.startsFilter() {
		expr, err := p.parseOr("")
		if err != nil {
			return Query{}, err
		}
		q.Stages = append(q.Stages, FilterStage{Expr: expr})
	}
	stages, err := p.parseStages()
	if err != nil {
		return Query{}, err
	}
	q.Stages = append(q.Stages, stages...)
	if err := p.parseEnd(); err != nil {
		return Query{}, err
	}
	return q, nil
}

func (p *parser) parseEnd() error {
	p.expect(Expectation{Kind: ExpectEnd})
	tok := p.cur()
	switch {
	case tok.Kind == TokenEOF:
		return nil
	case tok.Kind == TokenError:
		return p.lexError()
	case p.filterOnly && isPipelineToken(tok):
		return p.notInFilter()
	}
	return p.errorAt(p.pos, shared.KindSyntax, "unexpected token %s after end of query", describe(tok))
}

func (p *parser) parseSelector() (Selector, error) {
	from := p.cur()
	p.advance()
	p.expect(Expectation{Kind: ExpectKeyword, Word: "entries"})
	src := p.cur()
	if src.Kind != TokenIdent {
		return Selector{}, p.unexpected("a source after 'from'")
	}
	if !src.Is("entries") {
		return Selector{}, p.errorAt(p.pos, shared.KindSemantic, "unknown source '%s'; only 'entries' can be queried", src.Text)
	}
	p.advance()
	if p.atPunct("|") {
		p.advance()
	}
	return Selector{Source: SourceEntries, Explicit: true, Span: from.Span.Cover(src.Span)}, nil
}

// startsFilter records what may open a filter and reports whether the current token does.
func (p *parser) startsFilter() bool {
	p.expect(Expectation{Kind: ExpectField})
	p.expect(Expectation{Kind: ExpectKeyword, Word: "NOT"})
	p.expect(Expectation{Kind: ExpectKeyword, Word: "label"})
	p.expect(Expectation{Kind: ExpectPunct, Word: "("})
	tok := p.cur()
	return tok.Kind != TokenEOF && !isPipelineToken(tok)
}

func (p *parser) parseStages() ([]Stage, error) {
	var res []Stage
	last := 0
	lastWord := ""
	for {
		delim := false
		if p.atPunct("|") {
			p.advance()
			delim = true
		}
		word := ""
		for _, c := range clauses {
			if clauseRank(c) > last {
				p.expect(Expectation{Kind: ExpectKeyword, Word: c})
			}
			if p.cur().Is(c) {
				word = c
			}
		}
		if word == "" {
			if delim {
				return nil, p.unexpected("'sort', 'limit' or 'select' after '|'")
			}
			return res, nil
		}
		rank := clauseRank(word)
		if rank == last {
			return nil, p.errorAt(p.pos, shared.KindSyntax, "duplicate '%s' clause", word)
		}
		if rank < last {
			return nil, p.errorAt(p.pos, shared.KindSyntax, "'%s' clause must come before '%s'", word, lastWord)
		}
		var (
			stage Stage
			err   error
		)
		switch word {
		case "sort":
			stage, err = p.parseSort()
		case "limit":
			stage, err = p.parseLimit()
		case "select":
			stage, err = p.parseSelect()
		}
		if err != nil {
			return nil, err
		}
		res = append(res, stage)
		last, lastWord = rank, word
	}
}

func (p *parser) parseSort() (Stage, error) {
	kw := p.cur()
	p.advance()
	if !p.atKeyword("by") {
		return nil, p.unexpected("'by' after 'sort'")
	}
	p.advance()
	stage := SortStage{Span: kw.Span}
	for {
		key, err := p.parseSortKey()
		if err != nil {
			return nil, err
		}
		stage.Spec = append(stage.Spec, key)
		stage.Span = stage.Span.Cover(key.Span)
		if !p.atPunct(",") {
			return stage, nil
		}
		p.advance()
	}
}

func (p *parser) parseSortKey() (SortKey, error) {
	p.expect(Expectation{Kind: ExpectSortField})
	tok := p.cur()
	if tok.Kind != TokenIdent {
		return SortKey{}, p.unexpected("a field to sort by")
	}
	field, ok := LookupField(tok.Text)
	if !ok {
		return SortKey{}, p.errorAt(p.pos, shared.KindSyntax, "unknown field '%s'", tok.Text)
	}
	if !field.Sortable() {
		return SortKey{}, p.errorAt(p.pos, shared.KindSemantic, "field '%s' cannot be used to sort", field)
	}
	p.advance()
	key := SortKey{Field: field, Direction: Ascending, Span: tok.Span}
	asc, desc := p.atKeyword("asc"), p.atKeyword("desc")
	if asc || desc {
		if desc {
			key.Direction = Descending
		}
		key.Explicit = true
		key.Span = key.Span.Cover(p.cur().Span)
		p.advance()
	}
	return key, nil
}

func (p *parser) parseLimit() (Stage, error) {
	kw := p.cur()
	p.advance()
	p.expect(Expectation{Kind: ExpectInteger})
	tok := p.cur()
	if tok.Kind != TokenNumber || strings.Contains(tok.Text, ".") {
		return nil, p.unexpected("a non-negative integer after 'limit'")
	}
	n, err := strconv.ParseUint(tok.Text, 10, 64)
	if err != nil {
		return nil, p.errorAt(p.pos, shared.KindSemantic, "limit %s is too large", tok.Text)
	}
	p.advance()
	return LimitStage{Count: n, Span: kw.Span.Cover(tok.Span)}, nil
}

func (p *parser) parseSelect() (Stage, error) {
	kw := p.cur()
	p.advance()
	stage := SelectStage{Span: kw.Span}
	for {
		p.expect(Expectation{Kind: ExpectField})
		tok := p.cur()
		if tok.Kind != TokenIdent {
			return nil, p.unexpected("a field to select")
		}
		field, ok := LookupField(tok.Text)
		if !ok {
			return nil, p.errorAt(p.pos, shared.KindSyntax, "unknown field '%s'", tok.Text)
		}
		p.advance()
		stage.Fields = append(stage.Fields, field)
		stage.FieldSpans = append(stage.FieldSpans, tok.Span)
		stage.Span = stage.Span.Cover(tok.Span)
		if !p.atPunct(",") {
			return stage, nil
		}
		p.advance()
	}
}

// parseOr handles OR expressions (lowest precedence).
func (p *parser) parseOr(after string) (FilterExpr, error) {
	left, err := p.parseAnd(after)
	if err != nil {
		return nil, err
	}
	for p.atKeyword("OR") {
		p.advance()
		right, err := p.parseAnd("OR")
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: BoolOr, Left: left, Right: right, Span: left.GetSpan().Cover(right.GetSpan())}
	}
	return left, nil
}

func (p *parser) parseAnd(after string) (FilterExpr, error) {
	left, err := p.parseUnary(after)
	if err != nil {
		return nil, err
	}
	for p.atKeyword("AND") {
		p.advance()
		right, err := p.parseUnary("AND")
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: BoolAnd, Left: left, Right: right, Span: left.GetSpan().Cover(right.GetSpan())}
	}
	return left, nil
}

// parseUnary handles NOT, which is right-associative and binds tighter than AND.
func (p *parser) parseUnary(after string) (FilterExpr, error) {
	if p.atKeyword("NOT") {
		kw := p.cur()
		p.advance()
		expr, err := p.parseUnary("NOT")
		if err != nil {
			return nil, err
		}
		return NotExpr{Expr: expr, Span: kw.Span.Cover(expr.GetSpan())}, nil
	}
	return p.parsePrimary(after)
}

func (p *parser) parsePrimary(after string) (FilterExpr, error) {
	p.expect(Expectation{Kind: ExpectField})
	p.expect(Expectation{Kind: ExpectKeyword, Word: "label"})
	isParen := p.atPunct("(")
	tok := p.cur()
	switch {
	case isParen:
		p.advance()
		expr, err := p.parseOr("'('")
		if err != nil {
			return nil, err
		}
		if !p.atPunct(")") {
			return nil, p.unexpected("')' to close '('")
		}
		p.advance()
		return expr, nil
	case tok.Is("label"):
		return p.parseLabelMatcher()
	case tok.Kind == TokenIdent && !p.isReserved(tok):
		field, ok := LookupField(tok.Text)
		if !ok {
			return nil, p.errorAt(p.pos, shared.KindSyntax, "unknown field '%s'", tok.Text)
		}
		return p.parseComparison(field)
	case p.filterOnly && isPipelineToken(tok):
		return nil, p.notInFilter()
	}
	if after == "" {
		return nil, p.unexpected("an expression")
	}
	return nil, p.unexpected("expression after " + after)
}

func (p *parser) parseLabelMatcher() (FilterExpr, error) {
	kw := p.cur()
	p.advance()
	colon, negColon := p.atPunct(":"), p.atPunct("!:")
	if !colon && !negColon {
		return nil, p.unexpected("':' after 'label'")
	}
	p.advance()
	p.expect(Expectation{Kind: ExpectLabelName})
	tok := p.cur()
	name := tok.Text
	switch tok.Kind {
	case TokenIdent:
	case TokenString:
		name = Unquote(tok.Text)
		if name == "" {
			return nil, p.errorAt(p.pos, shared.KindSemantic, "label name cannot be empty")
		}
	default:
		return nil, p.unexpected("a label name after 'label:'")
	}
	p.advance()
	return LabelMatcher{LabelName: name, Op: OpHas, Negated: negColon, Span: kw.Span.Cover(tok.Span)}, nil
}

func (p *parser) parseComparison(field Field) (FilterExpr, error) {
	fieldTok := p.cur()
	p.advance()
	p.expect(Expectation{Kind: ExpectOperator, Field: field})
	opTok := p.cur()
	switch opTok.Kind {
	case TokenOperator:
	case TokenError:
		return nil, p.lexError()
	default:
		return nil, p.unexpected(fmt.Sprintf("a comparison operator after field '%s'", field))
	}
	op, _ := LookupOp(opTok.Text)
	if !IsLegalOp(field, op) {
		return nil, p.errorAt(p.pos, shared.KindSemantic, "operator '%s' cannot be used with field '%s'", op, field)
	}
	p.advance()
	p.expect(Expectation{Kind: ExpectValue, Field: field, Op: op})
	val, err := p.parseValue(field, op)
	if err != nil {
		return nil, err
	}
	return Comparison{Field: field, FieldSpan: fieldTok.Span, Op: op, OpSpan: opTok.Span, Value: val}, nil
}

func (p *parser) parseValue(field Field, op MatchOp) (Value, error) {
	tok := p.cur()
	idx := p.pos
	v := Value{Raw: tok.Text, Span: tok.Span}
	switch {
	case tok.Kind == TokenString:
		v.Kind, v.Str, v.Quoted = ValueString, Unquote(tok.Text), true
	case tok.Kind == TokenNumber:
		v.Kind = ValueNumber
		v.Num, _ = strconv.ParseFloat(tok.Text, 64)
	case tok.Kind == TokenDuration:
		v.Kind, v.Duration = ValueDuration, parseDuration(tok.Text)
	case tok.Kind == TokenIdent && !p.isReserved(tok):
		v.Kind, v.Str = ValueString, tok.Text
		if field.Class() == ClassBoolean && (tok.Is("true") || tok.Is("false")) {
			v.Kind, v.Str, v.Bool = ValueBoolean, "", tok.Is("true")
		}
	case tok.Kind == TokenError:
		return Value{}, p.lexError()
	default:
		return Value{}, p.unexpected(fmt.Sprintf("a value after '%s %s'", field, op))
	}
	if field.Class() == ClassLabelSet && v.Kind == ValueString {
		v.Kind, v.Label, v.Str = ValueLabel, v.Str, ""
	}
	p.advance()
	if !IsLegalValue(field, op, v.Kind) {
		if field.Class() == ClassTime && v.Kind == ValueDuration {
			return Value{}, p.errorAt(idx, shared.KindSemantic,
				"field 'timestamp' with operator '%s' cannot compare against a duration; use 'age %s %s' for relative time",
				op, op, tok.Text)
		}
		return Value{}, p.errorAt(idx, shared.KindSemantic,
			"field '%s' with operator '%s' does not accept a %s value", field, op, v.Kind)
	}
	return v, p.checkValue(idx, field, op, v)
}

// checkValue validates value contents that the value kind alone does not settle.
func (p *parser) checkValue(idx int, field Field, op MatchOp, v Value) error {
	switch {
	case op == OpRegex:
		if _, err := regexp.Compile(v.Str); err != nil {
			return p.errorAt(idx, shared.KindSemantic, "invalid regular expression: %s", err)
		}
	case field.Class() == ClassSeverity:
		if SeverityRank(v.Str) < 0 {
			return p.errorAt(idx, shared.KindSemantic, "unknown severity '%s'; expected one of %s",
				v.Str, strings.Join(Severities, ", "))
		}
	case field.Class() == ClassTime && v.Kind == ValueString:
		if _, ok := ParseTimestamp(v.Str); !ok {
			return p.errorAt(idx, shared.KindSemantic,
				"invalid timestamp %s; expected RFC 3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'", strconv.Quote(v.Str))
		}
	case field.Class() == ClassInteger:
		if strings.Contains(v.Raw, ".") {
			return p.errorAt(idx, shared.KindSemantic, "field '%s' takes an integer, found '%s'", field, v.Raw)
		}
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the timestamp literal forms the grammar allows, in UTC unless an offset is given.
func ParseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseDuration(text string) Duration {
	i := strings.IndexFunc(text, func(r rune) bool { return r != '.' && (r < '0' || r > '9') })
	if i < 0 {
		i = len(text)
	}
	mag, _ := strconv.ParseFloat(text[:i], 64)
	return Duration{Magnitude: mag, Unit: lookupUnit(text[i:]), Literal: text}
}

func lookupUnit(unit string) DurationUnit {
	switch unit {
	case "m", "min", "mins", "minute", "minutes":
		return UnitMinutes
	case "h", "hr", "hrs", "hour", "hours":
		return UnitHours
	case "d", "day", "days":
		return UnitDays
	}
	return UnitSeconds
}
