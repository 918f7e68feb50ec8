package brokerql_parser

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bradleyjkemp/cupaloy/v2"
	"github.com/metrico/brokerlog/reader/brokerql/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseDiag(t *testing.T, src string) *shared.Diagnostic {
	t.Helper()
	_, err := ParseQuery(src)
	require.Error(t, err, src)
	d, ok := shared.AsDiagnostic(err)
	require.True(t, ok, src)
	return d
}

func TestParseScenarioQuery(t *testing.T) {
	q, err := ParseQuery(`severity = "warning" AND label:NETWORKING sort by timestamp desc limit 50`)
	require.NoError(t, err)
	require.Len(t, q.Stages, 3)
	assert.False(t, q.Selector.Explicit)
	assert.Equal(t, SourceEntries, q.Selector.Source)

	and, ok := q.Filter().(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, BoolAnd, and.Op)
	cmp := and.Left.(Comparison)
	assert.Equal(t, FieldSeverity, cmp.Field)
	assert.Equal(t, OpEq, cmp.Op)
	assert.Equal(t, "warning", cmp.Value.Str)
	assert.True(t, cmp.Value.Quoted)
	assert.Equal(t, LabelMatcher{LabelName: "NETWORKING", Op: OpHas, Span: shared.NewSpan(25, 41)}, and.Right)

	sort := q.Stages[1].(SortStage)
	require.Len(t, sort.Spec, 1)
	assert.Equal(t, FieldTimestamp, sort.Spec[0].Field)
	assert.Equal(t, Descending, sort.Spec[0].Direction)
	assert.True(t, sort.Spec[0].Explicit)
	assert.Equal(t, uint64(50), q.Stages[2].(LimitStage).Count)
}

func TestParseScenarioDanglingAnd(t *testing.T) {
	src := `severity = "warning" AND`
	d := parseDiag(t, src)
	assert.Equal(t, "expected expression after AND", d.Message)
	assert.Equal(t, shared.NewSpan(len(src), len(src)), d.Span)
	assert.Equal(t, shared.KindSyntax, d.Kind)
	assert.Equal(t, shared.SeverityError, d.Severity)
}

func TestParseScenarioOr(t *testing.T) {
	expr, err := ParseFilter(`message ~ "connection closed" OR message ~ "channel error"`)
	require.NoError(t, err)
	or, ok := expr.(BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, BoolOr, or.Op)
	assert.Equal(t, "connection closed", or.Left.(Comparison).Value.Str)
	assert.Equal(t, OpContains, or.Right.(Comparison).Op)
	assert.Equal(t, "channel error", or.Right.(Comparison).Value.Str)
}

func TestParseScenarioDurationOnTimestamp(t *testing.T) {
	d := parseDiag(t, "timestamp > 5m")
	assert.Equal(t, shared.KindSemantic, d.Kind)
	assert.Equal(t, "5m", d.Span.Text("timestamp > 5m"))
	assert.Contains(t, d.Message, "'timestamp'")
	assert.Contains(t, d.Message, "'>'")
	assert.Contains(t, d.Message, "age > 5m")

	q, err := ParseQuery("age > 5m")
	require.NoError(t, err)
	v := q.Filter().(Comparison).Value
	assert.Equal(t, ValueDuration, v.Kind)
	assert.Equal(t, UnitMinutes, v.Duration.Unit)
	assert.Equal(t, 5*time.Minute, v.Duration.Std())
}

func TestPrecedence(t *testing.T) {
	for src, want := range map[string]string{
		"node = a OR node = b AND node = c":       "node = a OR node = b AND node = c",
		"(node = a OR node = b) AND node = c":     "(node = a OR node = b) AND node = c",
		"NOT node = a AND node = b":               "NOT node = a AND node = b",
		"NOT (node = a AND node = b)":             "NOT (node = a AND node = b)",
		"NOT NOT label:x":                         "NOT NOT label:x",
		"node = a AND (node = b AND node = c)":    "node = a AND (node = b AND node = c)",
		"((node = a))":                            "node = a",
		"node = a and node = b or not node = c":   "node = a AND node = b OR NOT node = c",
	} {
		expr, err := ParseFilter(src)
		require.NoError(t, err, src)
		assert.Equal(t, want, ExprString(expr), src)
	}

	expr, err := ParseFilter("node = a OR node = b AND node = c")
	require.NoError(t, err)
	or := expr.(BinaryExpr)
	assert.Equal(t, BoolOr, or.Op)
	assert.Equal(t, BoolAnd, or.Right.(BinaryExpr).Op)

	expr, err = ParseFilter("node = a AND node = b AND node = c")
	require.NoError(t, err)
	left := expr.(BinaryExpr).Left.(BinaryExpr)
	assert.Equal(t, "node = a AND node = b", ExprString(left))
}

func TestParseSelectorAndStages(t *testing.T) {
	q, err := ParseQuery("from entries | subsystem = queue | sort by severity desc, ts | limit 10 | select timestamp, msg")
	require.NoError(t, err)
	assert.True(t, q.Selector.Explicit)
	require.Len(t, q.Stages, 4)
	assert.IsType(t, FilterStage{}, q.Stages[0])
	sort := q.Stages[1].(SortStage)
	assert.Equal(t, SortSpec{
		{Field: FieldSeverity, Direction: Descending, Explicit: true, Span: sort.Spec[0].Span},
		{Field: FieldTimestamp, Direction: Ascending, Span: sort.Spec[1].Span},
	}, sort.Spec)
	assert.Equal(t, []Field{FieldTimestamp, FieldMessage}, q.Stages[3].(SelectStage).Fields)
	assert.Equal(t, "from entries subsystem = queue sort by severity desc, timestamp limit 10 select timestamp, message", q.String())

	q, err = ParseQuery("limit 5")
	require.NoError(t, err)
	assert.Nil(t, q.Filter())
	assert.Equal(t, []Stage{LimitStage{Count: 5, Span: shared.NewSpan(0, 7)}}, q.Stages)

	q, err = ParseQuery("")
	require.NoError(t, err)
	assert.Empty(t, q.Stages)
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		src  string
		msg  string
		at   string
		kind shared.DiagnosticKind
	}{
		{"severity", "expected a comparison operator after field 'severity'", "", shared.KindSyntax},
		{"severity error", "expected a comparison operator after field 'severity', found 'error'", "error", shared.KindSyntax},
		{"message > 3", "operator '>' cannot be used with field 'message'", ">", shared.KindSemantic},
		{"bogus = 1", "unknown field 'bogus'", "bogus", shared.KindSyntax},
		{"node = a node = b", "unexpected token 'node' after end of query", "node", shared.KindSyntax},
		{"limit 1 limit 2", "duplicate 'limit' clause", "limit", shared.KindSyntax},
		{"limit 1 sort by ts", "'sort' clause must come before 'limit'", "sort", shared.KindSyntax},
		{"select node sort by ts", "'sort' clause must come before 'select'", "sort", shared.KindSyntax},
		{"limit -1", `unexpected character "-"`, "-", shared.KindLex},
		{"limit 1.5", "expected a non-negative integer after 'limit', found '1.5'", "1.5", shared.KindSyntax},
		{"sort by message", "field 'message' cannot be used to sort", "message", shared.KindSemantic},
		{"sort node", "expected 'by' after 'sort', found 'node'", "node", shared.KindSyntax},
		{"(node = a", "expected ')' to close '('", "", shared.KindSyntax},
		{"NOT", "expected expression after NOT", "", shared.KindSyntax},
		{"node = a OR )", "expected expression after OR, found ')'", ")", shared.KindSyntax},
		{`message = "open`, "unterminated string literal", `"open`, shared.KindLex},
		{"age > 5ms", "invalid duration unit 'ms' in '5ms'; use s, m, h or d", "5ms", shared.KindLex},
		{"node = a $", "unexpected character \"$\"", "$", shared.KindLex},
		{"severity = loud", "unknown severity 'loud'; expected one of debug, info, notice, warning, error, critical", "loud", shared.KindSemantic},
		{`timestamp > "yesterday"`, `invalid timestamp "yesterday"; expected RFC 3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'`, `"yesterday"`, shared.KindSemantic},
		{`message =~ "(unclosed"`, "invalid regular expression: error parsing regexp: missing closing ): `(unclosed`", `"(unclosed"`, shared.KindSemantic},
		{"id = 1.5", "field 'id' takes an integer, found '1.5'", "1.5", shared.KindSemantic},
		{"multiline = yes", "field 'multiline' with operator '=' does not accept a string value", "yes", shared.KindSemantic},
		{"age > 5", "field 'age' with operator '>' does not accept a number value", "5", shared.KindSemantic},
		{"from logs", "unknown source 'logs'; only 'entries' can be queried", "logs", shared.KindSemantic},
		{"node = a |", "expected 'sort', 'limit' or 'select' after '|'", "", shared.KindSyntax},
		{`label:""`, "label name cannot be empty", `""`, shared.KindSemantic},
	} {
		d := parseDiag(t, tc.src)
		assert.Equal(t, tc.msg, d.Message, tc.src)
		assert.Equal(t, tc.at, d.Span.Text(tc.src), tc.src)
		assert.Equal(t, tc.kind, d.Kind, tc.src)
	}
}

func TestDiagnosticSpanRelexes(t *testing.T) {
	for _, src := range []string{
		`severity = "warning" AND`,
		"message > 3",
		"limit 1 limit 2",
		`message = "open`,
		"age > 5ms",
		"node = a $",
		"timestamp > 5m",
		"node = a node = b",
		"sort by message",
	} {
		d := parseDiag(t, src)
		want := []Token{{Kind: TokenEOF, Span: shared.NewSpan(int(d.Span.Start), int(d.Span.Start))}}
		for _, tok := range Tokenize(src) {
			if tok.Span == d.Span && tok.Kind != TokenEOF {
				want = []Token{tok}
			}
		}
		relexed := Tokenize(d.Span.Text(src))
		assert.Equal(t, want[0].Kind, relexed[0].Kind, src)
		assert.Equal(t, want[0].Text, relexed[0].Text, src)
		assert.Equal(t, want[0].Problem, relexed[0].Problem, src)
	}
}

func TestOperatorLegality(t *testing.T) {
	values := map[FieldClass]string{
		ClassTime:       `"2024-05-01"`,
		ClassAge:        "5m",
		ClassSeverity:   "error",
		ClassKeyword:    "x",
		ClassText:       `"x"`,
		ClassIdentifier: `"<0.1.0>"`,
		ClassLabelSet:   "tls",
		ClassInteger:    "42",
		ClassBoolean:    "true",
	}
	for _, f := range Fields {
		for _, op := range ComparisonOps {
			src := fmt.Sprintf("%s %s %s", f, op, values[f.Class()])
			_, err := ParseQuery(src)
			if IsLegalOp(f, op) {
				assert.NoError(t, err, src)
				continue
			}
			require.Error(t, err, src)
			d, _ := shared.AsDiagnostic(err)
			assert.Equal(t, shared.KindSemantic, d.Kind, src)
			assert.Equal(t, op.String(), d.Span.Text(src), src)
			assert.Equal(t, fmt.Sprintf("operator '%s' cannot be used with field '%s'", op, f), d.Message, src)
		}
	}
}

func TestFieldAliases(t *testing.T) {
	for alias, f := range map[string]Field{"ts": FieldTimestamp, "TIME": FieldTimestamp, "lvl": FieldSeverity,
		"Level": FieldSeverity, "msg": FieldMessage, "pid": FieldErlangPid, "Severity": FieldSeverity} {
		got, ok := LookupField(alias)
		assert.True(t, ok, alias)
		assert.Equal(t, f, got, alias)
	}
	_, ok := LookupField("label")
	assert.False(t, ok)
}

func TestParseFilterRejectsPipeline(t *testing.T) {
	for src, msg := range map[string]string{
		"node = a sort by ts": "'sort' clause is not allowed in a filter expression",
		"node = a | limit 1":  "pipeline delimiter '|' is not allowed in a filter expression",
		"limit 1":             "'limit' clause is not allowed in a filter expression",
		"":                    "expected a filter expression",
	} {
		_, err := ParseFilter(src)
		require.Error(t, err, src)
		d, _ := shared.AsDiagnostic(err)
		assert.Equal(t, msg, d.Message, src)
	}
}

func stripSpans(e FilterExpr) FilterExpr {
	switch n := e.(type) {
	case BinaryExpr:
		return BinaryExpr{Op: n.Op, Left: stripSpans(n.Left), Right: stripSpans(n.Right)}
	case NotExpr:
		return NotExpr{Expr: stripSpans(n.Expr)}
	case Comparison:
		n.FieldSpan, n.OpSpan, n.Value.Span, n.Value.Raw = shared.Span{}, shared.Span{}, shared.Span{}, ""
		return n
	case LabelMatcher:
		n.Span = shared.Span{}
		return n
	}
	return e
}

var roundTripQueries = []string{
	`severity >= warning AND NOT (subsystem = ra OR subsystem = "mnesia") sort by ts desc limit 10`,
	`from entries | label!:"odd name" OR labels ~ tls AND multiline = false`,
	`message =~ "^closing AMQP connection <\\d+" AND age <= 2.5hours`,
	`erlang_pid = "<0.1234.0>" AND id > 17 AND timestamp < "2024-05-01T10:00:00Z" select id, node`,
	`NOT NOT node != "rabbit@a"`,
	`sort by node, severity asc`,
}

func TestRenderRoundTrip(t *testing.T) {
	for _, src := range roundTripQueries {
		q, err := ParseQuery(src)
		require.NoError(t, err, src)
		again, err := ParseQuery(q.String())
		require.NoError(t, err, q.String())
		assert.Equal(t, q.String(), again.String())
		if q.Filter() != nil {
			assert.Equal(t, stripSpans(q.Filter()), stripSpans(again.Filter()), src)
		}
	}
}

func TestFingerprint(t *testing.T) {
	a, err := ParseQuery("lvl>=error|sort by ts desc")
	require.NoError(t, err)
	b, err := ParseQuery("from entries | severity >= error sort by timestamp desc")
	require.NoError(t, err)
	c, err := ParseQuery("severity >= warning sort by timestamp desc")
	require.NoError(t, err)

	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
	assert.Equal(t, Fingerprint(a), Fingerprint(a.Clone()))
	// the explicit selector is part of the canonical text
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
	assert.Equal(t, Fingerprint(a), Fingerprint(Query{Stages: b.Stages}))
	assert.Regexp(t, "^[0-9a-f]+$", FingerprintString(Fingerprint(a)))
}

func TestFilterOnlyMatchesQuerySubtree(t *testing.T) {
	for _, src := range roundTripQueries {
		q, err := ParseQuery(src)
		if err != nil || q.Filter() == nil {
			continue
		}
		text := ExprString(q.Filter())
		expr, err := ParseFilter(text)
		require.NoError(t, err, text)
		fromQuery, err := ParseQuery(text)
		require.NoError(t, err, text)
		assert.Equal(t, fromQuery.Filter(), expr, text)
	}
}

func TestStageOrderFollowsSource(t *testing.T) {
	q, err := ParseQuery("node = a | sort by id | select id")
	require.NoError(t, err)
	require.Len(t, q.Stages, 3)
	assert.IsType(t, FilterStage{}, q.Stages[0])
	assert.IsType(t, SortStage{}, q.Stages[1])
	assert.IsType(t, SelectStage{}, q.Stages[2])
	for i := 1; i < len(q.Stages); i++ {
		assert.Less(t, q.Stages[i-1].GetSpan().Start, q.Stages[i].GetSpan().Start)
	}
}

func TestWarnings(t *testing.T) {
	src := "NOT NOT node = a sort by id, id limit 0 select node, node"
	q, err := ParseQuery(src)
	require.NoError(t, err)
	var got []string
	for _, w := range Warnings(q) {
		assert.Equal(t, shared.SeverityWarning, w.Severity)
		got = append(got, w.Span.Text(src)+": "+w.Message)
	}
	assert.Equal(t, []string{
		"NOT NOT node = a: double negation cancels out",
		"id: field 'id' is already a sort key; this key has no effect",
		"limit 0: 'limit 0' always returns no entries",
		"node: field 'node' is selected more than once",
	}, got)

	q, _ = ParseQuery("node = a limit 1")
	assert.Empty(t, Warnings(q))
}

func TestCloneIsolation(t *testing.T) {
	q, err := ParseQuery("sort by id select id, node")
	require.NoError(t, err)
	c := q.Clone()
	c.Stages[0].(SortStage).Spec[0].Direction = Descending
	c.Stages[1].(SelectStage).Fields[0] = FieldAge
	assert.Equal(t, Ascending, q.Stages[0].(SortStage).Spec[0].Direction)
	assert.Equal(t, FieldID, q.Stages[1].(SelectStage).Fields[0])
	assert.Equal(t, "sort by id select id, node", q.String())
}

func TestExpected(t *testing.T) {
	has := func(exp []Expectation, e Expectation) bool {
		for _, x := range exp {
			if x == e {
				return true
			}
		}
		return false
	}
	exp := Expected(Tokenize(""))
	assert.True(t, has(exp, Expectation{Kind: ExpectField}))
	assert.True(t, has(exp, Expectation{Kind: ExpectKeyword, Word: "from"}))
	assert.True(t, has(exp, Expectation{Kind: ExpectKeyword, Word: "limit"}))

	exp = Expected(Tokenize("severity"))
	assert.Equal(t, []Expectation{{Kind: ExpectOperator, Field: FieldSeverity}}, exp)

	exp = Expected(Tokenize("severity >"))
	assert.Equal(t, []Expectation{{Kind: ExpectValue, Field: FieldSeverity, Op: OpGt}}, exp)

	exp = Expected(Tokenize("node = a limit 3"))
	assert.True(t, has(exp, Expectation{Kind: ExpectKeyword, Word: "select"}))
	assert.False(t, has(exp, Expectation{Kind: ExpectKeyword, Word: "sort"}))
	assert.False(t, has(exp, Expectation{Kind: ExpectKeyword, Word: "AND"}))

	exp = Expected(Tokenize("(node = a"))
	assert.True(t, has(exp, Expectation{Kind: ExpectPunct, Word: ")"}))
	assert.True(t, has(exp, Expectation{Kind: ExpectKeyword, Word: "OR"}))

	// malformed prefix: continuations before the first bad token
	exp = Expected(Tokenize("node = a $ $"))
	assert.True(t, has(exp, Expectation{Kind: ExpectKeyword, Word: "AND"}))
}

func TestParserSnapshot(t *testing.T) {
	tests := []string{
		`severity = "warning" AND label:NETWORKING sort by timestamp desc limit 50`,
		`message ~ "connection closed" OR message ~ "channel error"`,
		`from entries | NOT (node = rabbit-1 OR node = rabbit-2) AND age < 1d`,
		`labels !~ "queue" AND id >= 100 | select ts, severity, message`,
	}
	dumps := make([]string, len(tests))
	for i, str := range tests {
		ast, err := ParseQuery(str)
		if err != nil {
			fmt.Printf("[%d]: %s\n", i, str)
			t.Fatal(err)
		}
		dumps[i] = dumpQuery(ast)
	}
	cupaloy.SnapshotT(t, strings.Join(dumps, "\n"))
}

// dumpQuery prints one node per line with its span, children indented.
func dumpQuery(q Query) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "query %s\n", q)
	if q.Selector.Explicit {
		fmt.Fprintf(b, "from %s\n", q.Selector.Span)
	}
	for _, s := range q.Stages {
		switch st := s.(type) {
		case FilterStage:
			fmt.Fprintf(b, "filter %s\n", st.GetSpan())
			dumpExpr(b, st.Expr, "  ")
		case SortStage:
			fmt.Fprintf(b, "sort %s\n", st.Span)
			for _, k := range st.Spec {
				fmt.Fprintf(b, "  %s %s %s\n", k.Field, k.Direction, k.Span)
			}
		case LimitStage:
			fmt.Fprintf(b, "limit %d %s\n", st.Count, st.Span)
		case SelectStage:
			fmt.Fprintf(b, "select %s\n", st.Span)
			for i, f := range st.Fields {
				fmt.Fprintf(b, "  %s %s\n", f, st.FieldSpans[i])
			}
		}
	}
	return b.String()
}

func dumpExpr(b *strings.Builder, e FilterExpr, indent string) {
	switch n := e.(type) {
	case BinaryExpr:
		fmt.Fprintf(b, "%s%s %s\n", indent, n.Op, n.Span)
		dumpExpr(b, n.Left, indent+"  ")
		dumpExpr(b, n.Right, indent+"  ")
	case NotExpr:
		fmt.Fprintf(b, "%sNOT %s\n", indent, n.Span)
		dumpExpr(b, n.Expr, indent+"  ")
	case Comparison:
		fmt.Fprintf(b, "%s%s %s %s:%s %s\n", indent, n.Field, n.Op, n.Value.Kind, n.Value, n.GetSpan())
	case LabelMatcher:
		fmt.Fprintf(b, "%slabel %s negated=%t %s\n", indent, n.LabelName, n.Negated, n.Span)
	}
}

func FuzzParseQuery(f *testing.F) {
	for _, q := range roundTripQueries {
		f.Add(q)
	}
	f.Fuzz(func(t *testing.T, src string) {
		q, err := ParseQuery(src)
		if err != nil {
			d, ok := shared.AsDiagnostic(err)
			require.True(t, ok)
			require.LessOrEqual(t, int(d.Span.End), len(src))
			return
		}
		_, err = ParseQuery(q.String())
		require.NoError(t, err, q.String())
	})
}
