package brokerql_parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []TokenKind {
	res := make([]TokenKind, len(toks))
	for i, t := range toks {
		res[i] = t.Kind
	}
	return res
}

func texts(toks []Token) []string {
	res := make([]string, len(toks))
	for i, t := range toks {
		res[i] = t.Text
	}
	return res
}

func TestTokenize(t *testing.T) {
	toks := Tokenize(`severity >= "warning" AND age < 1.5h | label!:tls_1 limit 50`)
	assert.Equal(t, []TokenKind{
		TokenIdent, TokenOperator, TokenString, TokenIdent, TokenIdent, TokenOperator, TokenDuration,
		TokenPunct, TokenIdent, TokenPunct, TokenIdent, TokenIdent, TokenNumber, TokenEOF,
	}, kinds(toks))
	assert.Equal(t, []string{
		"severity", ">=", `"warning"`, "AND", "age", "<", "1.5h", "|", "label", "!:", "tls_1", "limit", "50", "",
	}, texts(toks))
	assert.Equal(t, "[12,21)", toks[2].Span.String())
}

func TestTokenizeSpansMatchSource(t *testing.T) {
	src := "  message ~ \"a \\\"b\\\"\"\tOR node=rabbit@host-1 "
	for _, tok := range Tokenize(src) {
		assert.Equal(t, tok.Text, tok.Span.Text(src))
	}
}

func TestTokenizeEmpty(t *testing.T) {
	toks := Tokenize("")
	require.Len(t, toks, 1)
	assert.Equal(t, TokenEOF, toks[0].Kind)
	assert.True(t, toks[0].Span.IsEmpty())

	toks = Tokenize("   ")
	require.Len(t, toks, 1)
	assert.Equal(t, 3, int(toks[0].Span.Start))
}

func TestTokenizeDurations(t *testing.T) {
	for _, d := range []string{"5s", "10sec", "2mins", "1minute", "3hrs", "7d", "0.5days"} {
		toks := Tokenize(d)
		require.Len(t, toks, 2, d)
		assert.Equal(t, TokenDuration, toks[0].Kind, d)
	}
	toks := Tokenize("5ms")
	assert.Equal(t, TokenError, toks[0].Kind)
	assert.Equal(t, ProblemBadDurationUnit, toks[0].Problem)
	assert.Equal(t, "5ms", toks[0].Text)
}

func TestTokenizeErrors(t *testing.T) {
	toks := Tokenize(`message = "open`)
	require.Len(t, toks, 4)
	assert.Equal(t, TokenError, toks[2].Kind)
	assert.Equal(t, ProblemUnterminatedString, toks[2].Problem)
	assert.Equal(t, `"open`, toks[2].Text)

	toks = Tokenize("node = $x")
	assert.Equal(t, TokenError, toks[2].Kind)
	assert.Equal(t, ProblemUnexpectedChar, toks[2].Problem)
	assert.Equal(t, "$", toks[2].Text)
	assert.Equal(t, TokenIdent, toks[3].Kind)
}

func TestQuoteUnquote(t *testing.T) {
	for _, s := range []string{"", "plain", `with "quotes"`, `back\slash`, `\"`, "multi\nline"} {
		assert.Equal(t, s, Unquote(Quote(s)))
	}
	assert.Equal(t, `a\nb`, Unquote(`"a\nb"`))
}

func FuzzTokenize(f *testing.F) {
	f.Add(`severity = "warning" AND label:NETWORKING sort by timestamp desc limit 50`)
	f.Add(`"unterminated \"`)
	f.Add("5ms $ é")
	f.Fuzz(func(t *testing.T, src string) {
		toks := Tokenize(src)
		require.NotEmpty(t, toks)
		require.Equal(t, TokenEOF, toks[len(toks)-1].Kind)
		prev := 0
		for _, tok := range toks {
			require.GreaterOrEqual(t, int(tok.Span.Start), prev)
			require.LessOrEqual(t, int(tok.Span.End), len(src))
			prev = int(tok.Span.End)
		}
	})
}
