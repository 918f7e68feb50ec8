package brokerql_parser

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
	"github.com/metrico/brokerlog/reader/brokerql/shared"
)

type TokenKind uint8

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenString
	TokenNumber
	TokenDuration
	TokenOperator
	TokenPunct
	TokenError
)

func (k TokenKind) String() string {
	switch k {
	case TokenIdent:
		return "identifier"
	case TokenString:
		return "string"
	case TokenNumber:
		return "number"
	case TokenDuration:
		return "duration"
	case TokenOperator:
		return "operator"
	case TokenPunct:
		return "punctuation"
	case TokenError:
		return "error"
	}
	return "end of input"
}

// LexProblem says why the lexer produced a TokenError.
type LexProblem uint8

const (
	ProblemNone LexProblem = iota
	ProblemUnexpectedChar
	ProblemUnterminatedString
	ProblemBadDurationUnit
)

type Token struct {
	Kind    TokenKind
	Span    shared.Span
	Text    string
	Problem LexProblem
}

// Is reports whether the token is an identifier equal to word, ignoring case.
func (t Token) Is(word string) bool {
	return t.Kind == TokenIdent && strings.EqualFold(t.Text, word)
}

func (t Token) IsPunct(p string) bool {
	return t.Kind == TokenPunct && t.Text == p
}

var ruleKinds = func() map[lexer.TokenType]TokenKind {
	sym := BrokerQLLexerDefinition.Symbols()
	return map[lexer.TokenType]TokenKind{
		sym["Duration"]:            TokenDuration,
		sym["Bad_duration"]:        TokenError,
		sym["Number"]:              TokenNumber,
		sym["Quoted_string"]:       TokenString,
		sym["Unterminated_string"]: TokenError,
		sym["Operator"]:            TokenOperator,
		sym["Punct"]:               TokenPunct,
		sym["Ident"]:               TokenIdent,
		sym["Unexpected"]:          TokenError,
	}
}()

var ruleProblems = func() map[lexer.TokenType]LexProblem {
	sym := BrokerQLLexerDefinition.Symbols()
	return map[lexer.TokenType]LexProblem{
		sym["Bad_duration"]:        ProblemBadDurationUnit,
		sym["Unterminated_string"]: ProblemUnterminatedString,
		sym["Unexpected"]:          ProblemUnexpectedChar,
	}
}()

// Tokenize splits text into tokens terminated by a TokenEOF. It never fails:
// malformed input comes back as TokenError tokens for the parser to report.
func Tokenize(text string) []Token {
	res := make([]Token, 0, len(text)/4+1)
	lex, err := BrokerQLLexerDefinition.LexString("", text)
	if err != nil {
		return append(res, errorTail(text, 0), eofToken(text))
	}
	for {
		tok, err := lex.Next()
		if err != nil {
			// the Unexpected rule matches any rune, so this is unreachable in practice
			res = append(res, errorTail(text, lastEnd(res)))
			break
		}
		if tok.EOF() {
			break
		}
		kind, ok := ruleKinds[tok.Type]
		if !ok {
			continue
		}
		res = append(res, Token{
			Kind:    kind,
			Span:    shared.NewSpan(tok.Pos.Offset, tok.Pos.Offset+len(tok.Value)),
			Text:    tok.Value,
			Problem: ruleProblems[tok.Type],
		})
	}
	return append(res, eofToken(text))
}

func eofToken(text string) Token {
	return Token{Kind: TokenEOF, Span: shared.NewSpan(len(text), len(text))}
}

func errorTail(text string, from int) Token {
	return Token{
		Kind:    TokenError,
		Span:    shared.NewSpan(from, len(text)),
		Text:    text[from:],
		Problem: ProblemUnexpectedChar,
	}
}

func lastEnd(toks []Token) int {
	if len(toks) == 0 {
		return 0
	}
	return int(toks[len(toks)-1].Span.End)
}

// Unquote decodes a Quoted_string lexeme; only \" and \\ are escapes, any other
// backslash is kept literally.
func Unquote(lexeme string) string {
	if len(lexeme) >= 2 && lexeme[0] == '"' && lexeme[len(lexeme)-1] == '"' {
		lexeme = lexeme[1 : len(lexeme)-1]
	}
	if !strings.ContainsRune(lexeme, '\\') {
		return lexeme
	}
	b := strings.Builder{}
	b.Grow(len(lexeme))
	for i := 0; i < len(lexeme); i++ {
		c := lexeme[i]
		if c == '\\' && i+1 < len(lexeme) && (lexeme[i+1] == '"' || lexeme[i+1] == '\\') {
			i++
			c = lexeme[i]
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Quote is the inverse of Unquote.
func Quote(s string) string {
	b := strings.Builder{}
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('"')
	return b.String()
}
