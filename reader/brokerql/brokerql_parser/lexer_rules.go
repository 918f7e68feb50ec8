package brokerql_parser

import (
	"github.com/alecthomas/participle/v2/lexer"
)

const durationUnits = `seconds|second|secs|sec|s|minutes|minute|mins|min|m|hours|hour|hrs|hr|h|days|day|d`

// Order matters: the first matching rule wins.
var BrokerQLLexerRules = []lexer.SimpleRule{
	{Name: "space", Pattern: `\s+`},

	{Name: "Duration", Pattern: `[0-9]+(?:\.[0-9]+)?(?:` + durationUnits + `)\b`},
	{Name: "Bad_duration", Pattern: `[0-9]+(?:\.[0-9]+)?[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]+)?`},

	{Name: "Quoted_string", Pattern: `"(?s:[^"\\]|\\.)*"`},
	{Name: "Unterminated_string", Pattern: `"(?s:.*)`},

	{Name: "Operator", Pattern: `!=|>=|<=|=~|!~|[=~<>]`},
	{Name: "Punct", Pattern: `!:|[(),:|]`},

	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_.\-]*`},

	{Name: "Unexpected", Pattern: `(?s:.)`},
}

var BrokerQLLexerDefinition = lexer.MustSimple(BrokerQLLexerRules)
