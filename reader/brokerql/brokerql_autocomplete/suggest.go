package brokerql_autocomplete

import (
	"sort"
	"strings"

	"github.com/metrico/brokerlog/reader/brokerql/brokerql_parser"
	"github.com/metrico/brokerlog/reader/brokerql/shared"
	"github.com/sahilm/fuzzy"
)

type Category uint8

const (
	CategoryField Category = iota + 1
	CategoryOperator
	CategoryKeyword
	CategoryLabelName
	CategoryPresetName
	CategoryValueHint
	CategoryPunctuation
)

func (c Category) String() string {
	switch c {
	case CategoryField:
		return "field"
	case CategoryOperator:
		return "operator"
	case CategoryKeyword:
		return "keyword"
	case CategoryLabelName:
		return "label"
	case CategoryPresetName:
		return "preset"
	case CategoryValueHint:
		return "value"
	case CategoryPunctuation:
		return "punctuation"
	}
	return "unknown"
}

// Suggestion is one proposed edit: replace the Replace span of the input with Text.
// Label is what a UI shows; it differs from Text for presets.
type Suggestion struct {
	Text     string
	Label    string
	Detail   string
	Category Category
	Replace  shared.Span
}

var durationHints = []string{"30s", "5m", "15m", "1h", "6h", "1d", "7d"}

var opDetails = map[brokerql_parser.MatchOp]string{
	brokerql_parser.OpEq:          "equals",
	brokerql_parser.OpNeq:         "not equal",
	brokerql_parser.OpContains:    "contains",
	brokerql_parser.OpNotContains: "does not contain",
	brokerql_parser.OpRegex:       "matches regular expression",
	brokerql_parser.OpLt:          "less than",
	brokerql_parser.OpLe:          "less or equal",
	brokerql_parser.OpGt:          "greater than",
	brokerql_parser.OpGe:          "greater or equal",
}

var classDetails = map[brokerql_parser.FieldClass]string{
	brokerql_parser.ClassTime:       "timestamp",
	brokerql_parser.ClassAge:        "duration since now",
	brokerql_parser.ClassSeverity:   "severity level",
	brokerql_parser.ClassKeyword:    "keyword",
	brokerql_parser.ClassText:       "text",
	brokerql_parser.ClassIdentifier: "identifier",
	brokerql_parser.ClassLabelSet:   "label set",
	brokerql_parser.ClassInteger:    "integer",
	brokerql_parser.ClassBoolean:    "boolean",
}

// Suggest proposes continuations of text at byte offset cursor, best first.
// It never fails: malformed input yields fewer suggestions or none.
func Suggest(text string, cursor int, cat Catalog) (res []Suggestion) {
	defer func() {
		if recover() != nil {
			res = nil
		}
	}()
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(text) {
		cursor = len(text)
	}
	toks := brokerql_parser.Tokenize(text)
	idx, replace, ok := locate(toks, cursor)
	if !ok {
		return nil
	}
	partial := text[int(replace.Start):cursor]

	var cands []Suggestion
	if idx == 0 && cat != nil {
		cands = presetCandidates(text, cat)
	}
	for _, e := range brokerql_parser.Expected(toks[:idx]) {
		cands = append(cands, candidates(e, cat)...)
	}
	return rank(dedupe(cands), partial, replace)
}

// locate finds the token prefix before the cursor and the span a suggestion replaces.
// ok is false when the cursor sits inside a token that cannot be completed.
func locate(toks []brokerql_parser.Token, cursor int) (idx int, replace shared.Span, ok bool) {
	for i, tok := range toks {
		start, end := int(tok.Span.Start), int(tok.Span.End)
		switch {
		case tok.Kind == brokerql_parser.TokenEOF || start >= cursor:
			return i, shared.NewSpan(cursor, cursor), true
		case end < cursor:
			continue
		case isWord(tok):
			return i, tok.Span, true
		case tok.Problem == brokerql_parser.ProblemUnterminatedString:
			return 0, shared.Span{}, false
		case end == cursor:
			continue
		}
		return 0, shared.Span{}, false
	}
	return len(toks) - 1, shared.NewSpan(cursor, cursor), true
}

func isWord(tok brokerql_parser.Token) bool {
	switch tok.Kind {
	case brokerql_parser.TokenIdent, brokerql_parser.TokenNumber, brokerql_parser.TokenDuration:
		return true
	}
	return tok.Problem == brokerql_parser.ProblemBadDurationUnit
}

func presetCandidates(text string, cat Catalog) []Suggestion {
	var res []Suggestion
	for _, name := range cat.PresetNames() {
		q, ok := cat.PresetText(name)
		if !ok {
			continue
		}
		res = append(res, Suggestion{
			Text:     q,
			Label:    name,
			Detail:   "preset",
			Category: CategoryPresetName,
			Replace:  shared.NewSpan(0, len(text)),
		})
	}
	return res
}

func candidates(e brokerql_parser.Expectation, cat Catalog) []Suggestion {
	var res []Suggestion
	add := func(text string, c Category, detail string) {
		res = append(res, Suggestion{Text: text, Label: text, Category: c, Detail: detail})
	}
	switch e.Kind {
	case brokerql_parser.ExpectField, brokerql_parser.ExpectSortField:
		for _, f := range brokerql_parser.Fields {
			if e.Kind == brokerql_parser.ExpectSortField && !f.Sortable() {
				continue
			}
			add(f.String(), CategoryField, classDetails[f.Class()])
		}
	case brokerql_parser.ExpectKeyword:
		word := e.Word
		if word == "label" {
			word = "label:"
		}
		add(word, CategoryKeyword, "")
	case brokerql_parser.ExpectPunct:
		add(e.Word, CategoryPunctuation, "")
	case brokerql_parser.ExpectOperator:
		for _, op := range brokerql_parser.LegalOps(e.Field) {
			add(op.String(), CategoryOperator, opDetails[op])
		}
	case brokerql_parser.ExpectValue:
		switch e.Field.Class() {
		case brokerql_parser.ClassSeverity:
			for _, s := range brokerql_parser.Severities {
				add(s, CategoryValueHint, "severity")
			}
		case brokerql_parser.ClassBoolean:
			add("true", CategoryValueHint, "")
			add("false", CategoryValueHint, "")
		case brokerql_parser.ClassAge:
			for _, d := range durationHints {
				add(d, CategoryValueHint, "duration")
			}
		case brokerql_parser.ClassLabelSet:
			res = append(res, labelCandidates(cat)...)
		}
	case brokerql_parser.ExpectLabelName:
		res = append(res, labelCandidates(cat)...)
	}
	return res
}

func labelCandidates(cat Catalog) []Suggestion {
	if cat == nil {
		return nil
	}
	var res []Suggestion
	for _, l := range cat.LabelNames() {
		res = append(res, Suggestion{Text: brokerql_parser.MaybeQuote(l), Label: l, Category: CategoryLabelName})
	}
	return res
}

func dedupe(cands []Suggestion) []Suggestion {
	type key struct {
		text string
		c    Category
	}
	seen := make(map[key]bool, len(cands))
	res := cands[:0]
	for _, c := range cands {
		k := key{c.Text, c.Category}
		if seen[k] {
			continue
		}
		seen[k] = true
		res = append(res, c)
	}
	return res
}

const (
	tierPrefix = iota
	tierSubstring
	tierFuzzy
	tierNone
)

// matchTier grades a lowercased label against a lowercased partial word.
// subsequence reports whether the fuzzy matcher accepted the label.
func matchTier(label, partial string, subsequence bool) int {
	switch {
	case partial == "" || strings.HasPrefix(label, partial):
		return tierPrefix
	case strings.Contains(label, partial):
		return tierSubstring
	case subsequence:
		return tierFuzzy
	}
	return tierNone
}

// rank drops candidates that do not match partial and orders the rest by match
// quality, then alphabetically; equal labels keep grammar order.
func rank(cands []Suggestion, partial string, replace shared.Span) []Suggestion {
	partial = strings.ToLower(partial)
	keys := make([]string, len(cands))
	for i, c := range cands {
		keys[i] = strings.ToLower(c.Label)
	}
	subsequence := make(map[int]bool)
	for _, m := range fuzzy.FindNoSort(partial, keys) {
		subsequence[m.Index] = true
	}

	sorted := byTier{s: cands[:0], tiers: make([]int, 0, len(cands)), keys: keys[:0]}
	for i, c := range cands {
		key := keys[i]
		t := matchTier(key, partial, subsequence[i])
		if t == tierNone {
			continue
		}
		if c.Category != CategoryPresetName {
			c.Replace = replace
		}
		sorted.s = append(sorted.s, c)
		sorted.tiers = append(sorted.tiers, t)
		sorted.keys = append(sorted.keys, key)
	}
	sort.Stable(sorted)
	return sorted.s
}

type byTier struct {
	s     []Suggestion
	tiers []int
	keys  []string
}

func (b byTier) Len() int { return len(b.s) }

func (b byTier) Less(i, j int) bool {
	if b.tiers[i] != b.tiers[j] {
		return b.tiers[i] < b.tiers[j]
	}
	return b.keys[i] < b.keys[j]
}

func (b byTier) Swap(i, j int) {
	b.s[i], b.s[j] = b.s[j], b.s[i]
	b.tiers[i], b.tiers[j] = b.tiers[j], b.tiers[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}
