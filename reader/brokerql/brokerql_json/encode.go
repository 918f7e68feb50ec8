package brokerql_json

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_autocomplete"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_parser"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_presets"
	"github.com/metrico/brokerlog/reader/brokerql/shared"
)

// Encode runs fn against a pooled stream and returns a copy of what it wrote.
func Encode(fn func(stream *jsoniter.Stream)) []byte {
	stream := jsoniter.ConfigFastest.BorrowStream(nil)
	defer jsoniter.ConfigFastest.ReturnStream(stream)
	fn(stream)
	return append([]byte(nil), stream.Buffer()...)
}

func WriteSpan(stream *jsoniter.Stream, s shared.Span) {
	stream.WriteObjectStart()
	stream.WriteObjectField("start")
	stream.WriteUint32(s.Start)
	stream.WriteMore()
	stream.WriteObjectField("end")
	stream.WriteUint32(s.End)
	stream.WriteObjectEnd()
}

func WriteDiagnostic(stream *jsoniter.Stream, d *shared.Diagnostic) {
	stream.WriteObjectStart()
	stream.WriteObjectField("message")
	stream.WriteString(d.Message)
	stream.WriteMore()
	stream.WriteObjectField("severity")
	stream.WriteString(d.Severity.String())
	stream.WriteMore()
	stream.WriteObjectField("kind")
	stream.WriteString(d.Kind.String())
	stream.WriteMore()
	stream.WriteObjectField("span")
	WriteSpan(stream, d.Span)
	stream.WriteObjectEnd()
}

func WriteDiagnostics(stream *jsoniter.Stream, ds []shared.Diagnostic) {
	stream.WriteArrayStart()
	for i := range ds {
		if i > 0 {
			stream.WriteMore()
		}
		WriteDiagnostic(stream, &ds[i])
	}
	stream.WriteArrayEnd()
}

func WriteTokens(stream *jsoniter.Stream, toks []brokerql_parser.Token) {
	stream.WriteArrayStart()
	for i, t := range toks {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectStart()
		stream.WriteObjectField("kind")
		stream.WriteString(t.Kind.String())
		stream.WriteMore()
		stream.WriteObjectField("text")
		stream.WriteString(t.Text)
		stream.WriteMore()
		stream.WriteObjectField("span")
		WriteSpan(stream, t.Span)
		stream.WriteObjectEnd()
	}
	stream.WriteArrayEnd()
}

func WriteQuery(stream *jsoniter.Stream, q brokerql_parser.Query) {
	stream.WriteObjectStart()
	stream.WriteObjectField("source")
	stream.WriteString(q.Selector.Source.String())
	stream.WriteMore()
	stream.WriteObjectField("stages")
	stream.WriteArrayStart()
	for i, s := range q.Stages {
		if i > 0 {
			stream.WriteMore()
		}
		writeStage(stream, s)
	}
	stream.WriteArrayEnd()
	stream.WriteObjectEnd()
}

func writeStage(stream *jsoniter.Stream, s brokerql_parser.Stage) {
	stream.WriteObjectStart()
	stream.WriteObjectField("type")
	switch st := s.(type) {
	case brokerql_parser.FilterStage:
		stream.WriteString("filter")
		stream.WriteMore()
		stream.WriteObjectField("expr")
		WriteExpr(stream, st.Expr)
	case brokerql_parser.SortStage:
		stream.WriteString("sort")
		stream.WriteMore()
		stream.WriteObjectField("keys")
		stream.WriteArrayStart()
		for i, k := range st.Spec {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteObjectStart()
			stream.WriteObjectField("field")
			stream.WriteString(k.Field.String())
			stream.WriteMore()
			stream.WriteObjectField("direction")
			stream.WriteString(k.Direction.String())
			stream.WriteObjectEnd()
		}
		stream.WriteArrayEnd()
	case brokerql_parser.LimitStage:
		stream.WriteString("limit")
		stream.WriteMore()
		stream.WriteObjectField("count")
		stream.WriteUint64(st.Count)
	case brokerql_parser.SelectStage:
		stream.WriteString("select")
		stream.WriteMore()
		stream.WriteObjectField("fields")
		stream.WriteArrayStart()
		for i, f := range st.Fields {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteString(f.String())
		}
		stream.WriteArrayEnd()
	}
	stream.WriteMore()
	stream.WriteObjectField("span")
	WriteSpan(stream, s.GetSpan())
	stream.WriteObjectEnd()
}

func WriteExpr(stream *jsoniter.Stream, e brokerql_parser.FilterExpr) {
	if e == nil {
		stream.WriteNil()
		return
	}
	stream.WriteObjectStart()
	stream.WriteObjectField("type")
	switch n := e.(type) {
	case brokerql_parser.BinaryExpr:
		if n.Op == brokerql_parser.BoolOr {
			stream.WriteString("or")
		} else {
			stream.WriteString("and")
		}
		stream.WriteMore()
		stream.WriteObjectField("left")
		WriteExpr(stream, n.Left)
		stream.WriteMore()
		stream.WriteObjectField("right")
		WriteExpr(stream, n.Right)
	case brokerql_parser.NotExpr:
		stream.WriteString("not")
		stream.WriteMore()
		stream.WriteObjectField("expr")
		WriteExpr(stream, n.Expr)
	case brokerql_parser.Comparison:
		stream.WriteString("comparison")
		stream.WriteMore()
		stream.WriteObjectField("field")
		stream.WriteString(n.Field.String())
		stream.WriteMore()
		stream.WriteObjectField("op")
		stream.WriteString(n.Op.String())
		stream.WriteMore()
		stream.WriteObjectField("value")
		writeValue(stream, n.Value)
	case brokerql_parser.LabelMatcher:
		stream.WriteString("label")
		stream.WriteMore()
		stream.WriteObjectField("name")
		stream.WriteString(n.LabelName)
		stream.WriteMore()
		stream.WriteObjectField("negated")
		stream.WriteBool(n.Negated)
	}
	stream.WriteMore()
	stream.WriteObjectField("span")
	WriteSpan(stream, e.GetSpan())
	stream.WriteObjectEnd()
}

func writeValue(stream *jsoniter.Stream, v brokerql_parser.Value) {
	stream.WriteObjectStart()
	stream.WriteObjectField("kind")
	stream.WriteString(v.Kind.String())
	stream.WriteMore()
	stream.WriteObjectField("value")
	switch v.Kind {
	case brokerql_parser.ValueNumber:
		stream.WriteFloat64(v.Num)
	case brokerql_parser.ValueBoolean:
		stream.WriteBool(v.Bool)
	case brokerql_parser.ValueDuration:
		stream.WriteString(v.Duration.String())
		stream.WriteMore()
		stream.WriteObjectField("seconds")
		stream.WriteFloat64(v.Duration.Std().Seconds())
	case brokerql_parser.ValueLabel:
		stream.WriteString(v.Label)
	default:
		stream.WriteString(v.Str)
	}
	stream.WriteMore()
	stream.WriteObjectField("span")
	WriteSpan(stream, v.Span)
	stream.WriteObjectEnd()
}

func WriteSuggestions(stream *jsoniter.Stream, res []brokerql_autocomplete.Suggestion) {
	stream.WriteArrayStart()
	for i, s := range res {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectStart()
		stream.WriteObjectField("text")
		stream.WriteString(s.Text)
		stream.WriteMore()
		stream.WriteObjectField("label")
		stream.WriteString(s.Label)
		stream.WriteMore()
		stream.WriteObjectField("category")
		stream.WriteString(s.Category.String())
		if s.Detail != "" {
			stream.WriteMore()
			stream.WriteObjectField("detail")
			stream.WriteString(s.Detail)
		}
		stream.WriteMore()
		stream.WriteObjectField("replace")
		WriteSpan(stream, s.Replace)
		stream.WriteObjectEnd()
	}
	stream.WriteArrayEnd()
}

func WritePreset(stream *jsoniter.Stream, p brokerql_presets.Preset) {
	stream.WriteObjectStart()
	stream.WriteObjectField("name")
	stream.WriteString(string(p.Name))
	stream.WriteMore()
	stream.WriteObjectField("description")
	stream.WriteString(p.Description)
	stream.WriteMore()
	stream.WriteObjectField("query")
	stream.WriteString(p.Text)
	stream.WriteObjectEnd()
}

func WritePresets(stream *jsoniter.Stream, ps []brokerql_presets.Preset) {
	stream.WriteArrayStart()
	for i, p := range ps {
		if i > 0 {
			stream.WriteMore()
		}
		WritePreset(stream, p)
	}
	stream.WriteArrayEnd()
}
