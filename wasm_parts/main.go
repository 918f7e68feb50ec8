package main

import (
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_autocomplete"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_json"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_parser"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_presets"
	"github.com/metrico/brokerlog/reader/brokerql/shared"
)

type ctx struct {
	request  []byte
	response []byte
}

var data = map[uint32]*ctx{}

var catalog = brokerql_autocomplete.StaticCatalog{Presets: brokerql_presets.Registry{}}

//export createCtx
func createCtx(id uint32) {
	data[id] = &ctx{}
}

//export alloc
func alloc(id uint32, size int) *byte {
	data[id].request = make([]byte, size+1)
	data[id].request = data[id].request[:size]
	return &data[id].request[:1][0]
}

//export dealloc
func dealloc(id uint32) {
	delete(data, id)
}

//export getCtxRequest
func getCtxRequest(id uint32) *byte {
	return &data[id].request[:1][0]
}

//export getCtxRequestLen
func getCtxRequestLen(id uint32) uint32 {
	return uint32(len(data[id].request))
}

//export getCtxResponse
func getCtxResponse(id uint32) *byte {
	if cap(data[id].response) == 0 {
		return nil
	}
	return &data[id].response[:1][0]
}

//export getCtxResponseLen
func getCtxResponseLen(id uint32) uint32 {
	return uint32(len(data[id].response))
}

// brokerqlSetLabels replaces the autocomplete label catalog with the
// comma-separated names in the request.
//
//export brokerqlSetLabels
func brokerqlSetLabels(id uint32) uint32 {
	var labels []string
	for _, l := range strings.Split(string(data[id].request), ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}
	catalog.Labels = labels
	data[id].response = success(func(stream *jsoniter.Stream) { stream.WriteInt(len(labels)) })
	return 0
}

//export brokerqlParse
func brokerqlParse(id uint32) uint32 {
	q, err := brokerql_parser.ParseQuery(string(data[id].request))
	if err != nil {
		data[id].response = wrapError(err)
		return 1
	}
	warnings := brokerql_parser.Warnings(q)
	data[id].response = success(func(stream *jsoniter.Stream) {
		stream.WriteObjectStart()
		stream.WriteObjectField("query")
		brokerql_json.WriteQuery(stream, q)
		stream.WriteMore()
		stream.WriteObjectField("canonical")
		stream.WriteString(q.String())
		stream.WriteMore()
		stream.WriteObjectField("fingerprint")
		stream.WriteString(brokerql_parser.FingerprintString(brokerql_parser.Fingerprint(q)))
		stream.WriteMore()
		stream.WriteObjectField("warnings")
		brokerql_json.WriteDiagnostics(stream, warnings)
		stream.WriteObjectEnd()
	})
	return 0
}

//export brokerqlParseFilter
func brokerqlParseFilter(id uint32) uint32 {
	expr, err := brokerql_parser.ParseFilter(string(data[id].request))
	if err != nil {
		data[id].response = wrapError(err)
		return 1
	}
	data[id].response = success(func(stream *jsoniter.Stream) {
		brokerql_json.WriteExpr(stream, expr)
	})
	return 0
}

//export brokerqlTokens
func brokerqlTokens(id uint32) uint32 {
	toks := brokerql_parser.Tokenize(string(data[id].request))
	data[id].response = success(func(stream *jsoniter.Stream) {
		brokerql_json.WriteTokens(stream, toks)
	})
	return 0
}

//export brokerqlSuggest
func brokerqlSuggest(id uint32, cursor uint32) uint32 {
	res := brokerql_autocomplete.Suggest(string(data[id].request), int(cursor), catalog)
	data[id].response = success(func(stream *jsoniter.Stream) {
		brokerql_json.WriteSuggestions(stream, res)
	})
	return 0
}

// brokerqlPreset answers with the named preset, or with the whole list for an empty request.
//
//export brokerqlPreset
func brokerqlPreset(id uint32) uint32 {
	name := string(data[id].request)
	if name == "" {
		data[id].response = success(func(stream *jsoniter.Stream) {
			brokerql_json.WritePresets(stream, brokerql_presets.All())
		})
		return 0
	}
	q, err := brokerql_presets.ResolveString(name)
	if err != nil {
		data[id].response = wrapError(err)
		return 1
	}
	data[id].response = success(func(stream *jsoniter.Stream) {
		brokerql_json.WriteQuery(stream, q)
	})
	return 0
}

func success(fn func(stream *jsoniter.Stream)) []byte {
	return brokerql_json.Encode(func(stream *jsoniter.Stream) {
		stream.WriteObjectStart()
		stream.WriteObjectField("status")
		stream.WriteString("success")
		stream.WriteMore()
		stream.WriteObjectField("data")
		fn(stream)
		stream.WriteObjectEnd()
	})
}

func wrapError(err error) []byte {
	return brokerql_json.Encode(func(stream *jsoniter.Stream) {
		stream.WriteObjectStart()
		stream.WriteObjectField("status")
		stream.WriteString("error")
		stream.WriteMore()
		stream.WriteObjectField("error")
		stream.WriteString(err.Error())
		if d, ok := shared.AsDiagnostic(err); ok {
			stream.WriteMore()
			stream.WriteObjectField("diagnostic")
			brokerql_json.WriteDiagnostic(stream, d)
		}
		stream.WriteObjectEnd()
	})
}

func main() {}
