package controllerv1

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_parser"
)

type MiscController struct {
	Version string
}

// Buildinfo reports the version together with the query language tables it was built with.
func (uc *MiscController) Buildinfo(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, func(stream *jsoniter.Stream) {
		stream.WriteObjectStart()
		stream.WriteObjectField("version")
		stream.WriteString(uc.Version)
		stream.WriteMore()
		stream.WriteObjectField("fields")
		stream.WriteArrayStart()
		for i, f := range brokerql_parser.Fields {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteString(f.String())
		}
		stream.WriteArrayEnd()
		stream.WriteMore()
		stream.WriteObjectField("severities")
		stream.WriteArrayStart()
		for i, s := range brokerql_parser.Severities {
			if i > 0 {
				stream.WriteMore()
			}
			stream.WriteString(s)
		}
		stream.WriteArrayEnd()
		stream.WriteObjectEnd()
	})
}
