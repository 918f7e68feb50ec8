package controllerv1

import (
	"net/http"
	"runtime/debug"

	jsoniter "github.com/json-iterator/go"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_json"
	"github.com/metrico/brokerlog/reader/brokerql/shared"
	"github.com/metrico/brokerlog/reader/utils/logger"
)

func tamePanic(w http.ResponseWriter, r *http.Request) {
	if err := recover(); err != nil {
		logger.Error("panic:", err, " stack:", string(debug.Stack()))
		logger.Error("query: ", r.URL.String())
		w.WriteHeader(500)
		w.Write([]byte("Internal Server Error"))
	}
}

func PromError(code int, msg string, w http.ResponseWriter) {
	writeError(code, errorType(code), msg, nil, w)
}

func errorType(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "bad_data"
	case http.StatusNotFound:
		return "not_found"
	}
	return "internal"
}

func writeError(code int, errType string, msg string, d *shared.Diagnostic, w http.ResponseWriter) {
	body := brokerql_json.Encode(func(stream *jsoniter.Stream) {
		stream.WriteObjectStart()
		stream.WriteObjectField("status")
		stream.WriteString("error")
		stream.WriteMore()
		stream.WriteObjectField("errorType")
		stream.WriteString(errType)
		stream.WriteMore()
		stream.WriteObjectField("error")
		stream.WriteString(msg)
		if d != nil {
			stream.WriteMore()
			stream.WriteObjectField("diagnostic")
			brokerql_json.WriteDiagnostic(stream, d)
		}
		stream.WriteObjectEnd()
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body)
}

// writeSuccess wraps whatever data writes in the {"status":"success","data":...} envelope.
func writeSuccess(w http.ResponseWriter, data func(stream *jsoniter.Stream)) {
	body := brokerql_json.Encode(func(stream *jsoniter.Stream) {
		stream.WriteObjectStart()
		stream.WriteObjectField("status")
		stream.WriteString("success")
		stream.WriteMore()
		stream.WriteObjectField("data")
		data(stream)
		stream.WriteObjectEnd()
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
