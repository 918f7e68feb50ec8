package commonroutes

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_presets"
	"github.com/metrico/brokerlog/reader/utils/logger"
)

// Ready reports OK once the preset registry has been built; building it parses every preset.
func Ready(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if err := recover(); err != nil {
			logger.Error("preset registry failed: ", err)
			w.WriteHeader(500)
			w.Write([]byte("Internal Server Error"))
		}
	}()
	brokerql_presets.Names()
	w.WriteHeader(200)
	w.Write([]byte("OK"))
}

func Config(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Not supported"))
}

func BuildInfo(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stream := jsoniter.ConfigFastest.BorrowStream(nil)
		defer jsoniter.ConfigFastest.ReturnStream(stream)
		stream.WriteObjectStart()
		stream.WriteObjectField("version")
		stream.WriteString(version)
		stream.WriteMore()
		stream.WriteObjectField("branch")
		stream.WriteString("main")
		stream.WriteObjectEnd()
		w.Header().Set("Content-Type", "application/json")
		w.Write(stream.Buffer())
	}
}
