package controllerv1

import (
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	jsoniter "github.com/json-iterator/go"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_json"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_parser"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_presets"
	"github.com/metrico/brokerlog/reader/brokerql/shared"
	"github.com/metrico/brokerlog/reader/service"
	"github.com/metrico/brokerlog/reader/utils/logger"
	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
)

type BrokerQLController struct {
	Service *service.BrokerQLService
}

type BrokerQLProps struct {
	Query  string
	Cursor int
	Raw    struct {
		Query  string `schema:"query"`
		Cursor *int   `schema:"cursor"`
	}
}

var propsDecoder = func() *schema.Decoder {
	dec := schema.NewDecoder()
	dec.IgnoreUnknownKeys(true)
	return dec
}()

// maxBody bounds the request body read for a query of the configured maximum length.
func (b *BrokerQLController) maxBody() int64 {
	return int64(b.Service.Settings.MaxQueryLength)*2 + 1024
}

func (b *BrokerQLController) parseProps(r *http.Request) (BrokerQLProps, error) {
	res := BrokerQLProps{}
	contentType := r.Header.Get("Content-Type")
	switch {
	case r.Method == "POST" && strings.HasPrefix(contentType, "application/json"):
		body, err := io.ReadAll(io.LimitReader(r.Body, b.maxBody()))
		if err != nil {
			return res, errors.Wrap(err, "reading request body")
		}
		v, err := fastjson.ParseBytes(body)
		if err != nil {
			return res, errors.Wrap(err, "invalid JSON body")
		}
		res.Raw.Query = string(v.GetStringBytes("query"))
		if c := v.Get("cursor"); c != nil {
			cursor, err := c.Int()
			if err != nil {
				return res, errors.Wrap(err, "invalid cursor")
			}
			res.Raw.Cursor = &cursor
		}
	case r.Method == "POST" && strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
		r.Body = io.NopCloser(io.LimitReader(r.Body, b.maxBody()))
		if err := r.ParseForm(); err != nil {
			return res, err
		}
		if err := propsDecoder.Decode(&res.Raw, r.PostForm); err != nil {
			return res, errors.Wrap(err, "invalid form")
		}
	}
	if res.Raw.Query == "" && res.Raw.Cursor == nil {
		if err := propsDecoder.Decode(&res.Raw, r.URL.Query()); err != nil {
			return res, errors.Wrap(err, "invalid query parameters")
		}
	}
	res.Query = res.Raw.Query
	res.Cursor = len(res.Query)
	if res.Raw.Cursor != nil {
		res.Cursor = *res.Raw.Cursor
	}
	return res, nil
}

func (b *BrokerQLController) handleError(err error, w http.ResponseWriter) {
	if d, ok := shared.AsDiagnostic(err); ok {
		writeError(http.StatusBadRequest, "bad_data", d.Message, d, w)
		return
	}
	switch {
	case errors.Is(err, service.ErrQueryTooLong):
		PromError(http.StatusBadRequest, err.Error(), w)
	case errors.Is(err, brokerql_presets.ErrUnknownPreset):
		PromError(http.StatusNotFound, err.Error(), w)
	default:
		logger.Error("[BQL001] ", err.Error())
		PromError(http.StatusInternalServerError, err.Error(), w)
	}
}

func (b *BrokerQLController) Parse(w http.ResponseWriter, r *http.Request) {
	defer tamePanic(w, r)
	req, err := b.parseProps(r)
	if err != nil {
		PromError(http.StatusBadRequest, err.Error(), w)
		return
	}
	res, err := b.Service.Parse(req.Query)
	if err != nil {
		b.handleError(err, w)
		return
	}
	writeSuccess(w, func(stream *jsoniter.Stream) {
		stream.WriteObjectStart()
		stream.WriteObjectField("query")
		brokerql_json.WriteQuery(stream, res.Query)
		stream.WriteMore()
		stream.WriteObjectField("canonical")
		stream.WriteString(res.Canonical)
		stream.WriteMore()
		stream.WriteObjectField("fingerprint")
		stream.WriteString(brokerql_parser.FingerprintString(res.Fingerprint))
		stream.WriteMore()
		stream.WriteObjectField("warnings")
		brokerql_json.WriteDiagnostics(stream, res.Warnings)
		stream.WriteObjectEnd()
	})
}

func (b *BrokerQLController) Filter(w http.ResponseWriter, r *http.Request) {
	defer tamePanic(w, r)
	req, err := b.parseProps(r)
	if err != nil {
		PromError(http.StatusBadRequest, err.Error(), w)
		return
	}
	expr, err := b.Service.ParseFilter(req.Query)
	if err != nil {
		b.handleError(err, w)
		return
	}
	writeSuccess(w, func(stream *jsoniter.Stream) {
		stream.WriteObjectStart()
		stream.WriteObjectField("expr")
		brokerql_json.WriteExpr(stream, expr)
		stream.WriteMore()
		stream.WriteObjectField("canonical")
		stream.WriteString(brokerql_parser.ExprString(expr))
		stream.WriteObjectEnd()
	})
}

func (b *BrokerQLController) Tokens(w http.ResponseWriter, r *http.Request) {
	defer tamePanic(w, r)
	req, err := b.parseProps(r)
	if err != nil {
		PromError(http.StatusBadRequest, err.Error(), w)
		return
	}
	toks, err := b.Service.Tokens(req.Query)
	if err != nil {
		b.handleError(err, w)
		return
	}
	writeSuccess(w, func(stream *jsoniter.Stream) {
		brokerql_json.WriteTokens(stream, toks)
	})
}

func (b *BrokerQLController) Suggest(w http.ResponseWriter, r *http.Request) {
	defer tamePanic(w, r)
	req, err := b.parseProps(r)
	if err != nil {
		PromError(http.StatusBadRequest, err.Error(), w)
		return
	}
	res, err := b.Service.Suggest(req.Query, req.Cursor)
	if err != nil {
		b.handleError(err, w)
		return
	}
	writeSuccess(w, func(stream *jsoniter.Stream) {
		brokerql_json.WriteSuggestions(stream, res)
	})
}

func (b *BrokerQLController) Presets(w http.ResponseWriter, r *http.Request) {
	defer tamePanic(w, r)
	presets := b.Service.Presets()
	writeSuccess(w, func(stream *jsoniter.Stream) {
		brokerql_json.WritePresets(stream, presets)
	})
}

func (b *BrokerQLController) Preset(w http.ResponseWriter, r *http.Request) {
	defer tamePanic(w, r)
	p, q, err := b.Service.Preset(mux.Vars(r)["name"])
	if err != nil {
		b.handleError(err, w)
		return
	}
	writeSuccess(w, func(stream *jsoniter.Stream) {
		stream.WriteObjectStart()
		stream.WriteObjectField("preset")
		brokerql_json.WritePreset(stream, p)
		stream.WriteMore()
		stream.WriteObjectField("ast")
		brokerql_json.WriteQuery(stream, q)
		stream.WriteObjectEnd()
	})
}
