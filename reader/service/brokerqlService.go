package service

import (
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_autocomplete"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_parser"
	"github.com/metrico/brokerlog/reader/brokerql/brokerql_presets"
	"github.com/metrico/brokerlog/reader/brokerql/shared"
	"github.com/metrico/brokerlog/reader/config"
	"github.com/metrico/brokerlog/reader/utils/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var ErrQueryTooLong = errors.New("query is too long")

var (
	parseOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brokerql_parse_total",
		Help: "The total number of parsed queries by entry point and outcome",
	}, []string{"entry", "outcome"})
	suggestRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brokerql_suggest_total",
		Help: "The total number of autocomplete requests",
	})
	suggestionsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brokerql_suggestions_returned",
		Help:    "Number of suggestions returned per autocomplete request",
		Buckets: []float64{0, 1, 5, 10, 25, 50},
	})
)

type BrokerQLService struct {
	Settings config.Settings
	Catalog  brokerql_autocomplete.Catalog
}

func NewBrokerQLService(settings config.Settings) *BrokerQLService {
	return &BrokerQLService{
		Settings: settings,
		Catalog: brokerql_autocomplete.StaticCatalog{
			Labels:  settings.Labels,
			Presets: brokerql_presets.Registry{},
		},
	}
}

type ParseResult struct {
	Query       brokerql_parser.Query
	Canonical   string
	Fingerprint uint64
	Warnings    []shared.Diagnostic
}

func (s *BrokerQLService) checkLength(text string) error {
	if s.Settings.MaxQueryLength > 0 && len(text) > s.Settings.MaxQueryLength {
		return errors.Wrapf(ErrQueryTooLong, "%d bytes, the limit is %d", len(text), s.Settings.MaxQueryLength)
	}
	return nil
}

// outcome labels a parse error for metrics: the diagnostic kind, or "ok".
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if d, ok := shared.AsDiagnostic(err); ok {
		return d.Kind.String()
	}
	return "rejected"
}

func (s *BrokerQLService) Parse(text string) (ParseResult, error) {
	if err := s.checkLength(text); err != nil {
		parseOutcomes.WithLabelValues("query", outcome(err)).Inc()
		return ParseResult{}, err
	}
	q, err := brokerql_parser.ParseQuery(text)
	parseOutcomes.WithLabelValues("query", outcome(err)).Inc()
	if err != nil {
		logger.WithFields(logger.LogInfo{"query": text}).Debug("brokerql parse failed: ", err)
		return ParseResult{}, err
	}
	return ParseResult{
		Query:       q,
		Canonical:   q.String(),
		Fingerprint: brokerql_parser.Fingerprint(q),
		Warnings:    brokerql_parser.Warnings(q),
	}, nil
}

func (s *BrokerQLService) ParseFilter(text string) (brokerql_parser.FilterExpr, error) {
	if err := s.checkLength(text); err != nil {
		parseOutcomes.WithLabelValues("filter", outcome(err)).Inc()
		return nil, err
	}
	expr, err := brokerql_parser.ParseFilter(text)
	parseOutcomes.WithLabelValues("filter", outcome(err)).Inc()
	if err != nil {
		logger.WithFields(logger.LogInfo{"query": text}).Debug("brokerql filter parse failed: ", err)
		return nil, err
	}
	return expr, nil
}

func (s *BrokerQLService) Tokens(text string) ([]brokerql_parser.Token, error) {
	if err := s.checkLength(text); err != nil {
		return nil, err
	}
	return brokerql_parser.Tokenize(text), nil
}

// Suggest only fails for oversized input; any query text yields a (possibly empty) list.
func (s *BrokerQLService) Suggest(text string, cursor int) ([]brokerql_autocomplete.Suggestion, error) {
	if err := s.checkLength(text); err != nil {
		return nil, err
	}
	suggestRequests.Inc()
	res := brokerql_autocomplete.Suggest(text, cursor, s.Catalog)
	if s.Settings.MaxSuggestions > 0 && len(res) > s.Settings.MaxSuggestions {
		res = res[:s.Settings.MaxSuggestions]
	}
	suggestionsReturned.Observe(float64(len(res)))
	return res, nil
}

func (s *BrokerQLService) Presets() []brokerql_presets.Preset {
	return brokerql_presets.All()
}

func (s *BrokerQLService) Preset(name string) (brokerql_presets.Preset, brokerql_parser.Query, error) {
	q, err := brokerql_presets.ResolveString(name)
	if err != nil {
		return brokerql_presets.Preset{}, brokerql_parser.Query{}, err
	}
	for _, p := range brokerql_presets.All() {
		if string(p.Name) == name {
			return p, q, nil
		}
	}
	return brokerql_presets.Preset{}, brokerql_parser.Query{}, errors.Wrapf(brokerql_presets.ErrUnknownPreset, "%q", name)
}
