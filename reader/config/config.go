package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
	clconfig "github.com/metrico/cloki-config"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/validator.v9"
)

var Cloki *clconfig.ClokiConfig

// BrokerQL holds the query front end settings of the running process.
var BrokerQL = DefaultSettings()

var validate = validator.New()

type Settings struct {
	// Labels is the label catalog offered by autocomplete.
	Labels         []string `validate:"dive,required"`
	MaxQueryLength int      `validate:"gt=0"`
	MaxSuggestions int      `validate:"gt=0"`
}

func DefaultSettings() Settings {
	return Settings{
		Labels: []string{
			"AMQP", "MQTT", "STOMP", "NETWORKING", "TLS", "CONNECTION", "CHANNEL",
			"QUEUE", "STREAM", "RAFT", "FEDERATION", "SHOVEL", "CLUSTERING", "PEER_DISCOVERY",
		},
		MaxQueryLength: 4096,
		MaxSuggestions: 50,
	}
}

// ReadEnv applies BROKERQL_* overrides from the environment.
func (s *Settings) ReadEnv() error {
	return s.readEnv(os.Getenv)
}

func (s *Settings) readEnv(getenv func(string) string) error {
	if v := getenv("BROKERQL_LABELS"); v != "" {
		var labels []string
		for _, l := range strings.Split(v, ",") {
			if l = strings.TrimSpace(l); l != "" {
				labels = append(labels, l)
			}
		}
		s.Labels = labels
	}
	if v := getenv("BROKERQL_MAX_QUERY_LENGTH"); v != "" {
		var size datasize.ByteSize
		if err := size.UnmarshalText([]byte(v)); err != nil {
			return errors.Wrapf(err, "invalid BROKERQL_MAX_QUERY_LENGTH value `%s`", v)
		}
		s.MaxQueryLength = int(size.Bytes())
	}
	if v := getenv("BROKERQL_MAX_SUGGESTIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid BROKERQL_MAX_SUGGESTIONS value `%s`", v)
		}
		s.MaxSuggestions = n
	}
	return s.Validate()
}

func (s *Settings) Validate() error {
	return errors.Wrap(validate.Struct(s), "invalid brokerql settings")
}
