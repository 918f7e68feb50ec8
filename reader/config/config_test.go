package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestReadEnv(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.readEnv(env(nil)))
	assert.Equal(t, DefaultSettings(), s)

	require.NoError(t, s.readEnv(env(map[string]string{
		"BROKERQL_LABELS":           " TLS, ,queue ,",
		"BROKERQL_MAX_QUERY_LENGTH": "100",
		"BROKERQL_MAX_SUGGESTIONS":  "7",
	})))
	assert.Equal(t, Settings{Labels: []string{"TLS", "queue"}, MaxQueryLength: 100, MaxSuggestions: 7}, s)

	require.NoError(t, s.readEnv(env(map[string]string{"BROKERQL_MAX_QUERY_LENGTH": "8KB"})))
	assert.Equal(t, 8192, s.MaxQueryLength)
}

func TestReadEnvInvalid(t *testing.T) {
	s := DefaultSettings()
	err := s.readEnv(env(map[string]string{"BROKERQL_MAX_QUERY_LENGTH": "lots"}))
	assert.ErrorContains(t, err, "invalid BROKERQL_MAX_QUERY_LENGTH value `lots`")

	s = DefaultSettings()
	err = s.readEnv(env(map[string]string{"BROKERQL_MAX_SUGGESTIONS": "0"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid brokerql settings")
	assert.Contains(t, err.Error(), "MaxSuggestions")
}

func TestValidate(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	s.Labels = append(s.Labels, "")
	assert.ErrorContains(t, s.Validate(), "Labels[14]")
}
