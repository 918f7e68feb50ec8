package brokerql_presets

import (
	"sync"

	"github.com/metrico/brokerlog/reader/brokerql/brokerql_parser"
	"github.com/pkg/errors"
)

type Name string

const (
	Errors            Name = "errors"
	Crashes           Name = "crashes"
	WarningsAndErrors Name = "warnings_and_errors"
	RecentErrors      Name = "recent_errors"
	Connections       Name = "connections"
	Disconnections    Name = "disconnections"
	TLS               Name = "tls"
	RaftElections     Name = "raft_elections"
	QueueDeletions    Name = "queue_deletions"
	AccessControl     Name = "access_control"
)

var ErrUnknownPreset = errors.New("unknown preset")

type Preset struct {
	Name        Name
	Description string
	Text        string
}

var definitions = []Preset{
	{Errors, "entries at error severity or above",
		`severity >= error sort by timestamp desc`},
	{Crashes, "crash reports and abnormal process exits",
		`severity = critical OR message ~ "crash report" OR message ~ "terminating abnormally" sort by timestamp desc`},
	{WarningsAndErrors, "entries at warning severity or above",
		`severity >= warning sort by timestamp desc`},
	{RecentErrors, "errors logged during the last hour",
		`severity >= error AND age < 1h sort by timestamp desc limit 100`},
	{Connections, "accepted client connections",
		`message ~ "accepting AMQP connection" OR message ~ "accepting MQTT connection" sort by timestamp desc`},
	{Disconnections, "closed and lost client connections",
		`message ~ "closing AMQP connection" OR message ~ "client unexpectedly closed TCP connection" OR message =~ "connection .* (closed|lost)" sort by timestamp desc`},
	{TLS, "TLS handshake and certificate problems",
		`label:TLS OR message ~ "TLS" OR message ~ "certificate" sort by timestamp desc`},
	{RaftElections, "Raft leader elections of quorum queues and streams",
		`subsystem = ra AND (message ~ "election" OR message ~ "leader") sort by timestamp desc`},
	{QueueDeletions, "queue deletions",
		`message =~ "queue '.*' .*deleted" OR message ~ "deleting queue" sort by timestamp desc`},
	{AccessControl, "authentication and authorization failures",
		`message ~ "access refused" OR message ~ "authentication failed" OR message ~ "not authorised" sort by timestamp desc`},
}

type registry struct {
	names   []string
	queries map[Name]brokerql_parser.Query
	texts   map[Name]string
}

var load = sync.OnceValue(func() *registry {
	r := &registry{
		queries: make(map[Name]brokerql_parser.Query, len(definitions)),
		texts:   make(map[Name]string, len(definitions)),
	}
	for _, d := range definitions {
		q, err := brokerql_parser.ParseQuery(d.Text)
		if err != nil {
			panic(errors.Wrapf(err, "preset %s", d.Name))
		}
		r.names = append(r.names, string(d.Name))
		r.queries[d.Name] = q
		r.texts[d.Name] = q.String()
	}
	return r
})

// Resolve returns a private copy of the named preset's query.
func Resolve(name Name) (brokerql_parser.Query, bool) {
	q, ok := load().queries[name]
	if !ok {
		return brokerql_parser.Query{}, false
	}
	return q.Clone(), true
}

func ResolveString(name string) (brokerql_parser.Query, error) {
	q, ok := Resolve(Name(name))
	if !ok {
		return brokerql_parser.Query{}, errors.Wrapf(ErrUnknownPreset, "%q", name)
	}
	return q, nil
}

// Names lists preset names in registry order.
func Names() []string {
	return append([]string(nil), load().names...)
}

// Text returns the canonical query text of a preset, suitable for seeding an editor.
func Text(name string) (string, bool) {
	t, ok := load().texts[Name(name)]
	return t, ok
}

func All() []Preset {
	res := make([]Preset, len(definitions))
	for i, d := range definitions {
		res[i] = Preset{Name: d.Name, Description: d.Description, Text: load().texts[d.Name]}
	}
	return res
}

// Registry exposes the process-wide presets through method values.
type Registry struct{}

func (Registry) Names() []string                 { return Names() }
func (Registry) Text(name string) (string, bool) { return Text(name) }
