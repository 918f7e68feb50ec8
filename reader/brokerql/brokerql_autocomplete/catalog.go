package brokerql_autocomplete

// Catalog supplies the open-ended names autocomplete cannot derive from the grammar.
type Catalog interface {
	LabelNames() []string
	PresetNames() []string
	PresetText(name string) (string, bool)
}

// PresetSource is the read side of a preset registry.
type PresetSource interface {
	Names() []string
	Text(name string) (string, bool)
}

// StaticCatalog is a Catalog over fixed label names and an optional preset source.
type StaticCatalog struct {
	Labels  []string
	Presets PresetSource
}

func (c StaticCatalog) LabelNames() []string {
	return c.Labels
}

func (c StaticCatalog) PresetNames() []string {
	if c.Presets == nil {
		return nil
	}
	return c.Presets.Names()
}

func (c StaticCatalog) PresetText(name string) (string, bool) {
	if c.Presets == nil {
		return "", false
	}
	return c.Presets.Text(name)
}
