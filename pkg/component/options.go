package component

import (
	"log/slog"

	"github.com/recera/rapier/pkg/textstream"
)

// Attributes names the markup attributes the gatherer and registry look for
type Attributes struct {
	// Component names a template
	Component string
	// Variant marks a template as an alternate rendering of a component
	Variant string
	// Ignored excludes an element and everything inside it from gathering
	Ignored string
	// Insert marks the child of a parent that Many inserts before
	Insert string
	// ModelComponent is written onto the parent of an anonymous template
	// with the generated component name
	ModelComponent string
}

// DefaultAttributes returns the data-hr-* attribute names
func DefaultAttributes() Attributes {
	return Attributes{
		Component:      "data-hr-component",
		Variant:        "data-hr-variant",
		Ignored:        "data-hr-ignored",
		Insert:         "data-hr-insert",
		ModelComponent: "data-hr-model-component",
	}
}

func (a Attributes) withDefaults() Attributes {
	def := DefaultAttributes()
	if a.Component == "" {
		a.Component = def.Component
	}
	if a.Variant == "" {
		a.Variant = def.Variant
	}
	if a.Ignored == "" {
		a.Ignored = def.Ignored
	}
	if a.Insert == "" {
		a.Insert = def.Insert
	}
	if a.ModelComponent == "" {
		a.ModelComponent = def.ModelComponent
	}
	return a
}

// Options configures a Registry
type Options struct {
	Attributes Attributes

	// Stream configures the templates gathered into the registry. A zero
	// value means textstream.DefaultOptions.
	Stream textstream.Options

	// MarkedElements gathers any element carrying a component or variant
	// attribute, not only <template> elements
	MarkedElements bool

	Logger *slog.Logger
}

// DefaultOptions returns the options used by NewRegistry when none are given
func DefaultOptions() Options {
	return Options{
		Attributes: DefaultAttributes(),
		Stream:     textstream.DefaultOptions(),
		Logger:     slog.Default(),
	}
}

func (o Options) withDefaults() Options {
	o.Attributes = o.Attributes.withDefaults()
	if o.Stream.Open == 0 && o.Stream.Close == 0 {
		o.Stream = textstream.DefaultOptions()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
