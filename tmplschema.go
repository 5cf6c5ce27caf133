package tmplschema

import (
	"github.com/tmplschema/tmplschema/infer"
	"github.com/tmplschema/tmplschema/jsonschema"
	"github.com/tmplschema/tmplschema/parse"
	"github.com/tmplschema/tmplschema/shape"
)

// Option configures a single Infer call.
type Option func(*options)

type options struct {
	name string
	cfg  *infer.Config
}

// WithName sets the template name used in error messages.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithConfig supplies an inference configuration.
func WithConfig(cfg *infer.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithLoader supplies the loader used to resolve included, imported and
// extended templates.
func WithLoader(loader infer.Loader) Option {
	return func(o *options) {
		if o.cfg == nil {
			o.cfg = infer.DefaultConfig()
		}
		o.cfg.Loader = loader
	}
}

// Infer parses the template source and returns the structure of the context
// it expects: a dictionary of every free variable the template reads.
func Infer(source string, opts ...Option) (*shape.Dict, error) {
	var o = options{name: "template"}
	for _, opt := range opts {
		opt(&o)
	}
	tmpl, err := parse.Template(o.name, source)
	if err != nil {
		return nil, err
	}
	return infer.FromTemplate(tmpl, o.cfg)
}

// InferSchema infers the template's context and projects it onto a JSON
// Schema object tree.
func InferSchema(source string, opts ...Option) (map[string]interface{}, error) {
	var d, err = Infer(source, opts...)
	if err != nil {
		return nil, err
	}
	return jsonschema.Encode(d), nil
}
