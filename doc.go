/*
Package tmplschema infers the shape of the context a template expects.

Given a template written in the familiar {{ expression }} / {% statement %}
syntax, it produces a structural type describing every free variable the
template reads, nested as dictionaries, lists, tuples and scalars, and can
project that structure onto a JSON Schema for form rendering or input
validation.

	context, err := tmplschema.Infer("{{ user.name }} has {{ items|length }} items")
	// context describes {user: {name: <scalar>}, items: [<unknown>]}

	schema, err := tmplschema.InferSchema("{{ user.name }}")

Templates are never evaluated.  The analyzer walks the parse tree once,
propagating the structure each syntactic position demands downward and
merging the evidence it finds upward.  Conflicting evidence about a single
variable, such as printing x on one line and reading x.name on the next,
surfaces as a merge error carrying both source lines.

Sets of templates that reference each other through include, import or
extends are analyzed through a Bundle, which resolves those references and
can re-run inference when watched files change.
*/
package tmplschema
