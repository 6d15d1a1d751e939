/*
Package expr compiles the boolean filter expressions accepted by
ThenIsFilteredBy.

An expression is parsed once, when the pipeline is built, into a small
syntax tree. Match then evaluates the tree against a variable map; parse
errors therefore surface as configuration errors rather than at raise time.

# Expression Syntax

	<expr>       := <or>
	<or>         := <and> { 'or' <and> }
	<and>        := <unary> { 'and' <unary> }
	<unary>      := ('not' | '!') <unary> | <comparison>
	<comparison> := <operand> [ <op> <operand> ]
	<operand>    := '(' <expr> ')' | <literal> | <identifier>
	<op>         := '==' | '!=' | '<' | '>' | '<=' | '>=' | 'contains'
	<literal>    := 'string' | "string" | number | true | false | null | nil

Identifiers may be dotted (args.total). A dotted identifier walks nested
maps; an identifier that resolves to nothing evaluates to nil.

# Operators

	==  !=     string comparison of the formatted values
	< > <= >=  numeric comparison
	contains   substring test on the formatted values

Custom binary operators are registered with WithOperator and used as
infix words:

	e, err := expr.Compile("args.sku matches '^A-'",
	    expr.WithOperator("matches", func(l, r any) bool { ... }))

# Truthiness

A lone operand is tested for truthiness: nil, false, "", and numeric zero
are false, everything else is true.
*/
package expr
