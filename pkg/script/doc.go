/*
Package script defines dialogue scripts: the immutable bundle of declared
states, handler bindings, tag table and completion manners that an engine
runs against.

Scripts come from two places. Go hosts build them fluently with closures:

	sc, err := script.New("support").
		Default("waiting").
		Tag("hello", "greeting").
		Build()

Declarative sources (YAML files, markdown directories) produce a
Definition, which Compile turns into the same frozen Script with
rule-driven response hooks. A compiled Script carries no conversation
state and may back any number of engines concurrently.
*/
package script
