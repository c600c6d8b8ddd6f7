/*
Package parley is a tag-driven dialogue engine for building finite-state
conversational agents.

A bot is three cooperating parts: a tag matcher that reduces free-text
messages to a multiset of tags, an immutable script declaring states,
handler bindings and finish manners, and an engine whose only mutable
cell is the current state, routing every message through the current
state's response hook. Response hooks never print or mutate; they
return a transition (go to a state, or finish with a manner) and the
engine executes it, so state and output always change together.

# Concept

Conversations rest in the script's default state. A response hook moves
the conversation forward with GoTo, which runs the target state's entry
hook and speaks its prompt, or ends it with Finish, which speaks the
manner's parting line and resets to the default state. The default state
is only reachable through Finish.

The core is headless: it does no I/O beyond the strings it returns.
Session loops, stores and transports live in pkg/runner and
pkg/adapters, following Hexagonal Architecture.

# Usage

Scripts are built fluently in Go or loaded from YAML files and markdown
directories:

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/parley"
		"github.com/aretw0/parley/pkg/domain"
		"github.com/aretw0/parley/pkg/script"
	)

	func main() {
		b := script.New("hello").Default("waiting")
		b.Tag("hello", "greeting")
		b.State("waiting").
			Rule("greeting", domain.GoTo("howdy")).
			Else(domain.Finish("confused"))
		b.State("howdy").
			Prompt("Well hello! Anything else?").
			Else(domain.Finish("done"))
		b.Manner("confused", "Sorry?")
		b.Manner("done", "Goodbye!")

		sc, err := b.Build()
		if err != nil {
			log.Fatal(err)
		}

		bot, err := parley.New(sc)
		if err != nil {
			log.Fatal(err)
		}

		reply, err := bot.Respond(context.Background(), "hello there")
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(reply) // Well hello! Anything else?
	}

One engine serves one conversation; share the script across engines for
concurrent sessions.
*/
package parley
