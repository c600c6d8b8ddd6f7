/*
Package domain contains the core domain models for the Parley engine.

It defines the fundamental entities of a tag-driven dialogue: the tag
table, tag counts, handler bindings and the per-session conversation
snapshot. This package is kept pure and free of external dependencies
like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - TagTable: Normalized phrase -> tags table the matcher compiles.
  - TagCount: Multiset of tags extracted from one message.
  - Action: Terminal decision of a response hook (go to a state, or finish).
  - Conversation: Captures the runtime snapshot of a session (current state, history).
*/
package domain
