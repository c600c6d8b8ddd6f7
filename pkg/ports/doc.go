/*
Package ports defines the driven ports (interfaces) for the Parley engine.

These interfaces decouple the core logic from external implementations,
allowing the engine to work with various script sources and session
storage backends.

# Key Interfaces

  - ScriptLoader: Responsible for loading script definitions (e.g., from YAML files or Loam directories).
  - ConversationStore: Responsible for persisting and loading conversation snapshots.
  - SessionLocker: Provides per-session locking for hosts with concurrent callers.
*/
package ports
