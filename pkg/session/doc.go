/*
Package session orchestrates concurrent access to stored conversations.

A conversation accepts one turn at a time. The Manager enforces that for
hosts with many callers (HTTP, MCP) by serializing operations per
session ID, locally through reference-counted mutexes and optionally
across replicas through a ports.SessionLocker.
*/
package session
