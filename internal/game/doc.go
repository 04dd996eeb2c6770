// Package game holds the rules of a loop session: choice classification,
// nihilism scoring, persistent memory aggregation, the loop state machine and
// ending evaluation. Everything here is pure and performs no I/O; the session
// store in package engine owns locking and collaborators.
package game
