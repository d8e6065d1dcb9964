// Package console implements the interactive, menu-driven console.
//
// The main menu lists sections (Cluster, Platform, Data, Stack). Inside a
// section every step is numbered and can be run on its own; "a" runs all
// steps in order and stops at the first failure, "b" goes back and "q"
// quits. Each step prints its result inline.
//
// Input comes from a LineReader, a chzyer/readline instance on a terminal,
// so tests can script the session.
package console
