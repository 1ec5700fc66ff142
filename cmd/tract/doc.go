// Package main hosts the tract CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into pipeline
// runs, dry-run plans, environment checks, run-history queries, and
// configuration scaffolding. It centralizes configuration resolution, exit
// code mapping, and output rendering so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
// That separation keeps the CLI declarative while the heavy lifting lives in
// reusable pipeline components.
package main
