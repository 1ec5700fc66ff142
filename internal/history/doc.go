// Package history records pipeline runs in SQLite so past outcomes can be
// inspected after the fact.
//
// Each working directory owns its ledger at LOGS/history.db: one runs row per
// execution and one run_stages row per stage outcome. Keeping the database
// inside the working directory means concurrent pipelines on disjoint
// directories never share state.
//
// The ledger is an append-only record rather than coordination state. Schema
// changes bump the version in schema.go; delete the database to adopt a new
// schema.
package history
