// Package preflight validates the environment before a pipeline run:
// access to the working directory and availability of the configured
// FSL binaries. The doctor command renders these results; the run
// controller logs the tool snapshot but leaves hard failures to the
// stages themselves.
package preflight
