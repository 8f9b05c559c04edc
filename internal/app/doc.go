// Package app contains the core application logic. It defines the App that
// drives one build-all run over a set of recipes, its configuration, and the
// Report a run produces, decoupled from the command-line entrypoint.
package app
