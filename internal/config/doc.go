// Package config loads the optional HCL settings file that tunes a run: the
// version axes, incompatible pairs, external tool commands and uploader
// retry policy. Values not set in the file keep their defaults, and command
// line flags are applied on top by the caller.
package config
