// Package testutil holds shared helpers for tests that drive a whole run:
// recipe fixtures on disk, a thread-safe log buffer and a fake toolchain
// standing in for the external builder and uploader.
package testutil
