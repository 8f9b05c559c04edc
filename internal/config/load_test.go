package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/buildall/internal/matrix"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "buildall.hcl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_NoFile(t *testing.T) {
	s, err := Load(context.Background(), "", []string{"BINSTAR_TOKEN=from-env", "HOME=/root"})
	require.NoError(t, err)

	want := Default()
	want.Uploader.Token = "from-env"
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FullFile(t *testing.T) {
	path := writeSettings(t, `
subdir           = "osx-64"
output_dir       = "/tmp/conda-bld/osx-64"
channel_base_url = "https://mirror.example.org"
check_against    = ["omnia", "conda-forge"]
metrics_file     = "/var/lib/node_exporter/buildall.prom"

runtime "python" {
  versions = ["2.7", "3.5"]
}

numlib "numpy" {
  versions = ["1.9", "1.10"]
  tag      = "numpy"
}

incompatible {
  runtime = "3.5"
  numlib  = "1.9"
}

incompatible {
  runtime = "2.7"
  numlib  = "1.10"
}

builder {
  command  = "/opt/conda/bin/conda"
  channels = ["omnia"]
}

uploader {
  command   = "/opt/conda/bin/anaconda"
  token     = env.UPLOAD_TOKEN
  attempts  = 3
  backoff   = "2s"
  blocklist = "blocklist.txt"
}
`)

	s, err := Load(context.Background(), path, []string{"UPLOAD_TOKEN=s3cret", "BINSTAR_TOKEN=ignored"})
	require.NoError(t, err)

	want := &Settings{
		Subdir:         "osx-64",
		OutputDir:      "/tmp/conda-bld/osx-64",
		ChannelBaseURL: "https://mirror.example.org",
		CheckAgainst:   []string{"omnia", "conda-forge"},
		MetricsFile:    "/var/lib/node_exporter/buildall.prom",
		Runtime:        matrix.Axis{Component: "python", Tag: "py", Values: []string{"2.7", "3.5"}},
		NumLib:         matrix.Axis{Component: "numpy", Tag: "numpy", Values: []string{"1.9", "1.10"}},
		Incompatible: []matrix.PairRule{
			{Runtime: "3.5", NumLib: "1.9"},
			{Runtime: "2.7", NumLib: "1.10"},
		},
		Builder: Builder{Command: "/opt/conda/bin/conda", Channels: []string{"omnia"}},
		Uploader: Uploader{
			Command:   "/opt/conda/bin/anaconda",
			Token:     "s3cret",
			Attempts:  3,
			Backoff:   2 * time.Second,
			Blocklist: "blocklist.txt",
		},
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, s.Rules(), 2)
	assert.Equal(t, 3, s.RetryPolicy().Attempts)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeSettings(t, `
builder {
  channels = ["omnia"]
}
`)
	s, err := Load(context.Background(), path, nil)
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, "conda", s.Builder.Command)
	assert.Equal(t, []string{"omnia"}, s.Builder.Channels)
	assert.Equal(t, def.Runtime, s.Runtime)
	assert.Equal(t, def.Incompatible, s.Incompatible)
	assert.Equal(t, matrix.DefaultPairs, s.Incompatible)
	assert.Equal(t, def.Uploader, s.Uploader)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
		wantErr string
	}{
		{"syntax error", `builder {`, "failed to parse settings file"},
		{"unknown attribute", `colour = "blue"`, "failed to decode settings file"},
		{"duplicate runtime block", "runtime \"python\" {\n versions = [\"2.7\"]\n}\nruntime \"python\" {\n versions = [\"3.5\"]\n}\n", "failed to decode settings file"},
		{"missing env variable", "uploader {\n token = env.NOPE\n}\n", "failed to decode settings file"},
		{"bad backoff", "uploader {\n backoff = \"soon\"\n}\n", "invalid uploader backoff"},
		{"zero attempts", "uploader {\n attempts = 0\n}\n", "uploader attempts must be at least 1"},
		{"empty axis", "numlib \"numpy\" {\n versions = []\n}\n", "has no versions"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(context.Background(), writeSettings(t, tc.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"), nil)
	assert.ErrorContains(t, err, "failed to parse settings file")
}

func TestDefaultSubdir(t *testing.T) {
	testCases := map[string]struct {
		goos, goarch string
		want         string
	}{
		"linux amd64":   {"linux", "amd64", "linux-64"},
		"linux arm64":   {"linux", "arm64", "linux-aarch64"},
		"darwin amd64":  {"darwin", "amd64", "osx-64"},
		"darwin arm64":  {"darwin", "arm64", "osx-arm64"},
		"windows amd64": {"windows", "amd64", "win-64"},
		"windows 386":   {"windows", "386", "win-32"},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, DefaultSubdir(tc.goos, tc.goarch))
		})
	}
}
