package cmd

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"

	"github.com/oneconcern/tokenfs/pkg/metrics"
	"github.com/oneconcern/tokenfs/pkg/token"
)

type cliEnv struct {
	storageRoot string
	metaDir     string
	blobDir     string
	work        string
}

func setupCLI(t *testing.T) cliEnv {
	t.Helper()

	base := t.TempDir()
	env := cliEnv{
		storageRoot: filepath.Join(base, "data"),
		metaDir:     filepath.Join(base, "meta"),
		blobDir:     filepath.Join(base, "blobs"),
		work:        filepath.Join(base, "work"),
	}
	for _, dir := range []string{
		filepath.Join(env.storageRoot, "alice", "docs"),
		filepath.Join(env.storageRoot, "bob"),
		env.work,
	} {
		require.NoError(t, os.MkdirAll(dir, 0o700))
	}
	require.NoError(t, os.WriteFile(filepath.Join(env.storageRoot, "alice", "docs", "report.txt"), []byte("quarterly report"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(env.storageRoot, "alice", "todo.md"), []byte("- nothing"), 0o600))

	savedFatalf, savedFatalln := logFatalf, logFatalln
	logFatalf = func(format string, args ...interface{}) {
		t.Fatalf(format, args...)
	}
	logFatalln = func(args ...interface{}) {
		t.Fatal(args...)
	}
	t.Cleanup(func() {
		logFatalf, logFatalln = savedFatalf, savedFatalln
	})

	return env
}

func (e cliEnv) run(t *testing.T, args ...string) string {
	t.Helper()

	tokenfsFlags = flagsT{}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append(args,
		"--storage-root", e.storageRoot,
		"--meta-dir", e.metaDir,
		"--blob-dir", e.blobDir,
		"--loglevel", "none",
		"--owner", "alice",
	))
	require.NoError(t, rootCmd.Execute())

	return out.String()
}

func TestCLI(t *testing.T) {
	env := setupCLI(t)

	out := env.run(t, "index")
	assert.Contains(t, out, "indexed 3 entries for alice")

	out = env.run(t, "ls")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], token.For("/docs").String()))
	assert.Contains(t, lines[0], "docs/")
	assert.Contains(t, lines[1], "todo.md")
	assert.Contains(t, lines[1], "9B")

	out = env.run(t, "ls", token.For("/docs").String())
	assert.Contains(t, out, "report.txt")

	out = env.run(t, "search", "REPORT")
	assert.Contains(t, out, token.For("/docs/report.txt").String())

	out = env.run(t, "locate", token.For("/docs/report.txt").String())
	assert.Equal(t, "/docs/report.txt\t"+filepath.Join(env.storageRoot, "alice", "docs", "report.txt")+"\n", out)

	out = env.run(t, "mkdir", "--parent", token.For("/docs").String(), "archive")
	assert.Contains(t, out, token.For("/docs/archive").String())

	local := filepath.Join(env.work, "local.bin")
	require.NoError(t, os.WriteFile(local, []byte("uploaded content"), 0o600))
	out = env.run(t, "upload", "--parent", token.For("/docs/archive").String(), "--name", "old.bin", local)
	assert.Contains(t, out, token.For("/docs/archive/old.bin").String())

	downloaded := filepath.Join(env.work, "copy.bin")
	out = env.run(t, "download", "-o", downloaded, token.For("/docs/archive/old.bin").String())
	assert.Contains(t, out, "16 bytes")
	content, err := os.ReadFile(downloaded)
	require.NoError(t, err)
	assert.Equal(t, "uploaded content", string(content))

	out = env.run(t, "rm", token.For("/docs").String())
	assert.Contains(t, out, "removed 4 nodes")

	out = env.run(t, "ls")
	assert.NotContains(t, out, "docs/")
	assert.Contains(t, out, "todo.md")
}

func TestCLIConfig(t *testing.T) {
	env := setupCLI(t)

	out := env.run(t, "config")

	var c CLIConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &c))
	assert.Equal(t, env.storageRoot, c.StorageRoot)
	assert.Equal(t, env.metaDir, c.MetaDir)
	assert.Equal(t, env.blobDir, c.BlobDir)
	assert.Equal(t, "none", c.LogLevel)
	assert.Equal(t, "alice", c.Owner)
}

func TestMetricsHandler(t *testing.T) {
	metrics.Default().SyncEvent("alice", "create")

	srv := httptest.NewServer(metricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `tokenfs_sync_events_total{op="create",owner="alice"}`)
}
