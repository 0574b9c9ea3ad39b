package main

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/postal/config"
	"github.com/wippyai/postal/data"
	"github.com/wippyai/postal/errors"
)

// releaseServer serves a small archive for every asset of version.
func releaseServer(t *testing.T, version string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	body := []byte("model")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name: "address_expansions/address_dictionary.dat", Mode: 0o644, Size: int64(len(body)), Typeflag: tar.TypeReg,
	}))
	_, err := tw.Write(body)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !strings.HasPrefix(r.URL.Path, "/"+version+"/") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestDataFetch(t *testing.T) {
	srv, hits := releaseServer(t, "v1.1.0")
	h := newHarness(t)
	root := t.TempDir()

	require.NoError(t, h.exec("", "data", "status", "--root", root))
	assert.Equal(t, filepath.Join(root, "datadir")+"\tnot installed\n", h.out.String())

	require.NoError(t, h.exec("", "data", "fetch", "--root", root, "--version", "v1.1.0", "--base-url", srv.URL, "--json"))
	lines := jsonLines(t, h.out.String())
	require.Len(t, lines, 1)
	assert.Equal(t, "v1.1.0", lines[0]["input"])
	assert.Equal(t, filepath.Join(root, "datadir"), lines[0]["data_dir"])
	assert.EqualValues(t, len(data.DefaultArchives()), hits.Load())
	assert.FileExists(t, filepath.Join(root, "datadir", "address_expansions", "address_dictionary.dat"))
	assert.Empty(t, h.fake.Calls(), "fetch does not open a backend")

	require.NoError(t, h.exec("", "data", "fetch", "--root", root, "--version", "v1.1.0", "--base-url", srv.URL))
	assert.Equal(t, filepath.Join(root, "datadir")+"\n", h.out.String())
	assert.EqualValues(t, len(data.DefaultArchives()), hits.Load(), "an installed release is not fetched again")

	require.NoError(t, h.exec("", "data", "status", "--root", root))
	assert.Equal(t, filepath.Join(root, "datadir")+"\tv1.1.0\n", h.out.String())
}

func TestDataFetch_Failure(t *testing.T) {
	srv, _ := releaseServer(t, "v1.1.0")
	h := newHarness(t)

	err := h.exec("", "data", "fetch", "--root", t.TempDir(), "--base-url", srv.URL)
	require.Error(t, err)
	assert.True(t, errors.IsSetup(err))
}

func TestAutoDownloadBeforeOpen(t *testing.T) {
	srv, hits := releaseServer(t, data.DefaultVersion)
	h := newHarness(t)
	root := t.TempDir()
	t.Setenv(config.EnvAutoDownload, "true")
	t.Setenv(config.EnvDataRoot, root)
	t.Setenv(config.EnvDataURL, srv.URL)

	require.NoError(t, h.exec("", "normalize", "Main St"))
	require.NotNil(t, h.cfg)
	assert.Equal(t, filepath.Join(root, "datadir"), h.cfg.DataDir)
	assert.EqualValues(t, len(data.DefaultArchives()), hits.Load())

	marker, err := os.ReadFile(filepath.Join(root, "datadir", data.VersionFile))
	require.NoError(t, err)
	assert.Equal(t, data.DefaultVersion, string(marker))

	// An explicit data directory wins over auto_download.
	require.NoError(t, h.exec("", "normalize", "Main St", "--data-dir", "/opt/libpostal"))
	assert.Equal(t, "/opt/libpostal", h.cfg.DataDir)
	assert.EqualValues(t, len(data.DefaultArchives()), hits.Load())
}
