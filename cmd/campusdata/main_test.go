package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusapp/go-campusdata/campus"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func isolate(t *testing.T) string {
	dir := t.TempDir()
	t.Setenv("CAMPUS_CACHE_DIR", dir)
	t.Setenv("CAMPUS_CACHE_BACKEND", "file")
	t.Setenv("SERVICE_ENV", "")
	t.Setenv("CAMPUS_CONFIG", "")
	return dir
}

func TestFetchLocal(t *testing.T) {
	isolate(t)
	out, err := run(t, "fetch", "guides", "--env", "local")
	require.NoError(t, err)

	var guides campus.GuidesData
	require.NoError(t, json.Unmarshal([]byte(out), &guides))
	assert.NotEmpty(t, guides.Guides)
}

func TestFetchPerspective(t *testing.T) {
	isolate(t)
	out, err := run(t, "fetch", "resources", "--env", "local", "--perspective", "facultyStaff")
	require.NoError(t, err)

	var res campus.ResourcesData
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	for _, r := range res.Resources {
		assert.True(t, r.Visibility.IsVisible(campus.FacultyStaff), r.ID)
	}

	_, err = run(t, "fetch", "resources", "--env", "local", "--perspective", "alumni")
	assert.ErrorIs(t, err, campus.ErrUnknownPerspective)
}

func TestFetchRejectsUnknownResource(t *testing.T) {
	isolate(t)
	_, err := run(t, "fetch", "events")
	assert.Error(t, err)
	_, err = run(t, "fetch", "guides", "--env", "staging")
	assert.Error(t, err)
}

func TestFetchCloudPopulatesCache(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sections":[],"lastUpdated":"cloud"}`))
	}))
	defer srv.Close()
	config := filepath.Join(t.TempDir(), "campus.yaml")
	require.NoError(t, os.WriteFile(config, []byte("id: test\nstorageBaseURL: "+srv.URL+"\n"), 0o644))

	out, err := run(t, "fetch", "account", "--env", "cloud", "--config", config)
	require.NoError(t, err)
	assert.Contains(t, out, `"lastUpdated": "cloud"`)

	out, err = run(t, "cache", "show", "account")
	require.NoError(t, err)
	assert.Contains(t, out, "key:    account")
	assert.Contains(t, out, "age:")

	out, err = run(t, "cache", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared file cache")

	out, err = run(t, "cache", "show", "account")
	require.NoError(t, err)
	assert.Contains(t, out, "account: not cached")
}

func TestEnvCommand(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(t.TempDir(), "campus.env")
	require.NoError(t, os.WriteFile(envFile, []byte("CAMPUS_REMOTE_RETRIES=3\nCAMPUS_REMOTE_TIMEOUT=5s\n"), 0o644))

	out, err := run(t, "env", "--env", "cloudOnly", "--env-file", envFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Contains(t, lines, "SERVICE_ENV=cloudOnly")
	assert.Contains(t, lines, "CAMPUS_REMOTE_RETRIES=3")
	assert.Contains(t, lines, "CAMPUS_REMOTE_TIMEOUT=5s")
	assert.Contains(t, lines, "CAMPUS_CACHE_DIR="+dir)
}
