package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qorder/internal/engine"
	"github.com/roach88/qorder/internal/entropy"
)

// feedPage builds a single JSON:API comments page with the given bodies,
// all attributed to one known user.
func feedPage(bodies ...string) string {
	type rel struct {
		Data map[string]string `json:"data"`
	}
	type record struct {
		Type          string            `json:"type"`
		ID            string            `json:"id"`
		Attributes    map[string]string `json:"attributes"`
		Relationships map[string]rel    `json:"relationships"`
	}

	data := make([]record, len(bodies))
	for i, body := range bodies {
		data[i] = record{
			Type:       "comment",
			ID:         fmt.Sprintf("c%d", i+1),
			Attributes: map[string]string{"body": body},
			Relationships: map[string]rel{
				"commenter": {Data: map[string]string{"id": "u1"}},
			},
		}
	}

	page := map[string]any{
		"data": data,
		"included": []map[string]any{
			{"type": "user", "id": "u1", "attributes": map[string]string{"full_name": "Ada Lovelace"}},
		},
		"links": map[string]string{},
	}
	raw, _ := json.Marshal(page)
	return string(raw)
}

// newFeedServer serves the same page body for every request.
func newFeedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.api+json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// writeConfig writes a CUE config pointing at the given feed server, with
// all file paths under a fresh temp dir.
func writeConfig(t *testing.T, apiURL string, maxQuestions int, extra string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`post_url: "https://example.com/posts/9"
api_url: %q
max_questions: %d
database: %q
page_cache_dir: %q
%s`, apiURL, maxQuestions, filepath.Join(dir, "qorder.db"), filepath.Join(dir, "pages"), extra)

	path := filepath.Join(dir, "deploy.cue")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	cmd := &cobra.Command{}
	out := &bytes.Buffer{}
	errBuf := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errBuf)
	return cmd, out, errBuf
}

func TestRunPipeline_WritesSortedTable(t *testing.T) {
	srv := newFeedServer(t, feedPage("question alpha", "question beta", "question gamma"))
	cfgPath := writeConfig(t, srv.URL, 10, "")
	outPath := filepath.Join(t.TempDir(), "questions.md")

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      cfgPath,
		Quantum:     true,
		Out:         outPath,
		Entropy:     entropy.NewFixed(5, 1, 3),
		Tokens:      engine.NewFixedTokenGenerator("run-1"),
		Now:         time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC),
	}
	cmd, _, _ := newTestCommand()

	require.NoError(t, runPipeline(opts, cmd))

	doc, err := os.ReadFile(outPath)
	require.NoError(t, err)
	text := string(doc)

	assert.Contains(t, text, "AMA Questions in Quantum Random Order")

	// Keys 5, 1, 3 assigned in feed order sort beta < gamma < alpha.
	beta := strings.Index(text, "question beta")
	gamma := strings.Index(text, "question gamma")
	alpha := strings.Index(text, "question alpha")
	require.NotEqual(t, -1, beta)
	require.NotEqual(t, -1, gamma)
	require.NotEqual(t, -1, alpha)
	assert.Less(t, beta, gamma)
	assert.Less(t, gamma, alpha)
}

func TestRunPipeline_RerunReusesCachedKeys(t *testing.T) {
	srv := newFeedServer(t, feedPage("only question"))
	cfgPath := writeConfig(t, srv.URL, 10, "")

	run := func(src entropy.Source) string {
		outPath := filepath.Join(t.TempDir(), "questions.md")
		opts := &RunOptions{
			RootOptions: &RootOptions{Format: "text"},
			Config:      cfgPath,
			Quantum:     true,
			Out:         outPath,
			Entropy:     src,
			Tokens:      engine.NewFixedTokenGenerator("run"),
			Now:         time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC),
		}
		cmd, _, _ := newTestCommand()
		require.NoError(t, runPipeline(opts, cmd))
		doc, err := os.ReadFile(outPath)
		require.NoError(t, err)
		return string(doc)
	}

	first := run(entropy.NewFixed(42))

	// Second run gets no entropy at all; the key must come from the cache.
	second := run(entropy.NewFixed())
	assert.Equal(t, first, second)
}

func TestRunPipeline_StdoutWhenNoOutFlag(t *testing.T) {
	srv := newFeedServer(t, feedPage("question one"))
	cfgPath := writeConfig(t, srv.URL, 10, "")

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      cfgPath,
		Quantum:     true,
		Entropy:     entropy.NewFixed(7),
		Tokens:      engine.NewFixedTokenGenerator("run"),
		Now:         time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC),
	}
	cmd, out, _ := newTestCommand()

	require.NoError(t, runPipeline(opts, cmd))
	assert.Contains(t, out.String(), "question one")
}

func TestRunPipeline_CapacityOverflow(t *testing.T) {
	srv := newFeedServer(t, feedPage("q1", "q2", "q3"))
	cfgPath := writeConfig(t, srv.URL, 3, "")
	outPath := filepath.Join(t.TempDir(), "questions.md")

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      cfgPath,
		Quantum:     true,
		Out:         outPath,
		Entropy:     entropy.NewFixed(1, 2, 3),
		Tokens:      engine.NewFixedTokenGenerator("run"),
	}
	cmd, _, _ := newTestCommand()

	err := runPipeline(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitRunFailure, GetExitCode(err))
	assert.True(t, engine.IsCapacityError(err))

	// A failed run must leave no output behind.
	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunPipeline_CollisionAborts(t *testing.T) {
	srv := newFeedServer(t, feedPage("first", "second"))
	cfgPath := writeConfig(t, srv.URL, 10, "")
	outPath := filepath.Join(t.TempDir(), "questions.md")

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      cfgPath,
		Quantum:     true,
		Out:         outPath,
		Entropy:     entropy.NewFixed(9, 9),
		Tokens:      engine.NewFixedTokenGenerator("run"),
	}
	cmd, _, _ := newTestCommand()

	err := runPipeline(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitRunFailure, GetExitCode(err))
	assert.True(t, engine.IsCollisionError(err))

	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunPipeline_MissingAPIKeyIsCommandError(t *testing.T) {
	srv := newFeedServer(t, feedPage("question"))
	cfgPath := writeConfig(t, srv.URL, 10, "")

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      cfgPath,
		Quantum:     true,
		// No Entropy override: the real ANU client is built with an
		// empty key from the environment.
		Tokens: engine.NewFixedTokenGenerator("run"),
	}
	t.Setenv("ANU_QUANTUM_API_KEY", "")
	cmd, _, _ := newTestCommand()

	err := runPipeline(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunPipeline_BadConfigIsCommandError(t *testing.T) {
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      filepath.Join(t.TempDir(), "absent.cue"),
	}
	cmd, _, _ := newTestCommand()

	err := runPipeline(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunPipeline_PseudoModeLeavesCacheEmpty(t *testing.T) {
	srv := newFeedServer(t, feedPage("p1", "p2"))
	cfgPath := writeConfig(t, srv.URL, 10, "")
	outPath := filepath.Join(t.TempDir(), "questions.md")

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      cfgPath,
		Quantum:     false,
		Out:         outPath,
		Tokens:      engine.NewFixedTokenGenerator("run"),
		Now:         time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC),
	}
	cmd, _, _ := newTestCommand()

	require.NoError(t, runPipeline(opts, cmd))

	doc, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "Pseudo Random Order")

	// Pseudo runs never write the key cache; a fresh stats run shows zero.
	statsCmd, statsOut, _ := newTestCommand()
	statsOpts := &CacheOptions{RootOptions: &RootOptions{Format: "text"}, Config: cfgPath}
	require.NoError(t, runCacheStats(statsOpts, statsCmd))
	assert.Contains(t, statsOut.String(), "0 cached keys")
}

func TestRunPipeline_PublishesGist(t *testing.T) {
	srv := newFeedServer(t, feedPage("gist question"))

	var gotMethod string
	var gotAuth string
	gistSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusCreated)
		fmt.Fprintf(w, `{"html_url": "https://gist.example.com/abc123"}`)
	}))
	t.Cleanup(gistSrv.Close)

	cfgPath := writeConfig(t, srv.URL, 10, fmt.Sprintf("gist_api_url: %q\n", gistSrv.URL))
	t.Setenv("GITHUB_TOKEN", "gh-token")

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      cfgPath,
		Quantum:     true,
		Gist:        true,
		Out:         filepath.Join(t.TempDir(), "questions.md"),
		Entropy:     entropy.NewFixed(1),
		Tokens:      engine.NewFixedTokenGenerator("run"),
	}
	cmd, _, errBuf := newTestCommand()

	require.NoError(t, runPipeline(opts, cmd))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "Bearer gh-token", gotAuth)
	assert.Contains(t, errBuf.String(), "https://gist.example.com/abc123")
}

func TestRunPipeline_GistWithoutTokenIsCommandError(t *testing.T) {
	srv := newFeedServer(t, feedPage("q"))
	cfgPath := writeConfig(t, srv.URL, 10, "")
	t.Setenv("GITHUB_TOKEN", "")

	opts := &RunOptions{
		RootOptions: &RootOptions{Format: "text"},
		Config:      cfgPath,
		Quantum:     true,
		Gist:        true,
		Out:         filepath.Join(t.TempDir(), "questions.md"),
		Entropy:     entropy.NewFixed(1),
		Tokens:      engine.NewFixedTokenGenerator("run"),
	}
	cmd, _, _ := newTestCommand()

	err := runPipeline(opts, cmd)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
