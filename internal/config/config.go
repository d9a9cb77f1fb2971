// Package config loads and validates deployment configuration.
//
// Configuration comes from two places, deliberately separated:
//   - a CUE file for everything that describes the deployment (URLs, batch
//     maximum, file paths), validated against an embedded schema with
//     defaults applied by CUE itself;
//   - the environment for credentials only, read explicitly via
//     CredentialsFromEnv and passed into constructors. Nothing in this
//     codebase reads an API key ambiently at use time.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// Config describes one deployment. See schema.cue for field semantics and
// defaults.
type Config struct {
	PostURL      string `json:"post_url"`
	APIURL       string `json:"api_url"`
	MaxQuestions int    `json:"max_questions"`
	Database     string `json:"database"`
	PageCacheDir string `json:"page_cache_dir"`
	ANUURL       string `json:"anu_url"`
	GistAPIURL   string `json:"gist_api_url"`
	RepoURL      string `json:"repo_url"`
}

// Load reads a CUE config file, unifies it with the embedded schema, and
// decodes it. Missing required fields, unknown syntax, and type mismatches
// all fail here, before any component is constructed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("config: compile embedded schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	if !def.Exists() {
		return nil, fmt.Errorf("config: embedded schema missing #Config")
	}

	val := ctx.CompileBytes(data, cue.Filename(path))
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	merged := def.Unify(val)
	if err := merged.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("config: validate %s: %w", path, err)
	}

	var cfg Config
	if err := merged.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &cfg, nil
}

// Credentials holds the secrets read from the environment.
type Credentials struct {
	// ANUKey authenticates against the quantum randomness API.
	// Required for quantum mode only.
	ANUKey string

	// GistToken authenticates gist uploads. Required for publishing only.
	GistToken string

	// FeedCookie is the session cookie for the comment API. May be empty
	// for public posts.
	FeedCookie string
}

// CredentialsFromEnv reads credentials from the process environment.
// Absent variables yield empty fields; whether an empty credential is an
// error depends on which paths the run exercises.
func CredentialsFromEnv() Credentials {
	return Credentials{
		ANUKey:     os.Getenv("ANU_QUANTUM_API_KEY"),
		GistToken:  os.Getenv("GITHUB_TOKEN"),
		FeedCookie: os.Getenv("FEED_COOKIE"),
	}
}
