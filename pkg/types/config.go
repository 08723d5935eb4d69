// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "article-harvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds retry and rate-limit settings for network operations.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxRetries is the number of attempts for a failed operation (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// BaseDelay is the base wait for linear backoff between retries
	// (default 5s; attempt n waits BaseDelay*n).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay"`

	// QuotaCeiling is the longest server-directed rate-limit wait the
	// pipeline will honor. A 429 whose reset time implies a longer wait
	// is treated as quota exhaustion and stops the run (default 5m).
	QuotaCeiling time.Duration `json:"quota_ceiling" yaml:"quota_ceiling"`

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// HarvestConfig holds settings shared by the downloader stages.
type HarvestConfig struct {
	Fetch FetchConfig `yaml:",inline"`

	// OutputDir is the root of the output tree
	// (<output_dir>/<year>/<journal>/<id>.<ext>).
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// DataGlobs lists glob patterns for the metadata JSON files to merge.
	DataGlobs []string `json:"data_globs" yaml:"data_globs"`

	// BatchSize is the number of records per API request.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Workers is the number of concurrent batch workers.
	Workers int `json:"workers" yaml:"workers"`

	// Limit caps the number of records processed; zero means no cap.
	Limit int `json:"limit" yaml:"limit"`

	// Force overwrites existing output files and, for Elsevier, attempts
	// full-text downloads even for closed-access articles.
	Force bool `json:"force" yaml:"force"`

	// FailureLog is the append-only JSON-lines log of failed records.
	FailureLog string `json:"failure_log" yaml:"failure_log"`

	// NoContentLog is the append-only list of identifiers whose fetch
	// succeeded but yielded no usable content.
	NoContentLog string `json:"no_content_log" yaml:"no_content_log"`

	// CatalogPath is the SQLite harvest ledger; empty disables the catalog.
	CatalogPath string `json:"catalog_path" yaml:"catalog_path"`
}
