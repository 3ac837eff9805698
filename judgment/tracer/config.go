// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package tracer

import (
	"github.com/JudgmentLabs/judgeval-go/internal/api"
	"github.com/JudgmentLabs/judgeval-go/internal/batch"
	"github.com/JudgmentLabs/judgeval-go/internal/export"
	"github.com/JudgmentLabs/judgeval-go/internal/lifecycle"
)

// Config wires a concrete Tracer. The root judgeval package builds one of
// these after resolving the project id and constructing the exporter; the
// fields here are deliberately already-resolved, not raw env-var strings.
type Config struct {
	ProjectName      string
	ProjectID        string
	APIClient        *api.Client
	Exporter         export.Exporter
	BatchConfig      batch.Config
	EnableEvaluation bool
	Processors       []lifecycle.Processor
}

func (c Config) withDefaults() Config {
	if c.Processors == nil {
		c.Processors = lifecycle.Default()
	}
	if c.Exporter == nil {
		c.Exporter = export.Noop{}
	}
	return c
}
