// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// This product includes software developed at Judgment Labs.

package judgeval

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/JudgmentLabs/judgeval-go/internal/api"
	"github.com/JudgmentLabs/judgeval-go/internal/batch"
	"github.com/JudgmentLabs/judgeval-go/internal/export"
	"github.com/JudgmentLabs/judgeval-go/internal/lifecycle"
	"github.com/JudgmentLabs/judgeval-go/internal/log"
	"github.com/JudgmentLabs/judgeval-go/internal/otelbridge"
	"github.com/JudgmentLabs/judgeval-go/judgment"
	"github.com/JudgmentLabs/judgeval-go/judgment/ext"
	"github.com/JudgmentLabs/judgeval-go/judgment/tracer"
)

// otelBridgeOnce ensures the OTEL bridge is installed at most once per
// process: it consults judgment.ActiveTracer() dynamically on every Start,
// so re-installing on a second Start call would just wrap the same bridge
// around itself.
var otelBridgeOnce sync.Once

// StartOption configures Start.
type StartOption func(*startConfig)

type startConfig struct {
	projectName      string
	apiKey           string
	orgID            string
	apiURL           string
	enableEvaluation bool
	resourceAttrs    map[string]any
	httpClient       *http.Client
	exporter         export.Exporter
	processors       []lifecycle.Processor
	batchCfg         batch.Config
}

// WithProjectName sets the project name resolved to a project id at Start.
// Required.
func WithProjectName(name string) StartOption {
	return func(c *startConfig) { c.projectName = name }
}

// WithAPIKey overrides JUDGMENT_API_KEY.
func WithAPIKey(key string) StartOption { return func(c *startConfig) { c.apiKey = key } }

// WithOrgID overrides JUDGMENT_ORG_ID.
func WithOrgID(id string) StartOption { return func(c *startConfig) { c.orgID = id } }

// WithAPIURL overrides JUDGMENT_API_URL.
func WithAPIURL(url string) StartOption { return func(c *startConfig) { c.apiURL = url } }

// WithEnableEvaluation toggles whether AsyncEvaluate/AsyncTraceEvaluate ever
// submit. Defaults to true.
func WithEnableEvaluation(enable bool) StartOption {
	return func(c *startConfig) { c.enableEvaluation = enable }
}

// WithResourceAttribute attaches an extra resource attribute to every
// exported batch, alongside service.name and telemetry.sdk.*.
func WithResourceAttribute(key string, value any) StartOption {
	return func(c *startConfig) {
		if c.resourceAttrs == nil {
			c.resourceAttrs = map[string]any{}
		}
		c.resourceAttrs[key] = value
	}
}

// WithHTTPClient overrides the *http.Client used for project resolution,
// evaluation enqueue, and span export.
func WithHTTPClient(client *http.Client) StartOption {
	return func(c *startConfig) { c.httpClient = client }
}

// WithExporter overrides the span exporter Start would otherwise build from
// the resolved project id — primarily for tests.
func WithExporter(exp export.Exporter) StartOption {
	return func(c *startConfig) { c.exporter = exp }
}

// WithProcessors overrides the lifecycle processor chain. Defaults to
// lifecycle.Default().
func WithProcessors(procs []lifecycle.Processor) StartOption {
	return func(c *startConfig) { c.processors = procs }
}

// WithBatchConfig sets batch-processor parameters. Each positive field takes
// precedence over the matching JUDGMENT_MAX_QUEUE_SIZE/JUDGMENT_BATCH_SIZE/
// JUDGMENT_SCHEDULED_DELAY_MS/JUDGMENT_EXPORT_TIMEOUT_MS value; zero fields
// fall back to the env var or the default. The Exporter field is ignored.
func WithBatchConfig(cfg batch.Config) StartOption {
	return func(c *startConfig) { c.batchCfg = cfg }
}

// Start resolves the configured project name to a project id, wires the
// batch processor and span exporter, registers the resulting tracer as the
// process-wide active tracer, and returns it. Failure to resolve the
// project demotes the tracer to no-op export rather than failing Start: the
// tracer still works locally, it simply never ships spans.
func Start(opts ...StartOption) (judgment.Tracer, error) {
	cfg := &startConfig{enableEvaluation: true}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.projectName == "" {
		return nil, fmt.Errorf("judgeval: WithProjectName is required")
	}
	if cfg.apiKey == "" {
		cfg.apiKey = os.Getenv(ext.EnvAPIKey)
	}
	if cfg.orgID == "" {
		cfg.orgID = os.Getenv(ext.EnvOrgID)
	}
	if cfg.apiURL == "" {
		cfg.apiURL = envOr(ext.EnvAPIURL, ext.DefaultAPIURL)
	}

	apiClient := api.NewClient(cfg.apiURL, cfg.apiKey, cfg.orgID, cfg.httpClient)

	batchCfg := cfg.batchCfg
	batchCfg.MaxQueueSize = firstPositive(batchCfg.MaxQueueSize, envIntOr(ext.EnvMaxQueueSize, batch.DefaultMaxQueueSize))
	batchCfg.BatchSize = firstPositive(batchCfg.BatchSize, envIntOr(ext.EnvBatchSize, batch.DefaultBatchSize))
	batchCfg.ScheduledDelay = firstPositiveDuration(batchCfg.ScheduledDelay, envDurationMSOr(ext.EnvScheduledDelayMS, batch.DefaultScheduledDelay))
	batchCfg.ExportTimeout = firstPositiveDuration(batchCfg.ExportTimeout, envDurationMSOr(ext.EnvExportTimeoutMS, batch.DefaultExportTimeout))

	exporter := cfg.exporter
	projectID, err := apiClient.ResolveProject(context.Background(), cfg.projectName)
	if err != nil {
		log.Error("judgment: %v; tracer will run with export disabled", err)
		exporter = export.Noop{}
	} else if exporter == nil {
		exporter = export.NewHTTP(export.Config{
			BaseURL:   cfg.apiURL,
			APIKey:    cfg.apiKey,
			OrgID:     cfg.orgID,
			ProjectID: projectID,
			Resource: export.ResourceAttributes{
				ServiceName: cfg.projectName,
				SDKVersion:  Version,
				Extra:       cfg.resourceAttrs,
			},
			HTTPClient: cfg.httpClient,
		})
	}

	tr := tracer.New(tracer.Config{
		ProjectName:      cfg.projectName,
		ProjectID:        projectID,
		APIClient:        apiClient,
		Exporter:         exporter,
		BatchConfig:      batchCfg,
		EnableEvaluation: cfg.enableEvaluation,
		Processors:       cfg.processors,
	})

	judgment.Register(cfg.projectName, tr)
	if !judgment.SetActive(cfg.projectName) {
		return tr, fmt.Errorf("judgment: could not activate tracer for %q: a root span is currently recording", cfg.projectName)
	}

	// Install the OTEL bridge once per process so that third-party code using
	// go.opentelemetry.io/otel directly joins whichever judgeval tracer is
	// active for the dynamic extent of a gated context, instead of talking to
	// whatever provider was registered before Start.
	otelBridgeOnce.Do(func() {
		otel.SetTracerProvider(otelbridge.Install(otel.GetTracerProvider()))
	})

	return tr, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn("judgment: ignoring invalid %s=%q", key, v)
		return def
	}
	return n
}

func envDurationMSOr(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Warn("judgment: ignoring invalid %s=%q", key, v)
		return def
	}
	return time.Duration(n) * time.Millisecond
}

func firstPositive(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func firstPositiveDuration(v, def time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return def
}
