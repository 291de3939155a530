package bootstrap

import (
	"github.com/genomeai/platform/common/config"
	"github.com/genomeai/platform/common/db"
	"github.com/genomeai/platform/common/logger"
)

// Option configures Setup
type Option func(*options)

// component is one piece of infrastructure Setup can bring up
type component uint8

const (
	componentDB        component = 1 << iota // run, audit and catalog tables in Postgres
	componentRedis                           // rate limit windows and the run.events stream
	componentQueue                           // run.events publisher and consumers
	componentCache                           // freecache in front of workflow reads
	componentTelemetry                       // /metrics and pprof listener
)

var componentNames = []struct {
	c    component
	name string
}{
	{componentDB, "db"},
	{componentRedis, "redis"},
	{componentQueue, "queue"},
	{componentCache, "cache"},
	{componentTelemetry, "telemetry"},
}

type options struct {
	disabled component
	config   *config.Config
	log      *logger.Logger
	migrate  func(*db.DB) error
}

func (o *options) enabled(c component) bool {
	return o.disabled&c == 0
}

// skipped lists disabled components by name, for the startup log line
func (o *options) skipped() []string {
	var out []string
	for _, n := range componentNames {
		if !o.enabled(n.c) {
			out = append(out, n.name)
		}
	}
	return out
}

func without(c component) Option {
	return func(o *options) {
		o.disabled |= c
	}
}

// WithoutDB leaves Components.DB nil
func WithoutDB() Option { return without(componentDB) }

// WithoutRedis skips Redis even when REDIS_ENABLED is set
func WithoutRedis() Option { return without(componentRedis) }

// WithoutQueue leaves run.events unpublished
func WithoutQueue() Option { return without(componentQueue) }

// WithoutCache sends workflow reads straight to Postgres
func WithoutCache() Option { return without(componentCache) }

// WithoutTelemetry does not start the metrics listener
func WithoutTelemetry() Option { return without(componentTelemetry) }

// RunnerProfile is what the runner needs: config, logging and telemetry.
// It keeps no state outside NFCORE_CACHE and the run workspaces.
func RunnerProfile() Option {
	return without(componentDB | componentRedis | componentQueue | componentCache)
}

// CLIProfile brings up only Postgres, for genomectl's one-shot commands
func CLIProfile() Option {
	return without(componentRedis | componentQueue | componentCache | componentTelemetry)
}

// WithCustomLogger replaces the logger built from LOG_LEVEL and LOG_FORMAT
func WithCustomLogger(log *logger.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

// WithCustomConfig replaces config.Load, mostly for tests
func WithCustomConfig(cfg *config.Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithDBInitHook runs after the pool connects and before anything else starts.
// The api applies its migrations here.
func WithDBInitHook(hook func(*db.DB) error) Option {
	return func(o *options) {
		o.migrate = hook
	}
}

func defaultOptions() *options {
	return &options{}
}
