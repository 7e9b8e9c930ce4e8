package branch

// Option configures a Branch at construction time.
type Option func(*Branch)

// WithWaitStrategy sets how idle workers wait for the next task.
func WithWaitStrategy(s WaitStrategy) Option {
	return func(b *Branch) {
		b.strategy = s
	}
}

// WithLogger installs a pluggable diagnostic sink. The default writes
// through the standard log package to stderr.
func WithLogger(logger func(format string, args ...interface{})) Option {
	return func(b *Branch) {
		b.logger = logger
	}
}

// WithName records a name on the branch. The name is stored only: log lines
// do not include it, and metrics take their own name via NewMetrics.
func WithName(name string) Option {
	return func(b *Branch) {
		b.name = name
	}
}

// WithMetrics attaches an optional Prometheus metrics set. Passing nil is
// equivalent to omitting the option.
func WithMetrics(m *Metrics) Option {
	return func(b *Branch) {
		b.metrics = m
	}
}

// taskConfig carries per-submission options.
type taskConfig struct {
	tag string
}

// TaskOption configures a single Submit*/SubmitResult* call.
type TaskOption func(*taskConfig)

// WithTag attaches a label to a task, surfaced in log lines and panic reports.
func WithTag(tag string) TaskOption {
	return func(c *taskConfig) {
		c.tag = tag
	}
}

func newTaskConfig(opts []TaskOption) *taskConfig {
	c := &taskConfig{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
