package operations

import (
	"time"
)

// Config controls how the manager runs steps.
type Config struct {
	// StepTimeouts bounds each step's execution, including retries.
	StepTimeouts map[string]time.Duration `json:"step_timeouts"`

	// Retry applies to steps failing with a retryable error.
	Retry RetryConfig `json:"retry"`

	// ContinueOnError keeps running later steps after one fails
	// instead of skipping everything downstream.
	ContinueOnError bool `json:"continue_on_error"`
}

// NewConfig returns the default configuration for the build pipeline.
func NewConfig() *Config {
	return &Config{
		StepTimeouts: map[string]time.Duration{
			StepIDScan:      DefaultScanTimeout,
			StepIDIngest:    DefaultIngestTimeout,
			StepIDNormalize: DefaultNormalizeTimeout,
			StepIDDerive:    DefaultDeriveTimeout,
			StepIDPublish:   DefaultPublishTimeout,
		},
		Retry: NewRetryConfig(),
	}
}

// StepTimeout returns the timeout for a step, falling back to the
// package default for steps without an explicit entry.
func (c *Config) StepTimeout(stepID string) time.Duration {
	if timeout, ok := c.StepTimeouts[stepID]; ok {
		return timeout
	}
	return DefaultStepTimeout
}

// SetStepTimeout sets the timeout for one step.
func (c *Config) SetStepTimeout(stepID string, timeout time.Duration) {
	if c.StepTimeouts == nil {
		c.StepTimeouts = make(map[string]time.Duration)
	}
	c.StepTimeouts[stepID] = timeout
}

// ConfigBuilder assembles a Config fluently. Mostly a convenience for
// tests and command wiring.
type ConfigBuilder struct {
	config *Config
}

// NewConfigBuilder starts from the default configuration.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{config: NewConfig()}
}

// WithStepTimeout overrides the timeout for one step.
func (b *ConfigBuilder) WithStepTimeout(stepID string, timeout time.Duration) *ConfigBuilder {
	b.config.SetStepTimeout(stepID, timeout)
	return b
}

// WithRetry overrides the retry policy.
func (b *ConfigBuilder) WithRetry(retry RetryConfig) *ConfigBuilder {
	b.config.Retry = retry
	return b
}

// WithContinueOnError controls whether a failed step aborts the run.
func (b *ConfigBuilder) WithContinueOnError(continueOnError bool) *ConfigBuilder {
	b.config.ContinueOnError = continueOnError
	return b
}

// Build returns the assembled configuration.
func (b *ConfigBuilder) Build() *Config {
	return b.config
}
