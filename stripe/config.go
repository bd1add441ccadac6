package stripe

import (
	"fmt"
	"time"
)

// DefaultHTTPTimeout is the timeout of the HTTP client used to reach Stripe
// when the configuration does not set one.
const DefaultHTTPTimeout = 30 * time.Second

// Config holds the Stripe configuration
type Config struct {
	// APIKey is the server-held secret key used to authenticate every call.
	APIKey string `yaml:"api_key" json:"api_key"`
	// APIURL overrides the Stripe API base URL (e.g. a local mock). Empty
	// means the default Stripe endpoint.
	APIURL string `yaml:"api_url" json:"api_url"`
	// HTTPTimeout bounds each request to Stripe.
	HTTPTimeout time.Duration `yaml:"http_timeout" json:"http_timeout"`
}

// Validate checks that the configuration can be used to create a Client.
func (c *Config) Validate() error {
	if c == nil {
		return NewStripeError(ErrInvalidConfiguration.Code, "config is required", nil)
	}
	if c.APIKey == "" {
		return NewStripeError(ErrInvalidConfiguration.Code, "api key is required", nil)
	}
	if c.HTTPTimeout < 0 {
		return NewStripeError(ErrInvalidConfiguration.Code,
			fmt.Sprintf("invalid http timeout %s", c.HTTPTimeout), nil)
	}
	return nil
}

func (c *Config) httpTimeout() time.Duration {
	if c.HTTPTimeout == 0 {
		return DefaultHTTPTimeout
	}
	return c.HTTPTimeout
}
