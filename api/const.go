package api

const (
	// pingEndpoint answers liveness probes.
	pingEndpoint = "/ping"
	// createSubscriptionEndpoint provisions a monthly donation subscription.
	createSubscriptionEndpoint = "/create-subscription"
	// netlifyCreateSubscriptionEndpoint is the path used by clients of the
	// serverless deployment.
	netlifyCreateSubscriptionEndpoint = "/.netlify/functions/create-subscription"
)
