// Package stripe implements the donations billing operations on top of the
// Stripe API.
package stripe

import (
	"context"
	"errors"
	"net/http"

	stripeapi "github.com/stripe/stripe-go/v81"
	stripeclient "github.com/stripe/stripe-go/v81/client"
	"github.com/vocdoni/donations-backend/donations"
	"go.vocdoni.io/dvote/log"
)

// expandPaymentIntent asks Stripe to inline the payment intent of the first
// invoice in the subscription creation response.
const expandPaymentIntent = "latest_invoice.payment_intent"

var _ donations.Biller = (*Client)(nil)

// Client wraps a Stripe API client bound to a single secret key. Unlike the
// package level stripe-go functions it does not touch any global state, so
// several clients can live in the same process.
type Client struct {
	config *Config
	api    *stripeclient.API
}

// NewClient creates a new Stripe client with the given configuration.
// Network retries are disabled: every call is issued exactly once.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	httpClient := &http.Client{
		Timeout: config.httpTimeout(),
	}
	backends := &stripeapi.Backends{
		API:     stripeapi.GetBackendWithConfig(stripeapi.APIBackend, newBackendConfig(config, httpClient)),
		Connect: stripeapi.GetBackendWithConfig(stripeapi.ConnectBackend, newBackendConfig(config, httpClient)),
		Uploads: stripeapi.GetBackendWithConfig(stripeapi.UploadsBackend, newBackendConfig(config, httpClient)),
	}
	return &Client{
		config: config,
		api:    stripeclient.New(config.APIKey, backends),
	}, nil
}

// newBackendConfig returns a fresh backend configuration, stripe-go fills in
// defaults on the value it receives so it cannot be shared between backends.
func newBackendConfig(config *Config, httpClient *http.Client) *stripeapi.BackendConfig {
	bc := &stripeapi.BackendConfig{
		HTTPClient:        httpClient,
		LeveledLogger:     &leveledLogger{},
		MaxNetworkRetries: stripeapi.Int64(0),
		EnableTelemetry:   stripeapi.Bool(false),
	}
	if config.APIURL != "" {
		bc.URL = stripeapi.String(config.APIURL)
	}
	return bc
}

// CreateProduct creates the recurring charge product of a donation.
func (c *Client) CreateProduct(ctx context.Context, plan *donations.PlanParams) (*donations.Product, error) {
	params := &stripeapi.ProductParams{
		Params:      stripeapi.Params{Context: ctx},
		Name:        stripeapi.String(plan.Name),
		Description: stripeapi.String(plan.Description),
	}
	product, err := c.api.Products.New(params)
	if err != nil {
		return nil, newAPIError("create_product", err)
	}
	return &donations.Product{ID: product.ID}, nil
}

// CreatePrice creates the recurring price of the plan on the given product.
func (c *Client) CreatePrice(ctx context.Context, product *donations.Product,
	plan *donations.PlanParams,
) (*donations.Price, error) {
	params := &stripeapi.PriceParams{
		Params:     stripeapi.Params{Context: ctx},
		UnitAmount: stripeapi.Int64(plan.Amount),
		Currency:   stripeapi.String(plan.Currency),
		Recurring: &stripeapi.PriceRecurringParams{
			Interval: stripeapi.String(plan.Interval),
		},
		Product: stripeapi.String(product.ID),
	}
	price, err := c.api.Prices.New(params)
	if err != nil {
		return nil, newAPIError("create_price", err)
	}
	return &donations.Price{ID: price.ID}, nil
}

// CreateCustomer creates a customer with the donor contact and billing address.
func (c *Client) CreateCustomer(ctx context.Context, customer *donations.CustomerParams) (*donations.Customer, error) {
	params := &stripeapi.CustomerParams{
		Params: stripeapi.Params{Context: ctx},
		Name:   stripeapi.String(customer.Name),
		Email:  stripeapi.String(customer.Email),
		Phone:  stripeapi.String(customer.Phone),
		Address: &stripeapi.AddressParams{
			Line1:      stripeapi.String(customer.Address.Line1),
			Line2:      stripeapi.String(customer.Address.Line2),
			City:       stripeapi.String(customer.Address.City),
			State:      stripeapi.String(customer.Address.State),
			PostalCode: stripeapi.String(customer.Address.PostalCode),
			Country:    stripeapi.String(customer.Address.Country),
		},
	}
	cus, err := c.api.Customers.New(params)
	if err != nil {
		return nil, newAPIError("create_customer", err)
	}
	return &donations.Customer{ID: cus.ID}, nil
}

// AttachPaymentMethod attaches a tokenized payment method to the customer.
func (c *Client) AttachPaymentMethod(ctx context.Context, paymentMethodID string, customer *donations.Customer) error {
	params := &stripeapi.PaymentMethodAttachParams{
		Params:   stripeapi.Params{Context: ctx},
		Customer: stripeapi.String(customer.ID),
	}
	if _, err := c.api.PaymentMethods.Attach(paymentMethodID, params); err != nil {
		return newAPIError("attach_payment_method", err)
	}
	return nil
}

// SetDefaultPaymentMethod makes the payment method the one charged for the
// customer invoices.
func (c *Client) SetDefaultPaymentMethod(ctx context.Context, customer *donations.Customer, paymentMethodID string) error {
	params := &stripeapi.CustomerParams{
		Params: stripeapi.Params{Context: ctx},
		InvoiceSettings: &stripeapi.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripeapi.String(paymentMethodID),
		},
	}
	if _, err := c.api.Customers.Update(customer.ID, params); err != nil {
		return newAPIError("set_default_payment_method", err)
	}
	return nil
}

// CreateSubscription subscribes the customer to the price. The latest invoice
// payment intent is expanded so its client secret can be returned when the
// payment still needs customer action. When Stripe rejects the creation
// because the first payment requires authentication, the subscription exists
// anyway and the outcome is RequiresAction.
func (c *Client) CreateSubscription(ctx context.Context, customer *donations.Customer,
	price *donations.Price,
) donations.SubscriptionOutcome {
	params := &stripeapi.SubscriptionParams{
		Params:   stripeapi.Params{Context: ctx},
		Customer: stripeapi.String(customer.ID),
		Items: []*stripeapi.SubscriptionItemsParams{
			{Price: stripeapi.String(price.ID)},
		},
	}
	params.AddExpand(expandPaymentIntent)

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		if IsRequiresAction(err) {
			return c.requiresActionOutcome(ctx, err)
		}
		return donations.Failed(newAPIError("create_subscription", err))
	}

	var clientSecret *string
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil &&
		sub.LatestInvoice.PaymentIntent.ClientSecret != "" {
		clientSecret = stripeapi.String(sub.LatestInvoice.PaymentIntent.ClientSecret)
	}
	return donations.Created(sub.ID, string(sub.Status), clientSecret)
}

// requiresActionOutcome extracts the subscription and the client secret from
// a requires action error. The error carries the payment intent; the
// subscription is reached through the payment intent invoice, fetching the
// invoice when it is not expanded.
func (c *Client) requiresActionOutcome(ctx context.Context, err error) donations.SubscriptionOutcome {
	apiErr := newAPIError("create_subscription", err)
	var stripeErr *stripeapi.Error
	if !errors.As(err, &stripeErr) || stripeErr.PaymentIntent == nil || stripeErr.PaymentIntent.ClientSecret == "" {
		log.Warnw("requires action error without payment intent", "code", apiErr.Code)
		return donations.Failed(apiErr)
	}
	pi := stripeErr.PaymentIntent
	if pi.Invoice == nil || pi.Invoice.ID == "" {
		log.Warnw("requires action payment intent without invoice", "paymentIntent", pi.ID)
		return donations.Failed(apiErr)
	}

	subscriptionID := ""
	if pi.Invoice.Subscription != nil {
		subscriptionID = pi.Invoice.Subscription.ID
	}
	if subscriptionID == "" {
		invoice, getErr := c.api.Invoices.Get(pi.Invoice.ID, &stripeapi.InvoiceParams{
			Params: stripeapi.Params{Context: ctx},
		})
		if getErr != nil {
			return donations.Failed(newAPIError("get_invoice", getErr))
		}
		if invoice.Subscription != nil {
			subscriptionID = invoice.Subscription.ID
		}
	}
	if subscriptionID == "" {
		log.Warnw("requires action invoice without subscription", "invoice", pi.Invoice.ID)
		return donations.Failed(apiErr)
	}
	return donations.RequiresAction(subscriptionID, pi.ClientSecret)
}
