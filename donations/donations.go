// Package donations provisions monthly donations on an external billing
// service: a product and price for the donated amount, a customer holding
// the donor payment method and the subscription that binds them.
package donations

import (
	"context"
	"errors"
	"fmt"

	"github.com/vocdoni/donations-backend/validator"
	"go.vocdoni.io/dvote/log"
)

const (
	// ProductName is the name of every donation product.
	ProductName = "Monthly Donation"
	// DefaultDescription is used as product description when the request
	// does not say who the donation is by.
	DefaultDescription = "Recurring donation"
	// IntervalMonth is the billing interval of donation prices.
	IntervalMonth = "month"
	// StatusRequiresAction is reported when the first invoice of the
	// subscription needs customer authentication.
	StatusRequiresAction = "requires_action"
)

var (
	// ErrInvalidAmount is returned when the amount is missing or not positive.
	ErrInvalidAmount = errors.New("Invalid amount") //revive:disable-line:error-strings
	// ErrPaymentMethodRequired is returned when the payment method is missing.
	ErrPaymentMethodRequired = errors.New("Payment method ID is required") //revive:disable-line:error-strings
	// ErrMissingAddress is returned when the customer cannot be built because
	// the request has no address.
	ErrMissingAddress = errors.New("address is required")
)

// Provisioning steps, in execution order.
const (
	StepCreateProduct           = "create_product"
	StepCreatePrice             = "create_price"
	StepCreateCustomer          = "create_customer"
	StepAttachPaymentMethod     = "attach_payment_method"
	StepSetDefaultPaymentMethod = "set_default_payment_method"
	StepCreateSubscription      = "create_subscription"
)

// StepError reports the provisioning step that failed. Its message is the
// message of the underlying error, unchanged.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Biller is the subset of the billing service used to provision a donation.
// Every call creates or updates a remote resource.
type Biller interface {
	CreateProduct(ctx context.Context, params *PlanParams) (*Product, error)
	CreatePrice(ctx context.Context, product *Product, params *PlanParams) (*Price, error)
	CreateCustomer(ctx context.Context, params *CustomerParams) (*Customer, error)
	AttachPaymentMethod(ctx context.Context, paymentMethodID string, customer *Customer) error
	SetDefaultPaymentMethod(ctx context.Context, customer *Customer, paymentMethodID string) error
	CreateSubscription(ctx context.Context, customer *Customer, price *Price) SubscriptionOutcome
}

// Provisioner runs the provisioning sequence against a Biller. It keeps no
// state between calls, so a single instance can serve concurrent requests.
type Provisioner struct {
	biller    Biller
	validator *validator.Validator
}

// NewProvisioner creates a Provisioner backed by the given Biller.
func NewProvisioner(biller Biller) (*Provisioner, error) {
	if biller == nil {
		return nil, fmt.Errorf("biller is required")
	}
	return &Provisioner{
		biller:    biller,
		validator: validator.New(),
	}, nil
}

// Validate checks the request before any remote call is issued. The amount
// is checked first, so a request failing both rules gets ErrInvalidAmount.
func (p *Provisioner) Validate(req *Request) error {
	if req == nil {
		return ErrInvalidAmount
	}
	err := p.validator.Validate(req)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	if ve.Has("amount") {
		return ErrInvalidAmount
	}
	if ve.Has("paymentMethodId") {
		return ErrPaymentMethodRequired
	}
	return err
}

// Provision validates the request and then creates, in order, the product,
// the monthly price, the customer, the payment method attachment, the
// default payment method setting and the subscription. It stops at the first
// failing step. Resources created by earlier steps are left in place.
func (p *Provisioner) Provision(ctx context.Context, req *Request) (*Result, error) {
	if err := p.Validate(req); err != nil {
		return nil, err
	}

	plan := &PlanParams{
		Name:        ProductName,
		Description: req.DonationBy,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Interval:    IntervalMonth,
	}
	if plan.Description == "" {
		plan.Description = DefaultDescription
	}
	product, err := p.biller.CreateProduct(ctx, plan)
	if err != nil {
		return nil, &StepError{Step: StepCreateProduct, Err: err}
	}
	log.Debugw("donation product created", "product", product.ID)

	price, err := p.biller.CreatePrice(ctx, product, plan)
	if err != nil {
		return nil, &StepError{Step: StepCreatePrice, Err: err}
	}
	log.Debugw("donation price created", "price", price.ID, "amount", req.Amount, "currency", req.Currency)

	customerParams, err := newCustomerParams(req)
	if err != nil {
		return nil, &StepError{Step: StepCreateCustomer, Err: err}
	}
	customer, err := p.biller.CreateCustomer(ctx, customerParams)
	if err != nil {
		return nil, &StepError{Step: StepCreateCustomer, Err: err}
	}
	log.Debugw("donation customer created", "customer", customer.ID)

	if err := p.biller.AttachPaymentMethod(ctx, req.PaymentMethodID, customer); err != nil {
		return nil, &StepError{Step: StepAttachPaymentMethod, Err: err}
	}
	if err := p.biller.SetDefaultPaymentMethod(ctx, customer, req.PaymentMethodID); err != nil {
		return nil, &StepError{Step: StepSetDefaultPaymentMethod, Err: err}
	}
	log.Debugw("donation payment method ready", "customer", customer.ID, "paymentMethod", req.PaymentMethodID)

	outcome := p.biller.CreateSubscription(ctx, customer, price)
	switch outcome.Kind {
	case OutcomeCreated, OutcomeRequiresAction:
		log.Infow("donation subscription created",
			"subscription", outcome.SubscriptionID,
			"status", outcome.Status,
			"outcome", outcome.Kind.String())
		return &Result{
			Status:         outcome.Status,
			SubscriptionID: outcome.SubscriptionID,
			ClientSecret:   outcome.ClientSecret,
		}, nil
	default:
		err := outcome.Err
		if err == nil {
			err = fmt.Errorf("subscription was not created")
		}
		return nil, &StepError{Step: StepCreateSubscription, Err: err}
	}
}

// newCustomerParams normalizes the donor contact data. Line2 and State
// default to empty strings, nothing else is defaulted.
func newCustomerParams(req *Request) (*CustomerParams, error) {
	if req.Address == nil {
		return nil, ErrMissingAddress
	}
	return &CustomerParams{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
		Address: Address{
			Line1:      req.Address.Line1,
			Line2:      req.Address.Line2,
			City:       req.Address.City,
			State:      req.Address.State,
			PostalCode: req.Address.PostalCode,
			Country:    req.Address.Country,
		},
	}, nil
}
