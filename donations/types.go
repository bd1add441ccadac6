package donations

// Request is the payload received to set up a monthly donation. Amount is
// expressed in the minor unit of Currency.
type Request struct {
	Amount          int64    `json:"amount" validate:"gt=0"`
	Currency        string   `json:"currency"`
	DonationBy      string   `json:"donation_by,omitempty"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Phone           string   `json:"phone"`
	Address         *Address `json:"address"`
	PaymentMethodID string   `json:"paymentMethodId" validate:"required"`
}

// Address is the billing address of the donor. Line2 and State are optional.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Result is returned to the caller once the subscription exists. ClientSecret
// is nil when no further customer authentication is pending, and it is
// encoded as null in that case.
type Result struct {
	Status         string  `json:"status"`
	SubscriptionID string  `json:"subscriptionId"`
	ClientSecret   *string `json:"clientSecret"`
}

// Product is a recurring charge product created on the billing service.
type Product struct {
	ID string
}

// Price is the monthly price attached to a Product.
type Price struct {
	ID string
}

// Customer is the billing service customer created for a donor.
type Customer struct {
	ID string
}

// PlanParams describes the product and price pair of a monthly donation.
type PlanParams struct {
	Name        string
	Description string
	Amount      int64
	Currency    string
	Interval    string
}

// CustomerParams holds the contact data of the customer to create. The
// address is already normalized, optional fields are empty strings.
type CustomerParams struct {
	Name    string
	Email   string
	Phone   string
	Address Address
}

// OutcomeKind tags a SubscriptionOutcome.
type OutcomeKind int

const (
	// OutcomeFailed means the subscription could not be created.
	OutcomeFailed OutcomeKind = iota
	// OutcomeCreated means the subscription was created.
	OutcomeCreated
	// OutcomeRequiresAction means the subscription was created but its first
	// invoice needs the customer to authenticate the payment.
	OutcomeRequiresAction
)

// String returns the string representation of the OutcomeKind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCreated:
		return "created"
	case OutcomeRequiresAction:
		return "requires_action"
	default:
		return "failed"
	}
}

// SubscriptionOutcome is the result of creating a subscription. Only Err is
// set for OutcomeFailed.
type SubscriptionOutcome struct {
	Kind           OutcomeKind
	SubscriptionID string
	Status         string
	ClientSecret   *string
	Err            error
}

// Created builds the outcome of a subscription created without errors.
func Created(subscriptionID, status string, clientSecret *string) SubscriptionOutcome {
	return SubscriptionOutcome{
		Kind:           OutcomeCreated,
		SubscriptionID: subscriptionID,
		Status:         status,
		ClientSecret:   clientSecret,
	}
}

// RequiresAction builds the outcome of a subscription whose first payment
// needs customer authentication.
func RequiresAction(subscriptionID, clientSecret string) SubscriptionOutcome {
	return SubscriptionOutcome{
		Kind:           OutcomeRequiresAction,
		SubscriptionID: subscriptionID,
		Status:         StatusRequiresAction,
		ClientSecret:   &clientSecret,
	}
}

// Failed builds the outcome of a subscription that could not be created.
func Failed(err error) SubscriptionOutcome {
	return SubscriptionOutcome{
		Kind: OutcomeFailed,
		Err:  err,
	}
}
