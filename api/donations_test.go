package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/donations-backend/donations"
	"github.com/vocdoni/donations-backend/errors"
)

// testBiller is an in memory billing service. It fails at failAt with
// failErr and returns outcome, when set, from CreateSubscription.
type testBiller struct {
	mu      sync.Mutex
	calls   []string
	seq     int
	failAt  string
	failErr error
	outcome *donations.SubscriptionOutcome
}

func (b *testBiller) call(step string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, step)
	if b.failAt == step {
		return "", b.failErr
	}
	b.seq++
	return fmt.Sprintf("%s_%d", step, b.seq), nil
}

func (b *testBiller) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *testBiller) CreateProduct(context.Context, *donations.PlanParams) (*donations.Product, error) {
	id, err := b.call(donations.StepCreateProduct)
	if err != nil {
		return nil, err
	}
	return &donations.Product{ID: id}, nil
}

func (b *testBiller) CreatePrice(context.Context, *donations.Product, *donations.PlanParams) (*donations.Price, error) {
	id, err := b.call(donations.StepCreatePrice)
	if err != nil {
		return nil, err
	}
	return &donations.Price{ID: id}, nil
}

func (b *testBiller) CreateCustomer(context.Context, *donations.CustomerParams) (*donations.Customer, error) {
	id, err := b.call(donations.StepCreateCustomer)
	if err != nil {
		return nil, err
	}
	return &donations.Customer{ID: id}, nil
}

func (b *testBiller) AttachPaymentMethod(context.Context, string, *donations.Customer) error {
	_, err := b.call(donations.StepAttachPaymentMethod)
	return err
}

func (b *testBiller) SetDefaultPaymentMethod(context.Context, *donations.Customer, string) error {
	_, err := b.call(donations.StepSetDefaultPaymentMethod)
	return err
}

func (b *testBiller) CreateSubscription(context.Context, *donations.Customer, *donations.Price) donations.SubscriptionOutcome {
	id, err := b.call(donations.StepCreateSubscription)
	if err != nil {
		return donations.Failed(err)
	}
	if b.outcome != nil {
		return *b.outcome
	}
	return donations.Created("sub_"+id, "active", nil)
}

const testBody = `{
	"amount": 500,
	"currency": "usd",
	"name": "Jane Doe",
	"email": "jane@example.com",
	"phone": "+15551234567",
	"address": {"line1": "1 Main St", "city": "Springfield", "postal_code": "00000", "country": "US"},
	"paymentMethodId": "pm_test_ok"
}`

func testAPI(c *qt.C, biller *testBiller) *API {
	p, err := donations.NewProvisioner(biller)
	c.Assert(err, qt.IsNil)
	return New(&Config{Provisioner: p})
}

func testRequest(c *qt.C, a *API, method, path, body string) (int, []byte, http.Header) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	c.Logf("%s %s -> %d %s", method, path, w.Code, w.Body.String())
	return w.Code, w.Body.Bytes(), w.Header()
}

func decodeBody(c *qt.C, body []byte) map[string]any {
	var m map[string]any
	c.Assert(json.Unmarshal(body, &m), qt.IsNil, qt.Commentf("body: %s", body))
	return m
}

func TestCreateSubscriptionMethodNotAllowed(t *testing.T) {
	c := qt.New(t)
	biller := &testBiller{}
	a := testAPI(c, biller)

	for _, method := range []string{
		http.MethodGet, http.MethodPut, http.MethodDelete,
		http.MethodPatch, http.MethodOptions, http.MethodHead,
	} {
		for _, body := range []string{"", testBody, "{not json"} {
			status, resp, _ := testRequest(c, a, method, createSubscriptionEndpoint, body)
			c.Assert(status, qt.Equals, http.StatusMethodNotAllowed)
			if method != http.MethodHead {
				c.Assert(strings.TrimSpace(string(resp)), qt.Equals, "Method Not Allowed")
			}
		}
	}
	c.Assert(biller.callCount(), qt.Equals, 0)
}

func TestCreateSubscriptionValidation(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		name string
		body string
		err  string
	}{
		{"MissingAmount", `{"currency":"usd","paymentMethodId":"pm_test_ok"}`, "Invalid amount"},
		{"ZeroAmount", `{"amount":0,"currency":"usd","paymentMethodId":"pm_test_ok"}`, "Invalid amount"},
		{"NegativeAmount", `{"amount":-5,"currency":"usd","paymentMethodId":"pm_test_ok"}`, "Invalid amount"},
		{"MissingPaymentMethod", `{"amount":500,"currency":"usd"}`, "Payment method ID is required"},
		{"EmptyPaymentMethod", `{"amount":500,"currency":"usd","paymentMethodId":""}`, "Payment method ID is required"},
	}
	for _, tc := range tests {
		c.Run(tc.name, func(c *qt.C) {
			biller := &testBiller{}
			status, resp, _ := testRequest(c, testAPI(c, biller), http.MethodPost, createSubscriptionEndpoint, tc.body)
			c.Assert(status, qt.Equals, http.StatusBadRequest)
			c.Assert(decodeBody(c, resp), qt.DeepEquals, map[string]any{"error": tc.err})
			c.Assert(biller.callCount(), qt.Equals, 0)
		})
	}
}

func TestValidationMessagesMatchDomain(t *testing.T) {
	c := qt.New(t)
	c.Assert(errors.ErrInvalidAmount.Error(), qt.Equals, donations.ErrInvalidAmount.Error())
	c.Assert(errors.ErrPaymentMethodRequired.Error(), qt.Equals, donations.ErrPaymentMethodRequired.Error())
}

func TestCreateSubscriptionMalformedBody(t *testing.T) {
	c := qt.New(t)
	biller := &testBiller{}

	status, resp, _ := testRequest(c, testAPI(c, biller), http.MethodPost, createSubscriptionEndpoint, "{not json")
	c.Assert(status, qt.Equals, http.StatusInternalServerError)
	body := decodeBody(c, resp)
	c.Assert(body["error"], qt.Not(qt.Equals), "")
	c.Assert(biller.callCount(), qt.Equals, 0)
}

func TestCreateSubscriptionTrailingData(t *testing.T) {
	c := qt.New(t)

	for _, body := range []string{
		testBody + "}garbage",
		testBody + testBody,
		testBody + " 1",
		"null",
		" null ",
	} {
		biller := &testBiller{}
		status, resp, _ := testRequest(c, testAPI(c, biller), http.MethodPost, createSubscriptionEndpoint, body)
		c.Assert(status, qt.Equals, http.StatusInternalServerError)
		c.Assert(decodeBody(c, resp)["error"], qt.Not(qt.Equals), "")
		c.Assert(biller.callCount(), qt.Equals, 0)
	}

	// trailing whitespace is fine
	biller := &testBiller{}
	status, _, _ := testRequest(c, testAPI(c, biller), http.MethodPost, createSubscriptionEndpoint, testBody+"\n\t ")
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(biller.callCount(), qt.Equals, 6)
}

func TestCreateSubscriptionActive(t *testing.T) {
	c := qt.New(t)
	biller := &testBiller{}
	a := testAPI(c, biller)

	for _, endpoint := range []string{createSubscriptionEndpoint, netlifyCreateSubscriptionEndpoint} {
		status, resp, header := testRequest(c, a, http.MethodPost, endpoint, testBody)
		c.Assert(status, qt.Equals, http.StatusOK)
		c.Assert(header.Get("Content-Type"), qt.Equals, "application/json")
		body := decodeBody(c, resp)
		c.Assert(body["status"], qt.Equals, "active")
		c.Assert(body["subscriptionId"], qt.Matches, "sub_.+")
		// clientSecret is present and null
		secret, ok := body["clientSecret"]
		c.Assert(ok, qt.IsTrue)
		c.Assert(secret, qt.IsNil)
	}
}

func TestCreateSubscriptionRequiresAction(t *testing.T) {
	c := qt.New(t)
	outcome := donations.RequiresAction("sub_3ds", "pi_3ds_secret_abc")
	biller := &testBiller{outcome: &outcome}

	status, resp, _ := testRequest(c, testAPI(c, biller), http.MethodPost, createSubscriptionEndpoint, testBody)
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(decodeBody(c, resp), qt.DeepEquals, map[string]any{
		"status":         "requires_action",
		"subscriptionId": "sub_3ds",
		"clientSecret":   "pi_3ds_secret_abc",
	})
}

func TestCreateSubscriptionRemoteFailure(t *testing.T) {
	c := qt.New(t)

	steps := []string{
		donations.StepCreateProduct,
		donations.StepCreatePrice,
		donations.StepCreateCustomer,
		donations.StepAttachPaymentMethod,
		donations.StepSetDefaultPaymentMethod,
		donations.StepCreateSubscription,
	}
	for i, step := range steps {
		c.Run(step, func(c *qt.C) {
			biller := &testBiller{
				failAt:  step,
				failErr: fmt.Errorf("Invalid address: %s rejected", step),
			}
			status, resp, _ := testRequest(c, testAPI(c, biller), http.MethodPost, createSubscriptionEndpoint, testBody)
			c.Assert(status, qt.Equals, http.StatusInternalServerError)
			c.Assert(decodeBody(c, resp), qt.DeepEquals, map[string]any{
				"error": fmt.Sprintf("Invalid address: %s rejected", step),
			})
			c.Assert(biller.calls, qt.DeepEquals, steps[:i+1])
		})
	}
}

func TestCreateSubscriptionMissingAddress(t *testing.T) {
	c := qt.New(t)
	biller := &testBiller{}

	body := `{"amount":500,"currency":"usd","name":"Jane Doe","paymentMethodId":"pm_test_ok"}`
	status, resp, _ := testRequest(c, testAPI(c, biller), http.MethodPost, createSubscriptionEndpoint, body)
	c.Assert(status, qt.Equals, http.StatusInternalServerError)
	c.Assert(decodeBody(c, resp)["error"], qt.Equals, donations.ErrMissingAddress.Error())
}

func TestCreateSubscriptionNotIdempotent(t *testing.T) {
	c := qt.New(t)
	biller := &testBiller{}
	a := testAPI(c, biller)

	_, first, _ := testRequest(c, a, http.MethodPost, createSubscriptionEndpoint, testBody)
	_, second, _ := testRequest(c, a, http.MethodPost, createSubscriptionEndpoint, testBody)
	c.Assert(decodeBody(c, first)["subscriptionId"], qt.Not(qt.Equals), decodeBody(c, second)["subscriptionId"])
	// two customers, two subscriptions
	c.Assert(biller.callCount(), qt.Equals, 12)
}

func TestCreateSubscriptionWithoutProvisioner(t *testing.T) {
	c := qt.New(t)
	a := New(&Config{})

	status, _, _ := testRequest(c, a, http.MethodPost, createSubscriptionEndpoint, testBody)
	c.Assert(status, qt.Equals, http.StatusServiceUnavailable)
	status, _, _ = testRequest(c, a, http.MethodGet, createSubscriptionEndpoint, "")
	c.Assert(status, qt.Equals, http.StatusMethodNotAllowed)
}

func TestCreateSubscriptionBodyTooLarge(t *testing.T) {
	c := qt.New(t)
	biller := &testBiller{}

	body := bytes.Repeat([]byte(" "), 70000)
	body = append(body, []byte(testBody)...)
	status, _, _ := testRequest(c, testAPI(c, biller), http.MethodPost, createSubscriptionEndpoint, string(body))
	c.Assert(status, qt.Equals, http.StatusInternalServerError)
	c.Assert(biller.callCount(), qt.Equals, 0)
}

func TestPing(t *testing.T) {
	c := qt.New(t)
	status, resp, _ := testRequest(c, New(&Config{}), http.MethodGet, pingEndpoint, "")
	c.Assert(status, qt.Equals, http.StatusOK)
	c.Assert(string(resp), qt.Equals, ".")
}

func TestCORSPreflight(t *testing.T) {
	c := qt.New(t)
	a := New(&Config{CORSOrigins: []string{"https://donate.example.org"}})

	req := httptest.NewRequest(http.MethodOptions, createSubscriptionEndpoint, nil)
	req.Header.Set("Origin", "https://donate.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	c.Assert(w.Header().Get("Access-Control-Allow-Origin"), qt.Equals, "https://donate.example.org")
}
