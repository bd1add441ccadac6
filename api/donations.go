package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/vocdoni/donations-backend/api/apicommon"
	"github.com/vocdoni/donations-backend/donations"
	"github.com/vocdoni/donations-backend/errors"
	"go.vocdoni.io/dvote/log"
)

// createSubscriptionHandler godoc
//
//	@Summary		Create a monthly donation subscription
//	@Description	Create a product, a monthly price, a customer with the given payment method as default and a
//	@Description	subscription on Stripe. When the first payment needs customer authentication the status is
//	@Description	requires_action and clientSecret must be used by the client to complete it.
//	@Tags			donations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		donations.Request	true	"Donation information"
//	@Success		200		{object}	donations.Result
//	@Failure		400		{object}	errors.Error	"Invalid amount or missing payment method"
//	@Failure		405		{string}	string			"Method Not Allowed"
//	@Failure		500		{object}	errors.Error	"Malformed body or billing service failure"
//	@Router			/create-subscription [post]
func (a *API) createSubscriptionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		apicommon.HTTPWriteMethodNotAllowed(w)
		return
	}
	if a.provisioner == nil {
		errors.ErrBillingUnavailable.Write(w)
		return
	}

	var req *donations.Request
	r.Body = http.MaxBytesReader(w, r.Body, apicommon.MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		errors.ErrMalformedBody.WithCause(err).Write(w)
		return
	}
	// the body must hold a single JSON object and nothing else
	if req == nil {
		errors.ErrMalformedBody.Write(w)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		errors.ErrMalformedBody.Write(w)
		return
	}

	res, err := a.provisioner.Provision(r.Context(), req)
	if err != nil {
		switch {
		case stderrors.Is(err, donations.ErrInvalidAmount):
			errors.ErrInvalidAmount.Write(w)
		case stderrors.Is(err, donations.ErrPaymentMethodRequired):
			errors.ErrPaymentMethodRequired.Write(w)
		default:
			var stepErr *donations.StepError
			if stderrors.As(err, &stepErr) {
				log.Warnw("donation provisioning failed", "step", stepErr.Step, "error", err)
			}
			errors.ErrProvisioningFailed.WithCause(err).Write(w)
		}
		return
	}
	apicommon.HTTPWriteJSON(w, res)
}
