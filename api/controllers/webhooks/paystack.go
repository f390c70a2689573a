package webhooks

import (
	"net/http"

	"github.com/tundeajala/bookhaven-payments/pkg/enums"
)

const paystackSignatureHeader = "x-paystack-signature"

// PaystackWebhook handles card payment event callbacks.
func PaystackWebhook(deps Deps) http.HandlerFunc {
	return handle(deps, enums.ProcessorCard, paystackSignatureHeader)
}
