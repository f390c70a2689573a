package webhooks

import (
	"net/http"

	"github.com/tundeajala/bookhaven-payments/pkg/enums"
)

const nowPaymentsSignatureHeader = "x-nowpayments-sig"

// NOWPaymentsIPN handles crypto payment status callbacks.
func NOWPaymentsIPN(deps Deps) http.HandlerFunc {
	return handle(deps, enums.ProcessorCrypto, nowPaymentsSignatureHeader)
}
