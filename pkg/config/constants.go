package config

const (
	EnvPrefix = "BOOKHAVEN"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv = "BOOKHAVEN_APP_ENV"
	EnvPort   = "BOOKHAVEN_APP_PORT"

	EnvDBDSN  = "BOOKHAVEN_DB_DSN"
	EnvDBHost = "BOOKHAVEN_DB_HOST"
	EnvDBUser = "BOOKHAVEN_DB_USER"
	EnvDBName = "BOOKHAVEN_DB_NAME"

	EnvRedisURL = "BOOKHAVEN_REDIS_URL"

	EnvNOWPaymentsIPNSecret = "BOOKHAVEN_NOWPAYMENTS_IPN_SECRET"
	EnvPaystackSecretKey    = "BOOKHAVEN_PAYSTACK_SECRET_KEY"
	EnvPayoutBaseURL        = "BOOKHAVEN_PAYOUT_BASE_URL"
	EnvPayoutAPIKey         = "BOOKHAVEN_PAYOUT_API_KEY"

	EnvGCPProjectID = "BOOKHAVEN_GCP_PROJECT_ID"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
