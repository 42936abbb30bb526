package config

const (
	EnvPrefix = "SCPRS"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvAppEnv    = "SCPRS_APP_ENV"
	EnvPort      = "SCPRS_APP_PORT"
	EnvStorePath = "SCPRS_STORE_PATH"
)
