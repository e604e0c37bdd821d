// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// CRMConfig provides settings for the CRM item store client.
type CRMConfig interface {
	GetCRMURL() string
	GetCRMToken() string
	GetCRMTimeout() time.Duration
}

// PricingConfig provides settings for the external rate engine.
type PricingConfig interface {
	GetPricingURL() string
	GetPricingEstimatePath() string
	GetPricingTimeout() time.Duration
	GetPricingCacheTTL() time.Duration
}

// StripeConfig provides payment gateway credentials.
type StripeConfig interface {
	GetStripeSecretKey() string
	GetStripeWebhookSecret() string
	GetPaymentCurrency() string
}

// StageConfig maps deal milestones to CRM stage record ids.
type StageConfig interface {
	GetDealStageNewID() string
	GetDealStageQuoteSubmittedID() string
	GetDealStageInvoiceSubmittedID() string
	GetDealStagePaymentSubmittedID() string
	GetDealStagePaymentFailureID() string
	GetDealStageClosedWonID() string
	GetDealStageBookedID() string
	GetDealStageClosedWonName() string
}

// LinkConfig provides the public base URL used in flow links.
type LinkConfig interface {
	GetAppBaseURL() string
}

// ProposalConfig provides defaults for newly created proposals.
type ProposalConfig interface {
	GetProposalName() string
	GetProposalStatus() string
	GetProposalExpiryDays() int
	GetDefaultTaxRate() float64
}

// InvoiceConfig provides defaults for newly created invoices.
type InvoiceConfig interface {
	GetInvoiceStatus() string
	GetInvoiceDueDays() int
	GetDefaultTaxRate() float64
}

// FailureReasonConfig provides the human-readable reasons stored on failed payments.
type FailureReasonConfig interface {
	GetReasonRequiresConfirmation() string
	GetReasonRequiresAction() string
	GetReasonProcessing() string
	GetReasonRequiresCapture() string
}

// PaymentConfig provides checkout settings for the payment manager.
type PaymentConfig interface {
	GetPaymentCurrency() string
	FailureReasonConfig
}

// IntakeConfig provides defaults for deals opened from the contact step.
type IntakeConfig interface {
	GetDealName() string
	GetDealOwnerID() string
}

// VerifyConfig provides phone verification settings.
type VerifyConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetVerifyServiceSID() string
	GetVerifySandboxEnabled() bool
	GetVerifySandboxCode() string
}

// SchedulerConfig provides settings for the asynq reconciliation queue.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetWebhookAsync() bool
}

// SMTPConfig provides settings for outbound customer emails.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsSMTPEnabled() bool
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetFunnelRateLimit() float64
	GetFunnelRateBurst() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env            string
	HTTPAddr       string
	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool
	FunnelRate     float64
	FunnelBurst    int

	JWTAccessSecret string

	CRMURL     string
	CRMToken   string
	CRMTimeout time.Duration

	PricingURL          string
	PricingEstimatePath string
	PricingTimeout      time.Duration
	PricingCacheTTL     time.Duration

	StripeSecretKey     string
	StripeWebhookSecret string
	PaymentCurrency     string

	StageNewID              string
	StageQuoteSubmittedID   string
	StageInvoiceSubmittedID string
	StagePaymentSubmittedID string
	StagePaymentFailureID   string
	StageClosedWonID        string
	StageBookedID           string
	StageClosedWonName      string

	AppBaseURL string

	DealName    string
	DealOwnerID string

	ProposalName       string
	ProposalStatus     string
	ProposalExpiryDays int
	InvoiceStatus      string
	InvoiceDueDays     int
	DefaultTaxRate     float64

	ReasonRequiresConfirmation string
	ReasonRequiresAction       string
	ReasonProcessing           string
	ReasonRequiresCapture      string

	TwilioAccountSID     string
	TwilioAuthToken      string
	VerifyServiceSID     string
	VerifySandboxEnabled bool
	VerifySandboxCode    string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	WebhookAsync     bool

	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string
}

// CRMConfig implementation
func (c *Config) GetCRMURL() string             { return c.CRMURL }
func (c *Config) GetCRMToken() string           { return c.CRMToken }
func (c *Config) GetCRMTimeout() time.Duration { return c.CRMTimeout }

// PricingConfig implementation
func (c *Config) GetPricingURL() string              { return c.PricingURL }
func (c *Config) GetPricingEstimatePath() string     { return c.PricingEstimatePath }
func (c *Config) GetPricingTimeout() time.Duration  { return c.PricingTimeout }
func (c *Config) GetPricingCacheTTL() time.Duration { return c.PricingCacheTTL }

// StripeConfig implementation
func (c *Config) GetStripeSecretKey() string     { return c.StripeSecretKey }
func (c *Config) GetStripeWebhookSecret() string { return c.StripeWebhookSecret }
func (c *Config) GetPaymentCurrency() string     { return c.PaymentCurrency }

// StageConfig implementation
func (c *Config) GetDealStageNewID() string              { return c.StageNewID }
func (c *Config) GetDealStageQuoteSubmittedID() string   { return c.StageQuoteSubmittedID }
func (c *Config) GetDealStageInvoiceSubmittedID() string { return c.StageInvoiceSubmittedID }
func (c *Config) GetDealStagePaymentSubmittedID() string { return c.StagePaymentSubmittedID }
func (c *Config) GetDealStagePaymentFailureID() string   { return c.StagePaymentFailureID }
func (c *Config) GetDealStageClosedWonID() string        { return c.StageClosedWonID }
func (c *Config) GetDealStageBookedID() string           { return c.StageBookedID }
func (c *Config) GetDealStageClosedWonName() string      { return c.StageClosedWonName }

// LinkConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// IntakeConfig implementation
func (c *Config) GetDealName() string    { return c.DealName }
func (c *Config) GetDealOwnerID() string { return c.DealOwnerID }

// ProposalConfig / InvoiceConfig implementation
func (c *Config) GetProposalName() string      { return c.ProposalName }
func (c *Config) GetProposalStatus() string    { return c.ProposalStatus }
func (c *Config) GetProposalExpiryDays() int   { return c.ProposalExpiryDays }
func (c *Config) GetInvoiceStatus() string     { return c.InvoiceStatus }
func (c *Config) GetInvoiceDueDays() int       { return c.InvoiceDueDays }
func (c *Config) GetDefaultTaxRate() float64   { return c.DefaultTaxRate }

// FailureReasonConfig implementation
func (c *Config) GetReasonRequiresConfirmation() string { return c.ReasonRequiresConfirmation }
func (c *Config) GetReasonRequiresAction() string       { return c.ReasonRequiresAction }
func (c *Config) GetReasonProcessing() string           { return c.ReasonProcessing }
func (c *Config) GetReasonRequiresCapture() string      { return c.ReasonRequiresCapture }

// VerifyConfig implementation
func (c *Config) GetTwilioAccountSID() string    { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string     { return c.TwilioAuthToken }
func (c *Config) GetVerifyServiceSID() string    { return c.VerifyServiceSID }
func (c *Config) GetVerifySandboxEnabled() bool  { return c.VerifySandboxEnabled }
func (c *Config) GetVerifySandboxCode() string   { return c.VerifySandboxCode }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string        { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool  { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string  { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int   { return c.AsynqConcurrency }
func (c *Config) GetWebhookAsync() bool      { return c.WebhookAsync && c.RedisURL != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsSMTPEnabled() bool         { return c.SMTPHost != "" && c.EmailFromAddress != "" }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string        { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool      { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string   { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool    { return c.CORSAllowCreds }
func (c *Config) GetFunnelRateLimit() float64 { return c.FunnelRate }
func (c *Config) GetFunnelRateBurst() int     { return c.FunnelBurst }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:8030"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		FunnelRate:     mustFloat(getEnv("FUNNEL_RATE_PER_SECOND", "5")),
		FunnelBurst:    mustInt(getEnv("FUNNEL_RATE_BURST", "20")),

		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),

		CRMURL:     strings.TrimRight(getEnv("CRM_URL", getEnv("KONG_GATEWAY_URL", "http://localhost:8000")), "/"),
		CRMToken:   getEnv("CRM_TOKEN", ""),
		CRMTimeout: mustDuration(getEnv("CRM_TIMEOUT", "10s")),

		PricingURL:          strings.TrimRight(getEnv("PRICING_URL", getEnv("KONG_GATEWAY_URL", "http://localhost:8000")), "/"),
		PricingEstimatePath: getEnv("PRICING_ESTIMATE_PATH", "/api/v1/quotes/estimate"),
		PricingTimeout:      mustDuration(getEnv("PRICING_TIMEOUT", "8s")),
		PricingCacheTTL:     mustDuration(getEnv("PRICING_CACHE_TTL", "5m")),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		PaymentCurrency:     strings.ToLower(getEnv("PAYMENT_CURRENCY", "aud")),

		StageNewID:              getEnv("DEAL_STAGE_NEW_ID", ""),
		StageQuoteSubmittedID:   getEnv("DEAL_STAGE_QUOTE_SUBMITTED_ID", ""),
		StageInvoiceSubmittedID: getEnv("DEAL_STAGE_INVOICE_SUBMITTED_ID", ""),
		StagePaymentSubmittedID: getEnv("DEAL_STAGE_PAYMENT_SUBMITTED_ID", ""),
		StagePaymentFailureID:   getEnv("DEAL_STAGE_PAYMENT_FAILURE_ID", ""),
		StageClosedWonID:        getEnv("DEAL_STAGE_CLOSED_WON_ID", ""),
		StageBookedID:           getEnv("DEAL_STAGE_BOOKED_ID", ""),
		StageClosedWonName:      getEnv("DEAL_STAGE_CLOSED_WON_NAME", "Closed - Won"),

		AppBaseURL: getEnv("APP_BASE_URL", "http://localhost:8030"),

		DealName:    getEnv("DEAL_NAME", "Inspection"),
		DealOwnerID: getEnv("DEAL_OWNER_ID", ""),

		ProposalName:       getEnv("PROPOSAL_NAME", "New Proposal"),
		ProposalStatus:     getEnv("PROPOSAL_STATUS", "submitted"),
		ProposalExpiryDays: mustInt(getEnv("PROPOSAL_EXPIRY_DAYS", "7")),
		InvoiceStatus:      getEnv("INVOICE_STATUS", "submitted"),
		InvoiceDueDays:     mustInt(getEnv("INVOICE_DUE_DAYS", "7")),
		DefaultTaxRate:     mustFloat(getEnv("DEFAULT_TAX_RATE", "10")),

		ReasonRequiresConfirmation: getEnv("PAYMENT_REASON_REQUIRES_CONFIRMATION", "Payment method attached, needs confirmation"),
		ReasonRequiresAction:       getEnv("PAYMENT_REASON_REQUIRES_ACTION", "Customer must authenticate (3DS, OTP)"),
		ReasonProcessing:           getEnv("PAYMENT_REASON_PROCESSING", "Bank processing, waiting on result"),
		ReasonRequiresCapture:      getEnv("PAYMENT_REASON_REQUIRES_CAPTURE", "PaymentIntent canceled"),

		TwilioAccountSID:     getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:      getEnv("TWILIO_AUTH_TOKEN", ""),
		VerifyServiceSID:     getEnv("VERIFY_SERVICE_SID", ""),
		VerifySandboxEnabled: strings.EqualFold(getEnv("VERIFY_SANDBOX_ENABLED", "false"), "true"),
		VerifySandboxCode:    getEnv("VERIFY_SANDBOX_CODE", "000000"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "webhooks"),
		AsynqConcurrency: mustInt(getEnv("ASYNQ_CONCURRENCY", "5")),
		WebhookAsync:     strings.EqualFold(getEnv("WEBHOOK_ASYNC", "false"), "true"),

		SMTPHost:         getEnv("SMTP_HOST", ""),
		SMTPPort:         mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Inspections"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
	}

	if cfg.CRMURL == "" {
		return nil, fmt.Errorf("CRM_URL is required")
	}
	if cfg.CRMTimeout <= 0 {
		cfg.CRMTimeout = 10 * time.Second
	}
	if cfg.PricingTimeout <= 0 {
		cfg.PricingTimeout = 8 * time.Second
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
