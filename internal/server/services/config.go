package services

import (
	"os"
	"strings"
	"time"
)

// Config gathers the knobs the auth core depends on. Defaults match the
// mobile client's expectations: 15-minute links, 30-day sessions, refresh
// only inside the last 7 days.
type Config struct {
	TokenTTL       time.Duration
	SessionTTL     time.Duration
	RenewalWindow  time.Duration
	DeepLinkScheme string

	// MobileAPIKey gates the send-to-mobile endpoint, which is called by an
	// already-authenticated desktop system rather than a logged-in session.
	MobileAPIKey string

	// ApprovedDomains optionally admits any address at a listed domain even
	// without an explicit whitelist row. An explicit row always wins, so a
	// per-email role or expiration overrides the blanket domain rule.
	ApprovedDomains []string
}

func DefaultConfig() Config {
	return Config{
		TokenTTL:       15 * time.Minute,
		SessionTTL:     30 * 24 * time.Hour,
		RenewalWindow:  7 * 24 * time.Hour,
		DeepLinkScheme: "pocketdash",
	}
}

func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TokenTTL = d
		}
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = d
		}
	}
	if v := os.Getenv("RENEWAL_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RenewalWindow = d
		}
	}
	if v := os.Getenv("DEEP_LINK_SCHEME"); v != "" {
		cfg.DeepLinkScheme = v
	}
	cfg.MobileAPIKey = os.Getenv("MOBILE_API_KEY")

	if raw := os.Getenv("APPROVED_DOMAINS"); raw != "" {
		for _, domain := range strings.Split(raw, ",") {
			domain = strings.TrimSpace(strings.ToLower(domain))
			if domain != "" {
				cfg.ApprovedDomains = append(cfg.ApprovedDomains, domain)
			}
		}
	}

	return cfg
}
