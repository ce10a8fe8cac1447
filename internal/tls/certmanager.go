// Package tls serves the application over HTTPS with ACME certificates.
package tls

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/caddyserver/certmagic"
)

// CertManager obtains and renews certificates for a fixed set of domains.
type CertManager struct {
	domains []string
	logger  *slog.Logger
	cfg     *certmagic.Config
}

// NewCertManager configures certmagic for domains. Outside production the
// Let's Encrypt staging CA is used.
func NewCertManager(domains []string, email string, production bool, logger *slog.Logger) *CertManager {
	certmagic.DefaultACME.Email = email
	certmagic.DefaultACME.Agreed = true
	if !production {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}

	cfg := certmagic.NewDefault()
	cm := &CertManager{domains: normalize(domains), logger: logger, cfg: cfg}
	cfg.OnDemand = &certmagic.OnDemandConfig{DecisionFunc: cm.allowCert}
	return cm
}

func normalize(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		out = append(out, strings.ToLower(strings.TrimSuffix(d, ".")))
	}
	return out
}

// allowCert permits on-demand issuance only for configured domains, which
// covers renewals for names first requested through SNI.
func (cm *CertManager) allowCert(_ context.Context, name string) error {
	if slices.Contains(cm.domains, strings.ToLower(name)) {
		return nil
	}
	return fmt.Errorf("unknown domain: %s", name)
}

// Domains returns the managed names.
func (cm *CertManager) Domains() []string { return slices.Clone(cm.domains) }

// ChallengeHandler wraps next so ACME HTTP-01 challenges are answered on the
// plain HTTP listener.
func (cm *CertManager) ChallengeHandler(next http.Handler) http.Handler {
	for _, iss := range cm.cfg.Issuers {
		if acme, ok := iss.(*certmagic.ACMEIssuer); ok {
			return acme.HTTPChallengeHandler(next)
		}
	}
	return next
}

// Listener returns a function serving srv over TLS on the HTTPS port, for
// use with server.Serve. Certificates for the configured domains are
// obtained before the listener opens.
func (cm *CertManager) Listener(ctx context.Context, srv *http.Server) func() error {
	return func() error {
		cm.logger.Info("managing certificates", "domains", cm.domains)
		if err := cm.cfg.ManageSync(ctx, cm.domains); err != nil {
			return fmt.Errorf("manage domains: %w", err)
		}

		ln, err := tls.Listen("tcp", fmt.Sprintf(":%d", certmagic.HTTPSPort), cm.cfg.TLSConfig())
		if err != nil {
			return fmt.Errorf("tls listen: %w", err)
		}
		cm.logger.Info("serving HTTPS", "port", certmagic.HTTPSPort)
		return srv.Serve(ln)
	}
}
