// Package mauth assembles the Authorization header carried on every
// outbound resolver request: Bearer JWT or Kerberos SPNEGO Negotiate,
// dispatched from a single entry point so callers never branch on method.
package mauth

import (
	"encoding/base64"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jcmturner/gokrb5/v8/client"
	"github.com/jcmturner/gokrb5/v8/config"
	"github.com/jcmturner/gokrb5/v8/spnego"

	"github.com/open-moniker/moniker-client/pkg/merrors"
	"github.com/open-moniker/moniker-client/pkg/mlog"
)

// Options carries the subset of configuration auth assembly needs, kept
// decoupled from mconfig.Config to avoid an import cycle between the two
// ambient packages.
type Options struct {
	AuthMethod               string
	KerberosServicePrincipal string
	JWTToken                 string
	JWTTokenEnv              string
	JWTTokenFile             string
}

// HeaderAssembler produces the Authorization header for one request.
type HeaderAssembler interface {
	Headers(opts Options) map[string]string
}

// Assembler is the default HeaderAssembler, caching the last JWT header so
// repeated calls with an unchanged token skip re-encoding.
type Assembler struct {
	logger mlog.Logger

	mu            sync.Mutex
	cachedToken   string
	cachedHeaders map[string]string
	cachedExpiry  time.Time
}

// New builds an Assembler. logger may be nil, in which case a no-op logger
// is used.
func New(logger mlog.Logger) *Assembler {
	if logger == nil {
		logger = mlog.NopLogger{}
	}
	return &Assembler{logger: logger}
}

// Headers returns the Authorization header map for opts, or an empty map if
// no auth method is configured or assembly failed. Failures are logged, not
// raised: a missing/failed credential degrades to an unauthenticated
// request.
func (a *Assembler) Headers(opts Options) map[string]string {
	switch opts.AuthMethod {
	case "kerberos":
		return a.kerberosHeaders(opts)
	case "jwt":
		return a.jwtHeadersCached(opts)
	default:
		return map[string]string{}
	}
}

func (a *Assembler) jwtHeadersCached(opts Options) map[string]string {
	token := a.jwtToken(opts)
	if token == "" {
		return map[string]string{}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if token == a.cachedToken && a.cachedHeaders != nil && !a.cacheExpired() {
		return a.cachedHeaders
	}

	headers := map[string]string{"Authorization": "Bearer " + token}
	a.cachedToken = token
	a.cachedHeaders = headers
	a.cachedExpiry = tokenExpiry(token, a.logger)

	return headers
}

// cacheExpired reports whether the cached token's claimed expiry (if any)
// has passed. A token with no parseable "exp" claim never expires the
// cache entry on this basis; it is only ever replaced by a differing token
// string.
func (a *Assembler) cacheExpired() bool {
	return !a.cachedExpiry.IsZero() && time.Now().After(a.cachedExpiry)
}

// tokenExpiry parses token's claims to find its "exp" claim, used only to
// decide when the cached Authorization header should be rebuilt — this
// client never signs or verifies the token itself.
func tokenExpiry(token string, logger mlog.Logger) time.Time {
	parser := jwt.NewParser()

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		logger.Warnf("failed to parse JWT claims for expiry caching: %v", err)
		return time.Time{}
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}

	return exp.Time
}

// jwtToken resolves a JWT in precedence order: explicit token, environment
// variable, token file.
func (a *Assembler) jwtToken(opts Options) string {
	if opts.JWTToken != "" {
		return opts.JWTToken
	}

	if opts.JWTTokenEnv != "" {
		if v := os.Getenv(opts.JWTTokenEnv); v != "" {
			return v
		}
	}

	if opts.JWTTokenFile != "" {
		raw, err := os.ReadFile(opts.JWTTokenFile)
		if err != nil {
			a.logger.Warnf("failed to read JWT token file: %v", err)
			return ""
		}
		return strings.TrimSpace(string(raw))
	}

	return ""
}

// kerberosHeaders assembles the Negotiate header from the ambient ticket
// cache left by kinit, so the one configuration key needed is the target
// service principal.
func (a *Assembler) kerberosHeaders(opts Options) map[string]string {
	if opts.KerberosServicePrincipal == "" {
		a.logger.Warn("kerberos auth requested but no service principal configured")
		return map[string]string{}
	}

	cfg, err := config.Load(kerberosConfigPath())
	if err != nil {
		a.logger.Warnf("kerberos config load failed: %v", err)
		return map[string]string{}
	}

	ccache, err := loadCCache()
	if err != nil {
		a.logger.Warnf("kerberos ticket cache load failed (run kinit?): %v", err)
		return map[string]string{}
	}

	cl, err := client.NewFromCCache(ccache, cfg)
	if err != nil {
		a.logger.Warnf("kerberos client init from ticket cache failed: %v", err)
		return map[string]string{}
	}
	defer cl.Destroy()

	spnegoClient := spnego.SPNEGOClient(cl, opts.KerberosServicePrincipal)
	if err := spnegoClient.AcquireCred(); err != nil {
		a.logger.Warnf("kerberos credential acquisition failed: %v", err)
		return map[string]string{}
	}

	token, err := spnegoClient.InitSecContext()
	if err != nil {
		a.logger.Warnf("kerberos authentication failed: %v", err)
		return map[string]string{}
	}

	marshaled, err := token.Marshal()
	if err != nil {
		a.logger.Warnf("kerberos token marshal failed: %v", err)
		return map[string]string{}
	}

	return map[string]string{
		"Authorization": "Negotiate " + base64.StdEncoding.EncodeToString(marshaled),
	}
}

func kerberosConfigPath() string {
	if v := os.Getenv("KRB5_CONFIG"); v != "" {
		return v
	}
	return "/etc/krb5.conf"
}

// CredentialError reports a failure obtaining credentials needed before a
// request can even be attempted (distinct from a fail-open header assembly
// failure).
func CredentialError(message string) error {
	return &merrors.AuthenticationFailureError{Message: message}
}
