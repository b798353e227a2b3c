package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/bakery-backend/api/responses"
	pkgerrors "github.com/angelmondragon/bakery-backend/pkg/errors"
	"github.com/angelmondragon/bakery-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/bakery-backend/pkg/redis"
)

const maxRateLimitedBody = 64 << 10

// RateLimiterStore counts hits in a fixed window and reports when it resets.
type RateLimiterStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Dimension picks the subject a request is counted against. An empty subject
// skips that dimension for the request.
type Dimension struct {
	Name    string
	Limit   int
	Subject func(r *http.Request, body []byte) string
	// NeedsBody makes the limiter buffer the request body for Subject.
	NeedsBody bool
}

// ByIP counts requests per client address.
func ByIP(limit int) Dimension {
	return Dimension{Name: "ip", Limit: limit, Subject: func(r *http.Request, _ []byte) string {
		return clientIP(r)
	}}
}

// ByEmail counts requests per (hashed) "email" field of the JSON body.
func ByEmail(limit int) Dimension {
	return Dimension{Name: "email", Limit: limit, NeedsBody: true, Subject: func(_ *http.Request, body []byte) string {
		var payload struct {
			Email string `json:"email"`
		}
		if json.Unmarshal(body, &payload) != nil {
			return ""
		}
		email := strings.ToLower(strings.TrimSpace(payload.Email))
		if email == "" {
			return ""
		}
		sum := sha256.Sum256([]byte(email))
		return hex.EncodeToString(sum[:])
	}}
}

// ByUser counts requests per authenticated user; it must run after Auth.
func ByUser(limit int) Dimension {
	return Dimension{Name: "user", Limit: limit, Subject: func(r *http.Request, _ []byte) string {
		return UserIDFromContext(r.Context())
	}}
}

// RateLimitPolicy is a named window with one or more dimensions.
type RateLimitPolicy struct {
	Name       string
	Window     time.Duration
	Dimensions []Dimension
}

func (p RateLimitPolicy) active() []Dimension {
	if p.Window <= 0 {
		return nil
	}
	out := make([]Dimension, 0, len(p.Dimensions))
	for _, d := range p.Dimensions {
		if d.Limit > 0 && d.Subject != nil {
			out = append(out, d)
		}
	}
	return out
}

// RateLimit rejects requests with 429 and a Retry-After header once any
// dimension of the policy exceeds its limit inside the window.
func RateLimit(policy RateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	dims := policy.active()
	needsBody := false
	for _, d := range dims {
		needsBody = needsBody || d.NeedsBody
	}

	return func(next http.Handler) http.Handler {
		if store == nil || len(dims) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if needsBody {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxRateLimitedBody))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			for _, d := range dims {
				subject := d.Subject(r, body)
				if subject == "" {
					continue
				}
				count, resetIn, err := store.Hit(ctx, pkgredis.RateLimitKey(policy.Name, d.Name, subject), policy.Window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if count > int64(d.Limit) {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":    policy.Name,
							"dimension": d.Name,
							"attempts":  count,
							"limit":     d.Limit,
						}), "rate_limit.blocked")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(resetIn.Seconds()))))
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests, please try again later"))
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers the first X-Forwarded-For hop set by the load balancer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
