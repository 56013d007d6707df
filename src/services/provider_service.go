package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"

	"github.com/username/blackledger/backend/src/logger"
	"github.com/username/blackledger/backend/src/utils"
)

const providerUserAgent = "blackledger/1.0"

// authStrategy is one way of presenting the shared secret to the provider.
// Strategies are tried strictly in order; there is no parallel hammering of
// the credential endpoint.
type authStrategy struct {
	name  string
	apply func(req *http.Request) error
}

// bearerStrategy presents the key as a plain Bearer token.
func bearerStrategy(apiKey string) authStrategy {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	return authStrategy{
		name: "bearer",
		apply: func(req *http.Request) error {
			token, err := source.Token()
			if err != nil {
				return err
			}
			token.SetAuthHeader(req)
			return nil
		},
	}
}

// apiKeyHeaderStrategy presents the key in the provider's alternate header.
func apiKeyHeaderStrategy(apiKey string) authStrategy {
	return authStrategy{
		name: "api-key-header",
		apply: func(req *http.Request) error {
			req.Header.Set("X-Api-Key", apiKey)
			return nil
		},
	}
}

// signedJWTStrategy mints a short-lived HS256 token from the shared secret.
// Some provider deployments expect a signed assertion instead of the raw key.
func signedJWTStrategy(secret string) authStrategy {
	return authStrategy{
		name: "signed-jwt",
		apply: func(req *http.Request) error {
			now := time.Now()
			claims := jwt.RegisteredClaims{
				Issuer:    "blackledger",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
			}
			token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
			signed, err := token.SignedString([]byte(secret))
			if err != nil {
				return fmt.Errorf("signing provider JWT: %w", err)
			}
			req.Header.Set("Authorization", "Bearer "+signed)
			return nil
		},
	}
}

type providerClientImpl struct {
	httpClient      *http.Client
	attemptTimeout  time.Duration
	balanceURLs     []string
	subscriptionURL string
	strategies      []authStrategy
}

// NewProviderClient builds the client used against the external balance
// provider. The cookie jar matters: some provider frontends set session
// cookies on the first credential attempt.
func NewProviderClient(apiKey string, balanceURLs []string, subscriptionURL string, timeout time.Duration) ProviderClient {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		logger.L.Error("Failed to create cookie jar", "error", err)
	}

	return &providerClientImpl{
		httpClient: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		attemptTimeout:  timeout,
		balanceURLs:     balanceURLs,
		subscriptionURL: subscriptionURL,
		strategies: []authStrategy{
			bearerStrategy(apiKey),
			apiKeyHeaderStrategy(apiKey),
			signedJWTStrategy(apiKey),
		},
	}
}

func (c *providerClientImpl) FetchBalances(ctx context.Context) (*ProviderResponse, error) {
	return c.negotiate(ctx, c.balanceURLs)
}

// FetchApprovedCashback queries the subscription-info endpoint for the
// provider's approved cashback figure. The field arrives as a string in the
// wild and is sometimes wrapped in a data envelope.
func (c *providerClientImpl) FetchApprovedCashback(ctx context.Context) (decimal.Decimal, error) {
	if c.subscriptionURL == "" {
		return decimal.Zero, nil
	}
	resp, err := c.negotiate(ctx, []string{c.subscriptionURL})
	if err != nil {
		return decimal.Zero, err
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(resp.Body, &payload); err != nil {
		return decimal.Zero, fmt.Errorf("decoding subscription info: %w", err)
	}

	raw, ok := payload["approved_cashback"]
	if !ok {
		if data, isMap := payload["data"].(map[string]interface{}); isMap {
			raw = data["approved_cashback"]
		}
	}
	d, numeric := utils.CoerceDecimal(raw)
	if !numeric {
		return decimal.Zero, fmt.Errorf("subscription info carries no parseable approved_cashback")
	}
	return d, nil
}

// negotiate tries every (endpoint, strategy) pair in order and returns the
// first 2xx response. A 401 means the credentials were rejected under that
// strategy, a 404 that the endpoint shape does not exist under it; both allow
// the loop to continue. Network errors are caught per attempt. After
// exhaustion the failure is classified: any 401 outranks any 404 outranks
// pure connectivity trouble.
func (c *providerClientImpl) negotiate(ctx context.Context, endpoints []string) (*ProviderResponse, error) {
	var sawUnauthorized, sawNotFound bool
	var lastErr error

	for _, endpoint := range endpoints {
		for _, strategy := range c.strategies {
			body, status, err := c.attempt(ctx, endpoint, strategy)
			if err != nil {
				logger.L.Warn("Provider attempt failed", "endpoint", endpoint, "strategy", strategy.name, "error", err)
				lastErr = err
				continue
			}

			switch {
			case status == http.StatusUnauthorized:
				logger.L.Warn("Provider rejected credentials", "endpoint", endpoint, "strategy", strategy.name)
				sawUnauthorized = true
			case status == http.StatusNotFound:
				logger.L.Debug("Provider endpoint not found under strategy", "endpoint", endpoint, "strategy", strategy.name)
				sawNotFound = true
			case status >= 200 && status < 300:
				logger.L.Info("Provider negotiation succeeded", "endpoint", endpoint, "strategy", strategy.name)
				return &ProviderResponse{Body: body, Endpoint: endpoint, Strategy: strategy.name}, nil
			default:
				logger.L.Warn("Provider returned unexpected status", "endpoint", endpoint, "strategy", strategy.name, "status", status)
			}
		}
	}

	switch {
	case sawUnauthorized:
		return nil, &ProviderError{Classification: FailureAuthentication, Err: fmt.Errorf("all credential strategies rejected")}
	case sawNotFound:
		return nil, &ProviderError{Classification: FailureEndpointNotFound, Err: fmt.Errorf("no endpoint answered under any strategy")}
	default:
		return nil, &ProviderError{Classification: FailureConnectivity, Err: lastErr}
	}
}

// attempt performs one GET under one strategy with an independent bounded
// timeout.
func (c *providerClientImpl) attempt(ctx context.Context, endpoint string, strategy authStrategy) ([]byte, int, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("User-Agent", providerUserAgent)
	if err := strategy.apply(req); err != nil {
		return nil, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading provider response body: %w", err)
	}
	return body, resp.StatusCode, nil
}
