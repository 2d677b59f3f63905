// Package fxrate fetches market exchange rates for the FX snapshot validator.
package fxrate

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/metrics"
	"vehicle-risk-backend/internal/pricing"

	"github.com/goccy/go-json"
	"github.com/valyala/fasthttp"
)

const defaultTimeout = 5 * time.Second

var ErrUpstream = errors.New("rate source unavailable")

// Source returns the current market rate for a currency pair.
type Source interface {
	GetRate(ctx context.Context, from, to string) (domain.FxQuote, error)
}

type rateResponse struct {
	From       string    `json:"from"`
	To         string    `json:"to"`
	Rate       float64   `json:"rate"`
	ObservedAt time.Time `json:"observed_at"`
}

// HTTPSource queries GET {baseURL}/rates?from=USD&to=ARS.
type HTTPSource struct {
	client  *fasthttp.Client
	baseURL string
	timeout time.Duration
}

func NewHTTPSource(client *fasthttp.Client, baseURL string, timeout time.Duration) *HTTPSource {
	if client == nil {
		client = &fasthttp.Client{Name: "vehicle-risk-backend"}
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPSource{client: client, baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

func (s *HTTPSource) GetRate(ctx context.Context, from, to string) (domain.FxQuote, error) {
	q := url.Values{}
	q.Set("from", from)
	q.Set("to", to)
	uri := s.baseURL + "/rates?" + q.Encode()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	timeout := s.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	logger.ExternalServiceCall("fx-rate-source", "GetRate", "from", from, "to", to)
	err := s.client.DoTimeout(req, resp, timeout)
	if err == nil && resp.StatusCode() != fasthttp.StatusOK {
		err = fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}
	logger.ExternalServiceResult("fx-rate-source", "GetRate", err, "from", from, "to", to)
	if err != nil {
		if !errors.Is(err, ErrUpstream) {
			err = fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		return domain.FxQuote{}, err
	}

	var body rateResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return domain.FxQuote{}, fmt.Errorf("decode rate response: %w", err)
	}
	if err := pricing.ValidateFxRate(body.Rate); err != nil {
		return domain.FxQuote{}, err
	}

	quote := domain.FxQuote{
		FromCurrency: from,
		ToCurrency:   to,
		Rate:         body.Rate,
		ObservedAt:   body.ObservedAt,
	}
	if quote.ObservedAt.IsZero() {
		quote.ObservedAt = time.Now().UTC()
	}
	metrics.FxSourceRequests.WithLabelValues("upstream").Inc()
	return quote, nil
}

// StaticSource always answers with the same rate. Used when no rate service is configured.
type StaticSource struct {
	Rates map[string]float64
}

func (s StaticSource) GetRate(_ context.Context, from, to string) (domain.FxQuote, error) {
	rate, ok := s.Rates[PairKey(from, to)]
	if !ok {
		return domain.FxQuote{}, fmt.Errorf("%w: no static rate for %s", ErrUpstream, PairKey(from, to))
	}
	return domain.FxQuote{FromCurrency: from, ToCurrency: to, Rate: rate, ObservedAt: time.Now().UTC()}, nil
}

// PairKey formats a currency pair as "USD/ARS".
func PairKey(from, to string) string {
	return strings.ToUpper(from) + "/" + strings.ToUpper(to)
}
