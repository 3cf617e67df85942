package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"minaret/internal/types"
)

// DefaultAladhanBaseURL is the production base URL of the timings provider.
const DefaultAladhanBaseURL = "https://api.aladhan.com/v1"

// defaultUpstreamTimeout bounds a single timings call end to end,
// including retries inside BaseClient.
const defaultUpstreamTimeout = 10 * time.Second

// Fixed provider parameters. The calendar method pins the provider to the
// Diyanet calendar, which the Turkey timezone priority depends on.
const (
	paramShafaq         = "general"
	paramCalendarMethod = "DIYANET"
)

// TimingsProvider fetches raw day schedules from the upstream service.
// Implemented by AladhanClient; faked in tests.
type TimingsProvider interface {
	GetTimings(ctx context.Context, req types.ScheduleRequest, timezone string) (*TimingsData, error)
}

// TimingsResponse is the provider's top-level envelope. Code 200 signals
// success; any other code is a provider-reported error even when the
// HTTP status is 200.
type TimingsResponse struct {
	Code   int         `json:"code"`
	Status string      `json:"status"`
	Data   TimingsData `json:"data"`
}

// TimingsData is the payload of a successful timings response.
type TimingsData struct {
	Timings Timings     `json:"timings"`
	Date    TimingsDate `json:"date"`
	Meta    TimingsMeta `json:"meta"`
}

// Timings holds the raw prayer time strings, each of the form
// "HH:MM" or "HH:MM (TZ)". The provider sends more fields than the six
// the core consumes; the extras are ignored on decode.
type Timings struct {
	Fajr    string `json:"Fajr"`
	Sunrise string `json:"Sunrise"`
	Dhuhr   string `json:"Dhuhr"`
	Asr     string `json:"Asr"`
	Maghrib string `json:"Maghrib"`
	Isha    string `json:"Isha"`
}

// TimingsDate carries the human-readable gregorian date and the hijri date.
type TimingsDate struct {
	Readable string `json:"readable"`
	Hijri    struct {
		Date string `json:"date"`
	} `json:"hijri"`
}

// TimingsMeta carries provider metadata; only the method block is consumed.
type TimingsMeta struct {
	Timezone string `json:"timezone"`
	Method   struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"method"`
}

// AladhanClient implements TimingsProvider against the aladhan.com API.
type AladhanClient struct {
	base    *BaseClient
	baseURL string
}

// NewAladhanClient creates a timings client. baseURL may be empty for the
// production endpoint. The supplied timeout bounds each call; zero means
// the default.
func NewAladhanClient(baseURL string, timeout time.Duration, opts ...BaseClientOption) *AladhanClient {
	if baseURL == "" {
		baseURL = DefaultAladhanBaseURL
	}
	if timeout <= 0 {
		timeout = defaultUpstreamTimeout
	}
	return &AladhanClient{
		base: NewBaseClient(
			&http.Client{Timeout: timeout},
			"aladhan",
			DefaultRetryPolicy(),
			"Minaret/1.0",
			opts...,
		),
		baseURL: baseURL,
	}
}

// GetTimings fetches the timings for one day, location, and method. The
// timezone string is passed through to the provider so its day boundary
// matches the user's local calendar.
func (c *AladhanClient) GetTimings(ctx context.Context, req types.ScheduleRequest, timezone string) (*TimingsData, error) {
	q := url.Values{}
	q.Set("latitude", types.FormatFloat(req.Coordinate.Latitude))
	q.Set("longitude", types.FormatFloat(req.Coordinate.Longitude))
	q.Set("method", fmt.Sprintf("%d", req.MethodID))
	q.Set("shafaq", paramShafaq)
	q.Set("timezonestring", timezone)
	q.Set("calendarMethod", paramCalendarMethod)

	endpoint := fmt.Sprintf("%s/timings/%s?%s", c.baseURL, req.Date, q.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeScheduleFetch, "failed to build timings request", err)
	}

	resp, err := c.base.Do(httpReq)
	if err != nil {
		return nil, wrapFetchError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeScheduleFetch,
			fmt.Sprintf("timings provider returned HTTP %d", resp.StatusCode),
			nil,
		)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeScheduleFetch, "failed to read timings response", err)
	}

	var envelope TimingsResponse
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, types.NewAppError(types.ErrCodeScheduleFetch, "malformed timings response", err)
	}

	if envelope.Code != http.StatusOK {
		return nil, types.NewAppError(
			types.ErrCodeScheduleFetch,
			fmt.Sprintf("timings provider reported %d: %s", envelope.Code, envelope.Status),
			nil,
		)
	}

	return &envelope.Data, nil
}

// wrapFetchError folds BaseClient transport errors into the single fetch
// failure surfaced to callers, preserving the upstream code in the chain.
func wrapFetchError(err error) *types.AppError {
	return &types.AppError{
		Code:    types.ErrCodeScheduleFetch,
		Message: "failed to fetch timings from provider",
		Err:     err,
	}
}
