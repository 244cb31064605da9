package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const nominatimUserAgent = "go-disaster-response/1.0"

// NominatimProvider geocodes through the OpenStreetMap Nominatim
// search API. It needs no API key.
type NominatimProvider struct {
	baseURL    string
	httpClient *http.Client
}

func NewNominatimProvider(baseURL string) *NominatimProvider {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org/search"
	}
	return &NominatimProvider{
		baseURL:    baseURL,
		httpClient: &http.Client{},
	}
}

func (n *NominatimProvider) Name() string {
	return "nominatim"
}

type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func (n *NominatimProvider) Geocode(ctx context.Context, subject string) (Result, error) {
	params := url.Values{
		"q":      {subject},
		"format": {"json"},
		"limit":  {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("User-Agent", nominatimUserAgent)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Result{}, fmt.Errorf("error decoding resp.Body: %w", err)
	}
	if len(results) == 0 {
		return Result{}, ErrNoResults
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Result{}, fmt.Errorf("error parsing latitude %q: %w", results[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Result{}, fmt.Errorf("error parsing longitude %q: %w", results[0].Lon, err)
	}

	return Result{
		Latitude:         lat,
		Longitude:        lon,
		FormattedAddress: results[0].DisplayName,
	}, nil
}
