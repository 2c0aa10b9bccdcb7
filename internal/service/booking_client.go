package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// HTTPBookingValidator checks booking numbers against the external validation
// endpoint. The endpoint answers GET <base>?booking_number=<n> with
// {"valid": bool, "message": string}.
type HTTPBookingValidator struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPBookingValidator constructs HTTPBookingValidator. A nil validator is
// returned when baseURL is empty so callers can skip the check entirely.
func NewHTTPBookingValidator(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPBookingValidator {
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPBookingValidator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Validate asks the external service whether the booking number is usable.
func (v *HTTPBookingValidator) Validate(ctx context.Context, bookingNumber string) (*BookingValidationResult, error) {
	endpoint := v.baseURL + "?booking_number=" + url.QueryEscape(bookingNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build booking validation request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("booking validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Warn("booking validation returned non-200",
			zap.Int("status", resp.StatusCode),
			zap.String("booking_number", bookingNumber))
		return nil, fmt.Errorf("booking validation returned status %d", resp.StatusCode)
	}

	var result BookingValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode booking validation response: %w", err)
	}
	if !result.Valid && result.Message == "" {
		result.Message = "booking number rejected by validation service"
	}
	return &result, nil
}
