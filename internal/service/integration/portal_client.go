package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sena-seguimiento/assignment-service/internal/models"
)

// PortalClient reads apprentice form data from the admin portal. The
// portal wraps domain errors in a 200-level envelope with status "error",
// so success is decided by the payload, never by the transport status
// alone.
type PortalClient interface {
	GetFormRequest(ctx context.Context, requestID string) (*models.FormRequest, error)
}

// DomainError is a portal-reported failure carried inside a successful
// HTTP response.
type DomainError struct {
	Detail string
}

func (e *DomainError) Error() string {
	if e.Detail == "" {
		return "portal reported an error"
	}
	return fmt.Sprintf("portal reported an error: %s", e.Detail)
}

type portalClient struct {
	baseURL      string
	formEndpoint string
	timeout      time.Duration
	retryCount   int
	retryDelay   time.Duration
	client       *http.Client
	logger       zerolog.Logger
}

func NewPortalClient(baseURL, formEndpoint string, timeout time.Duration, retryCount int, retryDelay time.Duration, logger zerolog.Logger) PortalClient {
	return &portalClient{
		baseURL:      baseURL,
		formEndpoint: formEndpoint,
		timeout:      timeout,
		retryCount:   retryCount,
		retryDelay:   retryDelay,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *portalClient) GetFormRequest(ctx context.Context, requestID string) (*models.FormRequest, error) {
	url := c.baseURL + strings.TrimSuffix(c.formEndpoint, "/") + "/" + requestID

	var resp *http.Response
	var lastErr error

	for i := 0; i <= c.retryCount; i++ {
		if i > 0 {
			c.logger.Warn().Int("attempt", i).Str("request_id", requestID).Msg("Retrying portal form lookup")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(i)):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		resp, lastErr = c.client.Do(req)
		if lastErr == nil && resp.StatusCode < http.StatusInternalServerError {
			break
		}

		if resp != nil {
			resp.Body.Close()
			lastErr = fmt.Errorf("portal returned status %d", resp.StatusCode)
			resp = nil
		}
	}

	if resp == nil {
		return nil, fmt.Errorf("failed to reach portal after %d attempts: %w", c.retryCount+1, lastErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("portal returned status %d: %s", resp.StatusCode, string(body))
	}

	var envelope models.PortalEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode portal response: %w", err)
	}

	// Domain errors ride in a 200 envelope.
	if strings.EqualFold(envelope.Status, "error") {
		return nil, &DomainError{Detail: envelope.Detail}
	}

	if envelope.Data == nil {
		return nil, fmt.Errorf("portal response has no form data")
	}

	return envelope.Data, nil
}
