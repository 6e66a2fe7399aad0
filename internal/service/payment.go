package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"inventory-service/internal/apperr"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// HTTPPaymentClient talks to the payment service's refund endpoint
type HTTPPaymentClient struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPPaymentClient creates a payment client with the given timeout
func NewHTTPPaymentClient(baseURL string, timeout time.Duration) *HTTPPaymentClient {
	return &HTTPPaymentClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  util.GetLogger(),
	}
}

type refundRequest struct {
	PaymentReference string `json:"payment_reference"`
	Amount           int64  `json:"amount"`
	Reason           string `json:"reason"`
}

// Refund asks the payment service to refund a captured payment
func (p *HTTPPaymentClient) Refund(ctx context.Context, paymentReference string, amount int64, reason string) error {
	body, err := json.Marshal(refundRequest{
		PaymentReference: paymentReference,
		Amount:           amount,
		Reason:           reason,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal refund request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/api/v1/refunds", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build refund request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("refund call failed: %w: %v", apperr.ErrDependency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("refund for %s rejected with status %d: %w",
			paymentReference, resp.StatusCode, apperr.ErrDependency)
	}

	p.logger.Debug("Refund accepted",
		zap.String("payment_reference", paymentReference),
		zap.Int64("amount", amount))
	return nil
}
