// Package gateway holds the default HTTP client for the external payment
// service. The rules engine only sees it through service.PaymentGateway.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/ilyakh/library-service/library/config"
	"github.com/ilyakh/library-service/library/internal/model"
	"github.com/ilyakh/library-service/library/internal/service"
	cb "github.com/ilyakh/library-service/pkg/circuit_breaker"
)

var _ service.PaymentGateway = (*Client)(nil)

type Client struct {
	log    *zap.Logger
	client *http.Client
	cfg    config.PaymentGateway
	cb     cb.CircuitBreaker
}

func NewClient(log *zap.Logger, cfg config.PaymentGateway) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:    log.Named("payment"),
		client: &http.Client{Timeout: timeout},
		cfg:    cfg,
		cb:     cb.New(20, 30*time.Second, 0.5, 3),
	}
}

type processPaymentRequest struct {
	PatronID    string  `json:"patronId"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

type refundPaymentRequest struct {
	Amount float64 `json:"amount"`
}

func (c *Client) ProcessPayment(ctx context.Context, patronID string, amount float64, description string) (model.PaymentResult, error) {
	var res model.PaymentResult
	err := c.cb.Call(func() error {
		return c.post(ctx, "/api/v1/payments", processPaymentRequest{
			PatronID:    patronID,
			Amount:      amount,
			Description: description,
		}, &res)
	})
	if err != nil {
		c.log.Warn("ProcessPayment", zap.Error(err))
		return model.PaymentResult{}, err
	}
	return res, nil
}

func (c *Client) RefundPayment(ctx context.Context, transactionID string, amount float64) (model.RefundResult, error) {
	var res model.RefundResult
	err := c.cb.Call(func() error {
		return c.post(ctx, fmt.Sprintf("/api/v1/payments/%s/refund", transactionID), refundPaymentRequest{
			Amount: amount,
		}, &res)
	})
	if err != nil {
		c.log.Warn("RefundPayment", zap.Error(err))
		return model.RefundResult{}, err
	}
	return res, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	b := bytes.NewBuffer(nil)
	if err := json.NewEncoder(b).Encode(in); err != nil {
		return err
	}
	url := fmt.Sprintf("http://%s%s", net.JoinHostPort(c.cfg.Host, c.cfg.Port), path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, b)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", echo.MIMEApplicationJSONCharsetUTF8)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.Errorf("payment gateway: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
