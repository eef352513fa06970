package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"paycycleAPI/middleware"
)

// Error is the uniform shape every gateway failure is translated into.
// Message may be surfaced in logs; it is never returned verbatim to callers.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway error [%s]: %s", e.Code, e.Message)
}

// OrderResult is the gateway's view of a created order.
type OrderResult struct {
	OrderID  string
	Amount   int64
	Currency string
	Receipt  string
	Status   string
}

// Client is the payment gateway boundary. Implementations make exactly one
// outbound call per invocation and never retry internally; retry policy
// belongs to the caller.
type Client interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*OrderResult, error)
	CancelSubscription(ctx context.Context, externalSubscriptionID string) error
}

type RazorpayClient struct {
	keyID      string
	keySecret  string
	apiBase    string
	httpClient *http.Client
}

func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{
		keyID:     keyID,
		keySecret: keySecret,
		apiBase:   "https://api.razorpay.com/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type razorpayOrderResponse struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type razorpayErrorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder creates an order on Razorpay. Amount is in the smallest
// currency unit (paise for INR), exactly as the caller supplied it.
func (c *RazorpayClient) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*OrderResult, error) {
	payload := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		payload["notes"] = notes
	}

	body, err := c.do(ctx, http.MethodPost, "/orders", payload)
	middleware.ObserveGatewayCall("create_order", err)
	if err != nil {
		return nil, err
	}

	var orderResp razorpayOrderResponse
	if err := json.Unmarshal(body, &orderResp); err != nil {
		return nil, &Error{Code: "BAD_RESPONSE", Message: "could not decode order response"}
	}

	return &OrderResult{
		OrderID:  orderResp.ID,
		Amount:   orderResp.Amount,
		Currency: orderResp.Currency,
		Receipt:  orderResp.Receipt,
		Status:   orderResp.Status,
	}, nil
}

// CancelSubscription cancels a gateway-side subscription record.
func (c *RazorpayClient) CancelSubscription(ctx context.Context, externalSubscriptionID string) error {
	path := fmt.Sprintf("/subscriptions/%s/cancel", externalSubscriptionID)
	payload := map[string]interface{}{
		"cancel_at_cycle_end": 1,
	}

	_, err := c.do(ctx, http.MethodPost, path, payload)
	middleware.ObserveGatewayCall("cancel_subscription", err)
	return err
}

// do performs one authenticated call and maps every failure mode onto *Error.
func (c *RazorpayClient) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Code: "ENCODE_FAILED", Message: err.Error()}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, &Error{Code: "REQUEST_FAILED", Message: err.Error()}
	}
	httpReq.SetBasicAuth(c.keyID, c.keySecret)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{Code: "TRANSPORT_FAILED", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Code: "READ_FAILED", Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp razorpayErrorResponse
		if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Code == "" {
			log.Printf("Razorpay %s %s returned %d with unparseable body", method, path, resp.StatusCode)
			return nil, &Error{
				Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
				Message: "gateway request failed",
			}
		}
		return nil, &Error{
			Code:    errResp.Error.Code,
			Message: errResp.Error.Description,
		}
	}

	return body, nil
}
