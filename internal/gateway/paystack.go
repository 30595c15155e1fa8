package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaystackClient talks to the Paystack transaction API. Initialize starts a
// transaction and yields the hosted-payment redirect URL; Verify is a pure
// read of the final status for a reference and is safe to repeat.
type PaystackClient struct {
	baseURL     string
	secretKey   string
	callbackURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewPaystackClient creates a gateway client with a bounded request timeout
func NewPaystackClient(baseURL, secretKey, callbackURL string, timeout time.Duration) *PaystackClient {
	return &PaystackClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		secretKey:   secretKey,
		callbackURL: callbackURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      util.Named("gateway"),
	}
}

// InitResult is the outcome of a successful Initialize call
type InitResult struct {
	AuthorizationURL string
	AccessCode       string
	Reference        string
}

// VerifyResult reports the gateway's final word on a payment attempt
type VerifyResult struct {
	Success         bool
	Reference       string
	Channel         string
	GatewayResponse string
	TransactionID   string
	OrderNumber     string
	OwnerKey        string
	Email           string
}

type customField struct {
	DisplayName  string `json:"display_name"`
	VariableName string `json:"variable_name"`
	Value        string `json:"value"`
}

type initializeRequest struct {
	Email       string   `json:"email"`
	Amount      int64    `json:"amount"`
	CallbackURL string   `json:"callback_url"`
	Reference   string   `json:"reference"`
	Metadata    metadata `json:"metadata"`
}

// metadata is echoed back verbatim on Verify; the callback relies on it to
// recover the paying identity without a live session.
type metadata struct {
	OrderID      string        `json:"orderId"`
	UserID       string        `json:"userId"`
	Email        string        `json:"email,omitempty"`
	CustomFields []customField `json:"custom_fields,omitempty"`
}

type initializeResponse struct {
	Status bool   `json:"status"`
	Msg    string `json:"message"`
	Data   struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type verifyResponse struct {
	Status bool   `json:"status"`
	Msg    string `json:"message"`
	Data   struct {
		Status          string   `json:"status"`
		Reference       string   `json:"reference"`
		Amount          int64    `json:"amount"`
		Channel         string   `json:"channel"`
		GatewayResponse string   `json:"gateway_response"`
		ID              int64    `json:"id"`
		Metadata        metadata `json:"metadata"`
	} `json:"data"`
}

// Initialize starts a gateway transaction for amountMajor (major currency
// units, converted to the gateway's minor-unit representation on the wire)
// and returns the redirect URL. It never returns a partial result.
func (c *PaystackClient) Initialize(ctx context.Context, orderNumber, ownerKey, email string, amountMajor int64) (*InitResult, error) {
	start := time.Now()
	defer func() {
		util.GatewayRequestLatency.WithLabelValues("initialize").Observe(time.Since(start).Seconds())
	}()

	reqBody := initializeRequest{
		Email:       email,
		Amount:      amountMajor * 100,
		CallbackURL: c.callbackURL,
		Reference:   uuid.New().String(),
		Metadata: metadata{
			OrderID: orderNumber,
			UserID:  ownerKey,
			Email:   email,
			CustomFields: []customField{
				{DisplayName: "Order ID", VariableName: "orderId", Value: orderNumber},
				{DisplayName: "Email", VariableName: "email", Value: email},
			},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: initialize returned %d", models.ErrGatewayRejected, resp.StatusCode)
	}

	var body initializeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed initialize response: %v", models.ErrGatewayRejected, err)
	}

	if !body.Status || body.Data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: no authorization url in response", models.ErrGatewayRejected)
	}

	c.logger.Info("Gateway transaction initialized",
		zap.String("order_number", orderNumber),
		zap.String("reference", body.Data.Reference))

	return &InitResult{
		AuthorizationURL: body.Data.AuthorizationURL,
		AccessCode:       body.Data.AccessCode,
		Reference:        body.Data.Reference,
	}, nil
}

// Verify queries the final status of a transaction by reference. A timeout or
// transport failure is an error, never a success.
func (c *PaystackClient) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	start := time.Now()
	defer func() {
		util.GatewayRequestLatency.WithLabelValues("verify").Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrGatewayUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: verify returned %d", models.ErrGatewayRejected, resp.StatusCode)
	}

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: malformed verify response: %v", models.ErrGatewayRejected, err)
	}
	if !body.Status {
		return nil, fmt.Errorf("%w: %s", models.ErrGatewayRejected, body.Msg)
	}

	return &VerifyResult{
		Success:         body.Data.Status == "success",
		Reference:       body.Data.Reference,
		Channel:         body.Data.Channel,
		GatewayResponse: body.Data.GatewayResponse,
		TransactionID:   fmt.Sprintf("%d", body.Data.ID),
		OrderNumber:     body.Data.Metadata.OrderID,
		OwnerKey:        body.Data.Metadata.UserID,
		Email:           body.Data.Metadata.Email,
	}, nil
}
