package payments

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// Order is the gateway-side order a client completes checkout against.
type Order struct {
	ID       string
	Amount   int64 // smallest currency unit
	Currency string
}

// Gateway abstracts the payment provider so services can be tested without
// hitting the live API.
type Gateway interface {
	// CreateOrder opens an order for the given amount. Notes travel with the
	// order and come back verbatim on webhook events, which is how a captured
	// payment is tied back to the booking that started it.
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*Order, error)
	// VerifyWebhookSignature checks the provider's HMAC over the raw body.
	VerifyWebhookSignature(body []byte, signature, secret string) bool
}

type razorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway builds a Gateway backed by the Razorpay REST API.
func NewRazorpayGateway(keyID, keySecret string) Gateway {
	return &razorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *razorpayGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]interface{}) (*Order, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
		"notes":    notes,
	}

	resp, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	id, _ := resp["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("create order: response missing id")
	}

	return &Order{
		ID:       id,
		Amount:   amount,
		Currency: currency,
	}, nil
}

func (g *razorpayGateway) VerifyWebhookSignature(body []byte, signature, secret string) bool {
	return utils.VerifyWebhookSignature(string(body), signature, secret)
}
