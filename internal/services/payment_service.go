// internal/services/payment_service.go
package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
	"github.com/stripe/stripe-go/v74/refund"

	"github.com/ClockZinc/STAR-ENGINE/internal/config"
	"github.com/ClockZinc/STAR-ENGINE/internal/models"
	"github.com/ClockZinc/STAR-ENGINE/internal/utils"
)

// PaymentService fronts Stripe for collecting license fees and royalties.
// The ledger itself lives in TransactionService; this layer only moves
// money and then settles the matching ledger entry.
type PaymentService struct {
	config             *config.Config
	transactionService *TransactionService
}

type CreatePaymentIntentRequest struct {
	TransactionID uuid.UUID `json:"transaction_id" validate:"required"`
}

type PaymentIntentResponse struct {
	ClientSecret string `json:"client_secret"`
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
}

type ConfirmPaymentRequest struct {
	PaymentIntentID string    `json:"payment_intent_id" validate:"required"`
	TransactionID   uuid.UUID `json:"transaction_id" validate:"required"`
}

func NewPaymentService(cfg *config.Config, transactionService *TransactionService) *PaymentService {
	stripe.Key = cfg.Payment.StripeSecretKey

	return &PaymentService{
		config:             cfg,
		transactionService: transactionService,
	}
}

// CreatePaymentIntent opens a Stripe PaymentIntent for a PENDING ledger
// entry. The intent amount always comes from the ledger, never the caller.
func (s *PaymentService) CreatePaymentIntent(req *CreatePaymentIntentRequest) (*PaymentIntentResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	txn, err := s.transactionService.GetTransaction(req.TransactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status != models.TransactionStatusPending {
		return nil, fmt.Errorf("%w: 只有待支付状态的交易可以发起支付", ErrInvalidState)
	}

	// Stripe amounts are in the currency's smallest unit.
	amountInCents := int64(txn.Amount * 100)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountInCents),
		Currency: stripe.String(stripeCurrency(txn.Currency)),
	}
	params.AddMetadata("txn_code", txn.TxnCode)
	params.AddMetadata("transaction_id", txn.ID.String())

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	return &PaymentIntentResponse{
		ClientSecret: pi.ClientSecret,
		PaymentID:    pi.ID,
		Status:       string(pi.Status),
	}, nil
}

// ConfirmPayment checks the intent with Stripe and, on success, settles the
// ledger entry with the intent ID as the payment reference.
func (s *PaymentService) ConfirmPayment(req *ConfirmPaymentRequest) (*models.Transaction, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	pi, err := paymentintent.Get(req.PaymentIntentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}

	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("%w: 支付尚未成功，当前状态 %s", ErrInvalidState, pi.Status)
	}

	return s.transactionService.CompletePayment(req.TransactionID, "stripe", pi.ID)
}

// RefundPayment reverses the Stripe charge and then marks the ledger entry
// refunded.
func (s *PaymentService) RefundPayment(transactionID uuid.UUID, reason string) (*models.Transaction, error) {
	txn, err := s.transactionService.GetTransaction(transactionID)
	if err != nil {
		return nil, err
	}

	if txn.Status != models.TransactionStatusCompleted {
		return nil, fmt.Errorf("%w: 只有已完成的交易可以退款", ErrInvalidState)
	}

	if txn.PaymentRef != "" {
		params := &stripe.RefundParams{
			PaymentIntent: stripe.String(txn.PaymentRef),
			Amount:        stripe.Int64(int64(txn.Amount * 100)),
			Reason:        stripe.String("requested_by_customer"),
		}
		if _, err := refund.New(params); err != nil {
			return nil, fmt.Errorf("failed to process refund: %w", err)
		}
	}

	return s.transactionService.RefundTransaction(transactionID, reason)
}

func stripeCurrency(currency string) string {
	switch currency {
	case "CNY":
		return "cny"
	case "USD":
		return "usd"
	default:
		return "cny"
	}
}
