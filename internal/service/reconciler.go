package service

import (
	"context"
	"time"

	"checkout-service/internal/models"
	"checkout-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Outcome is the result of reconciling a gateway callback. Every value maps
// deterministically to a redirect; nothing here ever escapes as a panic or an
// unhandled error.
type Outcome int

const (
	// OutcomeReconciled means the payment and order transitions were applied
	// exactly now, and the cart was cleared
	OutcomeReconciled Outcome = iota
	// OutcomeAlreadyReconciled means a replayed delivery found the payment
	// already settled; no side effects were reapplied
	OutcomeAlreadyReconciled
	// OutcomeNotFound means no Payment or Order exists for the reference
	OutcomeNotFound
	// OutcomeGatewayFailure means the gateway reported non-success or could
	// not be reached
	OutcomeGatewayFailure
	// OutcomeStoreFailure means the status transition could not be committed
	OutcomeStoreFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeReconciled:
		return "reconciled"
	case OutcomeAlreadyReconciled:
		return "already_reconciled"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeGatewayFailure:
		return "gateway_failure"
	case OutcomeStoreFailure:
		return "store_failure"
	}
	return "unknown"
}

// Succeeded reports whether the outcome maps to the success redirect
func (o Outcome) Succeeded() bool {
	return o == OutcomeReconciled || o == OutcomeAlreadyReconciled
}

// Reconciler confirms gateway-reported payment outcomes and applies the
// corresponding exactly-once state transition to Payment and Order.
type Reconciler struct {
	store     OrderStore
	gateway   Gateway
	carts     CartStore
	publisher EventPublisher
	logger    *zap.Logger
}

// NewReconciler creates a new payment reconciler
func NewReconciler(orderStore OrderStore, gw Gateway, carts CartStore, publisher EventPublisher) *Reconciler {
	return &Reconciler{
		store:     orderStore,
		gateway:   gw,
		carts:     carts,
		publisher: publisher,
		logger:    util.Named("reconciler"),
	}
}

// Reconcile verifies the transaction behind reference and, if the gateway
// reports success, settles the payment and advances the order. Safe under
// concurrent or duplicated delivery: the payment row's PENDING status is the
// concurrency control, so replays short-circuit without reapplying side
// effects.
func (r *Reconciler) Reconcile(ctx context.Context, reference string) Outcome {
	ctx, span := util.StartSpan(ctx, "Reconciler.Reconcile")
	defer span.End()

	verification, err := r.gateway.Verify(ctx, reference)
	if err != nil {
		r.logger.Error("Payment verification failed",
			zap.String("reference", reference),
			zap.Error(err))
		return OutcomeGatewayFailure
	}

	if !verification.Success {
		r.logger.Warn("Gateway reported non-success",
			zap.String("reference", reference),
			zap.String("gateway_response", verification.GatewayResponse))
		util.PaymentsFailedTotal.Inc()
		r.publishFailed(ctx, verification.OrderNumber, reference, verification.GatewayResponse)
		return OutcomeGatewayFailure
	}

	payment, err := r.store.GetPaymentByReference(ctx, reference)
	if err != nil {
		r.logger.Error("No payment record for reference",
			zap.String("reference", reference),
			zap.Error(err))
		return OutcomeNotFound
	}

	order, err := r.store.GetOrderByID(ctx, payment.OrderID)
	if err != nil {
		r.logger.Error("No order record for payment",
			zap.String("reference", reference),
			zap.String("order_id", payment.OrderID),
			zap.Error(err))
		return OutcomeNotFound
	}

	// Replay guard: a terminal payment means a previous delivery already
	// applied the transition and cleared the cart.
	switch payment.Status {
	case models.PaymentStatusSuccessful:
		util.PaymentReplaysTotal.Inc()
		r.logger.Info("Callback replay recognized",
			zap.String("reference", reference),
			zap.String("order_number", order.OrderNumber))
		return OutcomeAlreadyReconciled
	case models.PaymentStatusFailed:
		return OutcomeGatewayFailure
	}

	applied, err := r.store.SettlePayment(ctx, reference,
		verification.GatewayResponse, verification.Channel, verification.TransactionID)
	if err != nil {
		r.logger.Error("Failed to commit payment settlement",
			zap.String("reference", reference),
			zap.Error(err))
		return OutcomeStoreFailure
	}
	if !applied {
		// Lost the race against a concurrent delivery of the same callback
		util.PaymentReplaysTotal.Inc()
		return OutcomeAlreadyReconciled
	}

	util.PaymentsSettledTotal.Inc()
	r.logger.Info("Payment settled",
		zap.String("reference", reference),
		zap.String("order_number", order.OrderNumber),
		zap.String("channel", verification.Channel))

	// The owner key comes from the metadata echoed by the gateway, not from a
	// session; the callback is not guaranteed to carry one.
	ownerKey := verification.OwnerKey
	if ownerKey == "" {
		ownerKey = order.OwnerKey
	}
	if err := r.carts.Clear(ctx, ownerKey); err != nil {
		r.logger.Error("Failed to clear cart after settlement",
			zap.String("owner_key", ownerKey),
			zap.Error(err))
	}

	event := &models.PaymentSettledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentSettled,
			Timestamp: time.Now(),
		},
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Reference:     reference,
		Amount:        payment.Amount,
		Channel:       verification.Channel,
		TransactionID: verification.TransactionID,
	}
	if err := r.publisher.PublishPaymentSettled(ctx, event); err != nil {
		r.logger.Error("Failed to publish PaymentSettled event", zap.Error(err))
	}

	return OutcomeReconciled
}

func (r *Reconciler) publishFailed(ctx context.Context, orderNumber, reference, reason string) {
	event := &models.PaymentFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePaymentFailed,
			Timestamp: time.Now(),
		},
		OrderNumber: orderNumber,
		Reference:   reference,
		Reason:      reason,
	}
	if err := r.publisher.PublishPaymentFailed(ctx, event); err != nil {
		r.logger.Error("Failed to publish PaymentFailed event", zap.Error(err))
	}
}
