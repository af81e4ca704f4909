package storefront

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"gofalre.io/storefront/models"
)

type EventHandler func(context.Context, *stripe.Event) error

// EventManager routes payment events arriving over NATS to registered
// handlers. The storefront only observes these events; the backend owns the
// order state they describe.
type EventManager struct {
	natsConn     *nats.Conn
	subscription *nats.Subscription
	handlers     map[stripe.EventType]EventHandler
	logger       *zap.Logger
}

func NewEventManager(natsConn *nats.Conn, logger *zap.Logger) *EventManager {
	return &EventManager{
		natsConn: natsConn,
		handlers: make(map[stripe.EventType]EventHandler),
		logger:   logger,
	}
}

func (em *EventManager) RegisterHandler(eventType stripe.EventType, handler EventHandler) {
	em.handlers[eventType] = handler
}

func (em *EventManager) GetHandler(eventType stripe.EventType) (EventHandler, bool) {
	handler, exists := em.handlers[eventType]
	return handler, exists
}

func (em *EventManager) SubscribeToEvents(wp *WorkerPool) error {
	sub, err := em.natsConn.Subscribe("payment.service.event.>", func(msg *nats.Msg) {
		var event stripe.Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			em.logger.Error("Failed to unmarshal event", zap.Error(err))
			return
		}

		wp.Submit(context.Background(), &event)
	})
	if err != nil {
		return err
	}

	em.subscription = sub
	return nil
}

func (em *EventManager) Unsubscribe() {
	if em.subscription == nil {
		return
	}
	if err := em.subscription.Unsubscribe(); err != nil {
		em.logger.Warn("Failed to unsubscribe from payment events", zap.Error(err))
	}
	em.subscription = nil
}

func (s *service) registerEventHandlers() {
	eventHandlers := map[stripe.EventType]EventHandler{
		// Checkout Session Events
		stripe.EventTypeCheckoutSessionCompleted: s.handleCheckoutSessionCompleted,

		// Payment Intent Events
		stripe.EventTypePaymentIntentSucceeded:     s.handlePaymentIntentSucceeded,
		stripe.EventTypePaymentIntentPaymentFailed: s.handlePaymentIntentPaymentFailed,
		stripe.EventTypePaymentIntentCanceled:      s.handlePaymentIntentCanceled,

		// Charge Events
		stripe.EventTypeChargeRefunded: s.handleChargeRefunded}

	for eventType, handler := range eventHandlers {
		s.eventManager.RegisterHandler(eventType, handler)
	}
}

// handleCheckoutSessionCompleted clears the local cart once the payment page
// confirms the purchase. Checkout already empties the cart on the context
// that submitted the order; this covers every other context observing the
// same cart.
func (s *service) handleCheckoutSessionCompleted(ctx context.Context, event *stripe.Event) error {
	s.logger.Info("Handling Checkout Session completed event", zap.String("event_id", event.ID))

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		s.logger.Error("Failed to unmarshal Checkout Session", zap.Error(err))
		return err
	}

	if err := s.EmptyCart(ctx); err != nil {
		s.logger.Error("Failed to empty cart after completed checkout",
			zap.String("session_id", session.ID), zap.Error(err))
		return err
	}

	return s.refreshOrders(ctx)
}

func (s *service) handlePaymentIntentSucceeded(ctx context.Context, event *stripe.Event) error {
	s.logger.Info("Handling PaymentIntent succeeded event", zap.String("event_id", event.ID))

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		s.logger.Error("Failed to unmarshal PaymentIntent", zap.Error(err))
		return err
	}

	return s.refreshOrders(ctx)
}

func (s *service) handlePaymentIntentPaymentFailed(ctx context.Context, event *stripe.Event) error {
	s.logger.Info("Handling PaymentIntent payment failed event", zap.String("event_id", event.ID))

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		s.logger.Error("Failed to unmarshal PaymentIntent", zap.Error(err))
		return err
	}

	s.logger.Warn("Payment failed", zap.String("payment_intent_id", paymentIntent.ID))
	return s.refreshOrders(ctx)
}

func (s *service) handlePaymentIntentCanceled(ctx context.Context, event *stripe.Event) error {
	s.logger.Info("Handling PaymentIntent canceled event", zap.String("event_id", event.ID))

	var paymentIntent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &paymentIntent); err != nil {
		s.logger.Error("Failed to unmarshal PaymentIntent", zap.Error(err))
		return err
	}

	return s.refreshOrders(ctx)
}

func (s *service) handleChargeRefunded(ctx context.Context, event *stripe.Event) error {
	s.logger.Info("Handling Charge refunded event", zap.String("event_id", event.ID))

	var refund stripe.Refund
	if err := json.Unmarshal(event.Data.Raw, &refund); err != nil {
		s.logger.Error("Failed to unmarshal Refund", zap.Error(err))
		return err
	}

	return s.refreshOrders(ctx)
}

// refreshOrders re-fetches the order list so the next read reflects the
// status the backend assigned after the payment event.
func (s *service) refreshOrders(ctx context.Context) error {
	if _, err := s.orders.List(ctx); err != nil {
		s.logger.Error("Failed to refresh orders", zap.Error(err))
		return err
	}
	return nil
}

func (s *service) ProcessEvent(ctx context.Context, event *stripe.Event) error {
	if _, err := s.events.GetByID(ctx, event.ID); err == nil {
		s.logger.Info("Event already processed", zap.String("event_id", event.ID))
		return nil
	}

	handler, exists := s.eventManager.GetHandler(event.Type)
	if !exists {
		return fmt.Errorf("no handler registered for event type: %s", event.Type)
	}

	if err := s.events.Create(ctx, &models.Event{
		ID:        event.ID,
		Type:      event.Type,
		Processed: false,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}); err != nil {
		s.logger.Error("Failed to create event", zap.Error(err))
		return err
	}

	if err := handler(ctx, event); err != nil {
		s.logger.Error("Failed to handle event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return err
	}

	if err := s.events.MarkAsProcessed(ctx, event.ID); err != nil {
		s.logger.Error("Failed to mark event as processed", zap.String("event_id", event.ID), zap.Error(err))
	}

	s.logger.Info("Stripe event processed", zap.String("event_id", event.ID))

	return nil
}
