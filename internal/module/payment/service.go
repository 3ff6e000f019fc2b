package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/module/order"
	"github.com/soundcraft/server/internal/module/payment/provider"
	"github.com/soundcraft/server/internal/shared/config"
	"github.com/soundcraft/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// VerifyOutcome is the result of handling a gateway callback: where to
// send the browser, and what happened.
type VerifyOutcome struct {
	RedirectURL string
	Settled     bool
}

// Service drives the payment flow: it persists a pending order before
// any gateway contact, and settles it exactly once on verification.
type Service struct {
	orders   *order.Service
	registry *Registry
	server   *config.ServerConfig
	frontend *config.FrontendConfig
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService creates a new payment service.
func NewService(
	orders *order.Service,
	registry *Registry,
	server *config.ServerConfig,
	frontend *config.FrontendConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		orders:   orders,
		registry: registry,
		server:   server,
		frontend: frontend,
		metrics:  m,
		logger:   logger,
	}
}

// Initiate creates a pending order and opens a payment session with the
// gateway. The order exists before the gateway is contacted, so a crash
// in between leaves a reconcilable pending order rather than an orphan
// payment.
func (s *Service) Initiate(ctx context.Context, userID uuid.UUID, method order.PaymentMethod, items []order.ItemRequest) (*InitiateResponse, error) {
	p, err := s.registry.GetByMethod(method)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.CreatePending(ctx, userID, method, items)
	if err != nil {
		return nil, err
	}

	result, err := p.Initiate(ctx, &provider.InitiateRequest{
		ReferenceID: o.PaymentReferenceID,
		OrderNumber: o.OrderNumber,
		AmountPaisa: o.AmountPaisa,
		SuccessURL:  s.callbackURL(p.Name()),
		FailureURL:  s.callbackURL(p.Name()),
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentsInitiatedTotal.WithLabelValues(p.Name()).Inc()
	s.logger.Info("payment initiated",
		zap.String("gateway", p.Name()),
		zap.String("order_id", o.ID.String()),
		zap.String("reference_id", o.PaymentReferenceID),
		zap.Int64("amount_paisa", o.AmountPaisa),
	)

	return &InitiateResponse{
		Order:   order.ToResponse(o),
		Payment: result,
	}, nil
}

// esewaCallback is the JSON blob eSewa base64-encodes into the redirect.
type esewaCallback struct {
	TransactionCode string `json:"transaction_code"`
	Status          string `json:"status"`
	TotalAmount     string `json:"total_amount"`
	TransactionUUID string `json:"transaction_uuid"`
	ProductCode     string `json:"product_code"`
}

// VerifyEsewa handles the eSewa redirect. The base64 payload only
// identifies the transaction; settlement is decided by the status-check
// API, never by the redirect blob itself. A cancelled payment arrives
// here with no data parameter at all, so a missing or undecodable blob
// still sends the browser to the frontend failure page.
func (s *Service) VerifyEsewa(ctx context.Context, data string) (*VerifyOutcome, error) {
	if data == "" {
		return &VerifyOutcome{RedirectURL: s.failureRedirect("", "payment cancelled")}, nil
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		s.logger.Warn("undecodable callback payload", zap.String("gateway", "esewa"), zap.Error(err))
		return &VerifyOutcome{RedirectURL: s.failureRedirect("", "invalid callback")}, nil
	}
	var callback esewaCallback
	if err := json.Unmarshal(raw, &callback); err != nil || callback.TransactionUUID == "" {
		s.logger.Warn("malformed callback payload", zap.String("gateway", "esewa"))
		return &VerifyOutcome{RedirectURL: s.failureRedirect("", "invalid callback")}, nil
	}

	return s.verify(ctx, order.PaymentMethodEsewa, callback.TransactionUUID, map[string]string{
		"data": data,
	})
}

// VerifyKhalti handles the Khalti return callback. The purchase order id
// is our payment reference; settlement is decided by the lookup API.
// Incomplete callbacks redirect to the failure page, same as eSewa.
func (s *Service) VerifyKhalti(ctx context.Context, pidx, purchaseOrderID string) (*VerifyOutcome, error) {
	if pidx == "" || purchaseOrderID == "" {
		return &VerifyOutcome{RedirectURL: s.failureRedirect(purchaseOrderID, "invalid callback")}, nil
	}

	return s.verify(ctx, order.PaymentMethodKhalti, purchaseOrderID, map[string]string{
		"pidx": pidx,
	})
}

// verify corroborates the callback with the gateway and settles the
// order. Gateway transport failures propagate with the order untouched,
// so verification can simply be repeated.
func (s *Service) verify(ctx context.Context, method order.PaymentMethod, referenceID string, params map[string]string) (*VerifyOutcome, error) {
	gateway := string(method)

	o, err := s.orders.GetByReferenceID(ctx, referenceID)
	if err != nil {
		// Unknown correlation id: nothing to mutate.
		s.metrics.PaymentsVerifiedTotal.WithLabelValues(gateway, "unknown_reference").Inc()
		s.logger.Warn("callback for unknown reference",
			zap.String("gateway", gateway),
			zap.String("reference_id", referenceID),
		)
		return &VerifyOutcome{RedirectURL: s.failureRedirect(referenceID, "unknown transaction")}, nil
	}

	p, err := s.registry.GetByMethod(method)
	if err != nil {
		return nil, err
	}

	result, err := p.Verify(ctx, &provider.VerifyRequest{
		ReferenceID: referenceID,
		AmountPaisa: o.AmountPaisa,
		Params:      params,
	})
	if err != nil {
		// Order stays pending; the callback can be replayed.
		s.metrics.PaymentsVerifiedTotal.WithLabelValues(gateway, "gateway_error").Inc()
		return nil, err
	}

	if result.Pending {
		// Still in flight at the gateway. Leave the order pending so a
		// later callback or a reconciliation sweep can settle it.
		s.metrics.PaymentsVerifiedTotal.WithLabelValues(gateway, "pending").Inc()
		return &VerifyOutcome{RedirectURL: s.failureRedirect(referenceID, "payment not settled yet")}, nil
	}
	if !result.Settled {
		return s.settleFailed(ctx, gateway, referenceID, "gateway status "+result.RawStatus)
	}
	if result.AmountPaisa != o.AmountPaisa {
		s.logger.Error("settled amount mismatch",
			zap.String("reference_id", referenceID),
			zap.Int64("order_paisa", o.AmountPaisa),
			zap.Int64("settled_paisa", result.AmountPaisa),
		)
		return s.settleFailed(ctx, gateway, referenceID, ErrAmountMismatch.Error())
	}

	completed, err := s.orders.Complete(ctx, referenceID, result.TransactionCode)
	if err != nil && !errors.Is(err, order.ErrAlreadySettled) {
		return nil, err
	}

	if completed.Status != order.OrderStatusCompleted {
		// Settled before, but as failed. Don't resurrect it.
		s.metrics.PaymentsVerifiedTotal.WithLabelValues(gateway, "already_failed").Inc()
		return &VerifyOutcome{RedirectURL: s.failureRedirect(referenceID, "order already failed")}, nil
	}

	s.metrics.PaymentsVerifiedTotal.WithLabelValues(gateway, "completed").Inc()
	return &VerifyOutcome{
		RedirectURL: s.successRedirect(completed),
		Settled:     true,
	}, nil
}

func (s *Service) settleFailed(ctx context.Context, gateway, referenceID, reason string) (*VerifyOutcome, error) {
	if _, err := s.orders.Fail(ctx, referenceID, reason); err != nil && !errors.Is(err, order.ErrAlreadySettled) {
		return nil, err
	}
	s.metrics.PaymentsVerifiedTotal.WithLabelValues(gateway, "failed").Inc()
	return &VerifyOutcome{RedirectURL: s.failureRedirect(referenceID, reason)}, nil
}

// --- Redirect helpers ---

func (s *Service) callbackURL(gateway string) string {
	return fmt.Sprintf("%s/api/v1/payments/%s/verify", s.server.PublicURL, gateway)
}

func (s *Service) successRedirect(o *order.Order) string {
	query := url.Values{}
	query.Set("transaction_code", o.TransactionCode)
	query.Set("total_amount", catalog.FormatRupees(o.AmountPaisa))
	query.Set("transaction_uuid", o.PaymentReferenceID)
	return s.frontend.SuccessURL() + "?" + query.Encode()
}

func (s *Service) failureRedirect(referenceID, reason string) string {
	query := url.Values{}
	query.Set("transaction_uuid", referenceID)
	query.Set("reason", reason)
	return s.frontend.FailureURL() + "?" + query.Encode()
}
