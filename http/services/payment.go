package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"intellicourse/errors"
	"intellicourse/logger"
	"intellicourse/models"
	"intellicourse/services"
	"intellicourse/store"
)

// Confirmations returns the required confirmation count for a crypto ticker.
type Confirmations func(currency string) int

// PaymentService owns the payment lifecycle: it validates nothing (the HTTP
// layer does), dispatches validated requests into a method strategy, and is
// the only writer of status transitions via the confirmation entry points.
type PaymentService struct {
	payments store.PaymentStore
	courses  store.CourseStore
	rates    *services.RateCache
	notifier services.Notifier
	payout   *PayoutDistributor

	confirmations   Confirmations
	duplicateWindow time.Duration

	// locks serializes confirmation calls per payment id. The store's CAS
	// transitions are the backstop; the lock keeps the read-decide-write
	// sequence coherent so idempotent retries observe settled state.
	locks paymentLocks

	// dispatchLocks serializes the duplicate check and create per
	// (user, course) so concurrent submissions cannot each open a payment.
	dispatchLocks paymentLocks
}

func NewPaymentService(
	payments store.PaymentStore,
	courses store.CourseStore,
	rates *services.RateCache,
	notifier services.Notifier,
	payout *PayoutDistributor,
	confirmations Confirmations,
	duplicateWindow time.Duration,
) *PaymentService {
	return &PaymentService{
		payments:        payments,
		courses:         courses,
		rates:           rates,
		notifier:        notifier,
		payout:          payout,
		confirmations:   confirmations,
		duplicateWindow: duplicateWindow,
	}
}

// Dispatch creates exactly one Payment for a validated request and routes it
// into the method's handling strategy. Every method ends in
// awaiting_confirmation; nothing auto-confirms.
func (s *PaymentService) Dispatch(ctx context.Context, req models.PaymentRequest) (*models.DispatchResult, error) {
	if !models.IsKnownMethod(req.Method) {
		return nil, errors.E(errors.Unsupported, "unsupported payment method: "+string(req.Method))
	}

	course, err := s.courses.ByID(ctx, req.CourseID)
	if err != nil {
		return nil, errors.E(errors.Internal, "error looking up course", err)
	}
	if course == nil || course.IsActive != 1 {
		return nil, errors.E(errors.NotFound, fmt.Sprintf("course %d not found", req.CourseID))
	}

	amountZAR, err := s.amountInZAR(req, course)
	if err != nil {
		return nil, err
	}

	// Reject a duplicate while an earlier attempt for the same user and
	// course is still open. The lookup and the create are serialized per
	// (user, course) so concurrent submissions cannot all pass the lookup
	// before any of them has created a record.
	if s.duplicateWindow > 0 && req.UserID != "" {
		unlock := s.dispatchLocks.lock(fmt.Sprintf("%s/%d", req.UserID, req.CourseID))
		defer unlock()

		since := time.Now().Add(-s.duplicateWindow)
		open, err := s.payments.FindOpenForUserCourse(ctx, req.UserID, req.CourseID, since)
		if err != nil {
			return nil, errors.E(errors.Internal, "error checking open payments", err)
		}
		if open != nil {
			return nil, errors.E(errors.Conflict,
				fmt.Sprintf("a payment for this course is already in progress (%s)", open.ID))
		}
	}

	payment := &models.Payment{
		ID:        uuid.NewString(),
		Request:   req,
		Status:    models.StatusPending,
		AmountZAR: amountZAR,
		CreatedAt: time.Now(),
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, errors.E(errors.Internal, "error saving payment", err)
	}

	result, err := s.routeByMethod(ctx, payment)
	if err != nil {
		// Do not leave an orphaned pending record blocking retries.
		if _, failErr := s.payments.Fail(ctx, payment.ID); failErr != nil {
			logger.Error("Failed to fail payment %s after dispatch error: %v", payment.ID, failErr)
		}
		services.PublishPaymentEvent(services.EventPaymentFailed, payment.ID, map[string]interface{}{
			"method": string(req.Method),
			"reason": err.Error(),
		})
		return nil, err
	}

	services.PublishPaymentEvent(services.EventPaymentInitiated, payment.ID, map[string]interface{}{
		"course_id":  req.CourseID,
		"method":     string(req.Method),
		"amount_zar": amountZAR.StringFixed(2),
		"status":     string(models.StatusAwaitingConfirmation),
	})

	return result, nil
}

// routeByMethod applies the method strategy and moves the payment to
// awaiting_confirmation.
func (s *PaymentService) routeByMethod(ctx context.Context, p *models.Payment) (*models.DispatchResult, error) {
	method := p.Request.Method

	if method.IsRedirect() {
		ok, err := s.payments.MarkAwaiting(ctx, p.ID, "", decimal.Decimal{}, "")
		if err != nil || !ok {
			return nil, errors.E(errors.Internal, "error updating payment", err)
		}
		return &models.DispatchResult{
			PaymentID:   p.ID,
			Status:      models.StatusAwaitingConfirmation,
			RedirectURL: redirectURLFor(method, p.ID),
		}, nil
	}

	// Manual-instruction methods: fiat transfer or crypto send.
	reference := fmt.Sprintf("COURSE-%d-%s", p.Request.CourseID, strconv.FormatInt(p.CreatedAt.UnixMilli(), 10))

	var cryptoAmount decimal.Decimal
	ticker := method.CryptoCurrency()
	if ticker != "" {
		rate, err := s.rates.Rate(ticker)
		if err != nil {
			return nil, err
		}
		cryptoAmount = p.AmountZAR.DivRound(rate, cryptoPrecision(ticker))
	}

	ok, err := s.payments.MarkAwaiting(ctx, p.ID, reference, cryptoAmount, ticker)
	if err != nil || !ok {
		return nil, errors.E(errors.Internal, "error updating payment", err)
	}
	p.Reference = reference
	p.CryptoAmount = cryptoAmount
	p.CryptoCurrency = ticker

	instructions := instructionsFor(method, p.AmountZAR, cryptoAmount, reference)
	s.notifier.PaymentInstructions(p, instructions)

	result := &models.DispatchResult{
		PaymentID:    p.ID,
		Status:       models.StatusAwaitingConfirmation,
		Reference:    reference,
		Instructions: instructions,
	}
	if ticker != "" {
		result.CryptoAmount = cryptoAmount
		result.Currency = ticker
	}
	return result, nil
}

// priceMatchTolerance is the slack allowed between a submitted amount
// converted to ZAR and the catalog price, as a fraction of the price. It
// absorbs rate rounding on foreign-currency submissions; a larger gap is an
// under- or overpayment attempt.
var priceMatchTolerance = decimal.RequireFromString("0.01")

// amountInZAR determines what the payment charges in the base currency. The
// charge is always the catalog price; a submitted amount is advisory and is
// rejected when it disagrees with the price after currency conversion.
func (s *PaymentService) amountInZAR(req models.PaymentRequest, course *models.Course) (decimal.Decimal, error) {
	price := course.Price
	if req.Amount.IsZero() {
		return price, nil
	}

	submitted := req.Amount
	if req.Currency != "" && req.Currency != "ZAR" {
		rate, err := s.rates.Rate(req.Currency)
		if err != nil {
			return decimal.Decimal{}, err
		}
		submitted = submitted.Mul(rate).Round(2)
	}

	if submitted.Sub(price).Abs().GreaterThan(price.Mul(priceMatchTolerance)) {
		return decimal.Decimal{}, errors.E(errors.Invalid,
			fmt.Sprintf("amount does not match the course price of R %s", price.StringFixed(2)))
	}
	return price, nil
}

// cryptoPrecision is the quote precision per ticker: 8 decimals for BTC,
// 6 for ETH and USDT.
func cryptoPrecision(ticker string) int32 {
	if ticker == "BTC" {
		return 8
	}
	return 6
}

// ConfirmCrypto handles the asynchronous crypto confirmation webhook. It is
// idempotent: repeating a call with identical evidence after the payment
// confirmed reports success without distributing the payout again.
func (s *PaymentService) ConfirmCrypto(ctx context.Context, paymentID, txHash string, confirmations int) (*models.Payment, error) {
	unlock := s.locks.lock(paymentID)
	defer unlock()

	p, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, errors.E(errors.Internal, "error loading payment", err)
	}
	if p == nil {
		return nil, errors.E(errors.NotFound, "payment not found: "+paymentID)
	}
	if !p.Request.Method.IsCrypto() {
		return nil, errors.E(errors.InvalidEvidence, "payment is not a crypto payment")
	}
	if txHash == "" || confirmations < 0 {
		return nil, errors.E(errors.InvalidEvidence, "missing transaction hash or negative confirmation count")
	}

	switch p.Status {
	case models.StatusConfirmed:
		if p.TxHash == txHash {
			// Repeat delivery of the same evidence.
			return p, nil
		}
		return nil, errors.E(errors.InvalidEvidence, "payment already confirmed with different evidence")
	case models.StatusFailed:
		return nil, errors.E(errors.InvalidEvidence, "payment already failed")
	case models.StatusPending:
		return nil, errors.E(errors.Insufficient, "payment is not yet awaiting confirmation")
	}

	required := s.confirmations(p.CryptoCurrency)
	if confirmations < required {
		return nil, errors.E(errors.Insufficient,
			fmt.Sprintf("%s requires %d confirmations, have %d", p.CryptoCurrency, required, confirmations))
	}

	return s.settle(ctx, p, txHash, "")
}

// ConfirmEFT accepts a proof-of-payment submission for a manual fiat
// payment. Like ConfirmCrypto it is idempotent per evidence.
func (s *PaymentService) ConfirmEFT(ctx context.Context, paymentID, proofRef string) (*models.Payment, error) {
	unlock := s.locks.lock(paymentID)
	defer unlock()

	p, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, errors.E(errors.Internal, "error loading payment", err)
	}
	if p == nil {
		return nil, errors.E(errors.NotFound, "payment not found: "+paymentID)
	}
	if p.Request.Method.IsCrypto() || p.Request.Method.IsRedirect() {
		return nil, errors.E(errors.InvalidEvidence, "payment method does not accept proof submissions")
	}
	if len(proofRef) < 8 {
		return nil, errors.E(errors.InvalidEvidence, "proof of payment is too short to be usable")
	}

	switch p.Status {
	case models.StatusConfirmed:
		if p.ProofRef == proofRef {
			return p, nil
		}
		return nil, errors.E(errors.InvalidEvidence, "payment already confirmed with different evidence")
	case models.StatusFailed:
		return nil, errors.E(errors.InvalidEvidence, "payment already failed")
	case models.StatusPending:
		return nil, errors.E(errors.Insufficient, "payment is not yet awaiting confirmation")
	}

	settled, err := s.settle(ctx, p, "", proofRef)
	if err != nil {
		return nil, err
	}
	// Acknowledged only once the transition actually happened, so a lost CAS
	// or rejected evidence never emails the buyer.
	s.notifier.ProofReceived(settled)
	return settled, nil
}

// settle performs the single awaiting_confirmation -> confirmed transition,
// assigns the download id and distributes the payout exactly once.
func (s *PaymentService) settle(ctx context.Context, p *models.Payment, txHash, proofRef string) (*models.Payment, error) {
	downloadID := uuid.NewString()
	confirmedAt := time.Now()

	ok, err := s.payments.Confirm(ctx, p.ID, downloadID, txHash, proofRef, confirmedAt)
	if err != nil {
		return nil, errors.E(errors.Internal, "error confirming payment", err)
	}
	if !ok {
		// Lost the CAS: someone else settled it first. Reload and treat a
		// matching-evidence confirmation as a successful repeat.
		fresh, err := s.payments.Get(ctx, p.ID)
		if err != nil || fresh == nil {
			return nil, errors.E(errors.Internal, "error reloading payment", err)
		}
		if fresh.Status == models.StatusConfirmed && (fresh.TxHash == txHash && fresh.ProofRef == proofRef) {
			return fresh, nil
		}
		return nil, errors.E(errors.InvalidEvidence, "payment state changed during confirmation")
	}

	p.Status = models.StatusConfirmed
	p.DownloadID = downloadID
	p.TxHash = txHash
	p.ProofRef = proofRef
	p.ConfirmedAt = &confirmedAt

	split := s.payout.Distribute(p.ID, p.AmountZAR)
	if err := s.payments.RecordPayout(ctx, split); err != nil {
		// The payment stays confirmed; the payout record is recoverable
		// from the payment itself.
		logger.Error("Failed to record payout for payment %s: %v", p.ID, err)
	}

	services.PublishPaymentEvent(services.EventPaymentConfirmed, p.ID, map[string]interface{}{
		"download_id": downloadID,
		"amount_zar":  p.AmountZAR.StringFixed(2),
	})
	services.PublishPaymentEvent(services.EventPayoutDistributed, p.ID, map[string]interface{}{
		"total":   split.Total.StringFixed(2),
		"buckets": split.Buckets,
	})
	s.notifier.PaymentReceipt(p)

	logger.Info("Payment %s confirmed, download %s, R %s distributed", p.ID, downloadID, p.AmountZAR.StringFixed(2))
	return p, nil
}

// Status returns the current state of a payment.
func (s *PaymentService) Status(ctx context.Context, paymentID string) (*models.Payment, error) {
	p, err := s.payments.Get(ctx, paymentID)
	if err != nil {
		return nil, errors.E(errors.Internal, "error loading payment", err)
	}
	if p == nil {
		return nil, errors.E(errors.NotFound, "payment not found: "+paymentID)
	}
	return p, nil
}

// List returns payments matching the filter, for the admin surface.
func (s *PaymentService) List(ctx context.Context, filter store.ListFilter) ([]models.Payment, error) {
	return s.payments.List(ctx, filter)
}

// Payouts returns every recorded payout split.
func (s *PaymentService) Payouts(ctx context.Context) ([]models.PayoutSplit, error) {
	return s.payments.Payouts(ctx)
}

// RateSnapshot exposes the current exchange-rate snapshot.
func (s *PaymentService) RateSnapshot() *models.RateSnapshot {
	return s.rates.Snapshot()
}

// paymentLocks hands out one mutex per key. Entries are reference counted
// and removed once the last holder unlocks, so the map does not grow with
// every key ever locked.
type paymentLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (l *paymentLocks) lock(id string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*lockEntry)
	}
	entry, ok := l.m[id]
	if !ok {
		entry = &lockEntry{}
		l.m[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
