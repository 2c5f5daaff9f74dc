package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout/stock"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type purchaseCreditor interface {
	CreditPurchase(ctx context.Context, tx *gorm.DB, userID uuid.UUID, units int, orderID uuid.UUID) (int, error)
}

// Service runs the checkout flow: form, confirmation and buy-now.
type Service interface {
	Begin(ctx context.Context, userID uuid.UUID, sessionID string) (*FormView, error)
	Confirm(ctx context.Context, userID uuid.UUID, sessionID string, form ShippingForm) (*orders.OrderDTO, error)
	Success(ctx context.Context, userID uuid.UUID, orderNumber string) (*orders.OrderDTO, error)
	Cancel() CancelView
	BuyNow(ctx context.Context, userID, productID uuid.UUID) (*orders.OrderDTO, error)
}

// Deps groups the collaborators of the checkout service.
type Deps struct {
	Tx         txRunner
	Carts      cart.Service
	CartRepo   cart.CartRepository
	Orders     orders.Repository
	Ledger     purchaseCreditor
	Challenges ChallengeStore
	Outbox     outbox.Emitter
	Metrics    *metrics.CheckoutMetrics
	Logger     *logger.Logger
	Config     config.CheckoutConfig
}

type service struct {
	tx         txRunner
	carts      cart.Service
	cartRepo   cart.CartRepository
	orders     orders.Repository
	ledger     purchaseCreditor
	challenges ChallengeStore
	outbox     outbox.Emitter
	metrics    *metrics.CheckoutMetrics
	logg       *logger.Logger
	cfg        config.CheckoutConfig
	newNumber  func() string
}

// NewService builds the checkout service.
func NewService(d Deps) (Service, error) {
	switch {
	case d.Tx == nil:
		return nil, fmt.Errorf("tx runner required")
	case d.Carts == nil:
		return nil, fmt.Errorf("cart service required")
	case d.CartRepo == nil:
		return nil, fmt.Errorf("cart repository required")
	case d.Orders == nil:
		return nil, fmt.Errorf("orders repository required")
	case d.Ledger == nil:
		return nil, fmt.Errorf("loyalty ledger required")
	case d.Challenges == nil:
		return nil, fmt.Errorf("challenge store required")
	case d.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	case d.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	if d.Config.ChallengeMax < d.Config.ChallengeMin || d.Config.ChallengeMax == 0 {
		d.Config.ChallengeMin, d.Config.ChallengeMax = 1, 10
	}
	return &service{
		tx:         d.Tx,
		carts:      d.Carts,
		cartRepo:   d.CartRepo,
		orders:     d.Orders,
		ledger:     d.Ledger,
		challenges: d.Challenges,
		outbox:     d.Outbox,
		metrics:    d.Metrics,
		logg:       d.Logger,
		cfg:        d.Config,
		newNumber:  orders.NewNumber,
	}, nil
}

// Begin presents the shipping form with a fresh challenge.
func (s *service) Begin(ctx context.Context, userID uuid.UUID, sessionID string) (*FormView, error) {
	view, err := s.carts.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	if view.TotalItems == 0 {
		return nil, emptyCart()
	}
	challenge, err := s.issueChallenge(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &FormView{Cart: view, Challenge: challenge, Question: challenge.Question()}, nil
}

// Confirm validates the form and converts the cart into an order in one
// transaction. On any validation failure nothing is written and a new
// challenge replaces the old one.
func (s *service) Confirm(ctx context.Context, userID uuid.UUID, sessionID string, form ShippingForm) (*orders.OrderDTO, error) {
	view, err := s.carts.View(ctx, userID)
	if err != nil {
		return nil, err
	}
	if view.TotalItems == 0 {
		s.metrics.Failed(metrics.SourceCheckout, string(pkgerrors.CodeEmptyCart))
		return nil, emptyCart()
	}

	form.Normalize()
	violations := form.Validate()
	if form.ChallengeAnswer != "" {
		if v := s.checkChallenge(ctx, sessionID, form.ChallengeAnswer); v != nil {
			violations = append(violations, *v)
		}
	}
	if len(violations) > 0 {
		return nil, s.reject(ctx, sessionID, form, violations)
	}

	if err := s.challenges.Clear(ctx, sessionID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear checkout challenge")
	}

	var created *models.Order
	var points int
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		created, points, err = s.commitCart(ctx, tx, userID, form)
		return err
	})
	if err != nil {
		s.metrics.Failed(metrics.SourceCheckout, string(codeOf(err)))
		return nil, s.afterRollback(ctx, sessionID, err)
	}

	s.metrics.OrderCreated(metrics.SourceCheckout, points)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_number": created.OrderNumber,
		"user_id":      userID.String(),
		"total_price":  created.TotalPrice.StringFixed(2),
		"points":       points,
	})
	s.logg.Info(logCtx, "checkout.committed")
	return orders.FromModel(created), nil
}

func (s *service) commitCart(ctx context.Context, tx *gorm.DB, userID uuid.UUID, form ShippingForm) (*models.Order, int, error) {
	cartRepo := s.cartRepo.WithTx(tx)
	ordersRepo := s.orders.WithTx(tx)

	record, err := cartRepo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, emptyCart()
		}
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	lines, err := cartRepo.ListLines(ctx, record.ID)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart lines")
	}
	if len(lines) == 0 {
		return nil, 0, emptyCart()
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	products, err := stock.Lock(ctx, tx, ids)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock products")
	}

	order := &models.Order{
		UserID:     userID,
		Status:     enums.OrderStatusNew,
		FullName:   form.FullName,
		Phone:      form.Phone,
		Wilaya:     form.Wilaya,
		Commune:    form.Commune,
		Address:    form.Address,
		PostalCode: optional(form.PostalCode),
		Notes:      optional(form.Notes),
	}
	total := decimal.Zero
	units := 0
	requests := make([]stock.Request, 0, len(lines))
	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, 0, pkgerrors.New(pkgerrors.CodeNotFound, "product no longer exists")
		}
		// authoritative check against the locked row
		if line.Quantity > product.Stock {
			return nil, 0, insufficientStock(product)
		}
		order.Items = append(order.Items, models.OrderItem{
			ProductID: product.ID,
			Quantity:  line.Quantity,
			Price:     product.Price,
		})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		units += line.Quantity
		requests = append(requests, stock.Request{ProductID: product.ID, Qty: line.Quantity})
	}
	order.TotalPrice = total

	if err := s.createOrder(ctx, ordersRepo, order); err != nil {
		return nil, 0, err
	}
	if err := s.decrement(ctx, tx, order, requests); err != nil {
		return nil, 0, err
	}
	points, err := s.ledger.CreditPurchase(ctx, tx, userID, units, order.ID)
	if err != nil {
		return nil, 0, err
	}
	if err := cartRepo.ClearLines(ctx, record.ID); err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	if err := s.emitOrderCreated(ctx, tx, order, metrics.SourceCheckout, points); err != nil {
		return nil, 0, err
	}
	attachProducts(order, products)
	return order, points, nil
}

// BuyNow sells a single unit straight from the product page.
func (s *service) BuyNow(ctx context.Context, userID, productID uuid.UUID) (*orders.OrderDTO, error) {
	var created *models.Order
	var points int
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products, err := stock.Lock(ctx, tx, []uuid.UUID{productID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
		}
		product, ok := products[productID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if !product.InStock() {
			return pkgerrors.New(pkgerrors.CodeOutOfStock, "Sorry, this product is out of stock.")
		}

		order := &models.Order{
			UserID:     userID,
			Status:     enums.OrderStatusNew,
			TotalPrice: product.Price,
			Items:      []models.OrderItem{{ProductID: product.ID, Quantity: 1, Price: product.Price}},
		}
		if err := s.createOrder(ctx, s.orders.WithTx(tx), order); err != nil {
			return err
		}
		if err := s.decrement(ctx, tx, order, []stock.Request{{ProductID: product.ID, Qty: 1}}); err != nil {
			return err
		}
		points, err = s.ledger.CreditPurchase(ctx, tx, userID, 1, order.ID)
		if err != nil {
			return err
		}
		if err := s.emitOrderCreated(ctx, tx, order, metrics.SourceBuyNow, points); err != nil {
			return err
		}
		attachProducts(order, products)
		created = order
		return nil
	})
	if err != nil {
		s.metrics.Failed(metrics.SourceBuyNow, string(codeOf(err)))
		return nil, err
	}
	s.metrics.OrderCreated(metrics.SourceBuyNow, points)
	s.logg.Info(s.logg.WithField(ctx, "order_number", created.OrderNumber), "checkout.buy_now_committed")
	return orders.FromModel(created), nil
}

func (s *service) Success(ctx context.Context, userID uuid.UUID, orderNumber string) (*orders.OrderDTO, error) {
	order, err := s.orders.FindByNumberForUser(ctx, userID, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return orders.FromModel(order), nil
}

func (s *service) Cancel() CancelView {
	return CancelView{Message: cancelMessage}
}

func (s *service) createOrder(ctx context.Context, repo orders.Repository, order *models.Order) error {
	number, err := orders.UniqueNumber(ctx, repo, s.cfg.OrderNumberAttempts, s.newNumber)
	if err != nil {
		return err
	}
	order.OrderNumber = number
	if err := repo.Create(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "ux_orders_order_number") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number collision, please retry")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil
}

// decrement applies the stock writes. A floored decrement means the locked
// pre-check was bypassed somehow; it is logged and counted, never hidden.
func (s *service) decrement(ctx context.Context, tx *gorm.DB, order *models.Order, requests []stock.Request) error {
	results, err := stock.Decrement(ctx, tx, requests)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
	}
	for _, res := range results {
		if !res.Floored {
			continue
		}
		s.metrics.FloorViolation()
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"product_id":   res.ProductID.String(),
			"quantity":     res.Qty,
			"order_number": order.OrderNumber,
		})
		s.logg.Error(logCtx, "stock.floor_violation", fmt.Errorf("stock below requested quantity %d", res.Qty))
	}
	return nil
}

func (s *service) emitOrderCreated(ctx context.Context, tx *gorm.DB, order *models.Order, source string, points int) error {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
		})
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: order.UserID},
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			OrderNumber:   order.OrderNumber,
			UserID:        order.UserID,
			TotalPrice:    order.TotalPrice.StringFixed(2),
			Source:        source,
			PointsAwarded: points,
			Items:         lines,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue order_created event")
	}
	return nil
}

func (s *service) checkChallenge(ctx context.Context, sessionID, answer string) *FieldError {
	expected, ok, err := s.challenges.Expected(ctx, sessionID)
	if err != nil || !ok {
		if err != nil {
			s.logg.Error(ctx, "checkout.challenge_lookup_failed", err)
		}
		return &FieldError{Field: challengeField, Code: pkgerrors.CodeChallengeExpired, Message: "Session expired, please answer the new question."}
	}
	got, err := strconv.Atoi(answer)
	if err != nil || got != expected {
		return &FieldError{Field: challengeField, Code: pkgerrors.CodeChallengeMismatch, Message: "Incorrect answer to the verification question."}
	}
	return nil
}

func (s *service) reject(ctx context.Context, sessionID string, form ShippingForm, violations []FieldError) error {
	challenge, err := s.issueChallenge(ctx, sessionID)
	if err != nil {
		return err
	}
	s.metrics.Failed(metrics.SourceCheckout, string(pkgerrors.CodeValidation))
	fields := make([]string, 0, len(violations))
	for _, v := range violations {
		fields = append(fields, v.Field)
	}
	s.logg.Info(s.logg.WithField(ctx, "fields", fields), "checkout.rejected")

	form.ChallengeAnswer = ""
	return pkgerrors.New(pkgerrors.CodeValidation, "please correct the errors below").
		WithDetails(Rejection{Errors: violations, Values: form, Challenge: challenge, Question: challenge.Question()})
}

// afterRollback replaces the consumed challenge when the shopper can fix the
// cart and resubmit. The new question rides along in the error details.
func (s *service) afterRollback(ctx context.Context, sessionID string, err error) error {
	typed := pkgerrors.As(err)
	if typed == nil || !pkgerrors.MetadataFor(typed.Code()).ClientFacing || typed.Code() == pkgerrors.CodeEmptyCart {
		return err
	}
	challenge, cerr := s.issueChallenge(ctx, sessionID)
	if cerr != nil {
		s.logg.Error(ctx, "checkout.challenge_reissue_failed", cerr)
		return err
	}
	details := map[string]any{}
	if existing, ok := typed.Details().(map[string]any); ok {
		for k, v := range existing {
			details[k] = v
		}
	}
	details["challenge"] = challenge
	details["question"] = challenge.Question()
	return typed.WithDetails(details)
}

func (s *service) issueChallenge(ctx context.Context, sessionID string) (Challenge, error) {
	challenge, err := randomChallenge(s.cfg.ChallengeMin, s.cfg.ChallengeMax)
	if err != nil {
		return Challenge{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate challenge")
	}
	if err := s.challenges.Save(ctx, sessionID, challenge.A+challenge.B); err != nil {
		return Challenge{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store checkout challenge")
	}
	return challenge, nil
}

func attachProducts(order *models.Order, products map[uuid.UUID]*models.Product) {
	for i := range order.Items {
		order.Items[i].Product = products[order.Items[i].ProductID]
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
}

func emptyCart() error {
	return pkgerrors.New(pkgerrors.CodeEmptyCart, "Your cart is empty.")
}

func insufficientStock(product *models.Product) error {
	return pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
		"Limited stock! Only %d unit(s) of %s left.", product.Stock, product.Name).
		WithDetails(map[string]any{"product_id": product.ID, "available": product.Stock})
}

func codeOf(err error) pkgerrors.Code {
	if e := pkgerrors.As(err); e != nil {
		return e.Code()
	}
	return pkgerrors.CodeInternal
}
