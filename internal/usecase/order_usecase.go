package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// QR決済の振込先
type QRConfig struct {
	BankName      string
	AccountNumber string
	AccountName   string
	TTL           time.Duration
}

type OrderUsecase struct {
	tx     repo.TransactionManager
	events OrderEventPublisher
	clock  Clock
	idGen  IDGenerator
	qr     QRConfig
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	events OrderEventPublisher,
	clock Clock,
	idGen IDGenerator,
	qr QRConfig,
) *OrderUsecase {
	if events == nil {
		events = NopPublisher{}
	}
	return &OrderUsecase{tx: tx, events: events, clock: clock, idGen: idGen, qr: qr}
}

// 住所はAddressIDか直接入力のどちらか
type PlaceOrderInput struct {
	AddressID       int64
	ShippingAddress model.ShippingAddress
	PaymentMethod   string
	IdempotencyKey  string
}

type OrderOutput struct {
	model.Order
	Items []model.OrderItem `json:"items"`
}

type PaymentOutput struct {
	OrderID       int64                `json:"order_id"`
	PaymentMethod model.PaymentMethod  `json:"payment_method"`
	PaymentStatus model.PaymentStatus  `json:"payment_status"`
	TotalPrice    int64                `json:"total_price"`
	IsPaid        bool                 `json:"is_paid"`
	PaidAt        *time.Time           `json:"paid_at,omitempty"`
	QR            *model.PaymentResult `json:"qr,omitempty"`
	QRExpired     bool                 `json:"qr_expired"`
}

// PlaceOrder はカートから注文を作る。注文・明細・カートクリアは1トランザクション。
// createdがfalseなら同じキーの既存注文を返している
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, bool, error) {
	if userID <= 0 {
		return OrderOutput{}, false, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	if strings.TrimSpace(in.PaymentMethod) == "" {
		return OrderOutput{}, false, NewHTTPError(http.StatusBadRequest, "payment method is required")
	}
	method, ok := model.ParsePaymentMethod(strings.TrimSpace(in.PaymentMethod))
	if !ok {
		return OrderOutput{}, false, NewHTTPError(http.StatusBadRequest, "invalid payment method")
	}

	if in.AddressID <= 0 && !shippingComplete(in.ShippingAddress) {
		return OrderOutput{}, false, NewHTTPError(http.StatusBadRequest, "shipping address is required")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if len(key) > 255 {
		return OrderOutput{}, false, NewHTTPError(http.StatusBadRequest, "invalid idempotency key")
	}
	if key == "" {
		key = u.idGen.NewID()
	}

	var out OrderOutput
	created := false

	//注文処理はトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return internalError(err)
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return internalError(err)
			}
			out = OrderOutput{Order: existing, Items: items}
			return nil
		}

		shipping := trimShipping(in.ShippingAddress)
		if in.AddressID > 0 {
			addr, err := r.Addresses().FindByID(ctx, in.AddressID)
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "address not found")
			}
			if err != nil {
				return internalError(err)
			}
			if addr.UserID != userID {
				return NewHTTPError(http.StatusForbidden, "forbidden")
			}
			shipping = addr.ToShipping()
		}

		cart, err := r.Carts().GetOrCreateForUpdate(ctx, userID)
		if err != nil {
			return internalError(err)
		}
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return internalError(err)
		}
		if len(cartItems) == 0 {
			return NewHTTPError(http.StatusBadRequest, "cart is empty")
		}

		ids := make([]int64, 0, len(cartItems))
		for _, ci := range cartItems {
			ids = append(ids, ci.ProductID)
		}
		products, err := r.Products().FindByIDs(ctx, ids)
		if err != nil {
			return internalError(err)
		}

		//スナップショット（注文時点の商品情報）
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		for _, ci := range cartItems {
			p, ok := products[ci.ProductID]
			if !ok {
				return NewHTTPError(http.StatusConflict, fmt.Sprintf("product %d is no longer available", ci.ProductID))
			}
			orderItems = append(orderItems, model.OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				Image:     p.Image,
				Price:     p.Price,
				Quantity:  ci.Quantity,
				Size:      ci.Size,
				Color:     p.Color,
			})
		}
		total, err := model.OrderItemsTotal(orderItems)
		if err != nil {
			return errAmountTooLarge
		}

		now := u.clock.Now()
		order := model.Order{
			UserID:          userID,
			ShippingAddress: shipping,
			PaymentMethod:   method,
			TotalPrice:      total,
			Status:          model.OrderStatusPending,
			PaymentStatus:   model.PaymentStatusPending,
			IdempotencyKey:  key,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if method == model.PaymentMethodQRPayment {
			order.PaymentResult = u.qrPayment(total, now)
		}

		if err := r.Orders().Create(ctx, &order); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return NewHTTPError(http.StatusConflict, "duplicate order request")
			}
			return internalError(err)
		}

		if err := r.OrderItems().CreateBulk(ctx, order.ID, orderItems); err != nil {
			return internalError(err)
		}

		//カートを空にする（再注文防止）
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return internalError(err)
		}

		out = OrderOutput{Order: order, Items: orderItems}
		created = true
		return nil
	})
	if err != nil {
		return OrderOutput{}, false, err
	}

	if created {
		u.events.Publish(model.NewOrderEvent(model.OrderEventCreated, out.Order, u.clock.Now()))
	}
	return out, created, nil
}

func (u *OrderUsecase) qrPayment(total int64, now time.Time) model.PaymentResult {
	expires := now.Add(u.qr.TTL)
	return model.PaymentResult{
		QRCode:        fmt.Sprintf("QRPAY|%s|%s|%d|%s", u.qr.BankName, u.qr.AccountNumber, total, u.idGen.NewID()),
		QRExpiresAt:   &expires,
		BankName:      u.qr.BankName,
		AccountNumber: u.qr.AccountNumber,
		AccountName:   u.qr.AccountName,
	}
}

// 新しい順・明細付き
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page, limit int) ([]OrderOutput, int64, error) {
	if userID <= 0 {
		return []OrderOutput{}, 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	page, limit = normalizePage(page, limit)

	var outs []OrderOutput
	var total int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, n, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return internalError(err)
		}
		total = n

		outs, err = withItems(ctx, r, orders)
		return err
	})
	if err != nil {
		return []OrderOutput{}, 0, err
	}
	return outs, total, nil
}

func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOwnOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return internalError(err)
		}
		out = OrderOutput{Order: o, Items: items}
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

func (u *OrderUsecase) GetPayment(ctx context.Context, userID int64, orderID int64) (PaymentOutput, error) {
	o, err := u.GetMyOrder(ctx, userID, orderID)
	if err != nil {
		return PaymentOutput{}, err
	}

	out := PaymentOutput{
		OrderID:       o.ID,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		TotalPrice:    o.TotalPrice,
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
	}
	if o.PaymentMethod == model.PaymentMethodQRPayment {
		qr := o.PaymentResult
		out.QR = &qr
		out.QRExpired = qr.QRExpiresAt != nil && u.clock.Now().After(*qr.QRExpiresAt)
	}
	return out, nil
}

// CancelOrder は本人の注文をキャンセルし返金扱いにする
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, orderID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOwnOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}

		switch o.Status {
		case model.OrderStatusCancelled:
			return NewHTTPError(http.StatusConflict, "order already cancelled")
		case model.OrderStatusSuccess:
			return NewHTTPError(http.StatusConflict, "order already completed")
		}

		expected := o.Version
		o.ApplyStatus(model.OrderStatusCancelled, u.clock.Now())
		if err := saveLifecycle(ctx, r, &o, expected); err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	u.events.Publish(model.NewOrderEvent(model.OrderEventCancelled, out, u.clock.Now()))
	return out, nil
}

// ユーザーができるのは受け取り確認（delivered→success）とキャンセルだけ
func (u *OrderUsecase) UpdateStatusByUser(ctx context.Context, userID int64, orderID int64, status string) (model.Order, error) {
	to, ok := model.ParseOrderStatus(strings.TrimSpace(status))
	if !ok {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	switch to {
	case model.OrderStatusCancelled:
		return u.CancelOrder(ctx, userID, orderID)
	case model.OrderStatusSuccess:
	default:
		return model.Order{}, NewHTTPError(http.StatusForbidden, "you can only confirm receipt or cancel")
	}

	if userID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out model.Order
	changed := false
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOwnOrder(ctx, r, userID, orderID)
		if err != nil {
			return err
		}
		if o.Status == model.OrderStatusSuccess {
			out = o
			return nil
		}
		if o.Status != model.OrderStatusDelivered {
			return NewHTTPError(http.StatusForbidden, "order has not been delivered yet")
		}

		expected := o.Version
		o.ApplyStatus(model.OrderStatusSuccess, u.clock.Now())
		if err := saveLifecycle(ctx, r, &o, expected); err != nil {
			return err
		}
		out = o
		changed = true
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}

	if changed {
		u.events.Publish(model.NewOrderEvent(model.OrderEventStatusChanged, out, u.clock.Now()))
	}
	return out, nil
}

// 他人の注文は「存在しない扱い」にする
func findOwnOrder(ctx context.Context, r repo.TxRepos, userID, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, internalError(err)
	}
	if o.UserID != userID {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	return o, nil
}

func saveLifecycle(ctx context.Context, r repo.TxRepos, o *model.Order, expected int64) error {
	err := r.Orders().UpdateLifecycle(ctx, o, expected)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrConflict):
		return NewHTTPError(http.StatusConflict, "order was modified concurrently, reload and retry")
	case errors.Is(err, repo.ErrNotFound):
		return NewHTTPError(http.StatusNotFound, "order not found")
	default:
		return internalError(err)
	}
}

func withItems(ctx context.Context, r repo.TxRepos, orders []model.Order) ([]OrderOutput, error) {
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	itemsByOrder, err := r.OrderItems().ListByOrderIDs(ctx, ids)
	if err != nil {
		return nil, internalError(err)
	}

	outs := make([]OrderOutput, 0, len(orders))
	for _, o := range orders {
		items := itemsByOrder[o.ID]
		if items == nil {
			items = []model.OrderItem{}
		}
		outs = append(outs, OrderOutput{Order: o, Items: items})
	}
	return outs, nil
}

func shippingComplete(s model.ShippingAddress) bool {
	s = trimShipping(s)
	return s.Address != "" && s.City != "" && s.PostalCode != "" && s.Country != ""
}

func trimShipping(s model.ShippingAddress) model.ShippingAddress {
	return model.ShippingAddress{
		Address:    strings.TrimSpace(s.Address),
		City:       strings.TrimSpace(s.City),
		PostalCode: strings.TrimSpace(s.PostalCode),
		Country:    strings.TrimSpace(s.Country),
	}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return page, limit
}
