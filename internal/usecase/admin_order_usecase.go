package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	events OrderEventPublisher
	clock  Clock
}

func NewAdminOrderUsecase(tx repo.TransactionManager, events OrderEventPublisher, clock Clock) *AdminOrderUsecase {
	if events == nil {
		events = NopPublisher{}
	}
	return &AdminOrderUsecase{tx: tx, events: events, clock: clock}
}

// Versionを指定すると、読み込んだ時点から変わっていれば409
type AdminUpdateOrderStatusInput struct {
	Status  string
	Version *int64
}

type AdminUpdatePaymentStatusInput struct {
	PaymentStatus string
	Version       *int64
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" {
		if _, ok := model.ParseOrderStatus(f.Status); !ok {
			return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
	}

	var out OrderListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return internalError(err)
		}
		items, err := withItems(ctx, r, orders)
		if err != nil {
			return err
		}
		out = OrderListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// エクスポート用。ページングなしで明細付き
func (u *AdminOrderUsecase) ListForExport(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	var outs []OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().ListAllAdmin(ctx, f)
		if err != nil {
			return internalError(err)
		}
		outs, err = withItems(ctx, r, orders)
		return err
	})
	if err != nil {
		return nil, err
	}
	return outs, nil
}

func (u *AdminOrderUsecase) Get(ctx context.Context, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOrder(ctx, r, orderID)
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

// UpdateStatus は遷移表に従ってステータスを進める。
// 同じステータスなら何もしない（200）。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (model.Order, error) {
	if actorAdminUserID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	to, ok := model.ParseOrderStatus(strings.TrimSpace(in.Status))
	if !ok {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var out model.Order
	changed := false

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if in.Version != nil && *in.Version != o.Version {
			return NewHTTPError(http.StatusConflict, "order was modified concurrently, reload and retry")
		}

		before := o
		expected := o.Version
		switch o.ApplyStatus(to, u.clock.Now()) {
		case model.TransitionNoop:
			out = o
			return nil
		case model.TransitionRejected:
			return NewHTTPError(http.StatusConflict, fmt.Sprintf("cannot change status from %s to %s", before.Status, to))
		}

		if err := saveLifecycle(ctx, r, &o, expected); err != nil {
			return err
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		if err := writeAudit(ctx, r, actorAdminUserID, model.AuditActionUpdateOrderStatus, model.AuditResourceOrder, orderID,
			orderAuditView(before), orderAuditView(o), u.clock); err != nil {
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
		typ := model.OrderEventStatusChanged
		if out.Status == model.OrderStatusCancelled {
			typ = model.OrderEventCancelled
		}
		u.events.Publish(model.NewOrderEvent(typ, out, u.clock.Now()))
	}
	return out, nil
}

// paidにすると支払済み・支払日時も入る
func (u *AdminOrderUsecase) UpdatePaymentStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdatePaymentStatusInput) (model.Order, error) {
	if actorAdminUserID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	ps, ok := model.ParsePaymentStatus(strings.TrimSpace(in.PaymentStatus))
	if !ok {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid payment status")
	}

	var out model.Order
	changed := false

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := findOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		if in.Version != nil && *in.Version != o.Version {
			return NewHTTPError(http.StatusConflict, "order was modified concurrently, reload and retry")
		}

		before := o
		expected := o.Version
		switch o.ApplyPaymentStatus(ps, u.clock.Now()) {
		case model.TransitionNoop:
			out = o
			return nil
		case model.TransitionRejected:
			return NewHTTPError(http.StatusConflict, fmt.Sprintf("cannot change payment from %s to %s on a %s order", before.PaymentStatus, ps, before.Status))
		}

		if err := saveLifecycle(ctx, r, &o, expected); err != nil {
			return err
		}
		if err := writeAudit(ctx, r, actorAdminUserID, model.AuditActionUpdatePaymentStatus, model.AuditResourceOrder, orderID,
			orderAuditView(before), orderAuditView(o), u.clock); err != nil {
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
		u.events.Publish(model.NewOrderEvent(model.OrderEventPaymentChanged, out, u.clock.Now()))
	}
	return out, nil
}

func findOrder(ctx context.Context, r repo.TxRepos, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return model.Order{}, internalError(err)
	}
	return o, nil
}

// 監査ログに残す注文の項目
func orderAuditView(o model.Order) map[string]any {
	return map[string]any{
		"status":         o.Status,
		"payment_status": o.PaymentStatus,
		"is_paid":        o.IsPaid,
		"is_delivered":   o.IsDelivered,
		"version":        o.Version,
	}
}

// 「誰が」「何を」「どの対象に」「どう変えたか」を残す
func writeAudit(
	ctx context.Context,
	r repo.TxRepos,
	actorID int64,
	action model.AuditAction,
	resource model.AuditResourceType,
	resourceID int64,
	before, after any,
	clock Clock,
) error {
	beforeJSON, err := marshalAudit(before)
	if err != nil {
		return internalError(err)
	}
	afterJSON, err := marshalAudit(after)
	if err != nil {
		return internalError(err)
	}

	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: resource,
		ResourceID:   resourceID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    clock.Now(),
	}); err != nil {
		return internalError(err)
	}
	return nil
}

func marshalAudit(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
