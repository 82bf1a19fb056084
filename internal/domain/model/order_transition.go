package model

import "time"

type Transition int

const (
	TransitionRejected Transition = iota
	TransitionAllowed
	TransitionNoop
)

func (t Transition) String() string {
	switch t {
	case TransitionAllowed:
		return "allowed"
	case TransitionNoop:
		return "noop"
	default:
		return "rejected"
	}
}

// 進行順。cancelledは含まない
var statusRank = map[OrderStatus]int{
	OrderStatusPending:   0,
	OrderStatusApproved:  1,
	OrderStatusPrepare:   2,
	OrderStatusDelivered: 3,
	OrderStatusSuccess:   4,
}

// すべての(from, to)の組に結果を返す。
//   - 同じステータス: noop
//   - 終端(success/cancelled)から: rejected
//   - cancelledへ: allowed
//   - 前進（飛ばしも可）: allowed / 後退: rejected
func NextStatus(from, to OrderStatus) Transition {
	if _, ok := ParseOrderStatus(string(to)); !ok {
		return TransitionRejected
	}
	if from == to {
		return TransitionNoop
	}
	if from.IsTerminal() {
		return TransitionRejected
	}
	if to == OrderStatusCancelled {
		return TransitionAllowed
	}

	fromRank, ok := statusRank[from]
	if !ok {
		return TransitionRejected
	}
	if statusRank[to] > fromRank {
		return TransitionAllowed
	}
	return TransitionRejected
}

// 遷移を適用し、到達した状態の副作用（配送済み・支払済み・返金）を反映する
func (o *Order) ApplyStatus(to OrderStatus, now time.Time) Transition {
	t := NextStatus(o.Status, to)
	if t != TransitionAllowed {
		return t
	}

	o.Status = to

	switch to {
	case OrderStatusDelivered, OrderStatusSuccess:
		o.IsDelivered = true
		if o.DeliveredAt == nil {
			o.DeliveredAt = timePtr(now)
		}
	}

	switch to {
	case OrderStatusSuccess:
		o.IsPaid = true
		if o.PaidAt == nil {
			o.PaidAt = timePtr(now)
		}
		o.PaymentStatus = PaymentStatusPaid
	case OrderStatusCancelled:
		o.PaymentStatus = PaymentStatusRefunded
	}

	return t
}

// 管理者による支払ステータスの変更先。ここに無い組はrejected
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:  {PaymentStatusPaid, PaymentStatusFailed},
	PaymentStatusFailed:   {PaymentStatusPending, PaymentStatusPaid},
	PaymentStatusPaid:     {PaymentStatusPending, PaymentStatusFailed, PaymentStatusRefunded},
	PaymentStatusRefunded: {PaymentStatusPaid},
}

// 注文ステータスも見て支払ステータスの遷移を判定する。
//   - 同じ値: noop
//   - cancelled の注文: rejected（返金済みで固定）
//   - success の注文: rejected（paidで固定）
//   - それ以外は paymentTransitions に従う
func NextPaymentStatus(order OrderStatus, from, to PaymentStatus) Transition {
	if _, ok := ParsePaymentStatus(string(to)); !ok {
		return TransitionRejected
	}
	if from == to {
		return TransitionNoop
	}
	if order.IsTerminal() {
		return TransitionRejected
	}
	for _, next := range paymentTransitions[from] {
		if next == to {
			return TransitionAllowed
		}
	}
	return TransitionRejected
}

// 支払ステータスの手動更新。paidで支払日時を入れ、pending/failedに戻すと消す。
// refundedは支払の記録を残す
func (o *Order) ApplyPaymentStatus(ps PaymentStatus, now time.Time) Transition {
	t := NextPaymentStatus(o.Status, o.PaymentStatus, ps)
	if t != TransitionAllowed {
		return t
	}

	o.PaymentStatus = ps
	switch ps {
	case PaymentStatusPaid:
		o.IsPaid = true
		if o.PaidAt == nil {
			o.PaidAt = timePtr(now)
		}
	case PaymentStatusPending, PaymentStatusFailed:
		o.IsPaid = false
		o.PaidAt = nil
	}
	return t
}

func timePtr(t time.Time) *time.Time {
	return &t
}
