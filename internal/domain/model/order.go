package model

import "time"

// 管理者・ユーザーで共通の注文ステータス
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusApproved  OrderStatus = "approved"
	OrderStatusPrepare   OrderStatus = "prepare"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusSuccess   OrderStatus = "success"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCOD       PaymentMethod = "COD"
	PaymentMethodQRPayment PaymentMethod = "QR_PAYMENT"
)

// 配送先（注文時点のコピー）
type ShippingAddress struct {
	Address    string `gorm:"type:text;not null" json:"address"`
	City       string `gorm:"type:varchar(255);not null" json:"city"`
	PostalCode string `gorm:"type:varchar(20);not null" json:"postal_code"`
	Country    string `gorm:"type:varchar(100);not null" json:"country"`
}

// QR決済の振込先情報
type PaymentResult struct {
	QRCode        string     `gorm:"column:qr_code;type:text" json:"qr_code,omitempty"`
	QRExpiresAt   *time.Time `gorm:"column:qr_expires_at" json:"qr_expires_at,omitempty"`
	BankName      string     `gorm:"type:varchar(255)" json:"bank_name,omitempty"`
	AccountNumber string     `gorm:"type:varchar(100)" json:"account_number,omitempty"`
	AccountName   string     `gorm:"type:varchar(255)" json:"account_name,omitempty"`
}

// Versionは楽観ロック用。ステータス更新ごとに+1
type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64           `gorm:"not null;index;uniqueIndex:idx_orders_user_idempotency" json:"user_id"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaymentMethod   PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentResult   PaymentResult   `gorm:"embedded;embeddedPrefix:payment_" json:"payment_result"`
	TotalPrice      int64           `gorm:"not null" json:"total_price"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus   PaymentStatus   `gorm:"type:varchar(20);not null;index" json:"payment_status"`
	IsPaid          bool            `gorm:"not null;default:false" json:"is_paid"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	IsDelivered     bool            `gorm:"not null;default:false" json:"is_delivered"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	IsReviewed      bool            `gorm:"not null;default:false" json:"is_reviewed"`
	IdempotencyKey  string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_orders_user_idempotency" json:"-"`
	Version         int64           `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusApproved, OrderStatusPrepare,
		OrderStatusDelivered, OrderStatusSuccess, OrderStatusCancelled:
		return st, true
	}
	return "", false
}

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch ps := PaymentStatus(s); ps {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return ps, true
	}
	return "", false
}

func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	switch pm := PaymentMethod(s); pm {
	case PaymentMethodCOD, PaymentMethodQRPayment:
		return pm, true
	}
	return "", false
}

// success / cancelled からは遷移しない
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusSuccess || s == OrderStatusCancelled
}
