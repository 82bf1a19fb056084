package model

import "time"

// 注文時点の商品情報のスナップショット。商品を後から編集しても変わらない
type OrderItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64     `gorm:"not null;index" json:"order_id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Image     string    `gorm:"type:text" json:"image"`
	Price     int64     `gorm:"not null" json:"price"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	Size      string    `gorm:"type:varchar(50)" json:"size"`
	Color     string    `gorm:"type:varchar(100)" json:"color"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
