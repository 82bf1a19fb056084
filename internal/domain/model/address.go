package model

import "time"

// ユーザーが保存する配送先。注文時にShippingAddressへコピーされる
type Address struct {
	ID     int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID int64 `gorm:"not null;index" json:"user_id"`

	//宛名
	Label string `gorm:"type:varchar(255)" json:"label"`

	//番地・建物名など
	Address string `gorm:"type:text;not null" json:"address"`

	City string `gorm:"type:varchar(255);not null" json:"city"`

	//郵便番号
	PostalCode string `gorm:"type:varchar(20);not null" json:"postal_code"`

	Country string `gorm:"type:varchar(100);not null" json:"country"`

	//このユーザーのデフォルト住所か
	IsDefault bool `gorm:"not null;default:false" json:"is_default"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (a Address) ToShipping() ShippingAddress {
	return ShippingAddress{
		Address:    a.Address,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}
