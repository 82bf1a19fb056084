package model

type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type DashboardStats struct {
	TotalProducts      int64           `json:"total_products"`
	TotalUsers         int64           `json:"total_users"`
	ProductsByCategory []CategoryCount `json:"products_by_category"`
	LatestProducts     []Product       `json:"latest_products"`
	LatestUsers        []User          `json:"latest_users"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type PaymentMethodCount struct {
	PaymentMethod string `json:"payment_method"`
	Count         int64  `json:"count"`
}

// Revenueは支払済み注文の合計
type OrderStats struct {
	TotalOrders           int64                `json:"total_orders"`
	OrdersByStatus        []StatusCount        `json:"orders_by_status"`
	OrdersByPaymentMethod []PaymentMethodCount `json:"orders_by_payment_method"`
	Revenue               int64                `json:"revenue"`
	LatestOrders          []Order              `json:"latest_orders"`
}

// RatingDistributionは1〜5すべてのキーを持つ
type ReviewStats struct {
	TotalReviews       int64            `json:"total_reviews"`
	AverageRating      float64          `json:"average_rating"`
	RatingDistribution map[string]int64 `json:"rating_distribution"`
	LatestReviews      []Review         `json:"latest_reviews"`
}

const LatestLimit = 5
