package usecase

import (
	"time"

	"storefront/internal/domain/model"
)

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID() string
}

// コミット後に注文イベントを流す先
type OrderEventPublisher interface {
	Publish(event model.OrderEvent)
}

type NopPublisher struct{}

func (NopPublisher) Publish(model.OrderEvent) {}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
