package server

import (
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Address      *handler.AddressHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	Review       *handler.ReviewHandler
	AdminUser    *handler.AdminUserHandler
	Stats        *handler.StatsHandler
	OrderStream  *handler.OrderStreamHandler
}

// /user は JWT + token_version一致、/admin はさらにADMIN限定
func RegisterRoutes(e *echo.Echo, cfg config.Config, users repository.UserRepository, h Handlers) {
	h.Auth.RegisterRoutes(e)

	guard := middleware.TokenVersionGuard(users)

	user := e.Group("/user", middleware.AuthJWT(cfg), guard)
	h.User.RegisterRoutes(user)
	h.Address.RegisterRoutes(user)
	h.Product.RegisterRoutes(user)
	h.Cart.RegisterRoutes(user)
	h.Order.RegisterRoutes(user)
	h.Review.RegisterRoutes(user)

	admin := e.Group("/admin", middleware.AuthJWT(cfg), guard, middleware.AdminRoleGuard())
	h.AdminProduct.RegisterRoutes(admin)
	h.AdminOrder.RegisterRoutes(admin)
	h.Review.RegisterAdminRoutes(admin)
	h.AdminUser.RegisterRoutes(admin)
	h.Stats.RegisterRoutes(admin)

	h.OrderStream.RegisterRoutes(e,
		middleware.AuthJWTAllowQuery(cfg),
		guard,
		middleware.AdminRoleGuard(),
	)
}
