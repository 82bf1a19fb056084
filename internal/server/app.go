package server

import (
	"context"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/realtime"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/infra/storage"
	"storefront/internal/usecase"
	auth "storefront/internal/usecase/auth_usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

type uuidGenerator struct{}

func (uuidGenerator) NewID() string {
	return uuid.NewString()
}

// Build はマイグレーション済みのDBから全ルート込みのechoを組み立てる
func Build(ctx context.Context, cfg config.Config, gormDB *gorm.DB) (*echo.Echo, error) {
	e := New(cfg)

	//Repository（GORM実装）生成
	txm := infraRepo.NewTxManagerGorm(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	statsRepo := infraRepo.NewStatsGormRepository(gormDB)

	//usecaseに渡す部品
	clock := usecase.SystemClock{}
	hub := realtime.NewHub(cfg.FEURL, e.Logger)
	images := storage.NewLocalImageStore(cfg.UploadDir, cfg.PublicBaseURL)

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	verifier := auth.NewBcryptPasswordVerifier()
	issuer := auth.NewJWTIssuer(cfg.JWTSecret, cfg.AccessTokenTTL)

	seeded, err := auth.EnsureAdmin(ctx, txm, hasher, clock, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return nil, err
	}
	if seeded.Created {
		e.Logger.Infof("admin user created: %s", seeded.User.Email)
	}

	//Usecase生成
	registerUC := auth.NewRegisterUserUsecase(txm, hasher, clock)
	loginUC := auth.NewLoginUsecase(txm, verifier, issuer, clock)
	userUC := usecase.NewUserUsecase(txm, clock)
	addressUC := usecase.NewAddressUsecase(txm, clock)
	productUC := usecase.NewProductUsecase(txm, clock)
	cartUC := usecase.NewCartUsecase(txm)
	orderUC := usecase.NewOrderUsecase(txm, hub, clock, uuidGenerator{}, usecase.QRConfig{
		BankName:      cfg.QRBankName,
		AccountNumber: cfg.QRAccountNumber,
		AccountName:   cfg.QRAccountName,
		TTL:           cfg.QRTTL,
	})
	adminOrderUC := usecase.NewAdminOrderUsecase(txm, hub, clock)
	reviewUC := usecase.NewReviewUsecase(txm, clock)
	statsUC := usecase.NewStatsUsecase(statsRepo, txm)

	//Handler生成
	RegisterRoutes(e, cfg, userRepo, Handlers{
		Auth:         handler.NewAuthHandler(registerUC, loginUC),
		User:         handler.NewUserHandler(userUC, images),
		Address:      handler.NewAddressHandler(addressUC),
		Product:      handler.NewProductHandler(productUC, reviewUC),
		AdminProduct: handler.NewAdminProductHandler(productUC, images),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		Review:       handler.NewReviewHandler(reviewUC, images),
		AdminUser:    handler.NewAdminUserHandler(userUC),
		Stats:        handler.NewStatsHandler(statsUC),
		OrderStream:  handler.NewOrderStreamHandler(hub),
	})

	return e, nil
}
