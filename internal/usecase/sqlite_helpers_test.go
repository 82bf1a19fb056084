package usecase_test

import (
	"fmt"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/db/dbtest"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/usecase"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// SQLiteで動く本物のrepoとusecase一式
type testEnv struct {
	db     *gorm.DB
	tx     *infraRepo.TxManagerGorm
	events *eventRecorder

	cart       *usecase.CartUsecase
	orders     *usecase.OrderUsecase
	adminOrder *usecase.AdminOrderUsecase
	products   *usecase.ProductUsecase
	reviews    *usecase.ReviewUsecase
	users      *usecase.UserUsecase
	addresses  *usecase.AddressUsecase

	seq int
}

type seqIDs struct{ n int }

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("key-%d", g.n)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gdb := dbtest.New(t)
	txm := infraRepo.NewTxManagerGorm(gdb)
	clock := fixedClock{now: testNow}
	events := &eventRecorder{}

	return &testEnv{
		db:         gdb,
		tx:         txm,
		events:     events,
		cart:       usecase.NewCartUsecase(txm),
		orders:     usecase.NewOrderUsecase(txm, events, clock, &seqIDs{}, usecase.QRConfig{BankName: "Test Bank", AccountNumber: "123-456", AccountName: "Storefront", TTL: 15 * time.Minute}),
		adminOrder: usecase.NewAdminOrderUsecase(txm, events, clock),
		products:   usecase.NewProductUsecase(txm, clock),
		reviews:    usecase.NewReviewUsecase(txm, clock),
		users:      usecase.NewUserUsecase(txm, clock),
		addresses:  usecase.NewAddressUsecase(txm, clock),
	}
}

func (e *testEnv) seedUser(t *testing.T, role model.Role) model.User {
	t.Helper()
	e.seq++
	u := model.User{
		Username:     fmt.Sprintf("user%02d", e.seq),
		Name:         fmt.Sprintf("User %d", e.seq),
		Email:        fmt.Sprintf("user%02d@example.com", e.seq),
		Phone:        fmt.Sprintf("09000000%02d", e.seq),
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, e.db.Create(&u).Error)
	return u
}

func (e *testEnv) seedProduct(t *testing.T, name string, price int64) model.Product {
	t.Helper()
	p := model.Product{
		Category:    "shirts",
		Name:        name,
		Color:       "black",
		Sizes:       []string{"M", "L"},
		Description: name + " description",
		Price:       price,
		Image:       "http://img/" + name + ".png",
	}
	require.NoError(t, e.db.Create(&p).Error)
	return p
}

func (e *testEnv) reloadProduct(t *testing.T, id int64) model.Product {
	t.Helper()
	var p model.Product
	require.NoError(t, e.db.Unscoped().First(&p, id).Error)
	return p
}

func (e *testEnv) reloadOrder(t *testing.T, id int64) model.Order {
	t.Helper()
	var o model.Order
	require.NoError(t, e.db.First(&o, id).Error)
	return o
}

var testShipping = model.ShippingAddress{
	Address:    "1-2-3 Chuo",
	City:       "Tokyo",
	PostalCode: "100-0001",
	Country:    "JP",
}
