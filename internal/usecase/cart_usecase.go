package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// CartUsecase は /user/*_cart の業務ロジックです。
// 変更系はすべてカート行をロックしたトランザクション内で行う。
type CartUsecase struct {
	tx repo.TransactionManager
}

func NewCartUsecase(tx repo.TransactionManager) *CartUsecase {
	return &CartUsecase{tx: tx}
}

// priceは明細に保存されている単価
type CartLine struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
	Size      string `json:"size"`
	Subtotal  int64  `json:"subtotal"`
	// 商品が削除されていればfalse
	Available bool `json:"available"`
}

type CartOutput struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Items       []CartLine `json:"items"`
	TotalAmount int64      `json:"total_amount"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
	Size      string
}

var (
	errQuantityTooLarge = NewHTTPError(http.StatusBadRequest, fmt.Sprintf("quantity must be at most %d", model.MaxCartQuantity))
	errAmountTooLarge   = NewHTTPError(http.StatusBadRequest, "total amount is too large")
)

type UpdateCartInput struct {
	ProductID int64
	Quantity  int64
}

func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateForUpdate(ctx, userID)
		if err != nil {
			return internalError(err)
		}
		out, err = buildCart(ctx, r, cart, false)
		return err
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

// AddItem はカートに追加（同一商品は数量加算・単価は現在価格に更新）。
func (u *CartUsecase) AddItem(ctx context.Context, userID int64, in AddCartInput) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 || in.Quantity == 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "product id and quantity are required")
	}
	if in.Quantity < 1 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be at least 1")
	}
	if in.Quantity > model.MaxCartQuantity {
		return CartOutput{}, errQuantityTooLarge
	}
	size := strings.TrimSpace(in.Size)

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return internalError(err)
		}
		if size != "" && len(p.Sizes) > 0 && !p.HasSize(size) {
			return NewHTTPError(http.StatusBadRequest, "invalid size")
		}

		cart, err := r.Carts().GetOrCreateForUpdate(ctx, userID)
		if err != nil {
			return internalError(err)
		}

		item, err := r.CartItems().FindByCartAndProduct(ctx, cart.ID, p.ID)
		switch {
		case err == nil:
			// 既存ありだったら数量を増やす
			if in.Quantity > model.MaxCartQuantity-item.Quantity {
				return errQuantityTooLarge
			}
			item.Quantity += in.Quantity
			item.Price = p.Price
			if size != "" {
				item.Size = size
			}
			if err := r.CartItems().Update(ctx, item); err != nil {
				return internalError(err)
			}
		case errors.Is(err, repo.ErrNotFound):
			if size == "" {
				size = p.DefaultSize()
			}
			if err := r.CartItems().Create(ctx, &model.CartItem{
				CartID:    cart.ID,
				ProductID: p.ID,
				Quantity:  in.Quantity,
				Price:     p.Price,
				Size:      size,
			}); err != nil {
				return internalError(err)
			}
		default:
			return internalError(err)
		}

		out, err = buildCart(ctx, r, cart, true)
		return err
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

// 数量0は明細削除
func (u *CartUsecase) UpdateItem(ctx context.Context, userID int64, in UpdateCartInput) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.ProductID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "product id is required")
	}
	if in.Quantity < 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "quantity must be a non-negative number")
	}
	if in.Quantity > model.MaxCartQuantity {
		return CartOutput{}, errQuantityTooLarge
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateForUpdate(ctx, userID)
		if err != nil {
			return internalError(err)
		}

		item, err := r.CartItems().FindByCartAndProduct(ctx, cart.ID, in.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "item not found in cart")
		}
		if err != nil {
			return internalError(err)
		}

		if in.Quantity == 0 {
			if _, err := r.CartItems().DeleteByCartAndProduct(ctx, cart.ID, in.ProductID); err != nil {
				return internalError(err)
			}
		} else {
			item.Quantity = in.Quantity
			if err := r.CartItems().Update(ctx, item); err != nil {
				return internalError(err)
			}
		}

		out, err = buildCart(ctx, r, cart, true)
		return err
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

// 無い商品を消しても成功
func (u *CartUsecase) RemoveItem(ctx context.Context, userID int64, productID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusBadRequest, "product id is required")
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateForUpdate(ctx, userID)
		if err != nil {
			return internalError(err)
		}
		if _, err := r.CartItems().DeleteByCartAndProduct(ctx, cart.ID, productID); err != nil {
			return internalError(err)
		}
		out, err = buildCart(ctx, r, cart, true)
		return err
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

func (u *CartUsecase) Clear(ctx context.Context, userID int64) (CartOutput, error) {
	if userID <= 0 {
		return CartOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().GetOrCreateForUpdate(ctx, userID)
		if err != nil {
			return internalError(err)
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return internalError(err)
		}
		out = CartOutput{ID: cart.ID, UserID: userID, Items: []CartLine{}}
		return nil
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

// 明細から合計を計算し、saveならカートに保存する。商品名・画像を付けて返す
func buildCart(ctx context.Context, r repo.TxRepos, cart model.Cart, save bool) (CartOutput, error) {
	items, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartOutput{}, internalError(err)
	}

	total, err := model.CartTotal(items)
	if err != nil {
		return CartOutput{}, errAmountTooLarge
	}
	if save || total != cart.TotalAmount {
		if err := r.Carts().UpdateTotal(ctx, cart.ID, total); err != nil {
			return CartOutput{}, internalError(err)
		}
	}

	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	products, err := r.Products().FindByIDs(ctx, ids)
	if err != nil {
		return CartOutput{}, internalError(err)
	}

	lines := make([]CartLine, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		lines = append(lines, CartLine{
			ProductID: it.ProductID,
			Name:      p.Name,
			Image:     p.Image,
			Price:     it.Price,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Subtotal:  it.Price * it.Quantity, // CartTotalで確認済み
			Available: ok,
		})
	}

	return CartOutput{
		ID:          cart.ID,
		UserID:      cart.UserID,
		Items:       lines,
		TotalAmount: total,
	}, nil
}
