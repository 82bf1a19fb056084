package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type ProductUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

// DI
func NewProductUsecase(tx repo.TransactionManager, clock Clock) *ProductUsecase {
	return &ProductUsecase{tx: tx, clock: clock}
}

// GET /user/productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Category string
	Q        string
	MinPrice *int64
	MaxPrice *int64
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "q too long")
	}
	if in.MinPrice != nil && *in.MinPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be >= 0")
	}
	if in.MaxPrice != nil && *in.MaxPrice < 0 {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "min_price must be <= max_price")
	}
	switch in.Sort {
	case "", repo.ProductSortNew, repo.ProductSortPriceAsc, repo.ProductSortPriceDesc, repo.ProductSortRating:
	default:
		return ProductListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid sort")
	}

	var out ProductListOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Products().List(ctx, repo.ProductListQuery{
			Page:     in.Page,
			Limit:    in.Limit,
			Category: strings.TrimSpace(in.Category),
			Q:        strings.TrimSpace(in.Q),
			MinPrice: in.MinPrice,
			MaxPrice: in.MaxPrice,
			Sort:     in.Sort,
		})
		if err != nil {
			return internalError(err)
		}
		out = ProductListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}
		return nil
	})
	if err != nil {
		return ProductListOutput{}, err
	}
	return out, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return internalError(err)
		}
		out = p
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

// 管理画面の一覧とエクスポート用（全件）
func (u *ProductUsecase) ListAll(ctx context.Context) ([]model.Product, error) {
	var out []model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		list, err := r.Products().ListAll(ctx)
		if err != nil {
			return internalError(err)
		}
		out = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// 追加・編集で共通。全項目必須
type AdminProductInput struct {
	Category    string
	Name        string
	Color       string
	Sizes       []string
	Description string
	Price       *int64
	Image       string
}

func (in AdminProductInput) validate() error {
	if strings.TrimSpace(in.Category) == "" ||
		strings.TrimSpace(in.Name) == "" ||
		strings.TrimSpace(in.Color) == "" ||
		strings.TrimSpace(in.Description) == "" ||
		len(cleanSizes(in.Sizes)) == 0 ||
		in.Price == nil ||
		strings.TrimSpace(in.Image) == "" {
		return NewHTTPError(http.StatusBadRequest, "all fields are required")
	}
	if *in.Price < 0 {
		return NewHTTPError(http.StatusBadRequest, "price must be >= 0")
	}
	return nil
}

func (in AdminProductInput) apply(p *model.Product) {
	p.Category = strings.TrimSpace(in.Category)
	p.Name = strings.TrimSpace(in.Name)
	p.Color = strings.TrimSpace(in.Color)
	p.Sizes = cleanSizes(in.Sizes)
	p.Description = strings.TrimSpace(in.Description)
	p.Price = *in.Price
	p.Image = strings.TrimSpace(in.Image)
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in AdminProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		now := u.clock.Now()
		p := model.Product{CreatedAt: now, UpdatedAt: now}
		in.apply(&p)

		created, err := r.Products().Create(ctx, p)
		if err != nil {
			return internalError(err)
		}
		if err := writeAudit(ctx, r, adminUserID, model.AuditActionCreateProduct, model.AuditResourceProduct, created.ID, nil, created, u.clock); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in AdminProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return model.Product{}, NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := in.validate(); err != nil {
		return model.Product{}, err
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return internalError(err)
		}

		after := before
		in.apply(&after)
		after.UpdatedAt = u.clock.Now()

		if err := r.Products().Update(ctx, after); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "product not found")
			}
			return internalError(err)
		}
		if err := writeAudit(ctx, r, adminUserID, model.AuditActionUpdateProduct, model.AuditResourceProduct, productID, before, after, u.clock); err != nil {
			return err
		}
		out = after
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

// ソフトデリート。過去の注文明細はスナップショットなので影響しない
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if productID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		before, err := r.Products().FindByID(ctx, productID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "product not found")
		}
		if err != nil {
			return internalError(err)
		}

		if err := r.Products().SoftDelete(ctx, productID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "product not found")
			}
			return internalError(err)
		}
		return writeAudit(ctx, r, adminUserID, model.AuditActionDeleteProduct, model.AuditResourceProduct, productID, before, nil, u.clock)
	})
}

// 空要素と重複を除く
func cleanSizes(sizes []string) []string {
	out := make([]string, 0, len(sizes))
	seen := make(map[string]bool, len(sizes))
	for _, s := range sizes {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
