package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type AddressDTO struct {
	ID         int64   `json:"id"`
	UserID     int64   `json:"user_id"`
	Label      string  `json:"label"`
	Address    string  `json:"address"`
	City       string  `json:"city"`
	PostalCode string  `json:"postal_code"`
	Country    string  `json:"country"`
	IsDefault  bool    `json:"is_default"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  *string `json:"updated_at,omitempty"`
}

// 作成・更新で共通
type AddressRequest struct {
	Label      string `json:"label"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (req AddressRequest) trimmed() AddressRequest {
	return AddressRequest{
		Label:      strings.TrimSpace(req.Label),
		Address:    strings.TrimSpace(req.Address),
		City:       strings.TrimSpace(req.City),
		PostalCode: strings.TrimSpace(req.PostalCode),
		Country:    strings.TrimSpace(req.Country),
	}
}

func (req AddressRequest) complete() bool {
	return req.Address != "" && req.City != "" && req.PostalCode != "" && req.Country != ""
}

type AddressUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewAddressUsecase(tx repo.TransactionManager, clock Clock) *AddressUsecase {
	return &AddressUsecase{tx: tx, clock: clock}
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out []AddressDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		list, err := r.Addresses().ListByUserID(ctx, userID)
		if err != nil {
			return internalError(err)
		}
		out = make([]AddressDTO, 0, len(list))
		for i := range list {
			out = append(out, toAddressDTO(&list[i]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// 最初の住所は自動でデフォルトになる
func (u *AddressUsecase) Create(ctx context.Context, userID int64, req AddressRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//入力チェック
	req = req.trimmed()
	if !req.complete() {
		return AddressDTO{}, NewHTTPError(http.StatusBadRequest, "address, city, postal_code and country are required")
	}

	var out AddressDTO
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		existing, err := r.Addresses().ListByUserID(ctx, userID)
		if err != nil {
			return internalError(err)
		}

		now := u.clock.Now()
		created, err := r.Addresses().Create(ctx, model.Address{
			UserID:     userID,
			Label:      req.Label,
			Address:    req.Address,
			City:       req.City,
			PostalCode: req.PostalCode,
			Country:    req.Country,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
		if err != nil {
			return internalError(err)
		}

		if len(existing) == 0 {
			if err := r.Addresses().SetDefault(ctx, userID, created.ID); err != nil {
				return internalError(err)
			}
			created.IsDefault = true
		}
		out = toAddressDTO(&created)
		return nil
	})
	if err != nil {
		return AddressDTO{}, err
	}
	return out, nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, req AddressRequest) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid address id")
	}
	req = req.trimmed()
	if !req.complete() {
		return NewHTTPError(http.StatusBadRequest, "address, city, postal_code and country are required")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//所有チェック（本人のみ）
		if err := ensureAddressOwner(ctx, r, userID, addressID); err != nil {
			return err
		}

		err := r.Addresses().Update(ctx, model.Address{
			ID:         addressID,
			Label:      req.Label,
			Address:    req.Address,
			City:       req.City,
			PostalCode: req.PostalCode,
			Country:    req.Country,
			UpdatedAt:  u.clock.Now(),
		})
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "address not found")
		}
		if err != nil {
			return internalError(err)
		}
		return nil
	})
}

func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid address id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := ensureAddressOwner(ctx, r, userID, addressID); err != nil {
			return err
		}

		err := r.Addresses().Delete(ctx, addressID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "address not found")
		}
		if err != nil {
			return internalError(err)
		}
		return nil
	})
}

func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid address id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := ensureAddressOwner(ctx, r, userID, addressID); err != nil {
			return err
		}

		//user内でdefaultは1つ
		err := r.Addresses().SetDefault(ctx, userID, addressID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "address not found")
		}
		if err != nil {
			return internalError(err)
		}
		return nil
	})
}

// 存在しなければ404、他人の住所なら403
func ensureAddressOwner(ctx context.Context, r repo.TxRepos, userID, addressID int64) error {
	a, err := r.Addresses().FindByID(ctx, addressID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "address not found")
	}
	if err != nil {
		return internalError(err)
	}
	if a.UserID != userID {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}
	return nil
}

func toAddressDTO(a *model.Address) AddressDTO {
	dto := AddressDTO{
		ID:         a.ID,
		UserID:     a.UserID,
		Label:      a.Label,
		Address:    a.Address,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
	t := a.UpdatedAt.Format(time.RFC3339)
	dto.UpdatedAt = &t
	return dto
}
