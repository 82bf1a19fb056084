package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/validator"
)

type UserUsecase struct {
	tx    repo.TransactionManager
	clock Clock
}

func NewUserUsecase(tx repo.TransactionManager, clock Clock) *UserUsecase {
	return &UserUsecase{tx: tx, clock: clock}
}

// 空文字・nilは変更しない
type UpdateProfileInput struct {
	Name    string
	Phone   string
	Address string
	Image   *string
}

// 管理者によるユーザー更新。nilは変更しない
type AdminUpdateUserInput struct {
	Username *string
	Name     *string
	Email    *string
	Phone    *string
	Address  *string
	Role     *string
	IsActive *bool
}

type ForceLogoutOutput struct {
	UserID          int64 `json:"user_id"`
	NewTokenVersion int   `json:"new_token_version"`
}

func (u *UserUsecase) GetProfile(ctx context.Context, userID int64) (model.User, error) {
	if userID <= 0 {
		return model.User{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	var out model.User
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := findUser(ctx, r, userID)
		if err != nil {
			return err
		}
		out = *user
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return out, nil
}

func (u *UserUsecase) UpdateProfile(ctx context.Context, userID int64, in UpdateProfileInput) (model.User, error) {
	if userID <= 0 {
		return model.User{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	var out model.User
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := findUser(ctx, r, userID)
		if err != nil {
			return err
		}

		phone := strings.TrimSpace(in.Phone)
		if err := validator.NewUserValidator(r.Users()).ValidateProfile(ctx, userID, phone); err != nil {
			return fromValidation(err)
		}

		if name := strings.TrimSpace(in.Name); name != "" {
			user.Name = name
		}
		if phone != "" {
			user.Phone = phone
		}
		if addr := strings.TrimSpace(in.Address); addr != "" {
			user.Address = addr
		}
		if in.Image != nil {
			user.Image = *in.Image
		}
		user.UpdatedAt = u.clock.Now()

		if err := saveUser(ctx, r, user); err != nil {
			return err
		}
		out = *user
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return out, nil
}

func (u *UserUsecase) AdminList(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		users, err := r.Users().List(ctx)
		if err != nil {
			return internalError(err)
		}
		out = users
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (u *UserUsecase) AdminUpdate(ctx context.Context, adminUserID, targetID int64, in AdminUpdateUserInput) (model.User, error) {
	if adminUserID <= 0 {
		return model.User{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if targetID <= 0 {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	var role model.Role
	if in.Role != nil {
		role = model.Role(strings.ToUpper(strings.TrimSpace(*in.Role)))
		if role != model.RoleUser && role != model.RoleAdmin {
			return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid role")
		}
		// 自分の権限は落とせない
		if targetID == adminUserID && role != model.RoleAdmin {
			return model.User{}, NewHTTPError(http.StatusBadRequest, "cannot change your own role")
		}
	}

	var out model.User
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := findUser(ctx, r, targetID)
		if err != nil {
			return err
		}
		before := *user

		if err := validator.NewUserValidator(r.Users()).ValidateAdminUpdate(
			ctx, targetID, strings.ToLower(derefTrim(in.Email)), derefTrim(in.Username), derefTrim(in.Phone),
		); err != nil {
			return fromValidation(err)
		}

		if v := derefTrim(in.Username); v != "" {
			user.Username = v
		}
		if v := derefTrim(in.Name); v != "" {
			user.Name = v
		}
		if v := derefTrim(in.Email); v != "" {
			user.Email = strings.ToLower(v)
		}
		if v := derefTrim(in.Phone); v != "" {
			user.Phone = v
		}
		if in.Address != nil {
			user.Address = strings.TrimSpace(*in.Address)
		}
		if in.Role != nil {
			user.Role = role
		}
		if in.IsActive != nil {
			user.IsActive = *in.IsActive
		}
		user.UpdatedAt = u.clock.Now()

		if err := saveUser(ctx, r, user); err != nil {
			return err
		}
		if err := writeAudit(ctx, r, adminUserID, model.AuditActionUpdateUser, model.AuditResourceUser, targetID, before, *user, u.clock); err != nil {
			return err
		}
		out = *user
		return nil
	})
	if err != nil {
		return model.User{}, err
	}
	return out, nil
}

// ユーザーを物理削除する。カートと住所も消す。注文とレビューは履歴として残す
func (u *UserUsecase) AdminDelete(ctx context.Context, adminUserID, targetID int64) error {
	if adminUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if targetID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid user id")
	}
	if targetID == adminUserID {
		return NewHTTPError(http.StatusBadRequest, "cannot delete yourself")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		user, err := findUser(ctx, r, targetID)
		if err != nil {
			return err
		}

		if err := r.Carts().DeleteByUserID(ctx, targetID); err != nil {
			return internalError(err)
		}
		addrs, err := r.Addresses().ListByUserID(ctx, targetID)
		if err != nil {
			return internalError(err)
		}
		for _, a := range addrs {
			if err := r.Addresses().Delete(ctx, a.ID); err != nil && !errors.Is(err, repo.ErrNotFound) {
				return internalError(err)
			}
		}

		if err := r.Users().Delete(ctx, targetID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "user not found")
			}
			return internalError(err)
		}
		return writeAudit(ctx, r, adminUserID, model.AuditActionDeleteUser, model.AuditResourceUser, targetID, *user, nil, u.clock)
	})
}

// token_versionを+1して発行済みトークンを無効にする
func (u *UserUsecase) ForceLogout(ctx context.Context, adminUserID, targetID int64) (ForceLogoutOutput, error) {
	if adminUserID <= 0 {
		return ForceLogoutOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if targetID <= 0 {
		return ForceLogoutOutput{}, NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	var out ForceLogoutOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := r.Users().IncrementTokenVersion(ctx, targetID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "user not found")
			}
			return internalError(err)
		}

		//更新後を取得してnew_token_versionを返す
		user, err := findUser(ctx, r, targetID)
		if err != nil {
			return err
		}
		before := map[string]int{"token_version": user.TokenVersion - 1}
		after := map[string]int{"token_version": user.TokenVersion}
		if err := writeAudit(ctx, r, adminUserID, model.AuditActionForceLogout, model.AuditResourceUser, targetID, before, after, u.clock); err != nil {
			return err
		}

		out = ForceLogoutOutput{UserID: user.ID, NewTokenVersion: user.TokenVersion}
		return nil
	})
	if err != nil {
		return ForceLogoutOutput{}, err
	}
	return out, nil
}

func findUser(ctx context.Context, r repo.TxRepos, userID int64) (*model.User, error) {
	user, err := r.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}
	if user == nil {
		return nil, NewHTTPError(http.StatusNotFound, "user not found")
	}
	return user, nil
}

func saveUser(ctx context.Context, r repo.TxRepos, user *model.User) error {
	if err := r.Users().Update(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return NewHTTPError(http.StatusConflict, "user already exists")
		}
		return internalError(err)
	}
	return nil
}

// validatorのエラーを400/409に
func fromValidation(err error) error {
	switch {
	case validator.IsInputError(err):
		return NewHTTPError(http.StatusBadRequest, err.Error())
	case validator.IsConflictError(err):
		return NewHTTPError(http.StatusConflict, err.Error())
	default:
		return internalError(err)
	}
}

func derefTrim(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
