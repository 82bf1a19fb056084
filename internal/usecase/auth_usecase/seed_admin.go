package auth

import (
	"context"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
)

type SeedAdminResult struct {
	User    model.User
	Created bool
}

// 起動時の管理者作成。既にいればADMINにそろえるだけ
func EnsureAdmin(
	ctx context.Context,
	tx repository.TransactionManager,
	hasher PasswordHasher,
	clock Clock,
	email string,
	password string,
) (SeedAdminResult, error) {
	var out SeedAdminResult

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return out, nil
	}

	err := tx.WithinTx(ctx, func(r repository.TxRepos) error {
		existing, err := r.Users().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Role != model.RoleAdmin {
				existing.Role = model.RoleAdmin
				existing.UpdatedAt = clock.Now()
				if err := r.Users().Update(ctx, existing); err != nil {
					return err
				}
			}
			out.User = *existing
			return nil
		}

		hashed, err := hasher.Hash(password)
		if err != nil {
			return err
		}

		// usernameはメールの@より前
		name := email
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		}

		now := clock.Now()
		user := &model.User{
			Username:     "admin_" + name,
			Name:         "Admin",
			Email:        email,
			Phone:        "",
			PasswordHash: hashed,
			Role:         model.RoleAdmin,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := createUserWithCart(ctx, r, user); err != nil {
			return err
		}

		out.User = *user
		out.Created = true
		return nil
	})
	if err != nil {
		return SeedAdminResult{}, err
	}
	return out, nil
}
