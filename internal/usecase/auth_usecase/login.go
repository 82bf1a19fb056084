package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
	"storefront/internal/validator"
)

// handlerからusecaseに渡す入力
type LoginInput struct {
	Email    string
	Password string
}

// handlerがJSONにして返す
type LoginOutput struct {
	User      model.User `json:"user"`
	Token     string     `json:"token"`
	ExpiresIn int        `json:"expires_in"`
}

// メールまたはパスワードが違う
var ErrInvalidCredentials = errors.New("invalid email or password")

// 停止済みユーザー
var ErrUserInactive = errors.New("user is inactive")

// 管理者ログインにUSERが来た
var ErrNotAdmin = errors.New("admin only")

// JWTを発行する約束
type AccessTokenIssuer interface {
	Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (token string, expiresAt time.Time, err error)
}

// 入力パスワードと保存したハッシュを比べる約束
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

type LoginUsecase struct {
	tx       repository.TransactionManager
	verifier PasswordVerifier
	issuer   AccessTokenIssuer
	clock    Clock
}

func NewLoginUsecase(
	tx repository.TransactionManager,
	verifier PasswordVerifier,
	issuer AccessTokenIssuer,
	clock Clock,
) *LoginUsecase {
	return &LoginUsecase{
		tx:       tx,
		verifier: verifier,
		issuer:   issuer,
		clock:    clock,
	}
}

// ログイン処理を実行する
func (u *LoginUsecase) Execute(ctx context.Context, in LoginInput) (LoginOutput, error) {
	return u.login(ctx, in, false)
}

// 管理画面用。ADMIN以外は拒否
func (u *LoginUsecase) ExecuteAdmin(ctx context.Context, in LoginInput) (LoginOutput, error) {
	return u.login(ctx, in, true)
}

func (u *LoginUsecase) login(ctx context.Context, in LoginInput, adminOnly bool) (LoginOutput, error) {
	var out LoginOutput

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := validator.ValidateLogin(email, in.Password); err != nil {
		return out, err
	}

	err := u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		//emailでユーザー取得
		user, err := r.Users().FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrInvalidCredentials
		}

		//パスワード照合
		if ok := u.verifier.Verify(in.Password, user.PasswordHash); !ok {
			return ErrInvalidCredentials
		}

		//停止ユーザーはログイン不可
		if !user.IsActive {
			return ErrUserInactive
		}
		if adminOnly && !user.IsAdmin() {
			return ErrNotAdmin
		}

		//AccessToken発行
		now := u.clock.Now()
		token, exp, err := u.issuer.Issue(user.ID, user.Role, user.TokenVersion, now)
		if err != nil {
			return err
		}

		//最終ログイン時刻更新
		user.LastLoginAt = &now
		if err := r.Users().Update(ctx, user); err != nil {
			return err
		}

		out.User = *user
		out.Token = token
		out.ExpiresIn = int(exp.Sub(now).Seconds())
		return nil
	})
	if err != nil {
		return LoginOutput{}, err
	}
	return out, nil
}
