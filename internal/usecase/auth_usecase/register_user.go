package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/repository"
	"storefront/internal/validator"

	"golang.org/x/crypto/bcrypt"
)

// 会員登録の入力
type RegisterUserInput struct {
	Username        string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// 会員登録の出力
type RegisterUserOutput struct {
	User model.User `json:"user"`
}

// 平文パスワードからハッシュへ。
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// RegisterUserUsecaseは会員登録の処理。
// ユーザーとカートは同じトランザクションで作る
type RegisterUserUsecase struct {
	tx     repository.TransactionManager
	hasher PasswordHasher
	clock  Clock
}

// DI
func NewRegisterUserUsecase(
	tx repository.TransactionManager,
	hasher PasswordHasher,
	clock Clock,
) *RegisterUserUsecase {
	return &RegisterUserUsecase{
		tx:     tx,
		hasher: hasher,
		clock:  clock,
	}
}

// 会員登録実行
func (u *RegisterUserUsecase) Execute(ctx context.Context, in RegisterUserInput) (RegisterUserOutput, error) {
	var out RegisterUserOutput

	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)

	err := u.tx.WithinTx(ctx, func(r repository.TxRepos) error {
		// 形式・一意チェック
		if err := validator.NewUserValidator(r.Users()).ValidateRegister(ctx, validator.RegisterInput{
			Username:        in.Username,
			Email:           in.Email,
			Phone:           in.Phone,
			Password:        in.Password,
			ConfirmPassword: in.ConfirmPassword,
		}); err != nil {
			return err
		}

		// パスワードをハッシュ化
		hashed, err := u.hasher.Hash(in.Password)
		if err != nil {
			return err
		}

		now := u.clock.Now()
		user := &model.User{
			Username:     in.Username,
			Name:         in.Username,
			Email:        in.Email,
			Phone:        in.Phone,
			PasswordHash: hashed,         // ハッシュを保存（平文は保存しない）
			Role:         model.RoleUser, // 初期はUSER
			TokenVersion: 0,
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := createUserWithCart(ctx, r, user); err != nil {
			return err
		}

		out.User = *user
		return nil
	})
	if err != nil {
		return RegisterUserOutput{}, err
	}
	return out, nil
}

// 同時登録で一意制約に当たった場合も既存扱いにする
func createUserWithCart(ctx context.Context, r repository.TxRepos, user *model.User) error {
	if err := r.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return validator.ErrEmailAlreadyUsed
		}
		return err
	}
	if _, err := r.Carts().CreateForUser(ctx, user.ID); err != nil {
		return err
	}
	return nil
}

// bcryptハッシュ化
type BcryptPasswordHasher struct {
	cost int
}

// DI
func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost}
}

// bcryptでハッシュ化
func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// bcryptハッシュと平文を比較
type BcryptPasswordVerifier struct{}

// DI
func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	return &BcryptPasswordVerifier{}
}

// 平文(plain)をbcryptで比較
func (v *BcryptPasswordVerifier) Verify(plain string, hashed string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
	return err == nil
}
