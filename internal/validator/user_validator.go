package validator

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"storefront/internal/repository"
)

var (
	// 入力が不正
	ErrMissingFields     = errors.New("all fields are required")
	ErrInvalidEmail      = errors.New("invalid email format")
	ErrInvalidPhone      = errors.New("phone must be 10 digits")
	ErrPasswordTooShort  = errors.New("password must be at least 8 characters")
	ErrWeakPassword      = errors.New("password is too weak")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrInvalidCredential = errors.New("email and password are required")

	// 競合
	ErrEmailAlreadyUsed    = errors.New("email already used")
	ErrUsernameAlreadyUsed = errors.New("username already used")
	ErrPhoneAlreadyUsed    = errors.New("phone already used")
)

const MinPasswordLength = 8

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// よくある弱いパスワード
var weakPasswords = map[string]struct{}{
	"password":    {},
	"password1":   {},
	"password123": {},
	"12345678":    {},
	"123456789":   {},
	"1234567890":  {},
	"qwerty123":   {},
	"qwertyuiop":  {},
	"letmein123":  {},
	"admin123":    {},
	"iloveyou":    {},
	"11111111":    {},
}

type RegisterInput struct {
	Username        string
	Email           string
	Phone           string
	Password        string
	ConfirmPassword string
}

// 一意チェックが必要なのでトランザクション内のUserRepositoryを渡す
type UserValidator struct {
	users repository.UserRepository
}

func NewUserValidator(users repository.UserRepository) *UserValidator {
	return &UserValidator{users: users}
}

// サインアップの入力を検証
func (v *UserValidator) ValidateRegister(ctx context.Context, in RegisterInput) error {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)

	// 必須チェック
	if username == "" || email == "" || phone == "" || in.Password == "" || in.ConfirmPassword == "" {
		return ErrMissingFields
	}
	if !IsEmail(email) {
		return ErrInvalidEmail
	}
	if !IsPhone(phone) {
		return ErrInvalidPhone
	}
	if err := CheckPassword(in.Password); err != nil {
		return err
	}
	if in.Password != in.ConfirmPassword {
		return ErrPasswordMismatch
	}

	return v.checkUnique(ctx, 0, email, username, phone)
}

// ログインは形式だけ見る（存在有無は漏らさない）
func ValidateLogin(email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return ErrInvalidCredential
	}
	if !IsEmail(strings.TrimSpace(email)) {
		return ErrInvalidEmail
	}
	return nil
}

// プロフィール更新。空文字の項目は変更しない扱いなので検証しない
func (v *UserValidator) ValidateProfile(ctx context.Context, userID int64, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil
	}
	if !IsPhone(phone) {
		return ErrInvalidPhone
	}
	return v.checkUnique(ctx, userID, "", "", phone)
}

// 管理者によるユーザー更新
func (v *UserValidator) ValidateAdminUpdate(ctx context.Context, userID int64, email, username, phone string) error {
	email = strings.TrimSpace(email)
	phone = strings.TrimSpace(phone)
	if email != "" && !IsEmail(email) {
		return ErrInvalidEmail
	}
	if phone != "" && !IsPhone(phone) {
		return ErrInvalidPhone
	}
	return v.checkUnique(ctx, userID, email, strings.TrimSpace(username), phone)
}

// exceptID自身との重複は無視する。空の項目は見ない
func (v *UserValidator) checkUnique(ctx context.Context, exceptID int64, email, username, phone string) error {
	if email != "" {
		u, err := v.users.FindByEmail(ctx, email)
		if err != nil {
			return err
		}
		if u != nil && u.ID != exceptID {
			return ErrEmailAlreadyUsed
		}
	}
	if username != "" {
		u, err := v.users.FindByUsername(ctx, username)
		if err != nil {
			return err
		}
		if u != nil && u.ID != exceptID {
			return ErrUsernameAlreadyUsed
		}
	}
	if phone != "" {
		u, err := v.users.FindByPhone(ctx, phone)
		if err != nil {
			return err
		}
		if u != nil && u.ID != exceptID {
			return ErrPhoneAlreadyUsed
		}
	}
	return nil
}

func CheckPassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if _, ok := weakPasswords[strings.ToLower(strings.TrimSpace(password))]; ok {
		return ErrWeakPassword
	}
	return nil
}

func IsEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	// "Name <a@b>" 形式は受け付けない
	return addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// 入力エラー（400）か
func IsInputError(err error) bool {
	switch {
	case errors.Is(err, ErrMissingFields),
		errors.Is(err, ErrInvalidEmail),
		errors.Is(err, ErrInvalidPhone),
		errors.Is(err, ErrPasswordTooShort),
		errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrPasswordMismatch),
		errors.Is(err, ErrInvalidCredential):
		return true
	}
	return false
}

// 一意制約の競合（409）か
func IsConflictError(err error) bool {
	return errors.Is(err, ErrEmailAlreadyUsed) ||
		errors.Is(err, ErrUsernameAlreadyUsed) ||
		errors.Is(err, ErrPhoneAlreadyUsed)
}
