package repository

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// 楽観ロックの競合（versionが読み取り時と違う）
	ErrConflict = errors.New("conflict")

	// 一意制約違反
	ErrDuplicate = errors.New("duplicate")
)
