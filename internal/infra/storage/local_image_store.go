package storage

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("only .jpg, .jpeg, .png and .webp files are allowed")
	ErrTooLarge        = errors.New("image is too large")
	ErrInvalidFolder   = errors.New("invalid folder")
	ErrForeignURL      = errors.New("url is not managed by this store")
)

const MaxImageSize = 5 << 20 // 5MB

var allowedExt = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// UPLOAD_DIR/<folder>/<uuid><ext> に保存し、公開URLを返す
type LocalImageStore struct {
	dir     string
	baseURL string
}

func NewLocalImageStore(dir, publicBaseURL string) *LocalImageStore {
	return &LocalImageStore{
		dir:     dir,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// 静的配信するディレクトリ
func (s *LocalImageStore) Dir() string { return s.dir }

func (s *LocalImageStore) Save(folder string, fh *multipart.FileHeader) (string, error) {
	if fh.Size > MaxImageSize {
		return "", ErrTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	return s.SaveReader(folder, fh.Filename, src)
}

func (s *LocalImageStore) SaveReader(folder, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExt[ext] {
		return "", ErrUnsupportedType
	}
	if folder == "" || strings.ContainsAny(folder, `/\.`) {
		return "", ErrInvalidFolder
	}

	dstDir := filepath.Join(s.dir, folder)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + ext
	dst, err := os.Create(filepath.Join(dstDir, name))
	if err != nil {
		return "", err
	}

	// 上限+1まで読んで超過を判定する
	n, err := io.Copy(dst, io.LimitReader(r, MaxImageSize+1))
	closeErr := dst.Close()
	if err == nil && n > MaxImageSize {
		err = ErrTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(dstDir, name))
		return "", err
	}

	return fmt.Sprintf("%s/uploads/%s/%s", s.baseURL, folder, name), nil
}

// SaveReaderが返したURLのファイルを消す。既に無ければ何もしない
func (s *LocalImageStore) Delete(url string) error {
	rest, ok := strings.CutPrefix(url, s.baseURL+"/uploads/")
	if !ok {
		return ErrForeignURL
	}
	folder, name, ok := strings.Cut(rest, "/")
	if !ok || folder == "" || strings.ContainsAny(folder, `/\.`) {
		return ErrForeignURL
	}
	if name == "" || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) || !allowedExt[strings.ToLower(filepath.Ext(name))] {
		return ErrForeignURL
	}

	err := os.Remove(filepath.Join(s.dir, folder, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
