// Package blob сохраняет загруженные файлы (аватары участников и хобби) и возвращает
// публичный адрес файла. Local пишет на диск, файлы раздаются под /static/;
// S3 кладет их в S3-совместимое хранилище объектов.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrTooLarge файл превышает допустимый размер.
	ErrTooLarge = errors.New("file is too large")
	// ErrInvalidBucket недопустимое имя бакета.
	ErrInvalidBucket = errors.New("invalid bucket")
)

var bucketRe = regexp.MustCompile(`^[a-z][a-z0-9-]{0,62}$`)

// File загружаемый файл.
type File struct {
	Name        string
	ContentType string
	Data        io.Reader
}

// IsImage сообщает, что файл объявлен как изображение.
func (f File) IsImage() bool {
	return strings.HasPrefix(f.ContentType, "image/")
}

// Local хранит файлы в каталоге dir, по одному подкаталогу на бакет.
type Local struct {
	dir       string
	publicURL string
	maxSize   int64
}

// NewLocal создает хранилище файлов. maxSize <= 0 снимает ограничение на размер.
func NewLocal(dir, publicURL string, maxSize int64) *Local {
	return &Local{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxSize:   maxSize,
	}
}

// Dir каталог с файлами.
func (l *Local) Dir() string {
	return l.dir
}

// Upload сохраняет файл в бакет и возвращает его публичный адрес.
func (l *Local) Upload(ctx context.Context, bucket string, file File) (string, error) {
	const op = "blob.Upload"
	if !bucketRe.MatchString(bucket) {
		return "", fmt.Errorf("%s: %w: %q", op, ErrInvalidBucket, bucket)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	content, err := readLimited(file.Data, l.maxSize)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	name := uuid.NewString() + extension(file, content)
	target := filepath.Join(l.dir, bucket)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := os.WriteFile(filepath.Join(target, name), content, 0o644); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return l.publicURL + "/" + bucket + "/" + name, nil
}

// readLimited читает не больше maxSize байт. maxSize <= 0 снимает ограничение.
func readLimited(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize > 0 {
		r = io.LimitReader(r, maxSize+1)
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, r)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && n > maxSize {
		return nil, ErrTooLarge
	}
	return buf.Bytes(), nil
}

func extension(file File, content []byte) string {
	if ext := strings.ToLower(filepath.Ext(file.Name)); ext != "" && len(ext) <= 6 {
		return ext
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(content)
	}
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}
