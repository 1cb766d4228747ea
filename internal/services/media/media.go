// Package media загружает изображения участников и хобби.
package media

import (
	"context"
	"errors"

	"github.com/magabrotheeeer/hobbyfinder/internal/apperr"
	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
)

// Бакеты изображений.
const (
	BucketUsers     = "users"
	BucketProviders = "provider"
	BucketHobbies   = "hobbies"
)

// Uploader сохраняет файлы.
type Uploader interface {
	Upload(ctx context.Context, bucket string, file blob.File) (string, error)
}

// UploadImage проверяет, что файл является изображением, и сохраняет его в бакет.
func UploadImage(ctx context.Context, uploader Uploader, bucket string, file blob.File) (string, error) {
	const op = "media.UploadImage"
	if !file.IsImage() {
		return "", apperr.New(apperr.InvalidArgument, op, "Файл должен быть изображением")
	}
	url, err := uploader.Upload(ctx, bucket, file)
	switch {
	case errors.Is(err, blob.ErrTooLarge):
		return "", &apperr.Error{Kind: apperr.InvalidArgument, Op: op, Msg: "Файл слишком большой", Err: err}
	case err != nil:
		return "", apperr.Wrap(apperr.Storage, op, err)
	}
	return url, nil
}
