// Package request разбирает тела запросов create/edit. Поддерживаются JSON,
// multipart/form-data с файлом в части avatar и application/x-www-form-urlencoded.
package request

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/ajg/form"

	"github.com/magabrotheeeer/hobbyfinder/internal/blob"
)

// AvatarField имя части multipart-запроса с изображением.
const AvatarField = "avatar"

// ErrUnsupportedMediaType возвращается для неизвестного Content-Type.
var ErrUnsupportedMediaType = errors.New("unsupported media type")

// Decode заполняет dst из тела запроса. Для multipart-запросов также
// возвращает файл из части avatar, если он передан.
func Decode(r *http.Request, dst any, maxMemory int64) (*blob.File, error) {
	const op = "request.Decode"

	contentType := r.Header.Get("Content-Type")
	mediaType := "application/json"
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		mediaType = mt
	}

	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := decodeValues(dst, r.PostForm); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := decodeValues(dst, url.Values(r.MultipartForm.Value)); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		file, err := Avatar(r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return file, nil
	default:
		return nil, fmt.Errorf("%s: %w: %s", op, ErrUnsupportedMediaType, mediaType)
	}
}

// Avatar возвращает файл из части avatar уже разобранного multipart-запроса.
// Отсутствие части не считается ошибкой.
func Avatar(r *http.Request) (*blob.File, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[AvatarField]) == 0 {
		return nil, nil
	}
	header := r.MultipartForm.File[AvatarField][0]
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &blob.File{
		Name:        header.Filename,
		ContentType: contentType,
		Data:        bytes.NewReader(data),
	}, nil
}

func decodeValues(dst any, values url.Values) error {
	d := form.NewDecoder(nil)
	d.IgnoreUnknownKeys(true)
	return d.DecodeValues(dst, values)
}
