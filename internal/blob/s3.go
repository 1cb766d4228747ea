package blob

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/magabrotheeeer/hobbyfinder/internal/config"
)

// publicReadPolicy открывает анонимное чтение объектов бакета: аватары отдаются
// клиентам прямыми ссылками.
const publicReadPolicy = `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`

// S3 хранит файлы в S3-совместимом хранилище. Бакет вызова ("users", "provider",
// "hobbies") становится бакетом хранилища с префиксом из конфигурации.
type S3 struct {
	client    *minio.Client
	region    string
	prefix    string
	publicURL string
	maxSize   int64

	mu    sync.Mutex
	ready map[string]struct{}
}

// NewS3 создает клиента хранилища. Соединение при этом не открывается.
func NewS3(cfg config.S3, maxSize int64) (*S3, error) {
	const op = "blob.NewS3"
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%s: empty endpoint", op)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}

	return &S3{
		client:    client,
		region:    cfg.Region,
		prefix:    cfg.BucketPrefix,
		publicURL: strings.TrimRight(publicURL, "/"),
		maxSize:   maxSize,
		ready:     make(map[string]struct{}),
	}, nil
}

// Upload кладет файл в бакет, создавая его при первом обращении, и возвращает
// публичный адрес объекта.
func (s *S3) Upload(ctx context.Context, bucket string, file File) (string, error) {
	const op = "blob.S3.Upload"
	if !bucketRe.MatchString(bucket) {
		return "", fmt.Errorf("%s: %w: %q", op, ErrInvalidBucket, bucket)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	content, err := readLimited(file.Data, s.maxSize)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	name := s.bucketName(bucket)
	if err := s.ensureBucket(ctx, name); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	object := uuid.NewString() + extension(file, content)
	_, err = s.client.PutObject(ctx, name, object, bytes.NewReader(content), int64(len(content)), minio.PutObjectOptions{
		ContentType: file.ContentType,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return s.publicURL + "/" + name + "/" + object, nil
}

func (s *S3) bucketName(bucket string) string {
	return s.prefix + bucket
}

func (s *S3) ensureBucket(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ready[name]; ok {
		return nil
	}

	exists, err := s.client.BucketExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		err := s.client.MakeBucket(ctx, name, minio.MakeBucketOptions{Region: s.region})
		if err != nil && !isBucketOwned(err) {
			return err
		}
		if err := s.client.SetBucketPolicy(ctx, name, fmt.Sprintf(publicReadPolicy, name)); err != nil {
			return err
		}
	}
	s.ready[name] = struct{}{}
	return nil
}

// isBucketOwned бакет успел создать другой экземпляр сервиса.
func isBucketOwned(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists"
}
