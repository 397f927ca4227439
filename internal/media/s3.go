package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config はS3ストアの設定。
type S3Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	KeyPrefix       string
	// PublicBaseURL が空の場合はバケットの仮想ホスト形式URLを使う。
	PublicBaseURL string
}

// putObjectAPI はS3Storeが使うS3クライアントの操作。
type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store はAWS S3に画像を保存する。
type S3Store struct {
	client  putObjectAPI
	bucket  string
	prefix  string
	baseURL string
}

// NewS3Store はS3Storeを生成する。
// アクセスキーが未指定の場合はSDKの既定の認証情報チェーンを使う。
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("S3 bucket must not be empty")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newS3Store(s3.NewFromConfig(awsCfg), cfg), nil
}

func newS3Store(client putObjectAPI, cfg S3Config) *S3Store {
	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.KeyPrefix, baseURL: baseURL}
}

// Put はprefix+nameのキーでオブジェクトをアップロードする。
func (s *S3Store) Put(ctx context.Context, name, contentType string, data []byte) (string, error) {
	key := s.prefix + name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload picture: %w", err)
	}

	slog.Info("picture stored", slog.String("backend", "s3"), slog.String("key", key))
	return s.baseURL + "/" + key, nil
}

// compile-time interface check
var _ Store = (*S3Store)(nil)
