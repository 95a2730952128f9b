package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/logging"
	sc "github.com/dmitrijs2005/photorestore/internal/server/config"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".gif": true, ".bmp": true, ".tif": true, ".tiff": true, ".heic": true,
}

// UploadTarget is where a client puts an original photo and where it can be
// viewed afterwards.
type UploadTarget struct {
	Key     string
	PutURL  string
	ViewURL string
}

// PhotoService hands out presigned S3 URLs for original photos.
type PhotoService struct {
	config *sc.Config
	log    logging.Logger
	now    func() time.Time
}

func NewPhotoService(cfg *sc.Config, log logging.Logger) *PhotoService {
	return &PhotoService{config: cfg, log: log.With("module", "photo_service"), now: time.Now}
}

func userPrefix(userID string) string {
	return "photos/" + userID + "/"
}

// StorageKey builds photos/<user>/<yyyy>/<mm>/<uuid><ext>. Unknown or
// non-image extensions are dropped.
func (s *PhotoService) StorageKey(userID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	if !imageExtensions[ext] {
		ext = ""
	}
	d := s.now().UTC()
	return fmt.Sprintf("%s%04d/%02d/%s%s", userPrefix(userID), d.Year(), int(d.Month()), uuid.NewString(), ext)
}

func (s *PhotoService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	return newS3PresignClient(client), nil
}

func (s *PhotoService) ttl() time.Duration {
	if s.config.PresignTTL > 0 {
		return s.config.PresignTTL
	}
	return 15 * time.Minute
}

// CreateUploadURL reserves a storage key for userID and presigns a PUT for it
// and a GET to view the result.
func (s *PhotoService) CreateUploadURL(ctx context.Context, userID, fileName string) (*UploadTarget, error) {
	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, err
	}

	bucket := s.config.S3Bucket
	key := s.StorageKey(userID, fileName)

	put, err := presignPutObject(pc, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.ttl()))
	if err != nil {
		return nil, err
	}

	get, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.ttl()))
	if err != nil {
		return nil, err
	}

	s.log.Debug(ctx, "upload url issued", "user_id", userID, "key", key)
	return &UploadTarget{Key: key, PutURL: put.URL, ViewURL: get.URL}, nil
}

// CreateDownloadURL presigns a GET for key, which must belong to userID.
func (s *PhotoService) CreateDownloadURL(ctx context.Context, userID, key string) (string, error) {
	if !strings.HasPrefix(key, userPrefix(userID)) || strings.Contains(key, "..") {
		return "", common.ErrForbidden
	}

	pc, err := s.getPresignClient(ctx)
	if err != nil {
		return "", err
	}

	bucket := s.config.S3Bucket
	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.ttl()))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
