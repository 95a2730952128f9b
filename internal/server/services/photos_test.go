package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/logging"
	sc "github.com/dmitrijs2005/photorestore/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPhotoSvc(t *testing.T) *PhotoService {
	t.Helper()
	cfg := &sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "photos",
		PresignTTL:     5 * time.Minute,
	}
	s := NewPhotoService(cfg, logging.Nop())
	s.now = func() time.Time { return time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC) }
	return s
}

// stubPresign replaces the AWS seams for the duration of the test.
func stubPresign(t *testing.T, putErr, getErr error) (puts, gets *[]string) {
	t.Helper()
	origLoad, origNewS3, origNewPre := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient
	origPut, origGet := presignPutObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient = origLoad, origNewS3, origNewPre
		presignPutObject, presignGetObject = origPut, origGet
	})

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(aws.Config, ...func(*s3.Options)) *s3.Client { return &s3.Client{} }
	newS3PresignClient = func(*s3.Client) *s3.PresignClient { return &s3.PresignClient{} }

	puts, gets = &[]string{}, &[]string{}
	presignPutObject = func(_ *s3.PresignClient, _ context.Context, in *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if putErr != nil {
			return nil, putErr
		}
		*puts = append(*puts, *in.Key)
		return &v4.PresignedHTTPRequest{URL: "http://s3.local/put/" + *in.Key}, nil
	}
	presignGetObject = func(_ *s3.PresignClient, _ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if getErr != nil {
			return nil, getErr
		}
		*gets = append(*gets, *in.Key)
		return &v4.PresignedHTTPRequest{URL: "http://s3.local/get/" + *in.Key}, nil
	}
	return puts, gets
}

func TestGetPresignClient_AppliesConfig(t *testing.T) {
	svc := newPhotoSvc(t)
	origLoad, origNewS3, origNewPre := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient = origLoad, origNewS3, origNewPre
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		require.NotNil(t, c)
		return &s3.PresignClient{}
	}

	pc, err := svc.getPresignClient(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pc)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = svc.getPresignClient(context.Background())
	require.EqualError(t, err, "load-fail")
}

func TestStorageKey(t *testing.T) {
	svc := newPhotoSvc(t)

	key := svc.StorageKey("u1", "Grandma.JPG")
	assert.Regexp(t, regexp.MustCompile(`^photos/u1/2025/03/[0-9a-f-]{36}\.jpg$`), key)

	key = svc.StorageKey("u1", "notes.exe")
	assert.Regexp(t, regexp.MustCompile(`^photos/u1/2025/03/[0-9a-f-]{36}$`), key)

	assert.NotEqual(t, svc.StorageKey("u1", "a.png"), svc.StorageKey("u1", "a.png"))
}

func TestCreateUploadURL(t *testing.T) {
	svc := newPhotoSvc(t)
	puts, gets := stubPresign(t, nil, nil)

	target, err := svc.CreateUploadURL(context.Background(), "u1", "photo.png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(target.Key, "photos/u1/"))
	assert.Equal(t, "http://s3.local/put/"+target.Key, target.PutURL)
	assert.Equal(t, "http://s3.local/get/"+target.Key, target.ViewURL)
	assert.Equal(t, []string{target.Key}, *puts)
	assert.Equal(t, []string{target.Key}, *gets)
}

func TestCreateUploadURL_PresignErrors(t *testing.T) {
	svc := newPhotoSvc(t)

	stubPresign(t, errors.New("put-fail"), nil)
	_, err := svc.CreateUploadURL(context.Background(), "u1", "a.png")
	require.EqualError(t, err, "put-fail")

	stubPresign(t, nil, errors.New("get-fail"))
	_, err = svc.CreateUploadURL(context.Background(), "u1", "a.png")
	require.EqualError(t, err, "get-fail")
}

func TestCreateDownloadURL(t *testing.T) {
	svc := newPhotoSvc(t)
	stubPresign(t, nil, nil)

	url, err := svc.CreateDownloadURL(context.Background(), "u1", "photos/u1/2025/03/x.png")
	require.NoError(t, err)
	assert.Equal(t, "http://s3.local/get/photos/u1/2025/03/x.png", url)

	_, err = svc.CreateDownloadURL(context.Background(), "u1", "photos/u2/2025/03/x.png")
	require.ErrorIs(t, err, common.ErrForbidden)

	_, err = svc.CreateDownloadURL(context.Background(), "u1", "photos/u1/../u2/x.png")
	require.ErrorIs(t, err, common.ErrForbidden)
}
