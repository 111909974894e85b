// Package s3 stores the vault in an S3 compatible bucket. Aliyun OSS and
// Tencent COS are reached through their S3 compatible endpoints.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/google/uuid"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/logging"
)

const defaultRegion = "us-east-1"

type objectAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Storage is the object storage backend. Blobs live under the
// "password-xl/" prefix of the bucket.
type Storage struct {
	logger logging.Logger

	mu     sync.RWMutex
	client objectAPI
	bucket string
}

var _ storage.Adapter = (*Storage)(nil)

func New(logger logging.Logger) *Storage {
	return &Storage{logger: logging.OrDiscard(logger).With("module", "s3_storage")}
}

func newClient(ctx context.Context, form models.LoginForm) (*s3.Client, error) {
	region := form.Region
	if region == "" {
		region = defaultRegion
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			form.AccessKeyID,
			form.AccessKeySecret,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if form.Endpoint != "" {
			o.BaseEndpoint = aws.String(form.Endpoint)
		}
		o.UsePathStyle = form.PathStyle
		// several S3 compatible services reject the newer default checksums
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	}), nil
}

// Login builds the client and checks that the bucket is reachable with the
// given keys.
func (s *Storage) Login(ctx context.Context, form models.LoginForm) error {
	if form.AccessKeyID == "" || form.AccessKeySecret == "" || form.Bucket == "" {
		return storage.NewError(common.ErrAuth, "access key id, access key secret and bucket are required", nil)
	}

	client, err := newClient(ctx, form)
	if err != nil {
		return storage.NewError(common.ErrMalformedEndpoint, "invalid object storage configuration", err)
	}

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(form.Bucket)}); err != nil {
		err = classifyLogin(err)
		s.logger.Warn(ctx, "bucket check failed", "bucket", form.Bucket, "error", storage.UserMessage(err))
		return err
	}

	s.mu.Lock()
	s.client = client
	s.bucket = form.Bucket
	s.mu.Unlock()
	return nil
}

func (s *Storage) api() (objectAPI, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, "", storage.NewError(common.ErrAuth, "not logged in", nil)
	}
	return s.client, s.bucket, nil
}

func objectKey(name string) string {
	return common.AppName + "/" + storage.FileName(name)
}

func (s *Storage) Read(ctx context.Context, name string) (string, string, error) {
	api, bucket, err := s.api()
	if err != nil {
		return "", "", err
	}

	out, err := api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(objectKey(name))})
	if err != nil {
		if isNotFound(err) {
			return "", "", nil
		}
		return "", "", classify(err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return "", "", storage.Classify(err)
	}
	return string(body), tagOf(out.ETag, out.LastModified), nil
}

func (s *Storage) Write(ctx context.Context, name, content string) (string, error) {
	api, bucket, err := s.api()
	if err != nil {
		return "", err
	}

	out, err := api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectKey(name)),
		Body:        strings.NewReader(content),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", classify(err)
	}
	// no Last-Modified on PUT; an empty tag makes the guard ask with Tag
	return tagOf(out.ETag, nil), nil
}

func (s *Storage) Remove(ctx context.Context, name string) error {
	api, bucket, err := s.api()
	if err != nil {
		return err
	}

	_, err = api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(objectKey(name))})
	if err != nil && !isNotFound(err) {
		return classify(err)
	}
	return nil
}

func (s *Storage) Tag(ctx context.Context, name string) (string, error) {
	api, bucket, err := s.api()
	if err != nil {
		return "", err
	}

	out, err := api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(objectKey(name))})
	if err != nil {
		if isNotFound(err) {
			return "", nil
		}
		return "", classify(err)
	}
	return tagOf(out.ETag, out.LastModified), nil
}

// UploadBinary stores data at password-xl/images/<prefix>/<uuid>.<ext> and
// returns the object key.
func (s *Storage) UploadBinary(ctx context.Context, data []byte, fileName, prefix string) (string, error) {
	api, bucket, err := s.api()
	if err != nil {
		return "", err
	}

	ext := storage.Ext(fileName, "png")
	key := fmt.Sprintf("%s/images/%s/%s.%s", common.AppName, prefix, uuid.NewString(), ext)

	contentType := mime.TypeByExtension("." + ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err = api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", classify(err)
	}
	return key, nil
}

func (s *Storage) Capabilities() storage.Capabilities {
	return storage.Capabilities{Note: true, Binary: true, Versioning: true}
}

// tagOf prefers the ETag; Last-Modified has only second resolution.
func tagOf(etag *string, modified *time.Time) string {
	if etag != nil && *etag != "" {
		return strings.Trim(*etag, `"`)
	}
	if modified != nil {
		return modified.UTC().Format(http.TimeFormat)
	}
	return ""
}

type httpStatus interface {
	HTTPStatusCode() int
}

func statusOf(err error) int {
	var hs httpStatus
	if errors.As(err, &hs) {
		return hs.HTTPStatusCode()
	}
	return 0
}

// isNotFound reports a missing object. A missing bucket is not one.
func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket" {
		return false
	}
	return statusOf(err) == http.StatusNotFound
}

// classify maps S3 error codes to the storage taxonomy.
func classify(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "InvalidAccessKeyId":
			return storage.NewError(common.ErrAuth, "invalid access key id", err)
		case "SignatureDoesNotMatch":
			return storage.NewError(common.ErrAuth, "access key secret does not match", err)
		case "AccessDenied", "Forbidden":
			return storage.NewError(common.ErrPermission, "access denied, check the key permissions", err)
		case "NoSuchBucket":
			return storage.NewError(common.ErrNotFound, "bucket does not exist", err)
		case "PermanentRedirect", "AuthorizationHeaderMalformed", "IllegalLocationConstraintException":
			return storage.NewError(common.ErrMalformedEndpoint, "bucket is in a different region or endpoint", err)
		}
	}

	if status := statusOf(err); status != 0 {
		return storage.FromStatus(status, "")
	}
	return storage.Classify(err)
}

// classifyLogin is classify for HeadBucket, whose responses carry no error
// body: a bare 403 or 404 must be read as a bucket problem.
func classifyLogin(err error) error {
	switch statusOf(err) {
	case http.StatusForbidden:
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() != "Forbidden" {
			return classify(err)
		}
		return storage.NewError(common.ErrAuth, "access denied, check the access keys and bucket", err)
	case http.StatusNotFound:
		return storage.NewError(common.ErrNotFound, "bucket does not exist", err)
	case http.StatusMovedPermanently, http.StatusBadRequest:
		return storage.NewError(common.ErrMalformedEndpoint, "bucket is in a different region or endpoint", err)
	}
	return classify(err)
}
