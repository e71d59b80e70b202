// Package s3 stores site content as objects in an S3-compatible bucket. The object ETag is
// the version token and writes are made conditional with If-Match (or If-None-Match for the
// first write of a key).
package s3

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"git.home.luguber.info/inful/sitepublisher/internal/foundation/errors"
	"git.home.luguber.info/inful/sitepublisher/internal/store"
)

// Config options for the S3 backend.
type Config struct {
	Bucket          string
	Region          string
	Prefix          string // prepended to every content path
	Endpoint        string // optional S3-compatible endpoint (MinIO, R2)
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Store implements store.Store on one bucket.
type Store struct {
	cfg    Config
	client objectAPI
}

// New loads AWS configuration and builds the S3 client. Missing bucket configuration is
// reported by Preflight, not here.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.ConfigError("failed to load AWS config").WithCause(err).Build()
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newWithClient(cfg, client), nil
}

func newWithClient(cfg Config, client objectAPI) *Store {
	return &Store{cfg: cfg, client: client}
}

// Name implements store.Store.
func (s *Store) Name() string { return "s3" }

// Preflight implements store.Preflighter.
func (s *Store) Preflight() error {
	if s.cfg.Bucket == "" {
		return errors.ConfigError("S3 bucket not configured").WithContext("env", "S3_BUCKET").Build()
	}
	return nil
}

func (s *Store) key(path string) string {
	path = strings.TrimPrefix(path, "/")
	if s.cfg.Prefix == "" {
		return path
	}
	return strings.TrimSuffix(s.cfg.Prefix, "/") + "/" + path
}

// Read implements store.Store.
func (s *Store) Read(ctx context.Context, path string) (*store.Snapshot, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return nil, s.classify(err, "read", path)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.NetworkError("failed to read object body").WithCause(err).WithContext("path", path).Build()
	}
	return &store.Snapshot{Version: store.Version(aws.ToString(out.ETag)), Data: data}, nil
}

// Write implements store.Store. The message is attached as object metadata.
func (s *Store) Write(ctx context.Context, path string, data []byte, expected store.Version, message string) (*store.Revision, error) {
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(s.key(path)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"publish-message": message},
	}
	if expected == "" {
		in.IfNoneMatch = aws.String("*")
	} else {
		in.IfMatch = aws.String(string(expected))
	}

	out, err := s.client.PutObject(ctx, in)
	if err != nil {
		if isPreconditionFailure(err) {
			return nil, errors.ConflictError("stale version token rejected").
				WithCause(&store.ConflictError{Path: path, Expected: expected}).
				WithContext("store", s.Name()).
				WithContext("path", path).
				WithContext("s3_error", err.Error()).
				Build()
		}
		return nil, s.classify(err, "write", path)
	}

	ref := aws.ToString(out.VersionId)
	if ref == "" {
		ref = aws.ToString(out.ETag)
	}
	return &store.Revision{Version: store.Version(aws.ToString(out.ETag)), Reference: ref}, nil
}

func isPreconditionFailure(err error) bool {
	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if stderrors.As(err, &respErr) {
		code := respErr.HTTPStatusCode()
		return code == http.StatusPreconditionFailed || code == http.StatusConflict
	}
	return false
}

func (s *Store) classify(err error, op, path string) error {
	var noKey *types.NoSuchKey
	if stderrors.As(err, &noKey) {
		return errors.NotFoundError("object not found").WithCause(err).WithContext("path", path).Build()
	}
	var noBucket *types.NoSuchBucket
	if stderrors.As(err, &noBucket) {
		return errors.ConfigError("S3 bucket does not exist").WithCause(err).WithContext("bucket", s.cfg.Bucket).Build()
	}

	var apiErr smithy.APIError
	if stderrors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "ExpiredToken":
			return errors.AuthError("S3 rejected credentials").WithCause(err).WithContext("path", path).Build()
		case "NoSuchKey", "NotFound":
			return errors.NotFoundError("object not found").WithCause(err).WithContext("path", path).Build()
		case "SlowDown":
			return errors.StoreError("S3 throttled the request").RateLimit().WithCause(err).WithContext("path", path).Build()
		}
		if apiErr.ErrorFault() == smithy.FaultClient {
			return errors.StoreError("S3 " + op + " rejected").NotRetryable().WithCause(err).WithContext("path", path).Build()
		}
		return errors.StoreError("S3 " + op + " failed").WithCause(err).WithContext("path", path).Build()
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NetworkError("S3 " + op + " timed out").WithCause(err).WithContext("path", path).Build()
	}
	return errors.NetworkError("S3 " + op + " failed").WithCause(err).WithContext("path", path).Build()
}
