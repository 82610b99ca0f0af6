package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"cfgsync-go/internal/cfgsync"
	"cfgsync-go/internal/config"
)

// S3Store keeps the configuration document as a single JSON object in an
// S3-compatible bucket. Unlike the HTTP service there is no server-side
// merge, so Update reads the current object, applies the patch and writes
// it back. Last write wins, same as the source system.
type S3Store struct {
	client *s3.Client
	bucket string
	key    string
}

var _ cfgsync.RemoteStore = (*S3Store)(nil)

// NewS3Store creates an S3-backed store. If cfg.S3Endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar). Static
// credentials are used when an access key is configured; otherwise the
// default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg config.RemoteConfig) (*S3Store, error) {
	if cfg.S3Bucket == "" || cfg.S3Key == "" {
		return nil, fmt.Errorf("s3 remote requires s3_bucket and s3_key to be set")
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if cfg.S3Endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Store{
		client: s3.NewFromConfig(awsCfg, s3opts...),
		bucket: cfg.S3Bucket,
		key:    cfg.S3Key,
	}, nil
}

func (s *S3Store) Exists(ctx context.Context) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, classifyS3(err, "head object")
	}
	return true, nil
}

func (s *S3Store) Load(ctx context.Context) (*cfgsync.ConfigDocument, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, fmt.Errorf("no stored configuration: %w", cfgsync.ErrNotFound)
		}
		return nil, classifyS3(err, "get object")
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading object: %v", cfgsync.ErrRemoteUnavailable, err)
	}

	var doc cfgsync.ConfigDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding stored configuration: %w", err)
	}
	return &doc, nil
}

func (s *S3Store) Save(ctx context.Context, doc *cfgsync.ConfigDocument) (*cfgsync.ConfigDocument, error) {
	if err := s.put(ctx, doc); err != nil {
		return nil, err
	}
	return doc.Clone(), nil
}

func (s *S3Store) Update(ctx context.Context, patch *cfgsync.SectionPatch) (*cfgsync.ConfigDocument, error) {
	cur, err := s.Load(ctx)
	if err != nil {
		if errors.Is(err, cfgsync.ErrNotFound) {
			cur = cfgsync.DefaultDocument()
		} else {
			return nil, err
		}
	}
	patch.ApplyTo(cur)
	if err := s.put(ctx, cur); err != nil {
		return nil, err
	}
	return cur, nil
}

func (s *S3Store) Replace(ctx context.Context, doc *cfgsync.ConfigDocument) (*cfgsync.ConfigDocument, error) {
	return s.Save(ctx, doc)
}

func (s *S3Store) Delete(ctx context.Context) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil && !isS3NotFound(err) {
		return classifyS3(err, "delete object")
	}
	return nil
}

func (s *S3Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return classifyS3(err, "head bucket")
	}
	return nil
}

func (s *S3Store) put(ctx context.Context, doc *cfgsync.ConfigDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding configuration: %w", err)
	}

	contentType := "application/json"
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return classifyS3(err, "put object")
	}
	return nil
}

// isS3NotFound matches the two shapes the SDK uses for a missing object:
// a typed NoSuchKey on GetObject and a generic NotFound on HeadObject.
func isS3NotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound"
}

// classifyS3 maps SDK failures onto the store taxonomy. Access-denied and
// malformed-request errors count as validation refusals; everything else
// (connectivity, throttling, 5xx) is the unreachable path.
func classifyS3(err error, op string) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "AccessDenied", "InvalidRequest", "MalformedXML", "EntityTooLarge":
			return fmt.Errorf("%w: s3 %s: %v", cfgsync.ErrValidationRejected, op, err)
		}
	}
	return fmt.Errorf("%w: s3 %s: %v", cfgsync.ErrRemoteUnavailable, op, err)
}
