// Package export uploads point-in-time snapshots of every request and its
// status history to S3-compatible object storage.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ewaste-backend/internal/config"
	"ewaste-backend/internal/metrics"
	"ewaste-backend/internal/models"
	"ewaste-backend/internal/timeutil"
	"ewaste-backend/internal/workflow"
)

// ErrNotConfigured is returned when no export bucket is set.
var ErrNotConfigured = errors.New("history export is not configured")

// ObjectPutter is the part of *s3.Client the exporter uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Source reads the data to export. Each request's status must agree with
// its newest history entry.
type Source interface {
	Snapshot(ctx context.Context) ([]models.RequestSnapshot, error)
}

type Snapshot struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Requests    []models.RequestSnapshot `json:"requests"`
}

type Result struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	Requests int    `json:"requests"`
	Bytes    int    `json:"bytes"`
}

type HistoryExporter struct {
	client ObjectPutter
	source Source
	bucket string
	prefix string
	now    func() time.Time
}

func NewHistoryExporter(client ObjectPutter, source Source, bucket, prefix string) *HistoryExporter {
	return &HistoryExporter{
		client: client,
		source: source,
		bucket: bucket,
		prefix: prefix,
		now:    timeutil.Now,
	}
}

// NewS3Client builds a client for the configured bucket. A custom endpoint
// (R2, MinIO) switches to path-style addressing.
func NewS3Client(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Export.Region),
	}
	if cfg.Export.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Export.AccessKey, cfg.Export.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Export.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Export.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Build collects the snapshot without uploading it.
func (e *HistoryExporter) Build(ctx context.Context) (*Snapshot, error) {
	requests, err := e.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if requests == nil {
		requests = []models.RequestSnapshot{}
	}
	return &Snapshot{GeneratedAt: e.now(), Requests: requests}, nil
}

// Export builds a snapshot and uploads it as one JSON object.
func (e *HistoryExporter) Export(ctx context.Context) (*Result, error) {
	if e.client == nil || e.bucket == "" {
		return nil, ErrNotConfigured
	}

	res, err := e.export(ctx)
	if err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		log.Printf("[Export] history export failed: %v", err)
		return nil, err
	}
	metrics.ExportsTotal.WithLabelValues("success").Inc()
	log.Printf("[Export] uploaded %d requests to s3://%s/%s", res.Requests, res.Bucket, res.Key)
	return res, nil
}

func (e *HistoryExporter) export(ctx context.Context) (*Result, error) {
	snap, err := e.Build(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}

	key := path.Join(e.prefix, "history-"+snap.GeneratedAt.UTC().Format(timeutil.StampLayout)+".json")
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	return &Result{Bucket: e.bucket, Key: key, Requests: len(snap.Requests), Bytes: len(body)}, nil
}

var _ Source = (workflow.Store)(nil)
