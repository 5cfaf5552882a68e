package provisioning

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/platinummonkey/tenantcore/pkg/rbac"
)

const (
	// StuckStream receives one entry per stuck organization per scan
	StuckStream = "tenantcore:provisioning:stuck"

	// RequestStream receives one entry per provisioning request
	RequestStream = "tenantcore:provisioning:requests"

	defaultStreamMaxLen = 100000
)

// RedisSink appends stuck organizations to a Redis stream for remediation workers
type RedisSink struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisSink creates a sink writing to StuckStream
func NewRedisSink(client redis.Cmdable) *RedisSink {
	return &RedisSink{client: client, stream: StuckStream, maxLen: defaultStreamMaxLen}
}

// ReportStuck writes every id of the scan in one pipeline
func (s *RedisSink) ReportStuck(ctx context.Context, result ScanResult) error {
	detectedAt := result.DetectedAt.UTC().Format(time.RFC3339Nano)

	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range result.OrganizationIDs {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: s.stream,
				MaxLen: s.maxLen,
				Values: map[string]interface{}{
					"org_id":      id.String(),
					"scan_id":     result.ID,
					"detected_at": detectedAt,
				},
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append to %s: %w", s.stream, err)
	}
	return nil
}

// RedisPublisher requests provisioning by appending to RequestStream.
// It implements orgs.Provisioner.
type RedisPublisher struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisPublisher creates a publisher writing to RequestStream
func NewRedisPublisher(client redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{client: client, stream: RequestStream, maxLen: defaultStreamMaxLen}
}

// RequestProvisioning publishes a request for org's infrastructure
func (p *RedisPublisher) RequestProvisioning(ctx context.Context, org *rbac.Organization) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Values: map[string]interface{}{
			"org_id":       org.ID.String(),
			"title":        org.Title,
			"created_at":   org.CreationDate.UTC().Format(time.RFC3339Nano),
			"requested_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to publish provisioning request: %w", err)
	}
	return nil
}
