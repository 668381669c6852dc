package events

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
)

const objectCreatedEvent = "s3:ObjectCreated:*"

// UploadEvent is a supporting document landing in the bucket.
type UploadEvent struct {
	ApplicationID string
	Filename      string
	ObjectKey     string
	EventName     string
}

type UploadEventSource interface {
	Run(ctx context.Context, handler func(context.Context, UploadEvent) error) error
}

type MinioUploadEventSource struct {
	client *minio.Client
	bucket string
	prefix string
	suffix string
}

func NewMinioUploadEventSource(client *minio.Client, bucket string, prefix string, suffix string) *MinioUploadEventSource {
	return &MinioUploadEventSource{
		client: client,
		bucket: bucket,
		prefix: prefix,
		suffix: suffix,
	}
}

// Run blocks until ctx is done or the notification stream fails. Records
// whose key is not <application id>/<filename> are skipped.
func (s *MinioUploadEventSource) Run(ctx context.Context, handler func(context.Context, UploadEvent) error) error {
	notificationCh := s.client.ListenBucketNotification(ctx, s.bucket, s.prefix, s.suffix, []string{objectCreatedEvent})
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-notificationCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream closed")
			}
			if info.Err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream error: %w", info.Err)
			}
			for _, record := range info.Records {
				event, err := eventFromKey(record.S3.Object.Key, record.EventName)
				if err != nil {
					continue
				}
				if err := handler(ctx, event); err != nil {
					return err
				}
			}
		}
	}
}

func eventFromKey(encodedKey, eventName string) (UploadEvent, error) {
	objectKey, err := decodeObjectKey(encodedKey)
	if err != nil {
		return UploadEvent{}, err
	}
	applicationID, filename, err := parseObjectKey(objectKey)
	if err != nil {
		return UploadEvent{}, err
	}
	return UploadEvent{
		ApplicationID: applicationID,
		Filename:      filename,
		ObjectKey:     objectKey,
		EventName:     eventName,
	}, nil
}

func decodeObjectKey(encoded string) (string, error) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", err
	}
	decoded = strings.TrimSpace(decoded)
	if decoded == "" {
		return "", fmt.Errorf("object key is empty")
	}
	return decoded, nil
}

func parseObjectKey(objectKey string) (string, string, error) {
	cleaned := strings.Trim(strings.ReplaceAll(objectKey, "\\", "/"), "/")
	parts := strings.SplitN(cleaned, "/", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("object key %q does not match application_id/filename", objectKey)
	}
	applicationID := strings.TrimSpace(parts[0])
	filename := strings.TrimSpace(parts[1])
	if applicationID == "" || filename == "" {
		return "", "", fmt.Errorf("object key %q missing application id or filename", objectKey)
	}
	return applicationID, filename, nil
}
