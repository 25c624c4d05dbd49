package feedstorage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"

	"github.com/feedstudy/rankfeed/internal/domain"
	"github.com/feedstudy/rankfeed/internal/rankerrors"
)

// S3Adapter writes feeds and analytics as newline-delimited JSON
// objects, and implements TTL via list+copy+delete (S3 has no rename).
type S3Adapter struct {
	client s3iface.S3API
	bucket string
}

// NewS3Adapter constructs an S3Adapter.
func NewS3Adapter(client s3iface.S3API, bucket string) *S3Adapter {
	return &S3Adapter{client: client, bucket: bucket}
}

// WriteFeeds writes one JSONL object under
// custom_feeds/active/<partition_date>/custom_feeds_<timestamp>.jsonl.
func (a *S3Adapter) WriteFeeds(ctx context.Context, feeds []domain.StoredFeed, sessionTimestamp string) error {
	body, err := encodeJSONL(feeds)
	if err != nil {
		return rankerrors.NewStorageError("write_feeds.encode", err)
	}
	return a.putObject(ctx, feedsKey(sessionTimestamp), body)
}

// WriteSessionAnalytics writes one JSONL object under
// feed_analytics/active/<partition_date>/feed_analytics_<timestamp>.jsonl.
func (a *S3Adapter) WriteSessionAnalytics(ctx context.Context, analytics domain.SessionAnalytics, sessionTimestamp string) error {
	encoded, err := json.Marshal(analytics)
	if err != nil {
		return rankerrors.NewStorageError("write_analytics.encode", err)
	}
	return a.putObject(ctx, analyticsKey(sessionTimestamp), append(encoded, '\n'))
}

func (a *S3Adapter) putObject(ctx context.Context, key string, body []byte) error {
	_, err := a.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	if err != nil {
		return rankerrors.NewStorageError(fmt.Sprintf("put_object(%s)", key), err)
	}
	return nil
}

// MoveToCache lists objects under prefix/active/, keeps the newest
// keepCount partition dates, and copies the rest to prefix/cache/
// before deleting the active copy (spec §4.3, §6).
func (a *S3Adapter) MoveToCache(ctx context.Context, prefix string, keepCount int) error {
	activePrefix := prefix + "/active/"
	listOut, err := a.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(activePrefix),
	})
	if err != nil {
		return rankerrors.NewStorageError("ttl.list", err)
	}

	keys := make([]string, 0, len(listOut.Contents))
	for _, obj := range listOut.Contents {
		keys = append(keys, aws.StringValue(obj.Key))
	}
	sort.Strings(keys)

	dates := uniqueSortedDates(keys)
	if len(dates) <= keepCount {
		return nil
	}
	toRetire := dates[:len(dates)-keepCount]
	retireSet := make(map[string]struct{}, len(toRetire))
	for _, d := range toRetire {
		retireSet[d] = struct{}{}
	}

	for _, key := range keys {
		if _, retire := retireSet[keyDate(key)]; !retire {
			continue
		}
		cacheKey := strings.Replace(key, "/active/", "/cache/", 1)
		if _, err := a.client.CopyObjectWithContext(ctx, &s3.CopyObjectInput{
			Bucket:     aws.String(a.bucket),
			CopySource: aws.String(a.bucket + "/" + key),
			Key:        aws.String(cacheKey),
		}); err != nil {
			return rankerrors.NewStorageError(fmt.Sprintf("ttl.copy(%s)", key), err)
		}
		if _, err := a.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(key),
		}); err != nil {
			return rankerrors.NewStorageError(fmt.Sprintf("ttl.delete(%s)", key), err)
		}
	}
	return nil
}

func uniqueSortedDates(keys []string) []string {
	seen := make(map[string]struct{})
	var dates []string
	for _, k := range keys {
		d := keyDate(k)
		if d == "" {
			continue
		}
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates
}
