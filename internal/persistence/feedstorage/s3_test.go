package feedstorage

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedstudy/rankfeed/internal/domain"
)

// fakeS3Client implements only the handful of s3iface.S3API methods
// S3Adapter calls; embedding the interface satisfies the rest without
// a full mock generator.
type fakeS3Client struct {
	s3iface.S3API

	putErr error
	puts   []*s3.PutObjectInput

	listOut *s3.ListObjectsV2Output
	listErr error

	copied  []*s3.CopyObjectInput
	copyErr error
	deleted []*s3.DeleteObjectInput
}

func (f *fakeS3Client) PutObjectWithContext(_ aws.Context, in *s3.PutObjectInput, _ ...request.Option) (*s3.PutObjectOutput, error) {
	f.puts = append(f.puts, in)
	return &s3.PutObjectOutput{}, f.putErr
}

func (f *fakeS3Client) ListObjectsV2WithContext(_ aws.Context, _ *s3.ListObjectsV2Input, _ ...request.Option) (*s3.ListObjectsV2Output, error) {
	return f.listOut, f.listErr
}

func (f *fakeS3Client) CopyObjectWithContext(_ aws.Context, in *s3.CopyObjectInput, _ ...request.Option) (*s3.CopyObjectOutput, error) {
	f.copied = append(f.copied, in)
	return &s3.CopyObjectOutput{}, f.copyErr
}

func (f *fakeS3Client) DeleteObjectWithContext(_ aws.Context, in *s3.DeleteObjectInput, _ ...request.Option) (*s3.DeleteObjectOutput, error) {
	f.deleted = append(f.deleted, in)
	return &s3.DeleteObjectOutput{}, nil
}

func TestS3Adapter_WriteFeeds_PutsUnderPartitionKey(t *testing.T) {
	client := &fakeS3Client{}
	adapter := NewS3Adapter(client, "bucket")

	err := adapter.WriteFeeds(context.Background(), []domain.StoredFeed{{FeedID: "a"}}, "2024-06-01T00:00:00Z")
	require.NoError(t, err)

	require.Len(t, client.puts, 1)
	assert.Equal(t, "custom_feeds/active/2024-06-01/custom_feeds_2024-06-01T00:00:00Z.jsonl", aws.StringValue(client.puts[0].Key))
}

func TestS3Adapter_WriteSessionAnalytics_PutsUnderPartitionKey(t *testing.T) {
	client := &fakeS3Client{}
	adapter := NewS3Adapter(client, "bucket")

	err := adapter.WriteSessionAnalytics(context.Background(), domain.SessionAnalytics{TotalFeeds: 1}, "2024-06-01T00:00:00Z")
	require.NoError(t, err)

	require.Len(t, client.puts, 1)
	assert.Equal(t, "feed_analytics/active/2024-06-01/feed_analytics_2024-06-01T00:00:00Z.jsonl", aws.StringValue(client.puts[0].Key))
}

func TestS3Adapter_MoveToCache_NoopWhenUnderKeepCount(t *testing.T) {
	client := &fakeS3Client{listOut: &s3.ListObjectsV2Output{}}
	adapter := NewS3Adapter(client, "bucket")
	err := adapter.MoveToCache(context.Background(), "custom_feeds", 3)
	require.NoError(t, err)
	assert.Empty(t, client.copied)
}

func TestS3Adapter_MoveToCache_CopiesThenDeletesOldestPartitions(t *testing.T) {
	client := &fakeS3Client{listOut: &s3.ListObjectsV2Output{
		Contents: []*s3.Object{
			{Key: aws.String("custom_feeds/active/2024-06-01/a.jsonl")},
			{Key: aws.String("custom_feeds/active/2024-06-02/a.jsonl")},
			{Key: aws.String("custom_feeds/active/2024-06-03/a.jsonl")},
		},
	}}
	adapter := NewS3Adapter(client, "bucket")

	err := adapter.MoveToCache(context.Background(), "custom_feeds", 1)
	require.NoError(t, err)

	require.Len(t, client.copied, 2)
	require.Len(t, client.deleted, 2)
	assert.Equal(t, "custom_feeds/cache/2024-06-01/a.jsonl", aws.StringValue(client.copied[0].Key))
}

func TestKeyDate_ExtractsPartitionSegment(t *testing.T) {
	assert.Equal(t, "2024-06-01", keyDate("custom_feeds/active/2024-06-01/custom_feeds_x.jsonl"))
	assert.Equal(t, "", keyDate("short/key"))
}

func TestUniqueSortedDates_DedupsAndSorts(t *testing.T) {
	keys := []string{
		"custom_feeds/active/2024-06-02/a.jsonl",
		"custom_feeds/active/2024-06-01/a.jsonl",
		"custom_feeds/active/2024-06-01/b.jsonl",
	}
	assert.Equal(t, []string{"2024-06-01", "2024-06-02"}, uniqueSortedDates(keys))
}
