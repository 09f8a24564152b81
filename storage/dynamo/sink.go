// Package dynamo implements the chunk sink on AWS DynamoDB.
//
// Chunks are items keyed by a numeric chunk_id. Item 0 is reserved for
// the ID allocator and the commit marker; real chunk IDs start at 1.
package dynamo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/boazelbom-creator/etl2/core"
	"github.com/boazelbom-creator/etl2/storage"
)

// BatchWriteItem accepts at most 25 requests per call.
const maxBatchWriteItems = 25

// Config describes the DynamoDB sink connection.
type Config struct {
	Region    string
	Endpoint  string // optional, for DynamoDB Local
	TableName string
}

// ChunkSink implements storage.ChunkSink on DynamoDB.
//
// Commit provides per-item durability, not batch atomicity: staged chunks
// are flushed with BatchWriteItem pages and any unprocessed leftovers are
// reported as a commit failure.
type ChunkSink struct {
	client    dynamodbiface.DynamoDBAPI
	tableName string
	staged    []*core.Chunk
	failed    bool
}

var _ storage.ChunkSink = (*ChunkSink)(nil)
var _ storage.CommitMarkerReader = (*ChunkSink)(nil)

// chunkItem is the DynamoDB shape of a core.Chunk. Timestamps are stored
// as RFC 3339 strings; a nil post timestamp is omitted.
type chunkItem struct {
	ChunkID         int64  `dynamodbav:"chunk_id"`
	PostID          string `dynamodbav:"post_id"`
	Timestamp       string `dynamodbav:"timestamp,omitempty"`
	FullChunk       string `dynamodbav:"full_chunk"`
	EngagementScore int64  `dynamodbav:"engagement_score"`
	CreatedAt       string `dynamodbav:"created_at"`
}

// markerItem is the reserved item at chunk_id 0: the ID allocator counter
// plus the commit marker.
type markerItem struct {
	NextID    int64  `dynamodbav:"next_id"`
	Commits   int64  `dynamodbav:"commits"`
	Records   int64  `dynamodbav:"records"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// NewChunkSink connects to DynamoDB and ensures the chunk table exists,
// creating it when missing.
func NewChunkSink(cfg Config) (*ChunkSink, error) {
	if cfg.TableName == "" {
		return nil, errors.New("table name is required")
	}

	awsConfig := &aws.Config{
		Region: aws.String(cfg.Region),
	}

	// For local testing with DynamoDB Local
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	sink := &ChunkSink{
		client:    dynamodb.New(sess),
		tableName: cfg.TableName,
	}

	if err := sink.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure table exists: %w", err)
	}

	return sink, nil
}

// ensureTable creates the chunk table if it doesn't exist.
func (s *ChunkSink) ensureTable() error {
	_, err := s.client.DescribeTable(&dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err == nil {
		return nil
	}

	input := &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		KeySchema: []*dynamodb.KeySchemaElement{
			{
				AttributeName: aws.String("chunk_id"),
				KeyType:       aws.String("HASH"),
			},
		},
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{
				AttributeName: aws.String("chunk_id"),
				AttributeType: aws.String("N"),
			},
		},
		BillingMode: aws.String("PAY_PER_REQUEST"),
	}

	if _, err := s.client.CreateTable(input); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	return s.client.WaitUntilTableExists(&dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
}

// Close discards any staged chunks. The DynamoDB client holds no
// connection state that needs releasing.
func (s *ChunkSink) Close() error {
	s.staged = nil
	return nil
}

// Stage buffers the chunk in memory until the next Commit.
func (s *ChunkSink) Stage(ctx context.Context, chunk *core.Chunk) error {
	if s.failed {
		return storage.ErrStorageClosed
	}
	if err := core.ValidateChunk(chunk); err != nil {
		return err
	}

	s.staged = append(s.staged, chunk)
	return nil
}

// Commit assigns IDs to the staged chunks from the allocator item, writes
// them in BatchWriteItem pages and advances the commit marker. Committing
// with nothing staged is a no-op. After a failed commit the sink refuses
// further work.
func (s *ChunkSink) Commit(ctx context.Context) error {
	if s.failed {
		return storage.ErrStorageClosed
	}
	if len(s.staged) == 0 {
		return nil
	}

	if err := s.commit(ctx); err != nil {
		s.failed = true
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}

	s.staged = nil
	return nil
}

func (s *ChunkSink) commit(ctx context.Context) error {
	firstID, err := s.allocateIDs(ctx, len(s.staged))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	writes := make([]*dynamodb.WriteRequest, 0, len(s.staged))
	for i, chunk := range s.staged {
		chunk.ID = firstID + int64(i)
		chunk.CreatedAt = now

		item, err := dynamodbattribute.MarshalMap(newChunkItem(chunk))
		if err != nil {
			return fmt.Errorf("failed to marshal chunk %d: %w", chunk.ID, err)
		}
		writes = append(writes, &dynamodb.WriteRequest{
			PutRequest: &dynamodb.PutRequest{Item: item},
		})
	}

	if err := s.batchWrite(ctx, writes); err != nil {
		return err
	}

	return s.updateMarker(ctx, now, len(s.staged))
}

// allocateIDs reserves a contiguous block of chunk IDs by adding count to
// the allocator counter. Returns the first ID of the block.
func (s *ChunkSink) allocateIDs(ctx context.Context, count int) (int64, error) {
	out, err := s.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"chunk_id": {N: aws.String("0")},
		},
		UpdateExpression: aws.String("ADD next_id :count"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":count": {N: aws.String(strconv.Itoa(count))},
		},
		ReturnValues: aws.String(dynamodb.ReturnValueUpdatedNew),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to allocate chunk IDs: %w", err)
	}

	attr, ok := out.Attributes["next_id"]
	if !ok || attr.N == nil {
		return 0, errors.New("failed to allocate chunk IDs: no counter value returned")
	}
	end, err := strconv.ParseInt(*attr.N, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse allocated chunk ID: %w", err)
	}

	return end - int64(count) + 1, nil
}

// updateMarker advances the commit marker after a successful flush.
func (s *ChunkSink) updateMarker(ctx context.Context, now time.Time, records int) error {
	_, err := s.client.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"chunk_id": {N: aws.String("0")},
		},
		UpdateExpression: aws.String("ADD commits :one, records :records SET updated_at = :now"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":one":     {N: aws.String("1")},
			":records": {N: aws.String(strconv.Itoa(records))},
			":now":     {S: aws.String(now.Format(time.RFC3339Nano))},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to update commit marker: %w", err)
	}
	return nil
}

// batchWrite flushes write requests in pages of maxBatchWriteItems.
// Unprocessed leftovers are an error, never retried here.
func (s *ChunkSink) batchWrite(ctx context.Context, writes []*dynamodb.WriteRequest) error {
	for start := 0; start < len(writes); start += maxBatchWriteItems {
		end := min(start+maxBatchWriteItems, len(writes))

		out, err := s.client.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]*dynamodb.WriteRequest{
				s.tableName: writes[start:end],
			},
		})
		if err != nil {
			return fmt.Errorf("failed to write batch: %w", err)
		}
		if unprocessed := len(out.UnprocessedItems[s.tableName]); unprocessed > 0 {
			return fmt.Errorf("%d items left unprocessed", unprocessed)
		}
	}
	return nil
}

// Count reports the number of committed chunks. The allocator item is
// excluded.
func (s *ChunkSink) Count(ctx context.Context) (int64, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		Select:           aws.String(dynamodb.SelectCount),
		FilterExpression: aws.String("chunk_id <> :marker"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":marker": {N: aws.String("0")},
		},
	}

	var count int64
	for {
		out, err := s.client.ScanWithContext(ctx, input)
		if err != nil {
			return 0, fmt.Errorf("failed to count chunks: %w", err)
		}
		count += aws.Int64Value(out.Count)

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return count, nil
}

// Reset removes every chunk together with the allocator item and discards
// anything staged.
func (s *ChunkSink) Reset(ctx context.Context) error {
	s.staged = nil

	input := &dynamodb.ScanInput{
		TableName:            aws.String(s.tableName),
		ProjectionExpression: aws.String("chunk_id"),
	}

	var deletes []*dynamodb.WriteRequest
	for {
		out, err := s.client.ScanWithContext(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to scan chunks for reset: %w", err)
		}
		for _, item := range out.Items {
			deletes = append(deletes, &dynamodb.WriteRequest{
				DeleteRequest: &dynamodb.DeleteRequest{
					Key: map[string]*dynamodb.AttributeValue{"chunk_id": item["chunk_id"]},
				},
			})
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	if err := s.batchWrite(ctx, deletes); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

// Verify checks that the chunk table exists and is reachable.
func (s *ChunkSink) Verify(ctx context.Context) error {
	if s.failed {
		return storage.ErrStorageClosed
	}

	_, err := s.client.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == dynamodb.ErrCodeResourceNotFoundException {
			return fmt.Errorf("%w: table %s", storage.ErrNotFound, s.tableName)
		}
		return fmt.Errorf("failed to describe table %s: %w", s.tableName, err)
	}
	return nil
}

// CommitMarker reads the commit marker from the allocator item. A missing
// item yields a zero marker.
func (s *ChunkSink) CommitMarker(ctx context.Context) (*core.CommitMarker, error) {
	out, err := s.client.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]*dynamodb.AttributeValue{
			"chunk_id": {N: aws.String("0")},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read commit marker: %w", err)
	}
	if len(out.Item) == 0 {
		return &core.CommitMarker{}, nil
	}

	var item markerItem
	if err := dynamodbattribute.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	marker := &core.CommitMarker{
		Commits: item.Commits,
		Records: item.Records,
	}
	if item.UpdatedAt != "" {
		updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
		}
		marker.UpdatedAt = updatedAt
	}
	return marker, nil
}

func newChunkItem(chunk *core.Chunk) chunkItem {
	item := chunkItem{
		ChunkID:         chunk.ID,
		PostID:          chunk.PostID,
		FullChunk:       chunk.Text,
		EngagementScore: chunk.EngagementScore,
		CreatedAt:       chunk.CreatedAt.Format(time.RFC3339Nano),
	}
	if chunk.Timestamp != nil {
		item.Timestamp = chunk.Timestamp.Format(time.RFC3339Nano)
	}
	return item
}
