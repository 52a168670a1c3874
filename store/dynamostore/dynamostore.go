// Package dynamostore reads user and event masks from a DynamoDB table.
//
// Table schema:
//   - Partition key: kind (string) - "user" or "event"
//   - Sort key: id (number)
//   - Attribute mask (binary)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name slotmatch \
//	  --attribute-definitions AttributeName=kind,AttributeType=S AttributeName=id,AttributeType=N \
//	  --key-schema AttributeName=kind,KeyType=HASH AttributeName=id,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
package dynamostore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/hupe1980/slotmatch/store"
)

const (
	kindUser  = "user"
	kindEvent = "event"

	// maxBatchWrite is DynamoDB's BatchWriteItem limit.
	maxBatchWrite = 25
	// maxQueryPage caps items requested per Query call.
	maxQueryPage = 1000
	// maxBatchAttempts bounds resubmission of unprocessed items.
	maxBatchAttempts = 8
)

// ErrMalformedItem is returned when an item lacks a valid id or mask.
var ErrMalformedItem = errors.New("dynamostore: malformed item")

// Client is the interface for DynamoDB operations.
type Client interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Store implements store.Source over one DynamoDB table.
type Store struct {
	client    Client
	tableName string
}

// New creates a store reading from tableName.
func New(client Client, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

func (s *Store) query(kind string) *dynamodb.QueryInput {
	return &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#k = :k"),
		ExpressionAttributeNames: map[string]string{
			"#k": "kind",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":k": &types.AttributeValueMemberS{Value: kind},
		},
		ScanIndexForward: aws.Bool(true),
		ConsistentRead:   aws.Bool(true),
	}
}

// scan pages through kind in ascending id order, skipping the first skip
// items and returning at most limit (limit < 0 means all).
func (s *Store) scan(ctx context.Context, kind string, skip, limit int) ([]store.Record, error) {
	var (
		out      []store.Record
		startKey map[string]types.AttributeValue
		seen     int
	)
	for {
		in := s.query(kind)
		in.ExclusiveStartKey = startKey
		page := maxQueryPage
		if limit >= 0 {
			page = min(page, skip+limit-seen)
		}
		in.Limit = aws.Int32(int32(page))

		resp, err := s.client.Query(ctx, in)
		if err != nil {
			return nil, err
		}
		for _, item := range resp.Items {
			if seen >= skip {
				r, err := decodeItem(item)
				if err != nil {
					return nil, err
				}
				out = append(out, r)
			}
			seen++
		}
		if len(resp.LastEvaluatedKey) == 0 || (limit >= 0 && seen >= skip+limit) {
			return out, nil
		}
		startKey = resp.LastEvaluatedKey
	}
}

// LoadAllUserMasks implements store.UserSource.
func (s *Store) LoadAllUserMasks(ctx context.Context) ([]store.Record, error) {
	out, err := s.scan(ctx, kindUser, 0, -1)
	if err != nil {
		return nil, wrap("load_users", err)
	}
	return out, nil
}

// LoadEventsPage implements store.EventSource. DynamoDB has no offsets, so
// the first skip events are read and discarded.
func (s *Store) LoadEventsPage(ctx context.Context, skip, take int) ([]store.Record, error) {
	if err := store.CheckPage(skip, take); err != nil {
		return nil, err
	}
	if take == 0 {
		return nil, nil
	}
	out, err := s.scan(ctx, kindEvent, skip, take)
	if err != nil {
		return nil, wrap("load_events", err)
	}
	return out, nil
}

// CountEvents implements store.EventSource.
func (s *Store) CountEvents(ctx context.Context) (int, error) {
	in := s.query(kindEvent)
	in.Select = types.SelectCount

	total := 0
	p := dynamodb.NewQueryPaginator(s.client, in)
	for p.HasMorePages() {
		resp, err := p.NextPage(ctx)
		if err != nil {
			return 0, wrap("count_events", err)
		}
		total += int(resp.Count)
	}
	return total, nil
}

// PutUsers writes user records, replacing existing ids.
func (s *Store) PutUsers(ctx context.Context, records []store.Record) error {
	return wrap("put_users", s.put(ctx, kindUser, records))
}

// PutEvents writes event records, replacing existing ids.
func (s *Store) PutEvents(ctx context.Context, records []store.Record) error {
	return wrap("put_events", s.put(ctx, kindEvent, records))
}

func (s *Store) put(ctx context.Context, kind string, records []store.Record) error {
	for start := 0; start < len(records); start += maxBatchWrite {
		chunk := records[start:min(start+maxBatchWrite, len(records))]
		reqs := make([]types.WriteRequest, len(chunk))
		for i, r := range chunk {
			reqs[i] = types.WriteRequest{PutRequest: &types.PutRequest{Item: encodeItem(kind, r)}}
		}

		pending := map[string][]types.WriteRequest{s.tableName: reqs}
		for attempt := 0; len(pending) > 0; attempt++ {
			if attempt == maxBatchAttempts {
				return fmt.Errorf("dynamostore: %d items still unprocessed after %d attempts", len(pending[s.tableName]), attempt)
			}
			resp, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
			if err != nil {
				return err
			}
			pending = resp.UnprocessedItems
		}
	}
	return nil
}

func encodeItem(kind string, r store.Record) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"kind": &types.AttributeValueMemberS{Value: kind},
		"id":   &types.AttributeValueMemberN{Value: strconv.FormatInt(r.ID, 10)},
		"mask": &types.AttributeValueMemberB{Value: r.Mask},
	}
}

func decodeItem(item map[string]types.AttributeValue) (store.Record, error) {
	idAttr, ok := item["id"].(*types.AttributeValueMemberN)
	if !ok {
		return store.Record{}, fmt.Errorf("%w: missing id", ErrMalformedItem)
	}
	id, err := strconv.ParseInt(idAttr.Value, 10, 64)
	if err != nil {
		return store.Record{}, fmt.Errorf("%w: id %q: %w", ErrMalformedItem, idAttr.Value, err)
	}
	maskAttr, ok := item["mask"].(*types.AttributeValueMemberB)
	if !ok {
		return store.Record{}, fmt.Errorf("%w: id %d has no binary mask", ErrMalformedItem, id)
	}
	return store.Record{ID: id, Mask: maskAttr.Value}, nil
}

// wrap reports storage failures as store.ErrUnavailable and leaves
// cancellation alone.
func wrap(op string, err error) error {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return store.Unavailable(op, err)
}
