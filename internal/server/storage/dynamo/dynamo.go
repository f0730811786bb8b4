// Package dynamo implements the storage.Store contract over a DynamoDB table
// keyed (user_id, site) with GSIs over shared_with_groups and
// shared_with_users.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/runavault/runavault/internal/common"
	"github.com/runavault/runavault/internal/server/models"
)

// conditionNotExists guards every non-replace put: the write fails when a row
// with the same composite key is still extant.
const conditionNotExists = "attribute_not_exists(user_id) AND attribute_not_exists(site)"

// API is the subset of the DynamoDB client used by the store.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Config carries the table and index names. Passed in explicitly; nothing is
// read from the environment here.
type Config struct {
	TableName  string
	GroupIndex string
	UserIndex  string
}

type Store struct {
	client API
	cfg    Config
}

func NewStore(client API, cfg Config) *Store {
	return &Store{client: client, cfg: cfg}
}

func (s *Store) key(ownerID, sortKey string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: ownerID},
		"site":    &types.AttributeValueMemberS{Value: sortKey},
	}
}

func (s *Store) Get(ctx context.Context, ownerID, sortKey string) (*models.DistributionRecord, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.cfg.TableName),
		Key:       s.key(ownerID, sortKey),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo get: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}
	var rec models.DistributionRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

func (s *Store) Put(ctx context.Context, rec *models.DistributionRecord, replace bool) error {
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.cfg.TableName),
		Item:      item,
	}
	if !replace {
		input.ConditionExpression = aws.String(conditionNotExists)
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: user_id %s site %s", common.ErrDuplicate, rec.UserID, rec.SortKey)
		}
		return fmt.Errorf("dynamo put: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ownerID, sortKey string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.cfg.TableName),
		Key:       s.key(ownerID, sortKey),
	}); err != nil {
		return fmt.Errorf("dynamo delete: %w", err)
	}
	return nil
}

func (s *Store) QueryExact(ctx context.Context, ownerID, sortKey string) ([]models.DistributionRecord, error) {
	return s.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.cfg.TableName),
		KeyConditionExpression: aws.String("user_id = :user_id AND site = :site"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: ownerID},
			":site":    &types.AttributeValueMemberS{Value: sortKey},
		},
	})
}

func (s *Store) QueryPrefix(ctx context.Context, ownerID, prefix string) ([]models.DistributionRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.cfg.TableName),
		KeyConditionExpression: aws.String("user_id = :user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: ownerID},
		},
	}
	if prefix != "" {
		input.KeyConditionExpression = aws.String("user_id = :user_id AND begins_with(site, :prefix)")
		input.ExpressionAttributeValues[":prefix"] = &types.AttributeValueMemberS{Value: prefix}
	}
	return s.query(ctx, input)
}

func (s *Store) QueryByGroup(ctx context.Context, group, subdirectory string) ([]models.DistributionRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.cfg.TableName),
		IndexName:              aws.String(s.cfg.GroupIndex),
		KeyConditionExpression: aws.String("shared_with_groups = :group_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":group_id": &types.AttributeValueMemberS{Value: group},
		},
	}
	if subdirectory != "" {
		input.FilterExpression = aws.String("subdirectory = :subdirectory")
		input.ExpressionAttributeValues[":subdirectory"] = &types.AttributeValueMemberS{Value: subdirectory}
	}
	return s.query(ctx, input)
}

func (s *Store) QueryByUser(ctx context.Context, userID string) ([]models.DistributionRecord, error) {
	return s.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.cfg.TableName),
		IndexName:              aws.String(s.cfg.UserIndex),
		KeyConditionExpression: aws.String("shared_with_users = :user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
}

// query runs one QueryInput to completion, following pagination.
func (s *Store) query(ctx context.Context, input *dynamodb.QueryInput) ([]models.DistributionRecord, error) {
	var records []models.DistributionRecord
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("dynamo query: %w", err)
		}
		var page []models.DistributionRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal records: %w", err)
		}
		records = append(records, page...)
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return records, nil
}
