package services

import (
	"context"
	"encoding/json"
	"fmt"

	"airdrop-campaign/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoAPI is the part of the DynamoDB client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoConfig selects the table and, for local development, an endpoint.
type DynamoConfig struct {
	Region   string
	Table    string
	Endpoint string
}

type snapshotItem struct {
	Wallet      string `dynamodbav:"wallet"`
	Snapshot    string `dynamodbav:"snapshot"`
	TotalPoints int64  `dynamodbav:"total_points"`
	UpdatedAt   int64  `dynamodbav:"updated_at"` // epoch ms
}

// DynamoStore keeps one item per wallet holding the JSON snapshot.
type DynamoStore struct {
	db        DynamoAPI
	tableName string
}

func NewDynamoStore(ctx context.Context, cfg DynamoConfig) (*DynamoStore, error) {
	if cfg.Table == "" {
		return nil, fmt.Errorf("DYNAMO_TABLE is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-2"
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewDynamoStoreWithClient(client, cfg.Table), nil
}

// NewDynamoStoreWithClient wraps an existing client.
func NewDynamoStoreWithClient(db DynamoAPI, table string) *DynamoStore {
	return &DynamoStore{db: db, tableName: table}
}

func (s *DynamoStore) Load(ctx context.Context, wallet string) (*models.Ledger, error) {
	out, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"wallet": &types.AttributeValueMemberS{Value: wallet},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("load snapshot for %s: %w", wallet, err)
	}
	if out.Item == nil {
		return nil, ErrSnapshotNotFound
	}

	var item snapshotItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSnapshot, err)
	}
	return decodeSnapshot([]byte(item.Snapshot))
}

func (s *DynamoStore) Save(ctx context.Context, wallet string, l *models.Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode snapshot for %s: %w", wallet, err)
	}
	item, err := attributevalue.MarshalMap(snapshotItem{
		Wallet:      wallet,
		Snapshot:    string(data),
		TotalPoints: l.TotalPoints,
		UpdatedAt:   l.LastUpdated.UnixMilli(),
	})
	if err != nil {
		return err
	}

	_, err = s.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("save snapshot for %s: %w", wallet, err)
	}
	return nil
}
