package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kirillkom/docqa/internal/core/domain"
)

const DefaultTable = "UpDoc"

// API is the subset of the DynamoDB client the catalog needs.
type API interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// CatalogRepository appends and scans catalog records in one DynamoDB table keyed by id.
type CatalogRepository struct {
	client API
	table  string
}

func NewCatalogRepository(client API, table string) *CatalogRepository {
	if strings.TrimSpace(table) == "" {
		table = DefaultTable
	}
	return &CatalogRepository{client: client, table: table}
}

func NewFromConfig(cfg aws.Config, table string) *CatalogRepository {
	return NewCatalogRepository(dynamodb.NewFromConfig(cfg), table)
}

// Append writes record once; an existing id is rejected rather than overwritten.
func (r *CatalogRepository) Append(ctx context.Context, record domain.CatalogRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("marshal catalog record: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return classify("dynamodb put item", err)
	}
	return nil
}

func (r *CatalogRepository) Scan(ctx context.Context) ([]domain.CatalogRecord, error) {
	out := make([]domain.CatalogRecord, 0)
	paginator := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName: aws.String(r.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, classify("dynamodb scan", err)
		}
		var records []domain.CatalogRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &records); err != nil {
			return nil, fmt.Errorf("unmarshal catalog records: %w", err)
		}
		out = append(out, records...)
	}
	return out, nil
}

func (r *CatalogRepository) Get(ctx context.Context, id string) (domain.CatalogRecord, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return domain.CatalogRecord{}, classify("dynamodb get item", err)
	}
	if len(out.Item) == 0 {
		return domain.CatalogRecord{}, domain.WrapError(domain.ErrNotFound, "dynamodb get item", errors.New("record "+id))
	}
	var record domain.CatalogRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return domain.CatalogRecord{}, fmt.Errorf("unmarshal catalog record: %w", err)
	}
	return record, nil
}
