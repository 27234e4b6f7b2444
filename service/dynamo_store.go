package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	// DynamoDB caps a single TransactWriteItems call at 100 items.
	maxTransactItems = 100

	tableCreationTimeout = 5 * time.Minute
)

// dynamoItem is the wire shape of one key-value entry.
type dynamoItem struct {
	K string `dynamodbav:"k"`
	V []byte `dynamodbav:"v"`
}

// DynamoStore is a Store backed by a single DynamoDB table keyed by the
// entry key. Apply maps to TransactWriteItems, so batches keep their
// all-or-nothing guarantee.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewDynamoStore creates a store over the given table.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

// EnsureTable creates the backing table if it does not exist yet and
// waits for it to become active.
func (s *DynamoStore) EnsureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	})
	if err == nil {
		return nil
	}
	var notFoundEx *types.ResourceNotFoundException
	if !errors.As(err, &notFoundEx) {
		return fmt.Errorf("failed to check table existence for %s: %w", s.tableName, err)
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("k"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("k"),
				KeyType:       types.KeyTypeHash,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var resourceInUseEx *types.ResourceInUseException
		if errors.As(err, &resourceInUseEx) {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", s.tableName, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, tableCreationTimeout)
	defer cancel()

	waiter := dynamodb.NewTableExistsWaiter(s.client)
	err = waiter.Wait(waitCtx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.tableName),
	}, tableCreationTimeout)
	if err != nil {
		return fmt.Errorf("failed waiting for table %s to be active: %w", s.tableName, err)
	}
	return nil
}

func (s *DynamoStore) itemKey(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"k": &types.AttributeValueMemberS{Value: key},
	}
}

func (s *DynamoStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	// Strongly consistent so exists-checks observe the latest write.
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to get item from table %s: %w", s.tableName, err)
	}
	if result.Item == nil {
		return nil, false, nil
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return item.V, true, nil
}

func (s *DynamoStore) Put(ctx context.Context, key string, value []byte) error {
	item, err := attributevalue.MarshalMap(dynamoItem{K: key, V: value})
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to put item to table %s: %w", s.tableName, err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, key string) (bool, error) {
	result, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:    aws.String(s.tableName),
		Key:          s.itemKey(key),
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete item from table %s: %w", s.tableName, err)
	}
	return len(result.Attributes) > 0, nil
}

func (s *DynamoStore) ListPrefix(ctx context.Context, prefix string) ([]Pair, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("k").BeginsWith(prefix)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}

	var pairs []Pair
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		FilterExpression:          expr.Filter(),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan failed for table %s: %w", s.tableName, err)
		}

		var items []dynamoItem
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal scan results: %w", err)
		}
		for _, item := range items {
			pairs = append(pairs, Pair{Key: item.K, Value: item.V})
		}
	}

	// Scan pages arrive in hash order; callers expect ascending keys.
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs, nil
}

func (s *DynamoStore) Apply(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > maxTransactItems {
		return fmt.Errorf("apply batch of %d exceeds the %d item transaction limit", len(ops), maxTransactItems)
	}

	transactItems := make([]types.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case OpPut, OpPutIfAbsent:
			item, err := attributevalue.MarshalMap(dynamoItem{K: op.Key, V: op.Value})
			if err != nil {
				return fmt.Errorf("failed to marshal item: %w", err)
			}
			put := &types.Put{
				TableName: aws.String(s.tableName),
				Item:      item,
			}
			if op.Kind == OpPutIfAbsent {
				put.ConditionExpression = aws.String("attribute_not_exists(k)")
			}
			transactItems = append(transactItems, types.TransactWriteItem{Put: put})
		case OpDelete:
			transactItems = append(transactItems, types.TransactWriteItem{
				Delete: &types.Delete{
					TableName: aws.String(s.tableName),
					Key:       s.itemKey(op.Key),
				},
			})
		}
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: transactItems,
	})
	if err != nil {
		var canceledEx *types.TransactionCanceledException
		if errors.As(err, &canceledEx) {
			for _, reason := range canceledEx.CancellationReasons {
				if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
					return ErrKeyExists
				}
			}
		}
		return fmt.Errorf("transaction write failed for table %s: %w", s.tableName, err)
	}
	return nil
}
