package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"skh-agent/internal/domain"
)

const (
	pkPrefixGen  = "GEN#"
	skPrefixKind = "KIND#"
	defaultTTL   = 30 * 24 * time.Hour
)

// dynamodbAPI is the minimal DynamoDB interface required by Client.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Client caches completion outputs in a DynamoDB table keyed by idea hash
// and kind. Expired rows are removed by the table's TTL on "ttl".
type Client struct {
	api       dynamodbAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// New creates a cache Client. A non-positive ttl uses 30 days.
func New(api dynamodbAPI, tableName string, ttl time.Duration) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Client{api: api, tableName: tableName, ttl: ttl, now: time.Now}, nil
}

func genPK(key string) string {
	return pkPrefixGen + key
}

func kindSK(kind string) string {
	return skPrefixKind + kind
}

// GetGeneration returns the cached output for key and kind. Rows past their
// TTL that DynamoDB has not yet deleted are reported as misses.
func (c *Client) GetGeneration(ctx context.Context, key, kind string) (domain.Generation, bool, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: genPK(key)},
			"SK": &types.AttributeValueMemberS{Value: kindSK(kind)},
		},
	})
	if err != nil {
		return domain.Generation{}, false, fmt.Errorf("repository: GetGeneration get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.Generation{}, false, nil
	}

	gen, err := itemToGeneration(out.Item)
	if err != nil {
		return domain.Generation{}, false, fmt.Errorf("repository: GetGeneration unmarshal: %w", err)
	}
	if gen.TTL > 0 && gen.TTL <= c.now().Unix() {
		return domain.Generation{}, false, nil
	}
	return gen, true, nil
}

// PutGeneration stores or replaces a cached output, stamping CreatedAt and TTL.
func (c *Client) PutGeneration(ctx context.Context, gen domain.Generation) error {
	if gen.Key == "" || gen.Kind == "" {
		return errors.New("repository: PutGeneration: key and kind are required")
	}
	now := c.now().UTC()
	gen.CreatedAt = now
	gen.TTL = now.Add(c.ttl).Unix()

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      generationItem(gen),
	})
	if err != nil {
		return fmt.Errorf("repository: PutGeneration: %w", err)
	}
	return nil
}

func generationItem(gen domain.Generation) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: genPK(gen.Key)},
		"SK":        &types.AttributeValueMemberS{Value: kindSK(gen.Kind)},
		"kind":      &types.AttributeValueMemberS{Value: gen.Kind},
		"model":     &types.AttributeValueMemberS{Value: gen.Model},
		"output":    &types.AttributeValueMemberS{Value: gen.Output},
		"createdAt": &types.AttributeValueMemberS{Value: gen.CreatedAt.Format(time.RFC3339)},
		"ttl":       &types.AttributeValueMemberN{Value: strconv.FormatInt(gen.TTL, 10)},
	}
}

func itemToGeneration(item map[string]types.AttributeValue) (domain.Generation, error) {
	pk, err := strAttr(item, "PK")
	if err != nil {
		return domain.Generation{}, err
	}
	kind, err := strAttr(item, "kind")
	if err != nil {
		return domain.Generation{}, err
	}
	output, err := strAttr(item, "output")
	if err != nil {
		return domain.Generation{}, err
	}
	model, _ := strAttr(item, "model") // allow empty

	gen := domain.Generation{
		Key:    strings.TrimPrefix(pk, pkPrefixGen),
		Kind:   kind,
		Model:  model,
		Output: output,
	}
	if created, err := strAttr(item, "createdAt"); err == nil {
		if ts, perr := time.Parse(time.RFC3339, created); perr == nil {
			gen.CreatedAt = ts
		}
	}
	if ttl, err := int64Attr(item, "ttl"); err == nil {
		gen.TTL = ttl
	}
	return gen, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func int64Attr(item map[string]types.AttributeValue, key string) (int64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
