package store

import (
	"context"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/session"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DynamoAPI is the subset of the DynamoDB client the session store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// NewDynamoDBClient builds a client for region. A non-empty endpoint
// overrides the service URL, e.g. for DynamoDB Local.
func NewDynamoDBClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

// DynamoSessionStore keeps one item per session keyed by session_id. The
// cart is stored as a JSON string attribute.
type DynamoSessionStore struct {
	client    DynamoAPI
	tableName string
	now       func() time.Time
}

// dynamoSession represents the DynamoDB item structure
type dynamoSession struct {
	SessionID string `dynamodbav:"session_id"`
	UserID    *int   `dynamodbav:"user_id,omitempty"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
	ExpiresAt string `dynamodbav:"expires_at"`
	IPAddress string `dynamodbav:"ip_address"`
	UserAgent string `dynamodbav:"user_agent"`
	CartData  string `dynamodbav:"cart_data"`
	Version   int64  `dynamodbav:"version"`
}

func NewDynamoSessionStore(client DynamoAPI, tableName string) *DynamoSessionStore {
	return &DynamoSessionStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

func (s *DynamoSessionStore) Find(ctx context.Context, id uuid.UUID) (*session.Record, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            sessionKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, unavailable(err, "find session %s", id)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}

	var item dynamoSession
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, false, errors.Wrapf(err, "unmarshal session %s", id)
	}
	r, err := item.record()
	if err != nil {
		return nil, false, errors.Wrapf(err, "decode session %s", id)
	}
	return r, true, nil
}

func (s *DynamoSessionStore) Create(ctx context.Context, ipAddress, userAgent string) (*session.Record, error) {
	r := session.NewRecord(ipAddress, userAgent, s.now().UTC())

	av, err := attributevalue.MarshalMap(newDynamoSession(r))
	if err != nil {
		return nil, errors.Wrap(err, "marshal session")
	}

	// Use conditional write so a uuid collision cannot overwrite a live session
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(session_id)"),
	})
	if err != nil {
		return nil, unavailable(err, "create session")
	}
	return r, nil
}

// UpdateCart is conditional on the stored version. The old item comes back
// on a failed condition, which tells a missing session from a lost race.
func (s *DynamoSessionStore) UpdateCart(ctx context.Context, id uuid.UUID, version int64, c cart.Cart) (int64, error) {
	data, err := session.EncodeCart(c)
	if err != nil {
		return 0, err
	}

	next := version + 1
	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 sessionKey(id),
		UpdateExpression:    aws.String("SET cart_data = :cart, updated_at = :updated, version = :next"),
		ConditionExpression: aws.String("attribute_exists(session_id) AND version = :prev"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cart":    &types.AttributeValueMemberS{Value: string(data)},
			":updated": &types.AttributeValueMemberS{Value: s.now().UTC().Format(time.RFC3339Nano)},
			":prev":    &types.AttributeValueMemberN{Value: strconv.FormatInt(version, 10)},
			":next":    &types.AttributeValueMemberN{Value: strconv.FormatInt(next, 10)},
		},
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		if len(condErr.Item) == 0 {
			return 0, errors.Wrapf(session.ErrSessionRowMissing, "update cart for session %s", id)
		}
		return 0, errors.Wrapf(session.ErrCartConflict, "update cart for session %s at version %d", id, version)
	}
	if err != nil {
		return 0, unavailable(err, "update cart for session %s", id)
	}
	return next, nil
}

func sessionKey(id uuid.UUID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"session_id": &types.AttributeValueMemberS{Value: id.String()},
	}
}

func newDynamoSession(r *session.Record) dynamoSession {
	return dynamoSession{
		SessionID: r.ID.String(),
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt: r.UpdatedAt.Format(time.RFC3339Nano),
		ExpiresAt: r.ExpiresAt.Format(time.RFC3339Nano),
		IPAddress: r.IPAddress,
		UserAgent: r.UserAgent,
		CartData:  string(r.CartData),
		Version:   r.Version,
	}
}

func (d dynamoSession) record() (*session.Record, error) {
	id, err := uuid.Parse(d.SessionID)
	if err != nil {
		return nil, err
	}
	r := &session.Record{
		ID:        id,
		UserID:    d.UserID,
		IPAddress: d.IPAddress,
		UserAgent: d.UserAgent,
		CartData:  []byte(d.CartData),
		Version:   d.Version,
	}
	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&r.CreatedAt, d.CreatedAt},
		{&r.UpdatedAt, d.UpdatedAt},
		{&r.ExpiresAt, d.ExpiresAt},
	} {
		if *f.dst, err = time.Parse(time.RFC3339Nano, f.src); err != nil {
			return nil, err
		}
	}
	return r, nil
}

var _ session.Store = (*DynamoSessionStore)(nil)
