package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"scorer-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// usernameLowerAttr backs case-insensitive prefix search, which DynamoDB
// filter expressions cannot do on their own.
const usernameLowerAttr = "username_lower"

// batchGetLimit is the BatchGetItem key limit
const batchGetLimit = 100

// DynamoUserRepository stores users in a DynamoDB table keyed by auth_id.
// Relationship lists are string sets so ADD and DELETE are atomic.
type DynamoUserRepository struct {
	client DynamoAPI
	table  string
}

// NewDynamoUserRepository creates a new DynamoDB user repository
func NewDynamoUserRepository(client DynamoAPI, table string) *DynamoUserRepository {
	return &DynamoUserRepository{client: client, table: table}
}

func (r *DynamoUserRepository) key(authID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"auth_id": str(authID)}
}

func decodeUser(item map[string]types.AttributeValue) (*models.User, error) {
	var user models.User
	if err := attributevalue.UnmarshalMap(item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

// Create inserts a new user unless one with the same auth_id exists
func (r *DynamoUserRepository) Create(ctx context.Context, user *models.User) error {
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if user.Username != nil {
		item[usernameLowerAttr] = str(strings.ToLower(*user.Username))
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(auth_id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("failed to create user: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to put user in table '%s': %w", r.table, err)
	}
	return nil
}

// GetByAuthID retrieves a user by identity subject id
func (r *DynamoUserRepository) GetByAuthID(ctx context.Context, authID string) (*models.User, error) {
	output, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            r.key(authID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user from table '%s': %w", r.table, err)
	}
	if output.Item == nil {
		return nil, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return decodeUser(output.Item)
}

// GetByUsername retrieves a user by username
func (r *DynamoUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var found *models.User
	err := scanAll(ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          aws.String("#name = :u"),
		ExpressionAttributeNames:  map[string]string{"#name": "username"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": str(username)},
	}, func(item map[string]types.AttributeValue) error {
		if found != nil {
			return nil
		}
		user, err := decodeUser(item)
		found = user
		return err
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("user not found: %w", ErrNotFound)
	}
	return found, nil
}

// ListByAuthIDs retrieves every user whose id is in authIDs
func (r *DynamoUserRepository) ListByAuthIDs(ctx context.Context, authIDs []string) ([]*models.User, error) {
	var users []*models.User
	for _, ids := range chunk(dedupe(authIDs), batchGetLimit) {
		keys := make([]map[string]types.AttributeValue, 0, len(ids))
		for _, id := range ids {
			keys = append(keys, r.key(id))
		}

		request := map[string]types.KeysAndAttributes{r.table: {Keys: keys}}
		for len(request) > 0 {
			output, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, fmt.Errorf("failed to batch get users: %w", err)
			}
			for _, item := range output.Responses[r.table] {
				user, err := decodeUser(item)
				if err != nil {
					return nil, err
				}
				users = append(users, user)
			}
			request = output.UnprocessedKeys
		}
	}

	slices.SortFunc(users, func(a, b *models.User) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return users, nil
}

// SearchByUsernamePrefix finds registered users whose username starts with
// prefix, case-insensitively
func (r *DynamoUserRepository) SearchByUsernamePrefix(ctx context.Context, prefix, excludeAuthID string, limit int) ([]*models.User, error) {
	var users []*models.User
	err := scanAll(ctx, r.client, &dynamodb.ScanInput{
		TableName:                aws.String(r.table),
		FilterExpression:         aws.String("begins_with(#lower, :p) AND auth_id <> :me"),
		ExpressionAttributeNames: map[string]string{"#lower": usernameLowerAttr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":  str(strings.ToLower(prefix)),
			":me": str(excludeAuthID),
		},
	}, func(item map[string]types.AttributeValue) error {
		user, err := decodeUser(item)
		if err != nil {
			return err
		}
		users = append(users, user)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(users, func(a, b *models.User) int {
		return strings.Compare(a.DisplayName(), b.DisplayName())
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// SetProfile completes registration of an existing user
func (r *DynamoUserRepository) SetProfile(ctx context.Context, authID, username, email string) error {
	createdAt, err := attributevalue.Marshal(time.Now())
	if err != nil {
		return fmt.Errorf("failed to marshal timestamp: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(r.table),
		Key:                      r.key(authID),
		UpdateExpression:         aws.String("SET #name = :u, #lower = :l, email = :e, created_at = :c"),
		ConditionExpression:      aws.String("attribute_exists(auth_id)"),
		ExpressionAttributeNames: map[string]string{"#name": "username", "#lower": usernameLowerAttr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": str(username),
			":l": str(strings.ToLower(username)),
			":e": str(email),
			":c": createdAt,
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to update user in table '%s': %w", r.table, err)
	}
	return nil
}

// AddRelation adds otherID to one of the user's relationship sets
func (r *DynamoUserRepository) AddRelation(ctx context.Context, authID string, rel Relation, otherID string) error {
	if !rel.Valid() {
		return fmt.Errorf("unknown relation %q", rel)
	}
	return r.updateRelations(ctx, authID, "ADD #rel :v", map[string]string{"#rel": string(rel)}, otherID)
}

// RemoveRelation removes otherID from one of the user's relationship sets
func (r *DynamoUserRepository) RemoveRelation(ctx context.Context, authID string, rel Relation, otherID string) error {
	if !rel.Valid() {
		return fmt.Errorf("unknown relation %q", rel)
	}
	return r.updateRelations(ctx, authID, "DELETE #rel :v", map[string]string{"#rel": string(rel)}, otherID)
}

// MoveRelation moves otherID between two sets in a single update
func (r *DynamoUserRepository) MoveRelation(ctx context.Context, authID string, from, to Relation, otherID string) error {
	if !from.Valid() || !to.Valid() {
		return fmt.Errorf("unknown relation %q -> %q", from, to)
	}
	return r.updateRelations(ctx, authID, "DELETE #from :v ADD #to :v",
		map[string]string{"#from": string(from), "#to": string(to)}, otherID)
}

func (r *DynamoUserRepository) updateRelations(ctx context.Context, authID, expr string, names map[string]string, otherID string) error {
	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       r.key(authID),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(auth_id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": stringSet(otherID)},
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("user not found: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to update relations in table '%s': %w", r.table, err)
	}
	return nil
}

// Ping checks that the users table is reachable
func (r *DynamoUserRepository) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.table)})
	if err != nil {
		return fmt.Errorf("failed to describe table '%s': %w", r.table, err)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
