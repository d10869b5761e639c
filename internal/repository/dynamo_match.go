package repository

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"scorer-backend/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Filter expressions are capped at 4KB and IN takes at most 100 operands.
const (
	inOperandLimit   = 100
	containsOrLimit  = 40
	playerIDsAttr    = "player_ids"
	validatorIDsAttr = "validator_ids"
)

// DynamoMatchRepository stores matches in a DynamoDB table keyed by
// match_id. Saves are conditional on the stored version.
type DynamoMatchRepository struct {
	client DynamoAPI
	table  string
}

// NewDynamoMatchRepository creates a new DynamoDB match repository
func NewDynamoMatchRepository(client DynamoAPI, table string) *DynamoMatchRepository {
	return &DynamoMatchRepository{client: client, table: table}
}

func encodeMatch(match *models.Match) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(match)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal match: %w", err)
	}
	// Empty sets are not allowed, so the id sets are simply absent then.
	if ids := dedupe(match.PlayerIDs()); len(ids) > 0 {
		item[playerIDsAttr] = stringSet(ids...)
	}
	if ids := dedupe(match.ValidatorIDs()); len(ids) > 0 {
		item[validatorIDsAttr] = stringSet(ids...)
	}
	return item, nil
}

func decodeMatch(item map[string]types.AttributeValue) (*models.Match, error) {
	var match models.Match
	if err := attributevalue.UnmarshalMap(item, &match); err != nil {
		return nil, fmt.Errorf("failed to unmarshal match: %w", err)
	}
	return &match, nil
}

// Create inserts a new match at version 1
func (r *DynamoMatchRepository) Create(ctx context.Context, match *models.Match) error {
	match.Version = 1
	item, err := encodeMatch(match)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(match_id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("failed to create match: %w", ErrDuplicate)
		}
		return fmt.Errorf("failed to put match in table '%s': %w", r.table, err)
	}
	return nil
}

// GetByID retrieves a match by ID
func (r *DynamoMatchRepository) GetByID(ctx context.Context, matchID string) (*models.Match, error) {
	output, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            map[string]types.AttributeValue{"match_id": str(matchID)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get match from table '%s': %w", r.table, err)
	}
	if output.Item == nil {
		return nil, fmt.Errorf("match not found: %w", ErrNotFound)
	}
	return decodeMatch(output.Item)
}

// Save replaces the match if the stored version still matches
func (r *DynamoMatchRepository) Save(ctx context.Context, match *models.Match) error {
	expected := match.Version
	next := match.Clone()
	next.Version = expected + 1

	item, err := encodeMatch(next)
	if err != nil {
		return err
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.table),
		Item:                      item,
		ConditionExpression:       aws.String("#version = :v"),
		ExpressionAttributeNames:  map[string]string{"#version": "version"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberN{Value: strconv.Itoa(expected)}},
	})
	if err != nil {
		if isConditionFailed(err) {
			if _, getErr := r.GetByID(ctx, match.MatchID); getErr != nil {
				return getErr
			}
			return fmt.Errorf("failed to save match %s: %w", match.MatchID, ErrVersionConflict)
		}
		return fmt.Errorf("failed to put match in table '%s': %w", r.table, err)
	}
	match.Version = next.Version
	return nil
}

// ListByUser retrieves matches created by or played by userID
func (r *DynamoMatchRepository) ListByUser(ctx context.Context, userID string) ([]*models.Match, error) {
	matches, err := r.scanMatches(ctx,
		"created_by = :u OR contains(#players, :u)",
		map[string]string{"#players": playerIDsAttr},
		map[string]types.AttributeValue{":u": str(userID)},
	)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(matches)
	return matches, nil
}

// ListValidatedByPlayers retrieves validated matches in which any of
// playerIDs played, optionally restricted to dates starting with datePrefix
func (r *DynamoMatchRepository) ListValidatedByPlayers(ctx context.Context, playerIDs []string, datePrefix string) ([]*models.Match, error) {
	seen := make(map[string]struct{})
	var matches []*models.Match

	for _, ids := range chunk(dedupe(playerIDs), containsOrLimit) {
		names := map[string]string{"#players": playerIDsAttr}
		values := map[string]types.AttributeValue{":t": &types.AttributeValueMemberBOOL{Value: true}}

		terms := make([]string, 0, len(ids))
		for i, id := range ids {
			placeholder := ":p" + strconv.Itoa(i)
			values[placeholder] = str(id)
			terms = append(terms, "contains(#players, "+placeholder+")")
		}
		filter := "is_validated = :t AND (" + strings.Join(terms, " OR ") + ")"
		if datePrefix != "" {
			names["#date"] = "date"
			values[":prefix"] = str(datePrefix)
			filter += " AND begins_with(#date, :prefix)"
		}

		page, err := r.scanMatches(ctx, filter, names, values)
		if err != nil {
			return nil, err
		}
		for _, m := range page {
			if _, dup := seen[m.MatchID]; dup {
				continue
			}
			seen[m.MatchID] = struct{}{}
			matches = append(matches, m)
		}
	}
	return matches, nil
}

// ListAwaitingValidation retrieves matches created by any of creatorIDs
// that carry no validation entry from userID
func (r *DynamoMatchRepository) ListAwaitingValidation(ctx context.Context, creatorIDs []string, userID string) ([]*models.Match, error) {
	var matches []*models.Match
	for _, ids := range chunk(dedupe(creatorIDs), inOperandLimit) {
		values := map[string]types.AttributeValue{":u": str(userID)}
		placeholders := make([]string, 0, len(ids))
		for i, id := range ids {
			placeholder := ":c" + strconv.Itoa(i)
			values[placeholder] = str(id)
			placeholders = append(placeholders, placeholder)
		}

		page, err := r.scanMatches(ctx,
			"created_by IN ("+strings.Join(placeholders, ", ")+") AND NOT contains(#validators, :u)",
			map[string]string{"#validators": validatorIDsAttr},
			values,
		)
		if err != nil {
			return nil, err
		}
		matches = append(matches, page...)
	}
	sortNewestFirst(matches)
	return matches, nil
}

func (r *DynamoMatchRepository) scanMatches(ctx context.Context, filter string, names map[string]string, values map[string]types.AttributeValue) ([]*models.Match, error) {
	var matches []*models.Match
	err := scanAll(ctx, r.client, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}, func(item map[string]types.AttributeValue) error {
		match, err := decodeMatch(item)
		if err != nil {
			return err
		}
		matches = append(matches, match)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	return matches, nil
}

func sortNewestFirst(matches []*models.Match) {
	slices.SortFunc(matches, func(a, b *models.Match) int {
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}
