// Package dynamo implements the conversation store contract over
// DynamoDB: read-only access to the chat backend's conversation and user
// tables, and write-once persistence of evaluation records.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chainguard-dev/clog"

	"github.com/ahrav/coacheval/internal/domain"
	"github.com/ahrav/coacheval/internal/ports"
)

var _ ports.ConversationStore = (*Store)(nil)

// conversationIndex is the GSI on the chats table keyed by
// conversation_id, used to read a conversation's turns in chronological
// order.
const conversationIndex = "ConversationIndex"

// Tables names the three tables the store touches.
type Tables struct {
	// Chats holds one item per turn, written by the live chat system.
	Chats string

	// Users holds account items with the profile1/profile2 sections.
	Users string

	// Evaluations holds one evaluation record per conversation.
	Evaluations string
}

// DefaultTables returns the deployment's standard table names.
func DefaultTables() Tables {
	return Tables{
		Chats:       "CoachChats",
		Users:       "CoachUsers",
		Evaluations: "ConversationEvaluations",
	}
}

// Store implements ports.ConversationStore over DynamoDB.
type Store struct {
	client *dynamodb.Client
	tables Tables
}

// New creates a store over the given DynamoDB client and table names.
func New(client *dynamodb.Client, tables Tables) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: dynamodb client is required", domain.ErrInvalidConfiguration)
	}
	if tables.Chats == "" || tables.Users == "" || tables.Evaluations == "" {
		return nil, fmt.Errorf("%w: all table names are required", domain.ErrInvalidConfiguration)
	}
	return &Store{client: client, tables: tables}, nil
}

// ListConversationIDsWithTurns scans the chats table for the distinct
// set of conversation identifiers that have at least one stored turn.
func (s *Store) ListConversationIDsWithTurns(ctx context.Context) (map[string]struct{}, error) {
	return s.scanConversationIDs(ctx, s.tables.Chats)
}

// ListEvaluatedConversationIDs scans the evaluations table for the set
// of conversations that already have a record.
func (s *Store) ListEvaluatedConversationIDs(ctx context.Context) (map[string]struct{}, error) {
	return s.scanConversationIDs(ctx, s.tables.Evaluations)
}

// scanConversationIDs pages through a table projecting only the
// conversation_id attribute.
func (s *Store) scanConversationIDs(ctx context.Context, table string) (map[string]struct{}, error) {
	ids := make(map[string]struct{})

	var startKey map[string]types.AttributeValue
	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(table),
			ProjectionExpression: aws.String("conversation_id"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}

		for _, item := range out.Items {
			if av, ok := item["conversation_id"].(*types.AttributeValueMemberS); ok {
				ids[av.Value] = struct{}{}
			}
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return ids, nil
}

// GetTurns returns a conversation's turns in chronological order via the
// conversation GSI. An unknown conversation yields an empty slice.
func (s *Store) GetTurns(ctx context.Context, conversationID string) ([]domain.Turn, error) {
	items, err := s.queryConversation(ctx, conversationID, nil)
	if err != nil {
		return nil, err
	}

	turns := make([]domain.Turn, 0, len(items))
	for _, raw := range items {
		var it turnItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, fmt.Errorf("failed to decode turn for conversation %s: %w", conversationID, err)
		}
		turns = append(turns, it.toTurn())
	}
	return turns, nil
}

// GetConversationMeta reads the conversation's owner and agent identity
// from its first stored turn.
func (s *Store) GetConversationMeta(ctx context.Context, conversationID string) (domain.ConversationMeta, error) {
	items, err := s.queryConversation(ctx, conversationID, aws.Int32(1))
	if err != nil {
		return domain.ConversationMeta{}, err
	}
	if len(items) == 0 {
		return domain.ConversationMeta{}, fmt.Errorf("conversation %s: %w", conversationID, domain.ErrNoTurns)
	}

	var it turnItem
	if err := attributevalue.UnmarshalMap(items[0], &it); err != nil {
		return domain.ConversationMeta{}, fmt.Errorf("failed to decode conversation %s: %w", conversationID, err)
	}
	return domain.ConversationMeta{
		ConversationID: conversationID,
		Username:       it.Username,
		AgentID:        it.AgentID,
	}, nil
}

func (s *Store) queryConversation(ctx context.Context, conversationID string, limit *int32) ([]map[string]types.AttributeValue, error) {
	var (
		items    []map[string]types.AttributeValue
		startKey map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(s.tables.Chats),
			IndexName:              aws.String(conversationIndex),
			KeyConditionExpression: aws.String("conversation_id = :cid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":cid": &types.AttributeValueMemberS{Value: conversationID},
			},
			// Chronological order.
			ScanIndexForward:  aws.Bool(true),
			Limit:             limit,
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to query conversation %s: %w", conversationID, err)
		}

		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil || (limit != nil && int32(len(items)) >= *limit) {
			break
		}
		startKey = out.LastEvaluatedKey
	}
	return items, nil
}

// GetProfile reads the user's profile sections and merges them into one
// snapshot. A user without profile data yields a zero snapshot.
func (s *Store) GetProfile(ctx context.Context, username string) (domain.ProfileSnapshot, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tables.Users),
		Key: map[string]types.AttributeValue{
			"username": &types.AttributeValueMemberS{Value: username},
		},
		ProjectionExpression: aws.String("profile1, profile2"),
	})
	if err != nil {
		return domain.ProfileSnapshot{}, fmt.Errorf("failed to get profile for %s: %w", username, err)
	}
	if out.Item == nil {
		return domain.ProfileSnapshot{}, nil
	}

	var it profileItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return domain.ProfileSnapshot{}, fmt.Errorf("failed to decode profile for %s: %w", username, err)
	}
	return it.toSnapshot(), nil
}

// StoreEvaluation persists one evaluation record with a conditional
// write so a conversation can never accumulate a second record, even
// across concurrent or repeated runs. It reports false without an error
// when a record already exists.
func (s *Store) StoreEvaluation(ctx context.Context, record domain.EvaluationRecord) (bool, error) {
	item, err := attributevalue.MarshalMap(newEvaluationItem(record))
	if err != nil {
		return false, fmt.Errorf("failed to encode evaluation for %s: %w", record.ConversationID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tables.Evaluations),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(conversation_id)"),
	})
	if err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			clog.FromContext(ctx).Warnf("evaluation for conversation %s already exists", record.ConversationID)
			return false, nil
		}
		return false, fmt.Errorf("failed to store evaluation for %s: %w", record.ConversationID, err)
	}
	return true, nil
}
