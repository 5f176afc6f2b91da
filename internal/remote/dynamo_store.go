package remote

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/TheMichaelB/notesync/internal/events"
	"github.com/TheMichaelB/notesync/internal/models"
)

// DynamoStore implements RemoteStore on a DynamoDB table keyed by
// (user_id, note_id).
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *events.Logger
}

type dynamoNote struct {
	UserID string `dynamodbav:"user_id"`
	NoteID string `dynamodbav:"note_id"`
	Doc    string `dynamodbav:"doc"` // JSON-encoded note record
}

// NewDynamoStore creates a DynamoDB-backed remote store.
func NewDynamoStore(ctx context.Context, tableName string, logger *events.Logger) (*DynamoStore, error) {
	if tableName == "" {
		return nil, fmt.Errorf("dynamodb table name required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &DynamoStore{
		client:    dynamodb.NewFromConfig(cfg),
		tableName: tableName,
		logger:    logger.WithField("component", "dynamo_store"),
	}, nil
}

// GetNote fetches a note record.
func (s *DynamoStore) GetNote(ctx context.Context, userID, id string) (*models.Note, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
			"note_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get: %w", err)
	}

	if result.Item == nil {
		return nil, models.ErrNoteNotFound
	}

	return unmarshalDynamoNote(result.Item)
}

// SetNote writes a note record.
func (s *DynamoStore) SetNote(ctx context.Context, userID string, note *models.Note) error {
	item, err := marshalDynamoNote(userID, note)
	if err != nil {
		return err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put: %w", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"note_id": note.ID,
	}).Debug("Wrote note record")

	return nil
}

// DeleteNote removes a note record.
func (s *DynamoStore) DeleteNote(ctx context.Context, userID, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: userID},
			"note_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("dynamodb delete: %w", err)
	}
	return nil
}

// ListNotes returns all note records for a user.
func (s *DynamoStore) ListNotes(ctx context.Context, userID string) ([]*models.Note, error) {
	var notes []*models.Note

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb query: %w", err)
		}

		for _, item := range page.Items {
			note, err := unmarshalDynamoNote(item)
			if err != nil {
				return nil, err
			}
			notes = append(notes, note)
		}
	}

	return notes, nil
}

func marshalDynamoNote(userID string, note *models.Note) (map[string]types.AttributeValue, error) {
	doc, err := encodeNoteDoc(note)
	if err != nil {
		return nil, err
	}

	item, err := attributevalue.MarshalMap(dynamoNote{
		UserID: userID,
		NoteID: note.ID,
		Doc:    doc,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal dynamo item: %w", err)
	}
	return item, nil
}

func unmarshalDynamoNote(item map[string]types.AttributeValue) (*models.Note, error) {
	var record dynamoNote
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return nil, fmt.Errorf("unmarshal dynamo item: %w", err)
	}
	return decodeNoteDoc(record.Doc)
}
