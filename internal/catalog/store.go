package catalog

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/oklog/ulid/v2"
)

// RunStatus is the state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// ItemStore is the subset of the DynamoDB client used by Store.
type ItemStore interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// RunItem is the DynamoDB record for one pipeline run.
type RunItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	RunID        string `dynamodbav:"runId"`
	Source       string `dynamodbav:"source"`
	LLMProvider  string `dynamodbav:"llmProvider,omitempty"`
	TTSProvider  string `dynamodbav:"ttsProvider,omitempty"`
	Status       string `dynamodbav:"status"`
	ErrorMessage string `dynamodbav:"errorMessage,omitempty"`
	CreatedAt    string `dynamodbav:"createdAt"`
	FinishedAt   string `dynamodbav:"finishedAt,omitempty"`
}

// ArtifactItem records one uploaded artifact of a run.
type ArtifactItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	RunID     string `dynamodbav:"runId"`
	Stage     string `dynamodbav:"stage"`
	Path      string `dynamodbav:"path"`
	Key       string `dynamodbav:"s3Key"`
	SizeBytes int64  `dynamodbav:"sizeBytes"`
	CreatedAt string `dynamodbav:"createdAt"`
}

func runPK(id string) string { return "RUN#" + id }

const runSK = "METADATA"

func artifactSK(stage string) string { return "ARTIFACT#" + stage }

// Store records runs and artifacts in DynamoDB.
type Store struct {
	client    ItemStore
	tableName string
	now       func() time.Time
}

func NewStore(client ItemStore, tableName string) *Store {
	return &Store{client: client, tableName: tableName, now: time.Now}
}

// NewRunID generates a ULID for a new run.
func NewRunID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return id.String(), nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// CreateRun inserts a run with status=running.
func (s *Store) CreateRun(ctx context.Context, id, source, llmProvider, ttsProvider string) error {
	item := RunItem{
		PK:          runPK(id),
		SK:          runSK,
		RunID:       id,
		Source:      source,
		LLMProvider: llmProvider,
		TTSProvider: ttsProvider,
		Status:      string(RunStatusRunning),
		CreatedAt:   s.timestamp(),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal run item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.tableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return fmt.Errorf("put run item: %w", err)
	}
	return nil
}

// PutArtifact records an uploaded artifact. A later artifact for the same
// stage replaces the earlier one.
func (s *Store) PutArtifact(ctx context.Context, runID, stage, path, key string, size int64) error {
	av, err := attributevalue.MarshalMap(ArtifactItem{
		PK:        runPK(runID),
		SK:        artifactSK(stage),
		RunID:     runID,
		Stage:     stage,
		Path:      path,
		Key:       key,
		SizeBytes: size,
		CreatedAt: s.timestamp(),
	})
	if err != nil {
		return fmt.Errorf("marshal artifact item: %w", err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: &s.tableName, Item: av}); err != nil {
		return fmt.Errorf("put artifact item: %w", err)
	}
	return nil
}

// FinishRun marks the run complete, or failed when runErr is non-nil.
func (s *Store) FinishRun(ctx context.Context, id string, runErr error) error {
	status := RunStatusComplete
	msg := ""
	if runErr != nil {
		status = RunStatusFailed
		msg = runErr.Error()
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: runPK(id)},
			"SK": &types.AttributeValueMemberS{Value: runSK},
		},
		UpdateExpression: aws.String("SET #status = :status, errorMessage = :err, finishedAt = :at"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
			":err":    &types.AttributeValueMemberS{Value: msg},
			":at":     &types.AttributeValueMemberS{Value: s.timestamp()},
		},
	})
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID. It returns nil, nil when the run is unknown.
func (s *Store) GetRun(ctx context.Context, id string) (*RunItem, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: runPK(id)},
			"SK": &types.AttributeValueMemberS{Value: runSK},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item RunItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return &item, nil
}

// ListArtifacts returns the artifacts recorded for a run.
func (s *Store) ListArtifacts(ctx context.Context, runID string) ([]ArtifactItem, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: runPK(runID)},
			":prefix": &types.AttributeValueMemberS{Value: "ARTIFACT#"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	var items []ArtifactItem
	if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
		return nil, fmt.Errorf("unmarshal artifact list: %w", err)
	}
	return items, nil
}
