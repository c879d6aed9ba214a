// Package dynamostore is an optional metering sink for tracelog: every
// RecordTrace call writes a one-item-per-activation record to a
// DynamoDB table, cheap to query by run id and cheap to let expire via
// TTL, for usage accounting separate from the detailed Postgres trace.
//
// oriys-nova's go.mod declares aws-sdk-go-v2/config and
// aws-sdk-go-v2/credentials as direct dependencies, but its layer and
// volume managers (internal/layer/manager.go, internal/volume/manager.go)
// store function code and volumes on local disk, not S3 or DynamoDB; the
// SDK client is never actually constructed in the retrieved snapshot.
// Rather than carry that same never-wired dependency forward, it is
// exercised here concretely: client construction follows the
// config.LoadDefaultConfig + NewFromConfig idiom the SDK v2 docs and
// oriys-nova's go.mod both point at, for a table the SDK's own
// dynamodb/attributevalue package was built to marshal into.
package dynamostore

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/evalgo/flowengine/tracelog"
)

// Sink records activation metering events into one DynamoDB table, keyed
// by run id with a sort key per node activation.
type Sink struct {
	client   *dynamodb.Client
	table    string
	ttlAfter time.Duration
}

// New loads AWS credentials the default SDK way (environment, shared
// config file, or instance role) and targets table for every write.
func New(ctx context.Context, table string, ttlAfter time.Duration) (*Sink, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("dynamostore: load AWS config: %w", err)
	}
	return &Sink{
		client:   dynamodb.NewFromConfig(cfg),
		table:    table,
		ttlAfter: ttlAfter,
	}, nil
}

type meterItem struct {
	RunID     string `dynamodbav:"run_id"`
	NodeID    string `dynamodbav:"node_id"`
	Status    string `dynamodbav:"status"`
	Start     int64  `dynamodbav:"start"`
	Finish    int64  `dynamodbav:"finish,omitempty"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"`
}

// RecordTrace writes one metering item per node activation. Errors are
// returned, not swallowed: unlike tracelog's detailed store, metering
// feeds billing, so a silently dropped write is a correctness bug, not
// just a missing log line.
func (s *Sink) RecordTrace(ctx context.Context, tr tracelog.Trace) error {
	item := meterItem{
		RunID:  tr.RunID,
		NodeID: tr.NodeID,
		Status: tr.Status,
		Start:  tr.Start.Unix(),
	}
	if !tr.End.IsZero() {
		item.Finish = tr.End.Unix()
	}
	if s.ttlAfter > 0 {
		item.ExpiresAt = time.Now().Add(s.ttlAfter).Unix()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("dynamostore: marshal item: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("dynamostore: put item: %w", err)
	}
	return nil
}

// RunUsage returns every metering item recorded for runID, for ad hoc
// billing queries against the run's activation count.
func (s *Sink) RunUsage(ctx context.Context, runID string) ([]tracelog.Trace, error) {
	keyCond := "run_id = :rid"
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String(keyCond),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":rid": &types.AttributeValueMemberS{Value: runID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("dynamostore: query: %w", err)
	}

	traces := make([]tracelog.Trace, 0, len(out.Items))
	for _, raw := range out.Items {
		var item meterItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			return nil, fmt.Errorf("dynamostore: unmarshal item: %w", err)
		}
		tr := tracelog.Trace{
			RunID:  item.RunID,
			NodeID: item.NodeID,
			Status: item.Status,
			Start:  time.Unix(item.Start, 0),
		}
		if item.Finish > 0 {
			tr.End = time.Unix(item.Finish, 0)
		}
		traces = append(traces, tr)
	}
	return traces, nil
}

// EnsureTable creates the metering table if it does not already exist,
// with run_id as the partition key and node_id as the sort key.
func (s *Sink) EnsureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err == nil {
		return nil
	}

	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("run_id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("node_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("run_id"), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String("node_id"), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("dynamostore: create table: %w", err)
	}
	return nil
}
