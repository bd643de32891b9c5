package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoBackend struct {
	db    *dynamodb.Client
	table string
}

const (
	waitInterval = 2 * time.Second // table creation polling interval
	maxRetries   = 30
)

func NewDynamoDB() (*Store, error) {
	table := "ticket_control_guilds"
	if os.Getenv("DYNAMO_TABLE_NAME") != "" {
		table = os.Getenv("DYNAMO_TABLE_NAME")
	}

	var db *dynamodb.Client
	if os.Getenv("DYNAMO_LOCAL") != "" {
		cfg, err := config.LoadDefaultConfig(context.TODO(),
			config.WithRegion("dummy"),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("dummy", "dummy", "dummy")),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %v", err)
		}
		db = dynamodb.NewFromConfig(cfg,
			func(o *dynamodb.Options) {
				o.BaseEndpoint = aws.String("http://localhost:8000")
			},
		)
	} else {
		cfg, err := config.LoadDefaultConfig(context.TODO())
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %v", err)
		}
		db = dynamodb.NewFromConfig(cfg)
	}

	b := &dynamoBackend{db: db, table: table}
	if os.Getenv("DYNAMO_LOCAL") != "" {
		if err := b.ensureTable(); err != nil {
			return nil, err
		}
	}
	return &Store{backend: b}, nil
}

func (d *dynamoBackend) ensureTable() error {
	_, err := d.db.DescribeTable(context.TODO(), &dynamodb.DescribeTableInput{
		TableName: aws.String(d.table),
	})
	if err == nil {
		return nil
	}

	_, err = d.db.CreateTable(context.TODO(), &dynamodb.CreateTableInput{
		TableName: aws.String(d.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("guild_id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("guild_id"), KeyType: types.KeyTypeHash},
		},
		ProvisionedThroughput: &types.ProvisionedThroughput{
			ReadCapacityUnits:  aws.Int64(5),
			WriteCapacityUnits: aws.Int64(5),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create table %s: %v", d.table, err)
	}

	for i := 0; i < maxRetries; i++ {
		out, err := d.db.DescribeTable(context.TODO(), &dynamodb.DescribeTableInput{
			TableName: aws.String(d.table),
		})
		if err != nil {
			return fmt.Errorf("failed to describe table %s: %v", d.table, err)
		}
		if out.Table.TableStatus == types.TableStatusActive {
			return nil
		}
		time.Sleep(waitInterval)
	}

	return fmt.Errorf("table %s creation timed out", d.table)
}

func (d *dynamoBackend) loadDocument(guildID string) (*guildDocument, error) {
	result, err := d.db.GetItem(context.TODO(), &dynamodb.GetItemInput{
		TableName: aws.String(d.table),
		Key: map[string]types.AttributeValue{
			"guild_id": &types.AttributeValueMemberS{Value: guildID},
		},
	})
	if err != nil {
		return nil, err
	}
	if result.Item == nil {
		return newGuildDocument(), nil
	}

	raw := getStringValue(result.Item, "document")
	if raw == "" {
		return newGuildDocument(), nil
	}
	var doc guildDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		slog.Error("guild document corrupted, reinitializing with defaults (data loss)",
			slog.String("guild_id", guildID), slog.Any("err", err))
		return newGuildDocument(), nil
	}
	doc.normalize()
	return &doc, nil
}

func (d *dynamoBackend) saveDocument(guildID string, doc *guildDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal guild document: %w", err)
	}
	_, err = d.db.PutItem(context.TODO(), &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item: map[string]types.AttributeValue{
			"guild_id":   &types.AttributeValueMemberS{Value: guildID},
			"document":   &types.AttributeValueMemberS{Value: string(data)},
			"updated_at": &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
	})
	return err
}

func getStringValue(item map[string]types.AttributeValue, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
