package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/memorydb"
	memorydbtypes "github.com/aws/aws-sdk-go-v2/service/memorydb/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/aws/aws-sdk-go-v2/service/redshift"
	redshifttypes "github.com/aws/aws-sdk-go-v2/service/redshift/types"

	"github.com/tagvet/tagvet/types"
)

func listRDSInstances(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := rds.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe db instances: %w", err)
		}
		for _, instance := range output.DBInstances {
			resources = append(resources, types.ResourceRecord{
				ID:       aws.ToString(instance.DBInstanceIdentifier),
				Kind:     types.KindRDS,
				Endpoint: cfg.Region,
				Name:     aws.ToString(instance.DBInstanceIdentifier),
				Status:   aws.ToString(instance.DBInstanceStatus),
				Tags: tagMap(instance.TagList, func(t rdstypes.Tag) (string, string) {
					return aws.ToString(t.Key), aws.ToString(t.Value)
				}),
			})
		}
	}
	return resources, nil
}

func listDynamoDBTables(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := dynamodb.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := dynamodb.NewListTablesPaginator(client, &dynamodb.ListTablesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tables: %w", err)
		}
		for _, name := range output.TableNames {
			described, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
			if err != nil {
				return nil, fmt.Errorf("describe table %s: %w", name, err)
			}

			tags, err := dynamoDBTableTags(ctx, client, aws.ToString(described.Table.TableArn))
			if err != nil {
				return nil, fmt.Errorf("list tags for table %s: %w", name, err)
			}

			resources = append(resources, types.ResourceRecord{
				ID:       name,
				Kind:     types.KindDynamoDB,
				Endpoint: cfg.Region,
				Name:     name,
				Status:   string(described.Table.TableStatus),
				Tags:     tags,
			})
		}
	}
	return resources, nil
}

func dynamoDBTableTags(ctx context.Context, client *dynamodb.Client, arn string) (map[string]string, error) {
	tags := make(map[string]string)
	input := &dynamodb.ListTagsOfResourceInput{ResourceArn: aws.String(arn)}
	for {
		output, err := client.ListTagsOfResource(ctx, input)
		if err != nil {
			return nil, err
		}
		for k, v := range tagMap(output.Tags, func(t ddbtypes.Tag) (string, string) {
			return aws.ToString(t.Key), aws.ToString(t.Value)
		}) {
			tags[k] = v
		}
		if output.NextToken == nil {
			return tags, nil
		}
		input.NextToken = output.NextToken
	}
}

func listRedshiftClusters(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := redshift.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := redshift.NewDescribeClustersPaginator(client, &redshift.DescribeClustersInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe clusters: %w", err)
		}
		for _, cluster := range output.Clusters {
			resources = append(resources, types.ResourceRecord{
				ID:       aws.ToString(cluster.ClusterIdentifier),
				Kind:     types.KindRedshift,
				Endpoint: cfg.Region,
				Name:     aws.ToString(cluster.ClusterIdentifier),
				Status:   aws.ToString(cluster.ClusterStatus),
				Tags: tagMap(cluster.Tags, func(t redshifttypes.Tag) (string, string) {
					return aws.ToString(t.Key), aws.ToString(t.Value)
				}),
			})
		}
	}
	return resources, nil
}

func listMemoryDBClusters(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := memorydb.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := memorydb.NewDescribeClustersPaginator(client, &memorydb.DescribeClustersInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe clusters: %w", err)
		}
		for _, cluster := range output.Clusters {
			tagsOut, err := client.ListTags(ctx, &memorydb.ListTagsInput{ResourceArn: cluster.ARN})
			if err != nil {
				return nil, fmt.Errorf("list tags for cluster %s: %w", aws.ToString(cluster.Name), err)
			}
			resources = append(resources, types.ResourceRecord{
				ID:       aws.ToString(cluster.Name),
				Kind:     types.KindMemoryDB,
				Endpoint: cfg.Region,
				Name:     aws.ToString(cluster.Name),
				Status:   aws.ToString(cluster.Status),
				Tags: tagMap(tagsOut.TagList, func(t memorydbtypes.Tag) (string, string) {
					return aws.ToString(t.Key), aws.ToString(t.Value)
				}),
			})
		}
	}
	return resources, nil
}
