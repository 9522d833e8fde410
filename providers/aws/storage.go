package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/tagvet/tagvet/types"
)

func listS3Buckets(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := s3.NewFromConfig(cfg)

	output, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	resources := make([]types.ResourceRecord, 0, len(output.Buckets))
	for _, bucket := range output.Buckets {
		name := aws.ToString(bucket.Name)
		tags, err := bucketTags(ctx, client, name)
		if err != nil {
			return nil, fmt.Errorf("get tags for bucket %s: %w", name, err)
		}
		resources = append(resources, types.ResourceRecord{
			ID:       name,
			Kind:     types.KindS3,
			Endpoint: types.GlobalEndpoint,
			Name:     name,
			Tags:     tags,
		})
	}
	return resources, nil
}

func bucketTags(ctx context.Context, client *s3.Client, bucket string) (map[string]string, error) {
	output, err := client.GetBucketTagging(ctx, &s3.GetBucketTaggingInput{Bucket: aws.String(bucket)})
	if err != nil {
		// An untagged bucket is a finding, not a failure.
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchTagSet" {
			return map[string]string{}, nil
		}
		return nil, err
	}
	return tagMap(output.TagSet, func(t s3types.Tag) (string, string) {
		return aws.ToString(t.Key), aws.ToString(t.Value)
	}), nil
}

func listECRRepositories(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := ecr.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := ecr.NewDescribeRepositoriesPaginator(client, &ecr.DescribeRepositoriesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe repositories: %w", err)
		}
		for _, repo := range output.Repositories {
			tagsOut, err := client.ListTagsForResource(ctx, &ecr.ListTagsForResourceInput{
				ResourceArn: repo.RepositoryArn,
			})
			if err != nil {
				return nil, fmt.Errorf("list tags for repository %s: %w", aws.ToString(repo.RepositoryName), err)
			}
			resources = append(resources, types.ResourceRecord{
				ID:       aws.ToString(repo.RepositoryName),
				Kind:     types.KindECR,
				Endpoint: cfg.Region,
				Name:     aws.ToString(repo.RepositoryName),
				Tags: tagMap(tagsOut.Tags, func(t ecrtypes.Tag) (string, string) {
					return aws.ToString(t.Key), aws.ToString(t.Value)
				}),
			})
		}
	}
	return resources, nil
}
