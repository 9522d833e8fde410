package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	cloudtrailtypes "github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"

	"github.com/tagvet/tagvet/types"
)

func listLogGroups(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := cloudwatchlogs.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(client, &cloudwatchlogs.DescribeLogGroupsInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe log groups: %w", err)
		}
		for _, group := range output.LogGroups {
			name := aws.ToString(group.LogGroupName)

			// The log group ARN carries a trailing ":*" that the tagging
			// API does not accept.
			arn := strings.TrimSuffix(aws.ToString(group.Arn), ":*")
			tagsOut, err := client.ListTagsForResource(ctx, &cloudwatchlogs.ListTagsForResourceInput{
				ResourceArn: aws.String(arn),
			})
			if err != nil {
				return nil, fmt.Errorf("list tags for log group %s: %w", name, err)
			}

			resources = append(resources, types.ResourceRecord{
				ID:       name,
				Kind:     types.KindCloudWatchLogs,
				Endpoint: cfg.Region,
				Name:     name,
				Tags:     copyTags(tagsOut.Tags),
			})
		}
	}
	return resources, nil
}

func listTrails(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := cloudtrail.NewFromConfig(cfg)

	output, err := client.DescribeTrails(ctx, &cloudtrail.DescribeTrailsInput{})
	if err != nil {
		return nil, fmt.Errorf("describe trails: %w", err)
	}

	var resources []types.ResourceRecord
	for _, trail := range output.TrailList {
		// Multi-region trails are mirrored into every region; only the home
		// region reports them so they are not double-counted.
		if aws.ToString(trail.HomeRegion) != cfg.Region {
			continue
		}

		arn := aws.ToString(trail.TrailARN)
		tagsOut, err := client.ListTags(ctx, &cloudtrail.ListTagsInput{ResourceIdList: []string{arn}})
		if err != nil {
			return nil, fmt.Errorf("list tags for trail %s: %w", aws.ToString(trail.Name), err)
		}

		tags := make(map[string]string)
		for _, rt := range tagsOut.ResourceTagList {
			for k, v := range tagMap(rt.TagsList, func(t cloudtrailtypes.Tag) (string, string) {
				return aws.ToString(t.Key), aws.ToString(t.Value)
			}) {
				tags[k] = v
			}
		}

		resources = append(resources, types.ResourceRecord{
			ID:       aws.ToString(trail.Name),
			Kind:     types.KindCloudTrail,
			Endpoint: cfg.Region,
			Name:     aws.ToString(trail.Name),
			Tags:     tags,
		})
	}
	return resources, nil
}
