package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	autoscalingtypes "github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/tagvet/tagvet/types"
)

func listEC2Instances(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := ec2.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe instances: %w", err)
		}
		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				tags := tagMap(instance.Tags, func(t ec2types.Tag) (string, string) {
					return aws.ToString(t.Key), aws.ToString(t.Value)
				})
				resources = append(resources, types.ResourceRecord{
					ID:       aws.ToString(instance.InstanceId),
					Kind:     types.KindEC2,
					Endpoint: cfg.Region,
					Name:     tags["Name"],
					Status:   string(instance.State.Name),
					Tags:     tags,
				})
			}
		}
	}
	return resources, nil
}

func listAutoScalingGroups(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := autoscaling.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := autoscaling.NewDescribeAutoScalingGroupsPaginator(client, &autoscaling.DescribeAutoScalingGroupsInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe auto scaling groups: %w", err)
		}
		for _, group := range output.AutoScalingGroups {
			resources = append(resources, types.ResourceRecord{
				ID:       aws.ToString(group.AutoScalingGroupName),
				Kind:     types.KindASG,
				Endpoint: cfg.Region,
				Name:     aws.ToString(group.AutoScalingGroupName),
				Status:   aws.ToString(group.Status),
				Tags: tagMap(group.Tags, func(t autoscalingtypes.TagDescription) (string, string) {
					return aws.ToString(t.Key), aws.ToString(t.Value)
				}),
			})
		}
	}
	return resources, nil
}

func listLambdaFunctions(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := lambda.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := lambda.NewListFunctionsPaginator(client, &lambda.ListFunctionsInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list functions: %w", err)
		}
		for _, fn := range output.Functions {
			tagsOut, err := client.ListTags(ctx, &lambda.ListTagsInput{Resource: fn.FunctionArn})
			if err != nil {
				return nil, fmt.Errorf("list tags for function %s: %w", aws.ToString(fn.FunctionName), err)
			}
			resources = append(resources, types.ResourceRecord{
				ID:       aws.ToString(fn.FunctionName),
				Kind:     types.KindLambda,
				Endpoint: cfg.Region,
				Name:     aws.ToString(fn.FunctionName),
				Status:   string(fn.State),
				Tags:     copyTags(tagsOut.Tags),
			})
		}
	}
	return resources, nil
}

func listECSClusters(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := ecs.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := ecs.NewListClustersPaginator(client, &ecs.ListClustersInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list clusters: %w", err)
		}
		if len(output.ClusterArns) == 0 {
			continue
		}

		described, err := client.DescribeClusters(ctx, &ecs.DescribeClustersInput{
			Clusters: output.ClusterArns,
			Include:  []ecstypes.ClusterField{ecstypes.ClusterFieldTags},
		})
		if err != nil {
			return nil, fmt.Errorf("describe clusters: %w", err)
		}
		for _, cluster := range described.Clusters {
			resources = append(resources, types.ResourceRecord{
				ID:       aws.ToString(cluster.ClusterName),
				Kind:     types.KindECS,
				Endpoint: cfg.Region,
				Name:     aws.ToString(cluster.ClusterName),
				Status:   aws.ToString(cluster.Status),
				Tags: tagMap(cluster.Tags, func(t ecstypes.Tag) (string, string) {
					return aws.ToString(t.Key), aws.ToString(t.Value)
				}),
			})
		}
	}
	return resources, nil
}

func listEKSClusters(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := eks.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := eks.NewListClustersPaginator(client, &eks.ListClustersInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list clusters: %w", err)
		}
		for _, name := range output.Clusters {
			described, err := client.DescribeCluster(ctx, &eks.DescribeClusterInput{Name: aws.String(name)})
			if err != nil {
				return nil, fmt.Errorf("describe cluster %s: %w", name, err)
			}
			resources = append(resources, types.ResourceRecord{
				ID:       name,
				Kind:     types.KindEKS,
				Endpoint: cfg.Region,
				Name:     name,
				Status:   string(described.Cluster.Status),
				Tags:     copyTags(described.Cluster.Tags),
			})
		}
	}
	return resources, nil
}
