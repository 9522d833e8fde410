package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbv2types "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	route53types "github.com/aws/aws-sdk-go-v2/service/route53/types"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/tagvet/tagvet/types"
)

// describeTagsBatch is the ELBv2 DescribeTags request limit.
const describeTagsBatch = 20

func listLoadBalancers(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := elasticloadbalancingv2.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := elasticloadbalancingv2.NewDescribeLoadBalancersPaginator(client, &elasticloadbalancingv2.DescribeLoadBalancersInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe load balancers: %w", err)
		}

		byArn := make(map[string]elbv2types.LoadBalancer, len(output.LoadBalancers))
		arns := make([]string, 0, len(output.LoadBalancers))
		for _, lb := range output.LoadBalancers {
			arn := aws.ToString(lb.LoadBalancerArn)
			byArn[arn] = lb
			arns = append(arns, arn)
		}

		for start := 0; start < len(arns); start += describeTagsBatch {
			end := min(start+describeTagsBatch, len(arns))
			tagsOut, err := client.DescribeTags(ctx, &elasticloadbalancingv2.DescribeTagsInput{
				ResourceArns: arns[start:end],
			})
			if err != nil {
				return nil, fmt.Errorf("describe load balancer tags: %w", err)
			}

			for _, desc := range tagsOut.TagDescriptions {
				lb := byArn[aws.ToString(desc.ResourceArn)]
				resources = append(resources, types.ResourceRecord{
					ID:       aws.ToString(lb.LoadBalancerName),
					Kind:     types.KindELB,
					Endpoint: cfg.Region,
					Name:     aws.ToString(lb.LoadBalancerName),
					Status:   string(lb.State.Code),
					Tags: tagMap(desc.Tags, func(t elbv2types.Tag) (string, string) {
						return aws.ToString(t.Key), aws.ToString(t.Value)
					}),
				})
			}
		}
	}
	return resources, nil
}

func listSQSQueues(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := sqs.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := sqs.NewListQueuesPaginator(client, &sqs.ListQueuesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list queues: %w", err)
		}
		for _, url := range output.QueueUrls {
			tagsOut, err := client.ListQueueTags(ctx, &sqs.ListQueueTagsInput{QueueUrl: aws.String(url)})
			if err != nil {
				return nil, fmt.Errorf("list tags for queue %s: %w", url, err)
			}

			name := url
			if idx := strings.LastIndex(url, "/"); idx >= 0 {
				name = url[idx+1:]
			}
			resources = append(resources, types.ResourceRecord{
				ID:       name,
				Kind:     types.KindSQS,
				Endpoint: cfg.Region,
				Name:     name,
				Tags:     copyTags(tagsOut.Tags),
			})
		}
	}
	return resources, nil
}

func listRoute53HostedZones(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := route53.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := route53.NewListHostedZonesPaginator(client, &route53.ListHostedZonesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list hosted zones: %w", err)
		}
		for _, zone := range output.HostedZones {
			zoneID := strings.TrimPrefix(aws.ToString(zone.Id), "/hostedzone/")
			tagsOut, err := client.ListTagsForResource(ctx, &route53.ListTagsForResourceInput{
				ResourceType: route53types.TagResourceTypeHostedzone,
				ResourceId:   aws.String(zoneID),
			})
			if err != nil {
				return nil, fmt.Errorf("list tags for hosted zone %s: %w", zoneID, err)
			}

			resources = append(resources, types.ResourceRecord{
				ID:       zoneID,
				Kind:     types.KindRoute53,
				Endpoint: types.GlobalEndpoint,
				Name:     aws.ToString(zone.Name),
				Tags: tagMap(tagsOut.ResourceTagSet.Tags, func(t route53types.Tag) (string, string) {
					return aws.ToString(t.Key), aws.ToString(t.Value)
				}),
			})
		}
	}
	return resources, nil
}
