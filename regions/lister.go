package regions

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// ec2RegionsAPI is the slice of the EC2 client the lister needs.
type ec2RegionsAPI interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// AWSLister enumerates AWS regions via DescribeRegions. Regions whose
// opt-in status is "not-opted-in" are reported as unusable.
type AWSLister struct {
	client ec2RegionsAPI
}

// NewAWSLister creates a lister over a region-pinned EC2 client.
func NewAWSLister(client *ec2.Client) *AWSLister {
	return &AWSLister{client: client}
}

// ListEndpoints returns every region visible to the account, including
// disabled ones, so the directory can filter on usability.
func (l *AWSLister) ListEndpoints(ctx context.Context) ([]EndpointRecord, error) {
	output, err := l.client.DescribeRegions(ctx, &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("describe regions: %w", err)
	}

	records := make([]EndpointRecord, 0, len(output.Regions))
	for _, r := range output.Regions {
		records = append(records, EndpointRecord{
			ID:      aws.ToString(r.RegionName),
			OptedIn: aws.ToString(r.OptInStatus) != "not-opted-in",
		})
	}
	return records, nil
}

var _ EndpointLister = (*AWSLister)(nil)
