package types

import "sort"

// Resource kinds TagVet knows how to audit. Region-scoped kinds are queried
// once per endpoint; global kinds are queried once system-wide against a
// single representative endpoint.
const (
	KindEC2            = "ec2"
	KindRDS            = "rds"
	KindELB            = "elb"
	KindLambda         = "lambda"
	KindDynamoDB       = "dynamodb"
	KindSQS            = "sqs"
	KindEKS            = "eks"
	KindECS            = "ecs"
	KindASG            = "asg"
	KindRedshift       = "redshift"
	KindMemoryDB       = "memorydb"
	KindECR            = "ecr"
	KindKMS            = "kms"
	KindCloudWatchLogs = "cloudwatch_logs"
	KindCloudTrail     = "cloudtrail"
	KindS3             = "s3"
	KindRoute53        = "route53"
	KindIAMRole        = "iam_role"
)

// globalKinds is the static classification table. A kind is global iff it
// appears here; everything else in the catalogue is region-scoped.
var globalKinds = map[string]bool{
	KindS3:      true,
	KindRoute53: true,
	KindIAMRole: true,
}

var regionalKinds = map[string]bool{
	KindEC2:            true,
	KindRDS:            true,
	KindELB:            true,
	KindLambda:         true,
	KindDynamoDB:       true,
	KindSQS:            true,
	KindEKS:            true,
	KindECS:            true,
	KindASG:            true,
	KindRedshift:       true,
	KindMemoryDB:       true,
	KindECR:            true,
	KindKMS:            true,
	KindCloudWatchLogs: true,
	KindCloudTrail:     true,
}

// IsGlobalKind reports whether kind is classified as global.
func IsGlobalKind(kind string) bool {
	return globalKinds[kind]
}

// IsKnownKind reports whether kind is in the catalogue at all.
func IsKnownKind(kind string) bool {
	return globalKinds[kind] || regionalKinds[kind]
}

// AllKinds returns the full catalogue, sorted.
func AllKinds() []string {
	kinds := make([]string, 0, len(globalKinds)+len(regionalKinds))
	for k := range regionalKinds {
		kinds = append(kinds, k)
	}
	for k := range globalKinds {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// PartitionKinds splits kinds into region-scoped and global partitions,
// preserving input order within each partition.
func PartitionKinds(kinds []string) (regional, global []string) {
	for _, k := range kinds {
		if IsGlobalKind(k) {
			global = append(global, k)
		} else {
			regional = append(regional, k)
		}
	}
	return regional, global
}
