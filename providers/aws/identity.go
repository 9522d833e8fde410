package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/tagvet/tagvet/types"
)

func listIAMRoles(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := iam.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := iam.NewListRolesPaginator(client, &iam.ListRolesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list roles: %w", err)
		}
		for _, role := range output.Roles {
			name := aws.ToString(role.RoleName)
			tags, err := roleTags(ctx, client, name)
			if err != nil {
				return nil, fmt.Errorf("list tags for role %s: %w", name, err)
			}
			resources = append(resources, types.ResourceRecord{
				ID:       name,
				Kind:     types.KindIAMRole,
				Endpoint: types.GlobalEndpoint,
				Name:     name,
				Tags:     tags,
			})
		}
	}
	return resources, nil
}

func roleTags(ctx context.Context, client *iam.Client, roleName string) (map[string]string, error) {
	tags := make(map[string]string)
	input := &iam.ListRoleTagsInput{RoleName: aws.String(roleName)}
	for {
		output, err := client.ListRoleTags(ctx, input)
		if err != nil {
			return nil, err
		}
		for k, v := range tagMap(output.Tags, func(t iamtypes.Tag) (string, string) {
			return aws.ToString(t.Key), aws.ToString(t.Value)
		}) {
			tags[k] = v
		}
		if !output.IsTruncated {
			return tags, nil
		}
		input.Marker = output.Marker
	}
}

func listKMSKeys(ctx context.Context, cfg aws.Config) ([]types.ResourceRecord, error) {
	client := kms.NewFromConfig(cfg)

	var resources []types.ResourceRecord
	paginator := kms.NewListKeysPaginator(client, &kms.ListKeysInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list keys: %w", err)
		}
		for _, key := range output.Keys {
			keyID := aws.ToString(key.KeyId)
			tags, err := keyTags(ctx, client, keyID)
			if err != nil {
				return nil, fmt.Errorf("list tags for key %s: %w", keyID, err)
			}
			resources = append(resources, types.ResourceRecord{
				ID:       keyID,
				Kind:     types.KindKMS,
				Endpoint: cfg.Region,
				Name:     keyID,
				Tags:     tags,
			})
		}
	}
	return resources, nil
}

func keyTags(ctx context.Context, client *kms.Client, keyID string) (map[string]string, error) {
	tags := make(map[string]string)
	input := &kms.ListResourceTagsInput{KeyId: aws.String(keyID)}
	for {
		output, err := client.ListResourceTags(ctx, input)
		if err != nil {
			return nil, err
		}
		for k, v := range tagMap(output.Tags, func(t kmstypes.Tag) (string, string) {
			return aws.ToString(t.TagKey), aws.ToString(t.TagValue)
		}) {
			tags[k] = v
		}
		if !output.Truncated {
			return tags, nil
		}
		input.Marker = output.NextMarker
	}
}
