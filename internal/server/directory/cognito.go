package directory

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"golang.org/x/sync/errgroup"
)

// listPageSize matches the provider's maximum page size for user listings.
const listPageSize = 60

// API is the subset of the Cognito identity-provider client used here.
type API interface {
	AdminCreateUser(ctx context.Context, params *cognito.AdminCreateUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminCreateUserOutput, error)
	AdminDeleteUser(ctx context.Context, params *cognito.AdminDeleteUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminDeleteUserOutput, error)
	AdminUpdateUserAttributes(ctx context.Context, params *cognito.AdminUpdateUserAttributesInput, optFns ...func(*cognito.Options)) (*cognito.AdminUpdateUserAttributesOutput, error)
	ListUsers(ctx context.Context, params *cognito.ListUsersInput, optFns ...func(*cognito.Options)) (*cognito.ListUsersOutput, error)
	CreateGroup(ctx context.Context, params *cognito.CreateGroupInput, optFns ...func(*cognito.Options)) (*cognito.CreateGroupOutput, error)
	DeleteGroup(ctx context.Context, params *cognito.DeleteGroupInput, optFns ...func(*cognito.Options)) (*cognito.DeleteGroupOutput, error)
	ListGroups(ctx context.Context, params *cognito.ListGroupsInput, optFns ...func(*cognito.Options)) (*cognito.ListGroupsOutput, error)
	AdminListGroupsForUser(ctx context.Context, params *cognito.AdminListGroupsForUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminListGroupsForUserOutput, error)
	AdminAddUserToGroup(ctx context.Context, params *cognito.AdminAddUserToGroupInput, optFns ...func(*cognito.Options)) (*cognito.AdminAddUserToGroupOutput, error)
	AdminRemoveUserFromGroup(ctx context.Context, params *cognito.AdminRemoveUserFromGroupInput, optFns ...func(*cognito.Options)) (*cognito.AdminRemoveUserFromGroupOutput, error)
}

// CognitoProvider implements Provider against a Cognito user pool.
type CognitoProvider struct {
	client     API
	userPoolID string
}

func NewCognitoProvider(client API, userPoolID string) *CognitoProvider {
	return &CognitoProvider{client: client, userPoolID: userPoolID}
}

func (p *CognitoProvider) CreateUser(ctx context.Context, email, givenName, familyName string) error {
	attrs := []types.AttributeType{
		{Name: aws.String("email"), Value: aws.String(email)},
		{Name: aws.String("email_verified"), Value: aws.String("true")},
	}
	if givenName != "" {
		attrs = append(attrs, types.AttributeType{Name: aws.String("given_name"), Value: aws.String(givenName)})
	}
	if familyName != "" {
		attrs = append(attrs, types.AttributeType{Name: aws.String("family_name"), Value: aws.String(familyName)})
	}

	_, err := p.client.AdminCreateUser(ctx, &cognito.AdminCreateUserInput{
		UserPoolId:     aws.String(p.userPoolID),
		Username:       aws.String(email),
		UserAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (p *CognitoProvider) DeleteUser(ctx context.Context, username string) error {
	_, err := p.client.AdminDeleteUser(ctx, &cognito.AdminDeleteUserInput{
		UserPoolId: aws.String(p.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (p *CognitoProvider) UpdateUserAttributes(ctx context.Context, username string, attrs map[string]string) error {
	userAttrs := make([]types.AttributeType, 0, len(attrs))
	for name, value := range attrs {
		userAttrs = append(userAttrs, types.AttributeType{Name: aws.String(name), Value: aws.String(value)})
	}

	_, err := p.client.AdminUpdateUserAttributes(ctx, &cognito.AdminUpdateUserAttributesInput{
		UserPoolId:     aws.String(p.userPoolID),
		Username:       aws.String(username),
		UserAttributes: userAttrs,
	})
	if err != nil {
		return fmt.Errorf("update user attributes: %w", err)
	}
	return nil
}

func (p *CognitoProvider) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	var paginationToken *string
	for {
		out, err := p.client.ListUsers(ctx, &cognito.ListUsersInput{
			UserPoolId:      aws.String(p.userPoolID),
			AttributesToGet: []string{"email", "given_name", "family_name"},
			Limit:           aws.Int32(listPageSize),
			PaginationToken: paginationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		for _, u := range out.Users {
			users = append(users, User{
				Username:   aws.ToString(u.Username),
				Email:      attributeValue(u.Attributes, "email"),
				GivenName:  attributeValue(u.Attributes, "given_name"),
				FamilyName: attributeValue(u.Attributes, "family_name"),
			})
		}
		if out.PaginationToken == nil {
			return users, nil
		}
		paginationToken = out.PaginationToken
	}
}

func (p *CognitoProvider) CreateGroup(ctx context.Context, name, description string) error {
	input := &cognito.CreateGroupInput{
		UserPoolId: aws.String(p.userPoolID),
		GroupName:  aws.String(name),
	}
	if description != "" {
		input.Description = aws.String(description)
	}
	if _, err := p.client.CreateGroup(ctx, input); err != nil {
		return fmt.Errorf("create group: %w", err)
	}
	return nil
}

func (p *CognitoProvider) DeleteGroup(ctx context.Context, name string) error {
	_, err := p.client.DeleteGroup(ctx, &cognito.DeleteGroupInput{
		UserPoolId: aws.String(p.userPoolID),
		GroupName:  aws.String(name),
	})
	if err != nil {
		return fmt.Errorf("delete group: %w", err)
	}
	return nil
}

func (p *CognitoProvider) ListGroups(ctx context.Context) ([]Group, error) {
	var groups []Group
	var nextToken *string
	for {
		out, err := p.client.ListGroups(ctx, &cognito.ListGroupsInput{
			UserPoolId: aws.String(p.userPoolID),
			NextToken:  nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list groups: %w", err)
		}
		for _, g := range out.Groups {
			groups = append(groups, Group{
				Name:        aws.ToString(g.GroupName),
				Description: aws.ToString(g.Description),
			})
		}
		if out.NextToken == nil {
			return groups, nil
		}
		nextToken = out.NextToken
	}
}

func (p *CognitoProvider) ListUserGroups(ctx context.Context, username string) ([]Group, error) {
	var groups []Group
	var nextToken *string
	for {
		out, err := p.client.AdminListGroupsForUser(ctx, &cognito.AdminListGroupsForUserInput{
			UserPoolId: aws.String(p.userPoolID),
			Username:   aws.String(username),
			NextToken:  nextToken,
		})
		if err != nil {
			return nil, fmt.Errorf("list user groups: %w", err)
		}
		for _, g := range out.Groups {
			groups = append(groups, Group{
				Name:        aws.ToString(g.GroupName),
				Description: aws.ToString(g.Description),
			})
		}
		if out.NextToken == nil {
			return groups, nil
		}
		nextToken = out.NextToken
	}
}

func (p *CognitoProvider) AddUserToGroups(ctx context.Context, username string, groups []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, group := range groups {
		group := group
		g.Go(func() error {
			_, err := p.client.AdminAddUserToGroup(gctx, &cognito.AdminAddUserToGroupInput{
				UserPoolId: aws.String(p.userPoolID),
				Username:   aws.String(username),
				GroupName:  aws.String(group),
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("add user to groups: %w", err)
	}
	return nil
}

func (p *CognitoProvider) RemoveUserFromGroups(ctx context.Context, username string, groups []string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, group := range groups {
		group := group
		g.Go(func() error {
			_, err := p.client.AdminRemoveUserFromGroup(gctx, &cognito.AdminRemoveUserFromGroupInput{
				UserPoolId: aws.String(p.userPoolID),
				Username:   aws.String(username),
				GroupName:  aws.String(group),
			})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("remove user from groups: %w", err)
	}
	return nil
}

func attributeValue(attrs []types.AttributeType, name string) string {
	for _, a := range attrs {
		if aws.ToString(a.Name) == name {
			return aws.ToString(a.Value)
		}
	}
	return ""
}
