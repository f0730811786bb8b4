package directory

import (
	"context"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCognitoAPI struct {
	mu sync.Mutex

	createUserInputs []*cognito.AdminCreateUserInput
	addGroupInputs   []*cognito.AdminAddUserToGroupInput

	listUsersPages []*cognito.ListUsersOutput
	listUsersCalls int
}

func (f *fakeCognitoAPI) AdminCreateUser(ctx context.Context, params *cognito.AdminCreateUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminCreateUserOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createUserInputs = append(f.createUserInputs, params)
	return &cognito.AdminCreateUserOutput{}, nil
}

func (f *fakeCognitoAPI) AdminDeleteUser(ctx context.Context, params *cognito.AdminDeleteUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminDeleteUserOutput, error) {
	return &cognito.AdminDeleteUserOutput{}, nil
}

func (f *fakeCognitoAPI) AdminUpdateUserAttributes(ctx context.Context, params *cognito.AdminUpdateUserAttributesInput, optFns ...func(*cognito.Options)) (*cognito.AdminUpdateUserAttributesOutput, error) {
	return &cognito.AdminUpdateUserAttributesOutput{}, nil
}

func (f *fakeCognitoAPI) ListUsers(ctx context.Context, params *cognito.ListUsersInput, optFns ...func(*cognito.Options)) (*cognito.ListUsersOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.listUsersPages[f.listUsersCalls]
	f.listUsersCalls++
	return out, nil
}

func (f *fakeCognitoAPI) CreateGroup(ctx context.Context, params *cognito.CreateGroupInput, optFns ...func(*cognito.Options)) (*cognito.CreateGroupOutput, error) {
	return &cognito.CreateGroupOutput{}, nil
}

func (f *fakeCognitoAPI) DeleteGroup(ctx context.Context, params *cognito.DeleteGroupInput, optFns ...func(*cognito.Options)) (*cognito.DeleteGroupOutput, error) {
	return &cognito.DeleteGroupOutput{}, nil
}

func (f *fakeCognitoAPI) ListGroups(ctx context.Context, params *cognito.ListGroupsInput, optFns ...func(*cognito.Options)) (*cognito.ListGroupsOutput, error) {
	return &cognito.ListGroupsOutput{}, nil
}

func (f *fakeCognitoAPI) AdminListGroupsForUser(ctx context.Context, params *cognito.AdminListGroupsForUserInput, optFns ...func(*cognito.Options)) (*cognito.AdminListGroupsForUserOutput, error) {
	return &cognito.AdminListGroupsForUserOutput{}, nil
}

func (f *fakeCognitoAPI) AdminAddUserToGroup(ctx context.Context, params *cognito.AdminAddUserToGroupInput, optFns ...func(*cognito.Options)) (*cognito.AdminAddUserToGroupOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addGroupInputs = append(f.addGroupInputs, params)
	return &cognito.AdminAddUserToGroupOutput{}, nil
}

func (f *fakeCognitoAPI) AdminRemoveUserFromGroup(ctx context.Context, params *cognito.AdminRemoveUserFromGroupInput, optFns ...func(*cognito.Options)) (*cognito.AdminRemoveUserFromGroupOutput, error) {
	return &cognito.AdminRemoveUserFromGroupOutput{}, nil
}

func TestCognitoCreateUser_SetsVerifiedEmailAttributes(t *testing.T) {
	api := &fakeCognitoAPI{}
	provider := NewCognitoProvider(api, "pool-1")

	err := provider.CreateUser(context.Background(), "ann@corp.io", "Ann", "")
	require.NoError(t, err)
	require.Len(t, api.createUserInputs, 1)

	input := api.createUserInputs[0]
	assert.Equal(t, "pool-1", aws.ToString(input.UserPoolId))
	assert.Equal(t, "ann@corp.io", aws.ToString(input.Username))

	attrs := map[string]string{}
	for _, a := range input.UserAttributes {
		attrs[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}
	assert.Equal(t, "ann@corp.io", attrs["email"])
	assert.Equal(t, "true", attrs["email_verified"])
	assert.Equal(t, "Ann", attrs["given_name"])
	assert.NotContains(t, attrs, "family_name")
}

func TestCognitoListUsers_Paginates(t *testing.T) {
	api := &fakeCognitoAPI{
		listUsersPages: []*cognito.ListUsersOutput{
			{
				Users: []types.UserType{{
					Username: aws.String("u1"),
					Attributes: []types.AttributeType{
						{Name: aws.String("email"), Value: aws.String("u1@corp.io")},
						{Name: aws.String("given_name"), Value: aws.String("Uma")},
					},
				}},
				PaginationToken: aws.String("next"),
			},
			{
				Users: []types.UserType{{Username: aws.String("u2")}},
			},
		},
	}
	provider := NewCognitoProvider(api, "pool-1")

	users, err := provider.ListUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, 2, api.listUsersCalls)
	assert.Equal(t, "u1@corp.io", users[0].Email)
	assert.Equal(t, "Uma", users[0].GivenName)
	assert.Equal(t, "u2", users[1].Username)
}

func TestCognitoAddUserToGroups_FansOutPerGroup(t *testing.T) {
	api := &fakeCognitoAPI{}
	provider := NewCognitoProvider(api, "pool-1")

	err := provider.AddUserToGroups(context.Background(), "u1", []string{"G1", "G2", "G3"})
	require.NoError(t, err)
	require.Len(t, api.addGroupInputs, 3)

	groups := map[string]bool{}
	for _, input := range api.addGroupInputs {
		assert.Equal(t, "u1", aws.ToString(input.Username))
		groups[aws.ToString(input.GroupName)] = true
	}
	assert.Len(t, groups, 3)
}
