package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runavault/runavault/internal/common"
	"github.com/runavault/runavault/internal/server/models"
)

func TestShareDirectory_Validation(t *testing.T) {
	svc := newTestService(newFakeStore())
	ctx := context.Background()

	_, err := svc.ShareDirectory(ctx, owner, "", models.Distribution{Groups: []string{"G1"}})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = svc.ShareDirectory(ctx, owner, "work", models.Distribution{})
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestShareDirectory_EmptyDirectoryNotFound(t *testing.T) {
	svc := newTestService(newFakeStore())

	_, err := svc.ShareDirectory(context.Background(), owner, "work", models.Distribution{Groups: []string{"G1"}})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestShareDirectory_UnionsRecipients(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	mustCreate(t, svc, owner, CreateRequest{
		Site: "a.com", Username: "alice", Password: "ct", Subdirectory: "work",
		SharedWith: models.Distribution{Groups: []string{"G1"}},
	})

	updated, err := svc.ShareDirectory(ctx, owner, "work", models.Distribution{
		Groups: []string{"G2"},
		Users:  []string{"u5"},
		Roles:  map[string]models.Role{"G2": models.RoleViewer, "u5": models.RoleViewer},
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)

	// Union: the existing G1 recipient survives.
	assert.Equal(t, []string{"G1", "G2"}, updated[0].SharedWith.Groups)
	assert.Equal(t, []string{"u5"}, updated[0].SharedWith.Users)
	assert.Equal(t, int64(2), updated[0].Version)

	assert.Equal(t, []string{
		"a.com#work#pid-1#group:G1",
		"a.com#work#pid-1#group:G2",
		"a.com#work#pid-1#user:u5",
	}, store.sortKeysFor(owner.ID))
}

func TestShareDirectory_Idempotent(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	mustCreate(t, svc, owner, CreateRequest{
		Site: "a.com", Username: "alice", Password: "ct", Subdirectory: "work",
	})

	dist := models.Distribution{Groups: []string{"G1"}}
	first, err := svc.ShareDirectory(ctx, owner, "work", dist)
	require.NoError(t, err)
	second, err := svc.ShareDirectory(ctx, owner, "work", dist)
	require.NoError(t, err)

	// Same recipients, no duplicates; version advances exactly once per call.
	assert.Equal(t, first[0].SharedWith.Groups, second[0].SharedWith.Groups)
	assert.Equal(t, int64(2), first[0].Version)
	assert.Equal(t, int64(3), second[0].Version)
	assert.Equal(t, []string{
		"a.com#work#pid-1#group:G1",
		"a.com#work#pid-1#user:NONE",
	}, store.sortKeysFor(owner.ID))
}

func TestShareDirectory_DefaultSubdirectoryAliases(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	mustCreate(t, svc, owner, CreateRequest{Site: "a.com", Username: "alice", Password: "ct"})

	updated, err := svc.ShareDirectory(context.Background(), owner, "default", models.Distribution{Groups: []string{"G1"}})
	require.NoError(t, err)
	assert.Len(t, updated, 1)
}

func TestShareDirectory_DeleteFailuresTolerated(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	mustCreate(t, svc, owner, CreateRequest{Site: "a.com", Username: "alice", Password: "ct", Subdirectory: "work"})
	store.deleteErr = errors.New("iam denied")

	updated, err := svc.ShareDirectory(context.Background(), owner, "work", models.Distribution{Groups: []string{"G1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"G1"}, updated[0].SharedWith.Groups)
}

func TestShareDirectory_WriteFailureAborts(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	mustCreate(t, svc, owner, CreateRequest{Site: "a.com", Username: "alice", Password: "ct", Subdirectory: "work"})
	store.putErr = errors.New("throttled")

	_, err := svc.ShareDirectory(context.Background(), owner, "work", models.Distribution{Groups: []string{"G1"}})
	assert.ErrorIs(t, err, common.ErrInternal)
}

func TestShareDirectory_MultipleSecretsProcessed(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	ctx := context.Background()

	mustCreate(t, svc, owner, CreateRequest{Site: "a.com", Username: "alice", Password: "ct", Subdirectory: "work"})
	mustCreate(t, svc, owner, CreateRequest{Site: "b.com", Username: "alice", Password: "ct2", Subdirectory: "work"})

	updated, err := svc.ShareDirectory(ctx, owner, "work", models.Distribution{Users: []string{"u5"}})
	require.NoError(t, err)
	require.Len(t, updated, 2)
	assert.Equal(t, "a.com", updated[0].Site)
	assert.Equal(t, "b.com", updated[1].Site)
	for _, secret := range updated {
		assert.Equal(t, []string{"u5"}, secret.SharedWith.Users)
	}
}
