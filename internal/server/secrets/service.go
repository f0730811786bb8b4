package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/runavault/runavault/internal/common"
	"github.com/runavault/runavault/internal/logging"
	"github.com/runavault/runavault/internal/server/auth"
	"github.com/runavault/runavault/internal/server/models"
	"github.com/runavault/runavault/internal/server/storage"
)

// MaxNotesLength bounds the notes field on create and edit.
const MaxNotesLength = 500

// Service implements the secret operations over the storage client. It is
// stateless: every call runs to completion independently, and concurrent
// edits of the same secret race with last-writer-wins semantics (the version
// counter is advisory, not an optimistic lock).
type Service struct {
	store  storage.Store
	logger logging.Logger

	now   func() time.Time
	newID func() string
}

func NewService(store storage.Store, logger logging.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger.With("module", "secrets"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// CreateRequest carries the fields of a new secret. Password is the opaque
// ciphertext envelope produced by the client.
type CreateRequest struct {
	Site         string
	Username     string
	Password     string
	Encrypted    *bool
	SharedWith   models.Distribution
	Subdirectory string
	Notes        string
	Tags         []string
	Favorite     bool
}

// Create fans the new secret out into its distribution rows and returns the
// materialized view read back from storage.
func (s *Service) Create(ctx context.Context, caller *auth.Principal, req CreateRequest) (*models.LogicalSecret, error) {
	if req.Site == "" || req.Username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: site, username and password are required", common.ErrValidation)
	}
	if len(req.Notes) > MaxNotesLength {
		return nil, fmt.Errorf("%w: notes cannot exceed %d characters", common.ErrValidation, MaxNotesLength)
	}
	// Anything brace-prefixed claims to be an envelope and must parse as one.
	if _, ok := models.ParsePayload(req.Password); !ok && strings.HasPrefix(req.Password, "{") {
		return nil, fmt.Errorf("%w: invalid password format", common.ErrValidation)
	}

	encrypted := true
	if req.Encrypted != nil {
		encrypted = *req.Encrypted
	}

	passwordID := s.newID()
	lastModified := s.now().UTC().Format(time.RFC3339)
	base := BaseSortKey(req.Site, req.Subdirectory, passwordID)

	template := models.DistributionRecord{
		UserID:          caller.ID,
		Username:        req.Username,
		Password:        req.Password,
		Encrypted:       encrypted,
		SharedWithRoles: models.RolesToStrings(req.SharedWith.Roles),
		Subdirectory:    models.NormalizeSubdirectory(req.Subdirectory),
		Notes:           req.Notes,
		Tags:            encodeTags(req.Tags),
		Favorite:        req.Favorite,
		Version:         1,
		LastModified:    lastModified,
		PasswordID:      passwordID,
	}
	records := EncodeFanout(base, template, req.SharedWith.Groups, req.SharedWith.Users)

	if err := s.writeFanout(ctx, records, nil, false); err != nil {
		return nil, err
	}

	// Read the first row back so the response reflects what storage holds.
	firstKey := records[0].SortKey
	stored, err := s.store.Get(ctx, caller.ID, firstKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: secret not found after creation", common.ErrNotFound)
	}

	secret := DecodeRecord(*stored)
	secret.Site = stored.SortKey
	secret.SharedWith.Users = stripSentinel(orSentinel(req.SharedWith.Users))
	secret.SharedWith.Groups = stripSentinel(orSentinel(req.SharedWith.Groups))
	secret.OwnedByMe = true
	return &secret, nil
}

// DistributionPatch is the edit-time distribution override. A nil slice or
// map inherits the stored value; a non-nil empty one explicitly clears it.
type DistributionPatch struct {
	Users  []string
	Groups []string
	Roles  map[string]models.Role
}

// EditRequest identifies a secret by its composite site key (which must
// already include the password-id suffix) and carries the fields to change.
// Nil pointers inherit the stored values.
type EditRequest struct {
	Site         string
	OwnerID      string
	Subdirectory *string
	Favorite     *bool
	Username     *string
	Password     *string
	Encrypted    *bool
	SharedWith   *DistributionPatch
	Notes        *string
	Tags         []string
}

// EditResult is the rewritten secret plus an informational flag reporting
// whether the edit moved it to a different subdirectory.
type EditResult struct {
	Secret            models.LogicalSecret
	MovedSubdirectory bool
}

// Edit replaces the secret's full fan-out set: lookup, caller authorization,
// distribution merge, then delete-all + rewrite with the version incremented.
// An explicit distribution patch replaces recipients; omitted fields inherit.
func (s *Service) Edit(ctx context.Context, caller *auth.Principal, req EditRequest) (*EditResult, error) {
	if req.Site == "" {
		return nil, fmt.Errorf("%w: missing site parameter", common.ErrValidation)
	}
	if !strings.Contains(req.Site, "#") {
		return nil, fmt.Errorf("%w: site must include the password id (e.g. \"site#password_id\")", common.ErrValidation)
	}
	if req.Notes != nil && len(*req.Notes) > MaxNotesLength {
		return nil, fmt.Errorf("%w: notes cannot exceed %d characters", common.ErrValidation, MaxNotesLength)
	}

	owner := req.OwnerID
	if owner == "" {
		owner = caller.ID
	}

	rows, err := s.store.QueryPrefix(ctx, owner, req.Site)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: password not found", common.ErrNotFound)
	}
	first := rows[0]

	if owner != caller.ID && !hasEditorRole(caller, first.SharedWithRoles) {
		return nil, fmt.Errorf("%w: you can only edit your own secrets or those where you're an editor", common.ErrForbidden)
	}

	var effectiveSub string
	if req.Subdirectory != nil {
		effectiveSub = models.NormalizeSubdirectory(*req.Subdirectory)
	} else {
		effectiveSub = models.DefaultSubdirectory
	}
	moved := effectiveSub != models.NormalizeSubdirectory(first.Subdirectory)

	existing := distributionFromRows(rows)
	merged := existing
	if req.SharedWith != nil {
		if req.SharedWith.Users != nil {
			merged.Users = req.SharedWith.Users
		}
		if req.SharedWith.Groups != nil {
			merged.Groups = req.SharedWith.Groups
		}
		if req.SharedWith.Roles != nil {
			merged.Roles = req.SharedWith.Roles
		}
	}

	// A row without a version attribute starts over at 1, it does not
	// increment from the implied default.
	version := int64(1)
	if first.Version != 0 {
		version = first.Version + 1
	}

	passwordID := first.PasswordID
	if passwordID == "" {
		if parts := strings.Split(req.Site, "#"); len(parts) >= 3 {
			passwordID = parts[2]
		}
	}

	template := models.DistributionRecord{
		UserID:          owner,
		Username:        override(req.Username, first.Username),
		Password:        override(req.Password, first.Password),
		Encrypted:       overrideBool(req.Encrypted, first.Encrypted),
		SharedWithRoles: models.RolesToStrings(merged.Roles),
		Subdirectory:    effectiveSub,
		Notes:           override(req.Notes, first.Notes),
		Tags:            encodeTags(req.Tags),
		Favorite:        overrideBool(req.Favorite, first.Favorite),
		Version:         version,
		LastModified:    s.now().UTC().Format(time.RFC3339),
		PasswordID:      passwordID,
	}

	if err := s.deleteRecords(ctx, owner, rows, false); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	records := EncodeFanout(req.Site, template, merged.Groups, merged.Users)
	if err := s.writeFanout(ctx, records, nil, false); err != nil {
		return nil, err
	}

	secret := models.LogicalSecret{
		OwnerID:      owner,
		Site:         req.Site,
		PasswordID:   passwordID,
		Subdirectory: effectiveSub,
		Username:     template.Username,
		Password:     template.Password,
		Encrypted:    template.Encrypted,
		SharedWith: models.Distribution{
			Users:  stripSentinel(orSentinel(merged.Users)),
			Groups: stripSentinel(orSentinel(merged.Groups)),
			Roles:  merged.Roles,
		},
		Notes:        template.Notes,
		Tags:         decodeTags(template.Tags),
		Favorite:     template.Favorite,
		Version:      template.Version,
		LastModified: template.LastModified,
		OwnedByMe:    owner == caller.ID,
	}
	return &EditResult{Secret: secret, MovedSubdirectory: moved}, nil
}

// Delete removes every row of the caller's secret under the given site
// prefix and subdirectory, returning the number of rows deleted.
func (s *Service) Delete(ctx context.Context, caller *auth.Principal, site, ownerID, subdirectory string) (int, error) {
	if site == "" {
		return 0, fmt.Errorf("%w: missing site parameter", common.ErrValidation)
	}
	if ownerID != "" && ownerID != caller.ID {
		return 0, fmt.Errorf("%w: you can only delete your own secrets", common.ErrForbidden)
	}

	rows, err := s.store.QueryPrefix(ctx, caller.ID, site)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: password not found", common.ErrNotFound)
	}

	want := models.NormalizeSubdirectory(subdirectory)
	matching := rows[:0:0]
	for _, row := range rows {
		if models.NormalizeSubdirectory(row.Subdirectory) == want {
			matching = append(matching, row)
		}
	}
	if len(matching) == 0 {
		return 0, fmt.Errorf("%w: password not found", common.ErrNotFound)
	}

	if err := s.deleteRecords(ctx, caller.ID, matching, false); err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	return len(matching), nil
}

// writeFanout issues every row write concurrently. Rows whose sort key is in
// replaceKeys skip the not-exists condition (the share merger rewrites rows
// it has just deleted). With tolerateConflicts, conditional-put conflicts are
// logged and ignored; otherwise any failure aborts the operation.
func (s *Service) writeFanout(ctx context.Context, records []models.DistributionRecord, replaceKeys map[string]struct{}, tolerateConflicts bool) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range records {
		rec := &records[i]
		g.Go(func() error {
			_, replace := replaceKeys[rec.SortKey]
			err := s.store.Put(gctx, rec, replace)
			if err == nil {
				return nil
			}
			if tolerateConflicts && isDuplicate(err) {
				s.logger.Info(gctx, "row already exists, skipping", "sort_key", rec.SortKey)
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// deleteRecords issues every row delete concurrently. With tolerateFailures,
// errors are logged and swallowed: stale rows are self-healing on the next
// full rewrite.
func (s *Service) deleteRecords(ctx context.Context, ownerID string, records []models.DistributionRecord, tolerateFailures bool) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := range records {
		rec := &records[i]
		g.Go(func() error {
			if err := s.store.Delete(gctx, ownerID, rec.SortKey); err != nil {
				if tolerateFailures {
					s.logger.Warn(gctx, "failed to delete stale row", "sort_key", rec.SortKey, "error", err.Error())
					return nil
				}
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// distributionFromRows reconstructs the stored distribution list by scanning
// the shared-with attributes of every row; the role map rides on each row
// identically, so the first row's copy is authoritative.
func distributionFromRows(rows []models.DistributionRecord) models.Distribution {
	dist := models.Distribution{Roles: models.RolesFromStrings(rows[0].SharedWithRoles)}
	for _, row := range rows {
		if row.SharedWithUsers != "" && row.SharedWithUsers != models.Sentinel {
			dist.Users = append(dist.Users, row.SharedWithUsers)
		}
		if row.SharedWithGroups != "" && row.SharedWithGroups != models.Sentinel {
			dist.Groups = append(dist.Groups, row.SharedWithGroups)
		}
	}
	return dist
}

func isDuplicate(err error) bool {
	return errors.Is(err, common.ErrDuplicate)
}

func hasEditorRole(caller *auth.Principal, roles map[string]string) bool {
	for _, group := range caller.Groups {
		if roles[group] == string(models.RoleEditor) {
			return true
		}
	}
	return false
}

func override(v *string, stored string) string {
	if v != nil {
		return *v
	}
	return stored
}

func overrideBool(v *bool, stored bool) bool {
	if v != nil {
		return *v
	}
	return stored
}
