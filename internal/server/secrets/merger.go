package secrets

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/runavault/runavault/internal/common"
	"github.com/runavault/runavault/internal/server/auth"
	"github.com/runavault/runavault/internal/server/models"
)

// ShareDirectory extends the distribution list of every secret the caller
// owns in the given subdirectory. Unlike Edit, recipients are unioned into
// the existing list, so repeated shares are idempotent. Stale-row delete
// failures are tolerated (the fan-out self-heals on the next rewrite); row
// write failures abort the whole request.
func (s *Service) ShareDirectory(ctx context.Context, caller *auth.Principal, subdirectory string, shared models.Distribution) ([]models.LogicalSecret, error) {
	if subdirectory == "" {
		return nil, fmt.Errorf("%w: missing subdirectory parameter", common.ErrValidation)
	}
	if len(shared.Users) == 0 && len(shared.Groups) == 0 {
		return nil, fmt.Errorf("%w: at least one user or group must be specified for sharing", common.ErrValidation)
	}

	rows, err := s.store.QueryPrefix(ctx, caller.ID, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	want := models.NormalizeSubdirectory(subdirectory)
	var directoryRows []models.DistributionRecord
	for _, row := range rows {
		if models.NormalizeSubdirectory(row.Subdirectory) == want {
			directoryRows = append(directoryRows, row)
		}
	}
	if len(directoryRows) == 0 {
		return nil, fmt.Errorf("%w: no secrets found in the specified directory", common.ErrNotFound)
	}

	grouped := groupByPasswordID(directoryRows)

	// Deterministic processing order.
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	lastModified := s.now().UTC().Format(time.RFC3339)

	var updated []models.LogicalSecret
	for _, passwordID := range ids {
		secret, err := s.mergeShare(ctx, caller, passwordID, grouped[passwordID], shared, lastModified)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *secret)
	}
	return updated, nil
}

// groupByPasswordID buckets a directory's rows by the password id recovered
// from the attribute or the sort key. A key without enough separators falls
// back to the full site string as the bucket key: a deliberate degradation
// for legacy rows, not a fatal error.
func groupByPasswordID(rows []models.DistributionRecord) map[string][]models.DistributionRecord {
	grouped := make(map[string][]models.DistributionRecord)
	for _, row := range rows {
		passwordID := row.PasswordID
		if passwordID == "" {
			if parts := strings.Split(row.SortKey, "#"); len(parts) >= 3 {
				passwordID = parts[len(parts)-2]
			}
		}
		if passwordID == "" {
			passwordID = row.SortKey
		}
		grouped[passwordID] = append(grouped[passwordID], row)
	}
	return grouped
}

// mergeShare rewrites one logical secret's fan-out with the union of its
// existing and requested recipients.
func (s *Service) mergeShare(ctx context.Context, caller *auth.Principal, passwordID string, rows []models.DistributionRecord, shared models.Distribution, lastModified string) (*models.LogicalSecret, error) {
	base := rows[0]

	baseKey := StripRecipientSuffix(base.SortKey)
	if parts := strings.Split(baseKey, "#"); len(parts) < 2 {
		// Legacy key without a password-id segment.
		baseKey = parts[0] + "#" + passwordID
	}

	existing := distributionFromRows(rows)
	mergedGroups := unionStrings(existing.Groups, shared.Groups)
	mergedUsers := unionStrings(existing.Users, shared.Users)

	mergedRoles := make(map[string]string, len(base.SharedWithRoles)+len(shared.Roles))
	for k, v := range base.SharedWithRoles {
		mergedRoles[k] = v
	}
	for k, v := range shared.Roles {
		mergedRoles[k] = string(v)
	}

	existingKeys := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		existingKeys[row.SortKey] = struct{}{}
	}

	// Best effort: stale rows left behind are rewritten or orphaned
	// harmlessly and cleaned up by the next full rewrite.
	_ = s.deleteRecords(ctx, caller.ID, rows, true)

	version := base.Version
	if version == 0 {
		version = 1
	}

	template := models.DistributionRecord{
		UserID:          caller.ID,
		Username:        base.Username,
		Password:        base.Password,
		Encrypted:       base.Encrypted,
		SharedWithRoles: mergedRoles,
		Subdirectory:    models.NormalizeSubdirectory(base.Subdirectory),
		Notes:           base.Notes,
		Tags:            encodeTags(base.Tags),
		Favorite:        base.Favorite,
		Version:         version + 1,
		LastModified:    lastModified,
		PasswordID:      passwordID,
	}

	records := EncodeFanout(baseKey, template, mergedGroups, mergedUsers)
	if err := s.writeFanout(ctx, records, existingKeys, true); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	return &models.LogicalSecret{
		OwnerID:      caller.ID,
		Site:         strings.Split(base.SortKey, "#")[0],
		PasswordID:   passwordID,
		Subdirectory: template.Subdirectory,
		Username:     template.Username,
		Password:     template.Password,
		Encrypted:    template.Encrypted,
		SharedWith: models.Distribution{
			Users:  stripSentinel(orSentinel(mergedUsers)),
			Groups: stripSentinel(orSentinel(mergedGroups)),
			Roles:  models.RolesFromStrings(mergedRoles),
		},
		Notes:        template.Notes,
		Tags:         decodeTags(template.Tags),
		Favorite:     template.Favorite,
		Version:      template.Version,
		LastModified: lastModified,
		OwnedByMe:    true,
	}, nil
}
