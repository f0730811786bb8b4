// Package secrets implements the secret distribution subsystem: the codec
// between logical secrets and their fanned-out storage rows, the access
// resolver, the fan-out writer and the directory-level share merger.
package secrets

import (
	"strings"

	"github.com/runavault/runavault/internal/server/models"
)

const (
	groupSuffix = "#group:"
	userSuffix  = "#user:"
)

// BaseSortKey builds the composite key without the recipient suffix:
// {site}[#{subdirectory}]#{passwordId}. The default subdirectory is omitted
// from the key, matching rows created without one.
func BaseSortKey(site, subdirectory, passwordID string) string {
	if sub := models.NormalizeSubdirectory(subdirectory); sub != models.DefaultSubdirectory {
		return site + "#" + sub + "#" + passwordID
	}
	return site + "#" + passwordID
}

// GroupSortKey and UserSortKey append the recipient suffix to a base key.
func GroupSortKey(base, group string) string { return base + groupSuffix + group }
func UserSortKey(base, user string) string   { return base + userSuffix + user }

// StripRecipientSuffix removes the trailing #group:*/#user:* segment,
// recovering the base composite key.
func StripRecipientSuffix(sortKey string) string {
	if i := strings.Index(sortKey, groupSuffix); i >= 0 {
		return sortKey[:i]
	}
	if i := strings.Index(sortKey, userSuffix); i >= 0 {
		return sortKey[:i]
	}
	return sortKey
}

// orSentinel substitutes the sentinel slot for an empty recipient list so
// that every logical secret materializes at least one row per recipient kind.
func orSentinel(principals []string) []string {
	if len(principals) == 0 {
		return []string{models.Sentinel}
	}
	return principals
}

// stripSentinel is the inverse: sentinel-only lists decode to empty ones.
func stripSentinel(principals []string) []string {
	out := make([]string, 0, len(principals))
	for _, p := range principals {
		if p != models.Sentinel {
			out = append(out, p)
		}
	}
	return out
}

// EncodeFanout expands one logical secret into its full row set: one row per
// group recipient plus one per user recipient, with sentinel rows standing in
// for empty lists. The template carries every shared attribute; only the sort
// key and the shared-with pair vary per row.
func EncodeFanout(base string, template models.DistributionRecord, groups, users []string) []models.DistributionRecord {
	groups = orSentinel(groups)
	users = orSentinel(users)

	records := make([]models.DistributionRecord, 0, len(groups)+len(users))
	for _, group := range groups {
		rec := template
		rec.SortKey = GroupSortKey(base, group)
		rec.SharedWithGroups = group
		rec.SharedWithUsers = models.Sentinel
		records = append(records, rec)
	}
	for _, user := range users {
		rec := template
		rec.SortKey = UserSortKey(base, user)
		rec.SharedWithGroups = models.Sentinel
		rec.SharedWithUsers = user
		records = append(records, rec)
	}
	return records
}

// DecodeRecord reconstructs a logical-secret fragment from one storage row.
// Site keeps the base composite key ({site}[#{sub}]#{passwordId}), which is
// what distinguishes two secrets for the same site and what the edit call
// takes back as its identifier. The fragment carries at most one group and
// one user recipient (the row's own); callers merge fragments of the same
// logical secret. The payload stays opaque; a malformed one never fails the
// decode.
func DecodeRecord(rec models.DistributionRecord) models.LogicalSecret {
	base := StripRecipientSuffix(rec.SortKey)
	parts := strings.Split(base, "#")

	passwordID := rec.PasswordID
	if passwordID == "" && len(parts) >= 3 {
		passwordID = parts[2]
	}

	var users, groups []string
	if rec.SharedWithUsers != "" && rec.SharedWithUsers != models.Sentinel {
		users = append(users, rec.SharedWithUsers)
	}
	if rec.SharedWithGroups != "" && rec.SharedWithGroups != models.Sentinel {
		groups = append(groups, rec.SharedWithGroups)
	}

	version := rec.Version
	if version == 0 {
		version = 1
	}

	lastModified := rec.LastModified
	if lastModified == "" {
		lastModified = "N/A"
	}

	return models.LogicalSecret{
		OwnerID:      rec.UserID,
		Site:         base,
		PasswordID:   passwordID,
		Subdirectory: models.NormalizeSubdirectory(rec.Subdirectory),
		Username:     rec.Username,
		Password:     rec.Password,
		Encrypted:    rec.Encrypted,
		SharedWith: models.Distribution{
			Users:  users,
			Groups: groups,
			Roles:  models.RolesFromStrings(rec.SharedWithRoles),
		},
		Notes:        rec.Notes,
		Tags:         decodeTags(rec.Tags),
		Favorite:     rec.Favorite,
		Version:      version,
		LastModified: lastModified,
	}
}

// encodeTags substitutes the sentinel for an empty tag set; DynamoDB string
// sets cannot be empty.
func encodeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{models.Sentinel}
	}
	return tags
}

func decodeTags(tags []string) []string {
	if len(tags) == 1 && tags[0] == models.Sentinel {
		return []string{}
	}
	if tags == nil {
		return []string{}
	}
	return tags
}
