package secrets

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/runavault/runavault/internal/common"
	"github.com/runavault/runavault/internal/server/auth"
	"github.com/runavault/runavault/internal/server/models"
)

// List aggregates the caller's complete visible-secret collection from three
// access paths: owned rows, rows shared via group memberships, and rows
// shared directly with the caller. Physical rows of the same logical secret
// are merged into one entry, sorted case-insensitively by site.
func (s *Service) List(ctx context.Context, caller *auth.Principal) ([]models.LogicalSecret, error) {
	own, err := s.store.QueryPrefix(ctx, caller.ID, "")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	groupRows := make([][]models.DistributionRecord, len(caller.Groups))
	g, gctx := errgroup.WithContext(ctx)
	for i, group := range caller.Groups {
		i, group := i, group
		g.Go(func() error {
			rows, err := s.store.QueryByGroup(gctx, group, "")
			if err != nil {
				return err
			}
			groupRows[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	shared, err := s.store.QueryByUser(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}

	var all []models.LogicalSecret
	for _, rec := range own {
		secret := s.decodeForListing(ctx, rec)
		secret.OwnedByMe = true
		all = append(all, secret)
	}
	for _, rows := range groupRows {
		for _, rec := range rows {
			// The caller's own rows already came from the partition query.
			if rec.UserID == caller.ID {
				continue
			}
			all = append(all, s.decodeForListing(ctx, rec))
		}
	}
	for _, rec := range shared {
		secret := s.decodeForListing(ctx, rec)
		secret.OwnedByMe = rec.UserID == caller.ID
		all = append(all, secret)
	}

	merged := mergeDuplicates(all)

	sort.SliceStable(merged, func(i, j int) bool {
		return strings.ToLower(merged[i].Site) < strings.ToLower(merged[j].Site)
	})
	return merged, nil
}

// decodeForListing decodes one row, logging payload anomalies instead of
// failing the listing.
func (s *Service) decodeForListing(ctx context.Context, rec models.DistributionRecord) models.LogicalSecret {
	if _, ok := models.ParsePayload(rec.Password); !ok {
		s.logger.Warn(ctx, "row carries a non-envelope payload", "sort_key", rec.SortKey)
	}
	return DecodeRecord(rec)
}

// mergeDuplicates collapses the per-recipient rows of one logical secret
// into a single entry, unioning their distribution lists. The first
// occurrence's field values win (all rows duplicate them anyway).
func mergeDuplicates(secrets []models.LogicalSecret) []models.LogicalSecret {
	type key struct{ owner, site, subdirectory string }

	index := make(map[key]int)
	merged := make([]models.LogicalSecret, 0, len(secrets))
	for _, secret := range secrets {
		k := key{secret.OwnerID, secret.Site, secret.Subdirectory}
		i, seen := index[k]
		if !seen {
			index[k] = len(merged)
			merged = append(merged, secret)
			continue
		}
		merged[i].SharedWith.Groups = unionStrings(merged[i].SharedWith.Groups, secret.SharedWith.Groups)
		merged[i].SharedWith.Users = unionStrings(merged[i].SharedWith.Users, secret.SharedWith.Users)
		merged[i].OwnedByMe = merged[i].OwnedByMe || secret.OwnedByMe
	}
	return merged
}

// unionStrings appends the members of extra not already present, preserving
// first-seen order.
func unionStrings(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base))
	for _, v := range base {
		seen[v] = struct{}{}
	}
	for _, v := range extra {
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			base = append(base, v)
		}
	}
	return base
}
