package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/runavault/runavault/internal/common"
	"github.com/runavault/runavault/internal/server/auth"
	"github.com/runavault/runavault/internal/server/models"
)

// GetResult is the single-secret read response: the ciphertext the caller is
// entitled to, still opaque to the server.
type GetResult struct {
	Site         string `json:"site"`
	Username     string `json:"username"`
	Subdirectory string `json:"subdirectory"`
	Password     string `json:"password"`
}

// Get resolves the best-matching row for the caller, trying direct ownership
// first, then an exact-key query, then each group membership in claim order.
// The first hit wins; a group hit substitutes the group's re-encrypted
// ciphertext when the payload carries one.
func (s *Service) Get(ctx context.Context, caller *auth.Principal, site, subdirectory string) (*GetResult, error) {
	if site == "" {
		return nil, fmt.Errorf("%w: missing site parameter", common.ErrValidation)
	}

	effectiveSub := subdirectory
	if effectiveSub == models.DefaultSubdirectory {
		effectiveSub = ""
	}
	compositeKey := site
	if effectiveSub != "" {
		compositeKey = site + "#" + effectiveSub
	}

	rec, err := s.store.Get(ctx, caller.ID, compositeKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
	}
	var ciphertext string
	if rec != nil {
		ciphertext = rec.Password
	}

	if rec == nil {
		rows, err := s.store.QueryExact(ctx, caller.ID, compositeKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInternal, err)
		}
		if len(rows) > 0 {
			rec = &rows[0]
			ciphertext = rec.Password
		}
	}

	if rec == nil {
		rec, ciphertext, err = s.resolveViaGroups(ctx, caller, site, effectiveSub)
		if err != nil {
			return nil, err
		}
	}

	if rec == nil {
		return nil, fmt.Errorf("%w: password not found", common.ErrNotFound)
	}
	if ciphertext == "" {
		return nil, fmt.Errorf("%w: secret data is incomplete", common.ErrIncompleteData)
	}

	return &GetResult{
		Site:         site,
		Username:     rec.Username,
		Subdirectory: models.NormalizeSubdirectory(rec.Subdirectory),
		Password:     ciphertext,
	}, nil
}

// resolveViaGroups scans the group index for each of the caller's groups in
// order and stops at the first row whose decoded site matches. The returned
// ciphertext is the payload envelope with the group-specific copy promoted to
// the base slot, so the client decrypts with the group key it holds.
func (s *Service) resolveViaGroups(ctx context.Context, caller *auth.Principal, site, effectiveSub string) (*models.DistributionRecord, string, error) {
	for _, group := range caller.Groups {
		rows, err := s.store.QueryByGroup(ctx, group, models.NormalizeSubdirectory(effectiveSub))
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", common.ErrInternal, err)
		}

		for i := range rows {
			if strings.Split(rows[i].SortKey, "#")[0] != site {
				continue
			}
			match := &rows[i]

			env, ok := models.ParsePayload(match.Password)
			if !ok {
				// On the single-secret path malformed data is an error, not
				// something to silently guess around.
				return nil, "", fmt.Errorf("%w: stored payload is not a valid envelope", common.ErrIncompleteData)
			}
			resolved := models.PayloadEnvelope{
				EncryptedPassword: env.GroupCiphertext(group),
				SharedWith:        env.SharedWith,
			}
			ciphertext, err := resolved.Encode()
			if err != nil {
				return nil, "", fmt.Errorf("%w: %v", common.ErrInternal, err)
			}
			return match, ciphertext, nil
		}
	}
	return nil, "", nil
}
