package orchestrator

import (
	"sort"

	"github.com/osa-run/osa/pkg/models"
)

// TierMap resolves a models.Tier to (provider, model) plus the fixed
// temperature/iteration/token parameters models.DefaultTierSettings
// already names (§3 "Tier"). It lives in the lock-free read-only
// registry populated at boot (§5 "Shared caches... provider tier maps
// live in a lock-free read-only registry").
type TierMap struct {
	models map[models.Tier]string
}

// NewStaticTierMap builds a tier map from explicit provider model ids.
func NewStaticTierMap(elite, specialist, utility string) *TierMap {
	return &TierMap{models: map[models.Tier]string{
		models.TierElite: elite, models.TierSpecialist: specialist, models.TierUtility: utility,
	}}
}

// NewLocalTierMap derives a tier map for a self-hosted/local provider from
// its reported installed models, sorted by a size heuristic: largest model
// name (by declared parameter-count suffix, falling back to string length)
// becomes elite, smallest becomes utility (§3 "Tier", SUPPLEMENTED FEATURES
// "Provider tier-map auto-derivation for a local provider").
func NewLocalTierMap(installedModels []string) *TierMap {
	if len(installedModels) == 0 {
		return &TierMap{models: map[models.Tier]string{}}
	}
	sorted := append([]string(nil), installedModels...)
	sort.Slice(sorted, func(i, j int) bool { return modelSizeRank(sorted[i]) > modelSizeRank(sorted[j]) })

	return &TierMap{models: map[models.Tier]string{
		models.TierElite:      sorted[0],
		models.TierUtility:    sorted[len(sorted)-1],
		models.TierSpecialist: sorted[len(sorted)/2],
	}}
}

// modelSizeRank extracts a rough parameter-count signal like "70b" or
// "8x7b" from a model tag; falls back to string length when no size
// suffix is present, matching the donor's local-backend heuristic.
func modelSizeRank(name string) int {
	digits := 0
	n := 0
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c >= '0' && c <= '9' {
			n = n*10 + int(c-'0')
			digits++
			continue
		}
		if digits > 0 && (c == 'b' || c == 'B') {
			return n
		}
		digits, n = 0, 0
	}
	return len(name)
}

// Settings resolves tier t to its full execution envelope, filling in
// the model id this TierMap owns atop models.DefaultTierSettings' fixed
// temperature/iteration/token parameters.
func (m *TierMap) Settings(t models.Tier) models.TierSettings {
	s := models.DefaultTierSettings(t)
	s.Model = m.models[t]
	return s
}

// roleTier assigns the default Tier for a Role when a sub-task doesn't
// override it; lead/backend/data run elite, red_team/infra/qa specialist,
// the rest utility. This mirrors the donor's role->capability weighting
// without hardcoding a model name into role definitions.
func roleTier(r models.Role) models.Tier {
	switch r {
	case models.RoleLead, models.RoleBackend, models.RoleData:
		return models.TierElite
	case models.RoleInfra, models.RoleQA, models.RoleRedTeam:
		return models.TierSpecialist
	default:
		return models.TierUtility
	}
}
