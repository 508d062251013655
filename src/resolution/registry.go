package resolution

import (
	"sort"

	"sentiment-observer/src/helpers"
	"sentiment-observer/src/models"
)

// -----------------------------------------------------------------------------
// Resolution Registry
// -----------------------------------------------------------------------------

// Registry is the static table of supported resolutions. It is built once at
// startup and read-only afterwards.
type Registry struct {
	byKey   map[string]models.MResolution
	ordered []models.MResolution // ascending by duration
}

// -----------------------------------------------------------------------------

// Defaults returns the compiled-in resolution table, used when the config
// does not define one. TTLs grow with duration: coarse buckets change less
// often and cost more to recompute.
func Defaults() []models.MResolution {
	return []models.MResolution{
		{Key: "1m", DurationSeconds: 60, CacheTTLMs: 5 * 60 * 1000},
		{Key: "5m", DurationSeconds: 300, CacheTTLMs: 30 * 60 * 1000},
		{Key: "1h", DurationSeconds: 3600, CacheTTLMs: 6 * 60 * 60 * 1000},
		{Key: "1d", DurationSeconds: 86400, CacheTTLMs: 3 * 24 * 60 * 60 * 1000},
		{Key: "1w", DurationSeconds: 7 * 86400, CacheTTLMs: 30 * 24 * 60 * 60 * 1000},
	}
}

// -----------------------------------------------------------------------------

// NewRegistry builds a registry from the given resolutions (Defaults() when
// empty) and validates the TTL-grows-with-duration invariant.
func NewRegistry(resolutions []models.MResolution) (*Registry, error) {
	if len(resolutions) == 0 {
		resolutions = Defaults()
	}

	ordered := make([]models.MResolution, len(resolutions))
	copy(ordered, resolutions)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].DurationSeconds < ordered[j].DurationSeconds
	})

	byKey := make(map[string]models.MResolution, len(ordered))
	for i, r := range ordered {
		if r.DurationSeconds <= 0 {
			return nil, helpers.NewConfigurationError("resolution '%s' has non-positive duration", r.Key)
		}
		if r.CacheTTLMs <= 0 {
			return nil, helpers.NewConfigurationError("resolution '%s' has non-positive cache TTL", r.Key)
		}
		if _, dup := byKey[r.Key]; dup {
			return nil, helpers.NewConfigurationError("duplicate resolution key '%s'", r.Key)
		}
		// TTL must be non-decreasing with duration
		if i > 0 && r.CacheTTLMs < ordered[i-1].CacheTTLMs {
			return nil, helpers.NewConfigurationError(
				"resolution '%s' TTL (%dms) is shorter than finer resolution '%s' (%dms)",
				r.Key, r.CacheTTLMs, ordered[i-1].Key, ordered[i-1].CacheTTLMs)
		}
		byKey[r.Key] = r
	}

	return &Registry{byKey: byKey, ordered: ordered}, nil
}

// -----------------------------------------------------------------------------

// ByKey looks up a resolution. An unknown key is a configuration error, not
// a runtime condition; callers must not substitute a default.
func (r *Registry) ByKey(key string) (models.MResolution, error) {
	res, ok := r.byKey[key]
	if !ok {
		return models.MResolution{}, helpers.NewConfigurationError("unknown resolution key '%s'", key)
	}
	return res, nil
}

// -----------------------------------------------------------------------------

// All returns every supported resolution, ascending by duration.
func (r *Registry) All() []models.MResolution {
	out := make([]models.MResolution, len(r.ordered))
	copy(out, r.ordered)
	return out
}
