package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"sentiment-observer/src/helpers"
	"sentiment-observer/src/logger"
	"sentiment-observer/src/models"
	"sentiment-observer/src/network"
	"sentiment-observer/src/utils"
)

// -----------------------------------------------------------------------------

// QuerySource talks to the server-side bucket query endpoint:
//
//	GET {base}/timeseries/{subject}?resolution={key}
//	GET {base}/timeseries/batch?subjects={csv}&resolution={key}
type QuerySource struct {
	Config  *models.MConfig
	Network *network.AsyncNetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewQuerySource(cfg *models.MConfig, netMgr *network.AsyncNetworkManager, log *logger.Logger) *QuerySource {
	return &QuerySource{
		Config:  cfg,
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------
// Response shapes
// -----------------------------------------------------------------------------

type seriesResponse struct {
	Buckets []models.MBucket `json:"buckets"`
}

type batchResponse map[string]seriesResponse

// -----------------------------------------------------------------------------

// FetchSeries retrieves one subject's series. A zero startTime falls back to
// the configured lookback, counted in trading days for the subject's market.
func (s *QuerySource) FetchSeries(ctx context.Context, subject, res string, startTime, endTime int64) ([]models.MBucket, error) {
	params := map[string]string{
		"resolution": res,
	}
	if startTime == 0 {
		cal := utils.GetCalendar(subject)
		startTime = cal.SessionRangeStart(s.Config.Query.RangeDays).Unix()
	}
	params["start"] = strconv.FormatInt(startTime, 10)
	if endTime > 0 {
		params["end"] = strconv.FormatInt(endTime, 10)
	}

	url := fmt.Sprintf("%s/timeseries/%s", strings.TrimRight(s.Config.Query.BaseURL, "/"), subject)

	// Single attempt: this is the user-triggered path, and one failed switch
	// must not turn into a retry storm.
	body, err := s.Network.GetOnce(ctx, url, params)
	if err != nil {
		return nil, helpers.NewFetchError(fmt.Sprintf("series fetch failed for %s/%s", subject, res), err)
	}

	var resp seriesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewFetchError(fmt.Sprintf("series decode failed for %s/%s", subject, res), err)
	}

	sortBuckets(resp.Buckets)
	return resp.Buckets, nil
}

// -----------------------------------------------------------------------------

// FetchBatch retrieves several subjects in one round trip.
func (s *QuerySource) FetchBatch(ctx context.Context, subjects []string, res string) (map[string][]models.MBucket, error) {
	params := map[string]string{
		"subjects":   strings.Join(subjects, ","),
		"resolution": res,
	}

	url := fmt.Sprintf("%s/timeseries/batch", strings.TrimRight(s.Config.Query.BaseURL, "/"))

	body, err := s.Network.Get(ctx, url, params)
	if err != nil {
		return nil, helpers.NewFetchError(fmt.Sprintf("batch fetch failed for %d subjects", len(subjects)), err)
	}

	var resp batchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, helpers.NewFetchError("batch decode failed", err)
	}

	out := make(map[string][]models.MBucket, len(resp))
	for subject, series := range resp {
		sortBuckets(series.Buckets)
		out[subject] = series.Buckets
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func sortBuckets(buckets []models.MBucket) {
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].BucketTimestamp < buckets[j].BucketTimestamp
	})
}
