package factcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"tripai/app/observability/metrics"
	"tripai/internal/types"
)

// LocationCheck is the enrichment result for a single place. A failed
// lookup degrades to Verified=false and never aborts the caller.
type LocationCheck struct {
	Exists       bool               `json:"exists"`
	Verified     bool               `json:"verified"`
	TooFar       bool               `json:"tooFar"`
	Distance     float64            `json:"distance,omitempty"`
	Coordinates  *types.Coordinates `json:"coordinates,omitempty"`
	Type         string             `json:"type,omitempty"`
	Category     string             `json:"category,omitempty"`
	OpeningHours string             `json:"opening_hours,omitempty"`
	Website      string             `json:"website,omitempty"`
	Phone        string             `json:"phone,omitempty"`
	Wheelchair   string             `json:"wheelchair,omitempty"`
	Description  string             `json:"description,omitempty"`
}

type PriceCheck struct {
	Verified        bool    `json:"verified"`
	SuggestedPrice  float64 `json:"suggestedPrice,omitempty"`
	PriceConfidence string  `json:"priceConfidence,omitempty"`
}

type Config struct {
	NominatimURL string
	WikipediaURL string
	UserAgent    string
	MinInterval  time.Duration
	CacheTTL     time.Duration
	RadiusKm     float64
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service is the optional fact-checking collaborator. It is consumed
// as a pure data provider; its absence or failure never aborts the
// primary pipeline.
type Service interface {
	ValidateLocation(ctx context.Context, name string, center types.Coordinates) *LocationCheck
	ValidatePrice(ctx context.Context, name string, providedCost float64) *PriceCheck
}

// ServiceImpl owns its response cache and outbound rate limiter; the
// public geocoding endpoints require at least a second between calls.
type ServiceImpl struct {
	logger  *slog.Logger
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	cache   *cache.Cache
}

func NewService(cfg Config, logger *slog.Logger) *ServiceImpl {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	if cfg.RadiusKm <= 0 {
		cfg.RadiusKm = 50
	}
	return &ServiceImpl{
		logger:  logger,
		cfg:     cfg,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(cfg.MinInterval), 1),
		cache:   cache.New(ttl, ttl),
	}
}

// ValidateLocation resolves the place by name, measures its distance
// from the destination center and attaches reverse-geocoding details
// plus an encyclopedia summary.
func (s *ServiceImpl) ValidateLocation(ctx context.Context, name string, center types.Coordinates) *LocationCheck {
	cacheKey := "location:" + name
	if cached, found := s.cache.Get(cacheKey); found {
		metrics.Get().FactCheckCacheHitsTotal.Add(ctx, 1)
		return cached.(*LocationCheck)
	}

	hit, err := s.searchPlace(ctx, name)
	if err != nil {
		s.logger.DebugContext(ctx, "Location lookup failed", slog.String("name", name), slog.Any("error", err))
		return &LocationCheck{Verified: false}
	}
	if hit == nil {
		result := &LocationCheck{Exists: false, Verified: false}
		s.cache.Set(cacheKey, result, cache.DefaultExpiration)
		return result
	}

	distance := haversineKm(float64(center.Lat), float64(center.Lng), hit.lat, hit.lon)
	result := &LocationCheck{
		Exists:   true,
		Verified: true,
		TooFar:   distance > s.cfg.RadiusKm,
		Distance: distance,
		Type:     hit.osmType,
		Category: hit.class,
		Coordinates: &types.Coordinates{
			Lat: types.Coordinate(hit.lat),
			Lng: types.Coordinate(hit.lon),
		},
	}

	// Best effort, detail failures leave the core result intact.
	if details, err := s.reverseLookup(ctx, hit.lat, hit.lon); err == nil {
		if details.Type != "" {
			result.Type = details.Type
		}
		if details.Category != "" {
			result.Category = details.Category
		}
		result.OpeningHours = details.Extratags["opening_hours"]
		result.Website = details.Extratags["website"]
		result.Phone = details.Extratags["phone"]
		result.Wheelchair = details.Extratags["wheelchair"]
	} else {
		s.logger.DebugContext(ctx, "Reverse lookup failed", slog.String("name", name), slog.Any("error", err))
	}
	if extract, err := s.wikiExtract(ctx, name); err == nil {
		result.Description = extract
	} else {
		s.logger.DebugContext(ctx, "Wikipedia extract failed", slog.String("name", name), slog.Any("error", err))
	}

	s.cache.Set(cacheKey, result, cache.DefaultExpiration)
	return result
}

// ValidatePrice averages the provided cost against the OSM fee tag and
// grades confidence by the spread between sources.
func (s *ServiceImpl) ValidatePrice(ctx context.Context, name string, providedCost float64) *PriceCheck {
	cacheKey := "price:" + name
	if cached, found := s.cache.Get(cacheKey); found {
		metrics.Get().FactCheckCacheHitsTotal.Add(ctx, 1)
		return cached.(*PriceCheck)
	}

	estimates := []float64{}
	if providedCost > 0 {
		estimates = append(estimates, providedCost)
	}
	if hit, err := s.searchPlace(ctx, name); err == nil && hit != nil {
		if fee, err := strconv.ParseFloat(hit.extratags["fee"], 64); err == nil && fee > 0 {
			estimates = append(estimates, fee)
		}
	} else if err != nil {
		s.logger.DebugContext(ctx, "Price lookup failed", slog.String("name", name), slog.Any("error", err))
		return &PriceCheck{Verified: false}
	}

	result := &PriceCheck{
		Verified:        true,
		SuggestedPrice:  averagePrice(estimates, providedCost),
		PriceConfidence: priceConfidence(estimates),
	}
	s.cache.Set(cacheKey, result, cache.DefaultExpiration)
	return result
}

type placeHit struct {
	lat, lon  float64
	class     string
	osmType   string
	extratags map[string]string
}

func (s *ServiceImpl) searchPlace(ctx context.Context, name string) (*placeHit, error) {
	q := url.Values{}
	q.Set("q", name)
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("addressdetails", "1")
	q.Set("extratags", "1")

	var hits []struct {
		Lat       string            `json:"lat"`
		Lon       string            `json:"lon"`
		Class     string            `json:"class"`
		Type      string            `json:"type"`
		Extratags map[string]string `json:"extratags"`
	}
	if err := s.getJSON(ctx, s.cfg.NominatimURL+"/search?"+q.Encode(), &hits); err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}
	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("bad latitude %q: %w", hits[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("bad longitude %q: %w", hits[0].Lon, err)
	}
	return &placeHit{lat: lat, lon: lon, class: hits[0].Class, osmType: hits[0].Type, extratags: hits[0].Extratags}, nil
}

type reverseResult struct {
	Type      string            `json:"type"`
	Category  string            `json:"category"`
	Extratags map[string]string `json:"extratags"`
}

func (s *ServiceImpl) reverseLookup(ctx context.Context, lat, lon float64) (*reverseResult, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("format", "json")
	q.Set("extratags", "1")

	var result reverseResult
	if err := s.getJSON(ctx, s.cfg.NominatimURL+"/reverse?"+q.Encode(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *ServiceImpl) wikiExtract(ctx context.Context, title string) (string, error) {
	q := url.Values{}
	q.Set("action", "query")
	q.Set("format", "json")
	q.Set("prop", "extracts")
	q.Set("exintro", "")
	q.Set("explaintext", "")
	q.Set("titles", title)
	q.Set("origin", "*")

	var result struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := s.getJSON(ctx, s.cfg.WikipediaURL+"?"+q.Encode(), &result); err != nil {
		return "", err
	}
	for _, page := range result.Query.Pages {
		return page.Extract, nil
	}
	return "", nil
}

func (s *ServiceImpl) getJSON(ctx context.Context, rawURL string, dst any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", s.cfg.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// haversineKm returns the great-circle distance between two points.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func averagePrice(estimates []float64, provided float64) float64 {
	if len(estimates) == 0 {
		return provided
	}
	sum := 0.0
	for _, p := range estimates {
		sum += p
	}
	return math.Round(sum / float64(len(estimates)))
}

// priceConfidence grades agreement between sources by the coefficient
// of variation.
func priceConfidence(estimates []float64) string {
	if len(estimates) < 2 {
		return "low"
	}
	sum := 0.0
	for _, p := range estimates {
		sum += p
	}
	avg := sum / float64(len(estimates))
	if avg == 0 {
		return "low"
	}
	variance := 0.0
	for _, p := range estimates {
		variance += (p - avg) * (p - avg)
	}
	variance /= float64(len(estimates))
	cv := math.Sqrt(variance) / avg * 100

	switch {
	case cv < 15:
		return "high"
	case cv < 30:
		return "medium"
	default:
		return "low"
	}
}
