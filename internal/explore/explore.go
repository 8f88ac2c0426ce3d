package explore

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"campscout/internal/backend"
	"campscout/internal/browser"
	"campscout/internal/config"
	"campscout/internal/llm"
)

// Explorer classifies a source site before any scraper is written. Its
// output dramatically shapes the generated code, so it runs once per
// request and the result is cached on the request record.
type Explorer struct {
	browserCfg config.BrowserConfig
	extractor  llm.Client
	logger     *slog.Logger
}

func New(cfg *config.Config, extractor llm.Client, logger *slog.Logger) *Explorer {
	return &Explorer{
		browserCfg: cfg.Browser,
		extractor:  extractor,
		logger:     logger,
	}
}

// siteClassification is the schema the AI extraction returns for the
// first pass over a source page.
type siteClassification struct {
	OrganizationType string `json:"organizationType"`
	Locations        []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"locations"`
	Categories           []string `json:"categories"`
	ExternalRegistration struct {
		Platform      string `json:"platform"`
		BaseURL       string `json:"baseUrl"`
		URLParameters string `json:"urlParameters"`
	} `json:"externalRegistration"`
	NavigationInstructions string `json:"navigationInstructions"`
	EstimatedCampCount     string `json:"estimatedCampCount"`
}

// locationDetail is the schema for the second, location-focused pass.
type locationDetail struct {
	Locations []struct {
		LocationName  string `json:"locationName"`
		URL           string `json:"url"`
		SiteIDOrParam string `json:"siteIdOrParam"`
	} `json:"locations"`
}

var classificationFields = []llm.FieldSpec{
	{Name: "organizationType", Type: "string", Description: "How the site organizes its camp catalog: by_location, by_category, single_list, or unknown."},
	{Name: "locations", Type: "array", Description: "Physical locations the organization runs camps at, each as {name, url}."},
	{Name: "categories", Type: "array", Description: "Camp category names offered (e.g. sports, arts, STEM)."},
	{Name: "externalRegistration", Type: "object", Description: "If registration happens on another platform: {platform, baseUrl, urlParameters}."},
	{Name: "navigationInstructions", Type: "string", Description: "Short instructions for how a scraper should navigate from this page to the full session list."},
	{Name: "estimatedCampCount", Type: "string", Description: "Rough number of distinct camps listed or linked from this page."},
}

var locationFields = []llm.FieldSpec{
	{Name: "locations", Type: "array", Description: "Every camp location with {locationName, url, siteIdOrParam} where siteIdOrParam is the site id or query parameter selecting that location."},
}

// Explore runs the exploration protocol for one request. It returns the
// cached exploration when present, skips browser work entirely when a
// prior scraper version exists without one, and otherwise drives the
// browser to produce a fresh SiteExploration.
func (e *Explorer) Explore(ctx context.Context, req *backend.DevelopmentRequest) (*backend.SiteExploration, error) {
	if req.SiteExploration != nil {
		e.logger.Info("reusing cached exploration", "request", req.ID, "siteType", req.SiteExploration.SiteType)
		return req.SiteExploration, nil
	}
	if req.GeneratedScraperCode != "" {
		// A retry of an already-generated scraper; exploration would not
		// change the outcome.
		return nil, nil
	}

	sess, err := browser.Open(ctx, e.browserCfg, e.extractor)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	terms := DeriveSearchTerms(req.SourceName, req.SourceURL)

	// API discovery is best-effort: drivers without network events just
	// skip it.
	var sniffer *browser.Sniffer
	if sn, err := sess.StartSniffer(e.browserCfg.MaxSniffedBody); err == nil {
		sniffer = sn
	} else {
		e.logger.Debug("network hooks unavailable, skipping api discovery", "request", req.ID, "err", err)
	}

	if err := sess.Goto(req.SourceURL, browser.WaitNetworkIdle); err != nil {
		return nil, err
	}
	sess.Settle()

	var classified siteClassification
	if err := sess.Extract(ctx,
		"Classify this camp organization's website navigation topology.",
		classificationFields, &classified); err != nil {
		return nil, err
	}

	exploration := &backend.SiteExploration{
		SiteType:             normalizeSiteType(classified.OrganizationType),
		HasMultipleLocations: len(classified.Locations) > 1,
		HasCategories:        len(classified.Categories) > 0,
		Categories:           classified.Categories,
		RegistrationSystem:   classified.ExternalRegistration.Platform,
		ExploredAt:           time.Now().UnixMilli(),
	}
	for _, loc := range classified.Locations {
		exploration.Locations = append(exploration.Locations, backend.Location{Name: loc.Name, URL: loc.URL})
	}
	if classified.ExternalRegistration.BaseURL != "" {
		exploration.URLPatterns = append(exploration.URLPatterns, classified.ExternalRegistration.BaseURL)
	}
	if classified.NavigationInstructions != "" {
		exploration.NavigationNotes = append(exploration.NavigationNotes, classified.NavigationInstructions)
	}
	if len(terms) > 0 {
		exploration.APISearchTerm = terms[0]
	}

	if exploration.HasMultipleLocations {
		var detail locationDetail
		if err := sess.Extract(ctx,
			"List every camp location on this page with the URL or site parameter that selects it.",
			locationFields, &detail); err == nil && len(detail.Locations) > 0 {
			locations := make([]backend.Location, 0, len(detail.Locations))
			for _, loc := range detail.Locations {
				locations = append(locations, backend.Location{
					Name:   loc.LocationName,
					URL:    loc.URL,
					SiteID: loc.SiteIDOrParam,
				})
			}
			exploration.Locations = locations
		}
	}

	if sniffer != nil {
		exploration.DiscoveredAPIs = ScoreResponses(sniffer.Stop(), terms)
		if n := len(exploration.DiscoveredAPIs); n > 0 {
			e.logger.Info("discovered json apis", "request", req.ID, "count", n,
				"top", exploration.DiscoveredAPIs[0].URL)
		}
	}

	if IsLikelyDirectory(req.SourceURL, classified.EstimatedCampCount) {
		exploration.IsDirectory = true
		var raw []RawLink
		if err := sess.Eval(linkCollectorJS, &raw); err != nil {
			e.logger.Warn("directory link collection failed", "request", req.ID, "err", err)
		} else {
			exploration.DirectoryLinks = FilterDirectoryLinks(req.SourceURL, raw)
		}
	}

	return exploration, nil
}

func normalizeSiteType(orgType string) string {
	switch strings.TrimSpace(strings.ToLower(orgType)) {
	case "by_location", "by_category", "single_list":
		return strings.TrimSpace(strings.ToLower(orgType))
	case "":
		return "unknown"
	default:
		return strings.TrimSpace(strings.ToLower(orgType))
	}
}
