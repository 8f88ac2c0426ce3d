package backend

// City is one geographic market the planner serves.
type City struct {
	ID   string `json:"_id"`
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// FeedbackEntry is one element of a request's ordered feedback history.
type FeedbackEntry struct {
	FeedbackAt           int64  `json:"feedbackAt"`
	Feedback             string `json:"feedback"`
	ScraperVersionBefore int    `json:"scraperVersionBefore"`
}

// Location is one physical site discovered during exploration.
type Location struct {
	Name   string `json:"name"`
	URL    string `json:"url,omitempty"`
	SiteID string `json:"siteId,omitempty"`
}

// DirectoryLink is one outbound link captured from a directory page.
type DirectoryLink struct {
	URL        string `json:"url"`
	Name       string `json:"name"`
	IsInternal bool   `json:"isInternal"`
}

// DiscoveredAPI is a JSON endpoint observed while monitoring network
// traffic during exploration.
type DiscoveredAPI struct {
	URL           string `json:"url"`
	Method        string `json:"method"`
	ContentType   string `json:"contentType"`
	ResponseSize  int    `json:"responseSize"`
	MatchCount    int    `json:"matchCount"`
	StructureHint string `json:"structureHint,omitempty"`
	URLPattern    string `json:"urlPattern,omitempty"`
	SampleData    string `json:"sampleData,omitempty"`
}

// SiteExploration is the cached result of the exploration stage. It is
// written once on the first attempt and reused verbatim on retries.
type SiteExploration struct {
	SiteType             string          `json:"siteType"`
	HasMultipleLocations bool            `json:"hasMultipleLocations"`
	Locations            []Location      `json:"locations,omitempty"`
	HasCategories        bool            `json:"hasCategories"`
	Categories           []string        `json:"categories,omitempty"`
	RegistrationSystem   string          `json:"registrationSystem,omitempty"`
	URLPatterns          []string        `json:"urlPatterns,omitempty"`
	NavigationNotes      []string        `json:"navigationNotes,omitempty"`
	IsDirectory          bool            `json:"isDirectory,omitempty"`
	DirectoryLinks       []DirectoryLink `json:"directoryLinks,omitempty"`
	DiscoveredAPIs       []DiscoveredAPI `json:"discoveredApis,omitempty"`
	APISearchTerm        string          `json:"apiSearchTerm,omitempty"`
	ExploredAt           int64           `json:"exploredAt"`
}

// DevelopmentRequest is one attempt at producing a scraper for a single
// source site.
type DevelopmentRequest struct {
	ID                   string           `json:"_id"`
	SourceName           string           `json:"sourceName"`
	SourceURL            string           `json:"sourceUrl"`
	CityID               string           `json:"cityId,omitempty"`
	Notes                string           `json:"notes,omitempty"`
	Status               string           `json:"status"`
	ScraperVersion       int              `json:"scraperVersion"`
	GeneratedScraperCode string           `json:"generatedScraperCode,omitempty"`
	FeedbackHistory      []FeedbackEntry  `json:"feedbackHistory,omitempty"`
	SiteExploration      *SiteExploration `json:"siteExploration,omitempty"`
	ClaimantID           string           `json:"claimantId,omitempty"`
}

// DirectoryQueueItem is a listing page awaiting a crawl by the directory
// loop.
type DirectoryQueueItem struct {
	ID            string `json:"_id"`
	CityID        string `json:"cityId"`
	URL           string `json:"url"`
	Status        string `json:"status"`
	LinkPattern   string `json:"linkPattern,omitempty"`
	BaseURLFilter string `json:"baseUrlFilter,omitempty"`
}

// DirectoryResult reports the outcome of crawling one queue item.
type DirectoryResult struct {
	Success       bool     `json:"success"`
	LinksFound    int      `json:"linksFound,omitempty"`
	ExtractedURLs []string `json:"extractedUrls,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// DiscoveryTask is a market-level discovery job.
type DiscoveryTask struct {
	ID               string   `json:"_id"`
	CityID           string   `json:"cityId"`
	RegionName       string   `json:"regionName"`
	SearchQueries    []string `json:"searchQueries"`
	MaxSearchResults int      `json:"maxSearchResults,omitempty"`
	Status           string   `json:"status"`
}

// Organization is the daemon's view of an org record, used by the
// contact-extraction loop.
type Organization struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Website string `json:"website"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// TestReport is the terminal result of one development attempt.
// Everything but SessionsFound is optional: Samples accompany a
// successful run, Error a failed one, and Note/CheckAfter explain an
// accepted zero-session result.
type TestReport struct {
	SessionsFound int
	Samples       []TestSample
	Error         string
	Note          string
	CheckAfter    string
}

// TestSample is one extracted session shown to the operator alongside
// test results.
type TestSample struct {
	Name      string `json:"name,omitempty"`
	Dates     string `json:"dates,omitempty"`
	Location  string `json:"location,omitempty"`
	Ages      string `json:"ages,omitempty"`
	Price     string `json:"price,omitempty"`
	Available bool   `json:"available"`
}
