package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"campscout/internal/config"
)

// Client is the typed RPC surface the daemon uses to talk to the
// document-database backend. Queries, mutations, and actions are posted
// as JSON to /api/query, /api/mutation, and /api/action respectively.
// The claim mutations are the only cross-worker ordering primitive.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(cfg config.BackendConfig) *Client {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type rpcRequest struct {
	Path   string `json:"path"`
	Args   any    `json:"args"`
	Format string `json:"format"`
}

type rpcResponse struct {
	Status       string          `json:"status"`
	Value        json.RawMessage `json:"value"`
	ErrorMessage string          `json:"errorMessage"`
}

// call posts one RPC and decodes the value into out (which may be nil
// for fire-and-forget mutations). A "null" value with a non-nil out is
// left untouched so callers can distinguish "no work" from a result.
func (c *Client) call(ctx context.Context, kind, path string, args, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	payload, err := json.Marshal(rpcRequest{Path: path, Args: args, Format: "json"})
	if err != nil {
		return err
	}

	endpoint := c.baseURL + "/api/" + kind
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend %s %s failed with status %d", kind, path, resp.StatusCode)
	}

	var parsed rpcResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("backend %s %s returned unparseable response: %w", kind, path, err)
	}
	if parsed.Status != "" && parsed.Status != "success" {
		return fmt.Errorf("backend %s %s: %s", kind, path, parsed.ErrorMessage)
	}

	if out == nil || len(parsed.Value) == 0 || string(parsed.Value) == "null" {
		return nil
	}
	if err := json.Unmarshal(parsed.Value, out); err != nil {
		return fmt.Errorf("backend %s %s returned unexpected shape: %w", kind, path, err)
	}
	return nil
}

func (c *Client) query(ctx context.Context, path string, args, out any) error {
	return c.call(ctx, "query", path, args, out)
}

func (c *Client) mutation(ctx context.Context, path string, args, out any) error {
	return c.call(ctx, "mutation", path, args, out)
}

func (c *Client) action(ctx context.Context, path string, args, out any) error {
	return c.call(ctx, "action", path, args, out)
}

// ListAllCities resolves the --city slug at startup.
func (c *Client) ListAllCities(ctx context.Context) ([]City, error) {
	var cities []City
	if err := c.query(ctx, "cities:listAllCities", nil, &cities); err != nil {
		return nil, err
	}
	return cities, nil
}

// GetPendingRequests inspects the queue without claiming anything.
func (c *Client) GetPendingRequests(ctx context.Context) ([]DevelopmentRequest, error) {
	var reqs []DevelopmentRequest
	if err := c.query(ctx, "scraperDevelopment:getPendingRequests", nil, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// GetNextAndClaim atomically returns one pending request and marks it
// in-progress, or returns nil when there is no work. A nil, nil return
// is the normal idle case and should not be logged at default verbosity.
func (c *Client) GetNextAndClaim(ctx context.Context, workerID, cityID string) (*DevelopmentRequest, error) {
	args := map[string]any{"workerId": workerID}
	if cityID != "" {
		args["cityId"] = cityID
	}
	var req DevelopmentRequest
	if err := c.mutation(ctx, "scraperDevelopment:getNextAndClaim", args, &req); err != nil {
		return nil, err
	}
	if req.ID == "" {
		return nil, nil
	}
	return &req, nil
}

func (c *Client) SaveExploration(ctx context.Context, requestID string, exploration *SiteExploration) error {
	return c.mutation(ctx, "scraperDevelopment:saveExploration", map[string]any{
		"requestId":   requestID,
		"exploration": exploration,
	}, nil)
}

func (c *Client) UpdateScraperCode(ctx context.Context, requestID, scraperCode string) error {
	return c.mutation(ctx, "scraperDevelopment:updateScraperCode", map[string]any{
		"requestId":   requestID,
		"scraperCode": scraperCode,
	}, nil)
}

// RecordTestResults is the terminal mutation for one attempt. Optional
// report fields are omitted from the args rather than sent empty.
func (c *Client) RecordTestResults(ctx context.Context, requestID string, report TestReport) error {
	args := map[string]any{
		"requestId":     requestID,
		"sessionsFound": report.SessionsFound,
	}
	if len(report.Samples) > 0 {
		args["sampleData"] = report.Samples
	}
	if report.Error != "" {
		args["error"] = report.Error
	}
	if report.Note != "" {
		args["note"] = report.Note
	}
	if report.CheckAfter != "" {
		args["checkAfter"] = report.CheckAfter
	}
	return c.mutation(ctx, "scraperDevelopment:recordTestResults", args, nil)
}

// SubmitFeedback appends feedback to the request history and re-opens it
// for another attempt.
func (c *Client) SubmitFeedback(ctx context.Context, requestID, feedback, feedbackBy string) error {
	return c.mutation(ctx, "scraperDevelopment:submitFeedback", map[string]any{
		"requestId":  requestID,
		"feedback":   feedback,
		"feedbackBy": feedbackBy,
	}, nil)
}

// MarkDirectoryProcessed terminates a request whose URL turned out to be
// a directory rather than a single source.
func (c *Client) MarkDirectoryProcessed(ctx context.Context, requestID, notes string, linksFound, requestsCreated int) error {
	return c.mutation(ctx, "scraperDevelopment:markDirectoryProcessed", map[string]any{
		"requestId":       requestID,
		"notes":           notes,
		"linksFound":      linksFound,
		"requestsCreated": requestsCreated,
	}, nil)
}

// RequestScraperDevelopment enqueues a new per-site request, used when
// fanning out the links of a processed directory.
func (c *Client) RequestScraperDevelopment(ctx context.Context, sourceName, sourceURL, cityID, notes, requestedBy string) error {
	args := map[string]any{
		"sourceName":  sourceName,
		"sourceUrl":   sourceURL,
		"notes":       notes,
		"requestedBy": requestedBy,
	}
	if cityID != "" {
		args["cityId"] = cityID
	}
	return c.mutation(ctx, "scraperDevelopment:requestScraperDevelopment", args, nil)
}

func (c *Client) GetPendingDirectories(ctx context.Context, limit int) ([]DirectoryQueueItem, error) {
	var items []DirectoryQueueItem
	if err := c.query(ctx, "directoryQueue:getPendingDirectories", map[string]any{"limit": limit}, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ClaimQueueItem returns false when another worker claimed the item
// first; that is a normal race, not an error.
func (c *Client) ClaimQueueItem(ctx context.Context, id string) (bool, error) {
	var claimed bool
	if err := c.mutation(ctx, "directoryQueue:claimQueueItem", map[string]any{"id": id}, &claimed); err != nil {
		return false, err
	}
	return claimed, nil
}

func (c *Client) CompleteQueueItem(ctx context.Context, id string, result DirectoryResult) error {
	return c.mutation(ctx, "directoryQueue:completeQueueItem", map[string]any{
		"id":            id,
		"success":       result.Success,
		"linksFound":    result.LinksFound,
		"extractedUrls": result.ExtractedURLs,
		"error":         result.Error,
	}, nil)
}

func (c *Client) GetOrgsNeedingContactInfo(ctx context.Context, limit int) ([]Organization, error) {
	var orgs []Organization
	if err := c.query(ctx, "organizations:getOrgsNeedingContactInfo", map[string]any{"limit": limit}, &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

// SaveOrgContactInfo persists whatever was found. An empty fields map
// still records the attempt so the backend can apply retry backoff.
func (c *Client) SaveOrgContactInfo(ctx context.Context, orgID string, fields map[string]string) error {
	args := map[string]any{"orgId": orgID}
	for k, v := range fields {
		args[k] = v
	}
	return c.mutation(ctx, "organizations:saveOrgContactInfo", args, nil)
}

func (c *Client) GetPendingDiscoveryTasks(ctx context.Context, limit int) ([]DiscoveryTask, error) {
	var tasks []DiscoveryTask
	if err := c.query(ctx, "discovery:getPendingDiscoveryTasks", map[string]any{"limit": limit}, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) ClaimDiscoveryTask(ctx context.Context, taskID, sessionID string) (bool, error) {
	var claimed bool
	if err := c.mutation(ctx, "discovery:claimDiscoveryTask", map[string]any{
		"taskId":    taskID,
		"sessionId": sessionID,
	}, &claimed); err != nil {
		return false, err
	}
	return claimed, nil
}

func (c *Client) UpdateDiscoveryProgress(ctx context.Context, taskID, phase string, queriesDone, urlsFound, directoriesFound int) error {
	return c.mutation(ctx, "discovery:updateDiscoveryProgress", map[string]any{
		"taskId":           taskID,
		"phase":            phase,
		"queriesDone":      queriesDone,
		"urlsFound":        urlsFound,
		"directoriesFound": directoriesFound,
	}, nil)
}

func (c *Client) CompleteDiscoveryTask(ctx context.Context, taskID string, orgsCreated, orgsExisted, sourcesCreated int) error {
	return c.mutation(ctx, "discovery:completeDiscoveryTask", map[string]any{
		"taskId":         taskID,
		"orgsCreated":    orgsCreated,
		"orgsExisted":    orgsExisted,
		"sourcesCreated": sourcesCreated,
	}, nil)
}

func (c *Client) FailDiscoveryTask(ctx context.Context, taskID, errMsg string) error {
	return c.mutation(ctx, "discovery:failDiscoveryTask", map[string]any{
		"taskId": taskID,
		"error":  errMsg,
	}, nil)
}

// DiscoveryOutcome is the backend's report after folding discovered URLs
// into organizations and scraper-development requests.
type DiscoveryOutcome struct {
	OrgsCreated    int `json:"orgsCreated"`
	OrgsExisted    int `json:"orgsExisted"`
	SourcesCreated int `json:"sourcesCreated"`
}

// ProcessDiscoveryResults hands the accumulated URLs to the backend,
// which dedupes them into organizations and creates per-org requests.
func (c *Client) ProcessDiscoveryResults(ctx context.Context, taskID string, discoveredURLs []string) (*DiscoveryOutcome, error) {
	var out DiscoveryOutcome
	if err := c.action(ctx, "discovery:processDiscoveryResults", map[string]any{
		"taskId":         taskID,
		"discoveredUrls": discoveredURLs,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
