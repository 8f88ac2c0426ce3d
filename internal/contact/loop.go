package contact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"campscout/internal/backend"
	"campscout/internal/browser"
	"campscout/internal/config"
	"campscout/internal/llm"
)

const orgsPerPass = 3

var contactFields = []llm.FieldSpec{
	{Name: "email", Description: "primary contact email address for the organization", Type: "string"},
	{Name: "phone", Description: "primary phone number", Type: "string"},
	{Name: "contactName", Description: "name of a contact person, if listed", Type: "string"},
	{Name: "contactTitle", Description: "title or role of the contact person", Type: "string"},
	{Name: "address", Description: "street address of the organization", Type: "string"},
}

type contactInfo struct {
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	ContactName  string `json:"contactName"`
	ContactTitle string `json:"contactTitle"`
	Address      string `json:"address"`
}

// Enricher fills in contact details for organizations the backend has
// flagged. Each pass loads a few organization websites in the browser
// and extracts whatever contact fields the pages expose.
type Enricher struct {
	cfg        config.ContactConfig
	browserCfg config.BrowserConfig
	backend    *backend.Client
	extractor  llm.Client
	logger     *slog.Logger
}

func New(cfg config.ContactConfig, browserCfg config.BrowserConfig, client *backend.Client, extractor llm.Client, logger *slog.Logger) *Enricher {
	return &Enricher{
		cfg:        cfg,
		browserCfg: browserCfg,
		backend:    client,
		extractor:  extractor,
		logger:     logger,
	}
}

// RunOnce enriches up to three organizations. An extraction that finds
// nothing still saves an empty record so the backend can apply backoff
// instead of retrying the same site every pass.
func (e *Enricher) RunOnce(ctx context.Context) error {
	batch := e.cfg.BatchSize
	if batch <= 0 {
		batch = orgsPerPass
	}
	orgs, err := e.backend.GetOrgsNeedingContactInfo(ctx, batch)
	if err != nil {
		return fmt.Errorf("list orgs needing contact info: %w", err)
	}

	for _, org := range orgs {
		info, err := e.extract(ctx, org)
		if err != nil {
			e.logger.Warn("contact extraction failed", "org", org.Name, "err", err)
			info = &contactInfo{}
		}

		fields := map[string]string{}
		if info.Email != "" {
			fields["email"] = info.Email
		}
		if info.Phone != "" {
			fields["phone"] = info.Phone
		}
		if info.ContactName != "" {
			fields["contactName"] = info.ContactName
		}
		if info.ContactTitle != "" {
			fields["contactTitle"] = info.ContactTitle
		}
		if info.Address != "" {
			fields["address"] = info.Address
		}

		if err := e.backend.SaveOrgContactInfo(ctx, org.ID, fields); err != nil {
			e.logger.Error("contact info not saved", "org", org.Name, "err", err)
			continue
		}
		e.logger.Info("contact info saved", "org", org.Name, "fields", len(fields))
	}
	return nil
}

func (e *Enricher) extract(ctx context.Context, org backend.Organization) (*contactInfo, error) {
	if org.Website == "" {
		return nil, fmt.Errorf("organization has no website")
	}

	session, err := browser.Open(ctx, e.browserCfg, e.extractor)
	if err != nil {
		return nil, err
	}
	defer session.Close()

	if err := session.Goto(org.Website, browser.WaitNetworkIdle); err != nil {
		return nil, err
	}
	session.Settle()

	var info contactInfo
	instruction := "Find the organization's contact information: email, phone, a contact person if listed, and street address. Check the page footer and any contact section."
	if err := session.Extract(ctx, instruction, contactFields, &info); err != nil {
		return nil, err
	}

	info.Email = strings.TrimSpace(info.Email)
	info.Phone = strings.TrimSpace(info.Phone)
	return &info, nil
}
