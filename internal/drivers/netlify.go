package drivers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"portfolio-backend/internal/platformlinks"
)

const netlifyPlatform = platformlinks.PlatformNetlify

var errMissingSiteID = errors.New("missing site id")

// NetlifyDriver deploys site bundles as Netlify sites via zip deploys.
// Netlify verifies custom domains itself, so no DNS instructions are
// returned.
type NetlifyDriver struct {
	APIBase    string
	Links      *platformlinks.Service
	HTTPClient *http.Client
}

// NewNetlifyDriver constructs a NetlifyDriver.
func NewNetlifyDriver(apiBase string, links *platformlinks.Service) *NetlifyDriver {
	return &NetlifyDriver{
		APIBase:    strings.TrimRight(apiBase, "/"),
		Links:      links,
		HTTPClient: http.DefaultClient,
	}
}

type netlifySite struct {
	ID     string `json:"id"`
	URL    string `json:"url"`
	SSLURL string `json:"ssl_url"`
}

// Deploy creates a site and uploads the bundle as its first deploy.
func (d *NetlifyDriver) Deploy(ctx context.Context, req DeployRequest) (DeployResult, error) {
	headers, err := d.headers(ctx, req.UserID)
	if err != nil {
		return DeployResult{}, err
	}

	var site netlifySite
	status, err := doJSON(ctx, d.HTTPClient, http.MethodPost, d.APIBase+"/api/v1/sites", headers,
		map[string]string{"name": req.RepoName}, &site)
	if err != nil {
		return DeployResult{}, platformErr(netlifyPlatform, "create site", status, err)
	}
	if site.ID == "" {
		return DeployResult{}, platformErr(netlifyPlatform, "create site", status, errMissingSiteID)
	}

	return d.upload(ctx, headers, site, req)
}

// Redeploy uploads the bundle as a new deploy of the existing site.
func (d *NetlifyDriver) Redeploy(ctx context.Context, ref string, req DeployRequest) (DeployResult, error) {
	headers, err := d.headers(ctx, req.UserID)
	if err != nil {
		return DeployResult{}, err
	}

	var site netlifySite
	status, err := doJSON(ctx, d.HTTPClient, http.MethodGet, d.APIBase+"/api/v1/sites/"+ref, headers, nil, &site)
	if err != nil {
		return DeployResult{}, platformErr(netlifyPlatform, "get site", status, err)
	}
	if site.ID == "" {
		site.ID = ref
	}

	return d.upload(ctx, headers, site, req)
}

// Delete removes the site. Best-effort.
func (d *NetlifyDriver) Delete(ctx context.Context, userID, ref string) error {
	headers, err := d.headers(ctx, userID)
	if err != nil {
		return err
	}
	status, err := doJSON(ctx, d.HTTPClient, http.MethodDelete, d.APIBase+"/api/v1/sites/"+ref, headers, nil, nil)
	if err != nil {
		return platformErr(netlifyPlatform, "delete site", status, err)
	}
	return nil
}

func (d *NetlifyDriver) headers(ctx context.Context, userID string) (map[string]string, error) {
	token, err := d.Links.Token(ctx, userID, netlifyPlatform)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

func (d *NetlifyDriver) upload(ctx context.Context, headers map[string]string, site netlifySite, req DeployRequest) (DeployResult, error) {
	status, err := doRaw(ctx, d.HTTPClient, http.MethodPost,
		d.APIBase+"/api/v1/sites/"+site.ID+"/deploys", "application/zip", req.Bundle, headers, nil)
	if err != nil {
		return DeployResult{}, platformErr(netlifyPlatform, "upload deploy", status, err)
	}

	if req.CustomDomain != "" {
		status, err := doJSON(ctx, d.HTTPClient, http.MethodPatch,
			d.APIBase+"/api/v1/sites/"+site.ID, headers,
			map[string]string{"custom_domain": req.CustomDomain}, nil)
		if err != nil {
			return DeployResult{}, platformErr(netlifyPlatform, "set custom domain", status, err)
		}
	}

	liveURL := site.SSLURL
	if liveURL == "" {
		liveURL = site.URL
	}
	if req.CustomDomain != "" {
		liveURL = "https://" + req.CustomDomain + "/"
	}
	if liveURL == "" {
		liveURL = "https://" + site.ID + ".netlify.app/"
	}

	return DeployResult{LiveURL: liveURL, Ref: site.ID}, nil
}

var _ Driver = (*NetlifyDriver)(nil)
