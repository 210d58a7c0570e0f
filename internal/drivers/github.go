package drivers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"portfolio-backend/internal/platformlinks"
)

const githubPlatform = platformlinks.PlatformGitHub

// GitHubDriver deploys site bundles as GitHub Pages repositories.
type GitHubDriver struct {
	APIBase string
	Links   *platformlinks.Service
	// HTTPClient overrides the oauth2 client base transport in tests.
	HTTPClient *http.Client
}

// NewGitHubDriver constructs a GitHubDriver.
func NewGitHubDriver(apiBase string, links *platformlinks.Service) *GitHubDriver {
	return &GitHubDriver{APIBase: strings.TrimRight(apiBase, "/"), Links: links}
}

// Deploy creates a repository, pushes the site files and enables
// Pages. Custom domains get DNS instructions since GitHub cannot
// verify them automatically.
func (d *GitHubDriver) Deploy(ctx context.Context, req DeployRequest) (DeployResult, error) {
	client, err := d.client(ctx, req.UserID)
	if err != nil {
		return DeployResult{}, err
	}

	owner, err := d.viewer(ctx, client)
	if err != nil {
		return DeployResult{}, err
	}

	var created struct {
		FullName string `json:"full_name"`
	}
	status, err := doJSON(ctx, client, http.MethodPost, d.APIBase+"/user/repos", nil,
		map[string]any{
			"name":        req.RepoName,
			"description": "Portfolio site",
			"auto_init":   true,
		}, &created)
	if err != nil {
		return DeployResult{}, platformErr(githubPlatform, "create repo", status, err)
	}
	ref := created.FullName
	if ref == "" {
		ref = owner + "/" + req.RepoName
	}

	if err := d.pushBundle(ctx, client, ref, req.Bundle); err != nil {
		return DeployResult{}, err
	}
	if err := d.enablePages(ctx, client, ref, req.CustomDomain); err != nil {
		return DeployResult{}, err
	}

	return d.result(owner, ref, req.CustomDomain), nil
}

// Redeploy pushes the current site files to an existing repository.
func (d *GitHubDriver) Redeploy(ctx context.Context, ref string, req DeployRequest) (DeployResult, error) {
	client, err := d.client(ctx, req.UserID)
	if err != nil {
		return DeployResult{}, err
	}
	owner, err := d.viewer(ctx, client)
	if err != nil {
		return DeployResult{}, err
	}

	if err := d.pushBundle(ctx, client, ref, req.Bundle); err != nil {
		return DeployResult{}, err
	}
	if err := d.enablePages(ctx, client, ref, req.CustomDomain); err != nil {
		return DeployResult{}, err
	}

	return d.result(owner, ref, req.CustomDomain), nil
}

// Delete removes the repository. Best-effort.
func (d *GitHubDriver) Delete(ctx context.Context, userID, ref string) error {
	client, err := d.client(ctx, userID)
	if err != nil {
		return err
	}
	status, err := doJSON(ctx, client, http.MethodDelete, d.APIBase+"/repos/"+ref, nil, nil, nil)
	if err != nil {
		return platformErr(githubPlatform, "delete repo", status, err)
	}
	return nil
}

func (d *GitHubDriver) client(ctx context.Context, userID string) (*http.Client, error) {
	token, err := d.Links.Token(ctx, userID, githubPlatform)
	if err != nil {
		return nil, err
	}
	if d.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, d.HTTPClient)
	}
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})), nil
}

func (d *GitHubDriver) viewer(ctx context.Context, client *http.Client) (string, error) {
	var user struct {
		Login string `json:"login"`
	}
	status, err := doJSON(ctx, client, http.MethodGet, d.APIBase+"/user", nil, nil, &user)
	if err != nil {
		return "", platformErr(githubPlatform, "get user", status, err)
	}
	if user.Login == "" {
		return "", platformErr(githubPlatform, "get user", status, fmt.Errorf("empty login"))
	}
	return user.Login, nil
}

// pushBundle writes every file in the zipped bundle through the
// contents API, updating in place when the path already exists.
func (d *GitHubDriver) pushBundle(ctx context.Context, client *http.Client, ref string, bundle []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		return platformErr(githubPlatform, "read bundle", 0, err)
	}

	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return platformErr(githubPlatform, "read bundle", 0, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return platformErr(githubPlatform, "read bundle", 0, err)
		}
		if err := d.putFile(ctx, client, ref, f.Name, data); err != nil {
			return err
		}
	}
	return nil
}

func (d *GitHubDriver) putFile(ctx context.Context, client *http.Client, ref, path string, data []byte) error {
	target := fmt.Sprintf("%s/repos/%s/contents/%s", d.APIBase, ref, url.PathEscape(path))

	body := map[string]any{
		"message": "deploy " + path,
		"content": base64.StdEncoding.EncodeToString(data),
		"branch":  "main",
	}
	if sha := d.fileSHA(ctx, client, target); sha != "" {
		body["sha"] = sha
	}

	status, err := doJSON(ctx, client, http.MethodPut, target, nil, body, nil)
	if err != nil {
		return platformErr(githubPlatform, "put "+path, status, err)
	}
	return nil
}

// fileSHA returns the blob sha of an existing file, or "" when absent.
func (d *GitHubDriver) fileSHA(ctx context.Context, client *http.Client, target string) string {
	var existing struct {
		SHA string `json:"sha"`
	}
	if _, err := doJSON(ctx, client, http.MethodGet, target+"?ref=main", nil, nil, &existing); err != nil {
		return ""
	}
	return existing.SHA
}

func (d *GitHubDriver) enablePages(ctx context.Context, client *http.Client, ref, customDomain string) error {
	pagesURL := fmt.Sprintf("%s/repos/%s/pages", d.APIBase, ref)

	status, err := doJSON(ctx, client, http.MethodPost, pagesURL, nil,
		map[string]any{"source": map[string]string{"branch": "main", "path": "/"}}, nil)
	// 409: pages already enabled for this repo, fine on redeploy.
	if err != nil && status != http.StatusConflict {
		return platformErr(githubPlatform, "enable pages", status, err)
	}

	if customDomain != "" {
		status, err := doJSON(ctx, client, http.MethodPut, pagesURL, nil,
			map[string]any{"cname": customDomain}, nil)
		if err != nil {
			return platformErr(githubPlatform, "set custom domain", status, err)
		}
	}
	return nil
}

func (d *GitHubDriver) result(owner, ref, customDomain string) DeployResult {
	repo := ref
	if i := strings.IndexByte(ref, '/'); i >= 0 {
		repo = ref[i+1:]
	}
	res := DeployResult{
		LiveURL: fmt.Sprintf("https://%s.github.io/%s/", owner, repo),
		Ref:     ref,
	}
	if customDomain != "" {
		res.LiveURL = "https://" + customDomain + "/"
		res.DNS = githubDNSInstructions(owner, customDomain)
	}
	return res
}

var _ Driver = (*GitHubDriver)(nil)
