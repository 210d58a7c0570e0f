package drivers

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"portfolio-backend/internal/platformlinks"
)

const vercelPlatform = platformlinks.PlatformVercel

// VercelDriver deploys site bundles through the Vercel deployments
// API. Vercel verifies custom domains itself, so no DNS instructions
// are returned.
type VercelDriver struct {
	APIBase    string
	Links      *platformlinks.Service
	HTTPClient *http.Client
}

// NewVercelDriver constructs a VercelDriver.
func NewVercelDriver(apiBase string, links *platformlinks.Service) *VercelDriver {
	return &VercelDriver{
		APIBase:    strings.TrimRight(apiBase, "/"),
		Links:      links,
		HTTPClient: http.DefaultClient,
	}
}

// Deploy creates a new project deployment from the bundle files.
func (d *VercelDriver) Deploy(ctx context.Context, req DeployRequest) (DeployResult, error) {
	headers, err := d.headers(ctx, req.UserID)
	if err != nil {
		return DeployResult{}, err
	}
	return d.push(ctx, headers, req.RepoName, req)
}

// Redeploy pushes a fresh deployment to the existing project.
func (d *VercelDriver) Redeploy(ctx context.Context, ref string, req DeployRequest) (DeployResult, error) {
	headers, err := d.headers(ctx, req.UserID)
	if err != nil {
		return DeployResult{}, err
	}
	return d.push(ctx, headers, ref, req)
}

// Delete removes the project. Best-effort.
func (d *VercelDriver) Delete(ctx context.Context, userID, ref string) error {
	headers, err := d.headers(ctx, userID)
	if err != nil {
		return err
	}
	status, err := doJSON(ctx, d.HTTPClient, http.MethodDelete, d.APIBase+"/v9/projects/"+ref, headers, nil, nil)
	if err != nil {
		return platformErr(vercelPlatform, "delete project", status, err)
	}
	return nil
}

func (d *VercelDriver) headers(ctx context.Context, userID string) (map[string]string, error) {
	token, err := d.Links.Token(ctx, userID, vercelPlatform)
	if err != nil {
		return nil, err
	}
	return map[string]string{"Authorization": "Bearer " + token}, nil
}

func (d *VercelDriver) push(ctx context.Context, headers map[string]string, project string, req DeployRequest) (DeployResult, error) {
	files, err := bundleFiles(req.Bundle)
	if err != nil {
		return DeployResult{}, platformErr(vercelPlatform, "read bundle", 0, err)
	}

	payload := map[string]any{
		"name":   project,
		"files":  files,
		"target": "production",
		"projectSettings": map[string]any{
			"framework": nil,
		},
	}

	var created struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	status, err := doJSON(ctx, d.HTTPClient, http.MethodPost, d.APIBase+"/v13/deployments", headers, payload, &created)
	if err != nil {
		return DeployResult{}, platformErr(vercelPlatform, "create deployment", status, err)
	}

	if req.CustomDomain != "" {
		status, err := doJSON(ctx, d.HTTPClient, http.MethodPost,
			d.APIBase+"/v10/projects/"+project+"/domains", headers,
			map[string]string{"name": req.CustomDomain}, nil)
		// 409: domain already attached from an earlier deploy.
		if err != nil && status != http.StatusConflict {
			return DeployResult{}, platformErr(vercelPlatform, "attach domain", status, err)
		}
	}

	liveURL := created.URL
	if liveURL != "" && !strings.HasPrefix(liveURL, "http") {
		liveURL = "https://" + liveURL
	}
	if req.CustomDomain != "" {
		liveURL = "https://" + req.CustomDomain + "/"
	}
	if liveURL == "" {
		return DeployResult{}, platformErr(vercelPlatform, "create deployment", status, fmt.Errorf("missing deployment url"))
	}

	return DeployResult{LiveURL: liveURL, Ref: project}, nil
}

// bundleFiles converts the zipped bundle into the inline file list the
// deployments API accepts.
func bundleFiles(bundle []byte) ([]map[string]any, error) {
	zr, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		return nil, err
	}
	files := make([]map[string]any, 0, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, err
		}
		files = append(files, map[string]any{
			"file":     f.Name,
			"data":     base64.StdEncoding.EncodeToString(data),
			"encoding": "base64",
		})
	}
	return files, nil
}

var _ Driver = (*VercelDriver)(nil)
