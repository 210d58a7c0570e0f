package drivers

import (
	"context"
	"errors"
	"fmt"
)

// DeployRequest carries the artifact and target configuration for one
// deployment call.
type DeployRequest struct {
	UserID       string
	RepoName     string
	CustomDomain string
	// Bundle is the zipped site; PreviewHTML is the standalone page
	// for platforms that take individual files.
	Bundle      []byte
	PreviewHTML string
}

// DNSRecord is one record the user must create at their DNS provider.
type DNSRecord struct {
	Type  string `json:"type"`
	Host  string `json:"host"`
	Value string `json:"value"`
}

// DNSInstructions tells the user how to point a custom domain at the
// deployed site. Only returned by platforms that cannot verify the
// domain automatically.
type DNSInstructions struct {
	Type         string      `json:"type"`
	Records      []DNSRecord `json:"records"`
	Instructions string      `json:"instructions"`
}

// DeployResult is the uniform outcome of a deploy or redeploy.
type DeployResult struct {
	LiveURL string
	Ref     string
	DNS     *DNSInstructions
}

// Driver is the adapter contract for one hosting platform. Each
// implementation resolves the user's credential privately and fails
// fast when the platform is not linked.
type Driver interface {
	Deploy(ctx context.Context, req DeployRequest) (DeployResult, error)
	Redeploy(ctx context.Context, ref string, req DeployRequest) (DeployResult, error)
	// Delete tears down the remote target. Best-effort: callers treat
	// failures as warnings, never as fatal.
	Delete(ctx context.Context, userID, ref string) error
}

// ErrPlatform matches any PlatformError via errors.Is.
var ErrPlatform = errors.New("platform call failed")

// PlatformError wraps a failed, timed out, or rejected third-party
// call. These are retryable with the same request parameters.
type PlatformError struct {
	Platform string
	Op       string
	Status   int
	Err      error
}

func (e *PlatformError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Platform, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Platform, e.Op, e.Err)
}

func (e *PlatformError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrPlatform) match.
func (e *PlatformError) Is(target error) bool { return target == ErrPlatform }

func platformErr(platform, op string, status int, err error) error {
	return &PlatformError{Platform: platform, Op: op, Status: status, Err: err}
}
