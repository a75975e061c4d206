package artifact

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/pkg/errors"
)

const blobHostSuffix = ".blob.core.windows.net"

// DownloadError reports a failed artifact fetch. StatusCode is zero when the
// request never produced a response.
type DownloadError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// Fetcher opens the remote artifact for reading. Each call is a single attempt.
type Fetcher interface {
	Fetch(ctx context.Context) (io.ReadCloser, error)
	URL() string
}

// NewFetcher picks the Azure Blob client for blob storage hosts and plain HTTP
// for everything else.
func NewFetcher(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "parse artifact url %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("artifact url %q: unsupported scheme %q", rawURL, u.Scheme)
	}
	if strings.HasSuffix(u.Hostname(), blobHostSuffix) {
		return NewBlobFetcher(rawURL)
	}
	return NewHTTPFetcher(rawURL), nil
}

type HTTPFetcher struct {
	url    string
	client *http.Client
}

func NewHTTPFetcher(rawURL string) *HTTPFetcher {
	return &HTTPFetcher{url: rawURL, client: &http.Client{}}
}

func (f *HTTPFetcher) URL() string { return f.url }

func (f *HTTPFetcher) Fetch(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &DownloadError{URL: f.url, Err: err}
	}
	res, err := f.client.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: f.url, Err: err}
	}
	if res.StatusCode/100 != 2 {
		res.Body.Close()
		return nil, &DownloadError{
			URL:        f.url,
			StatusCode: res.StatusCode,
			Err:        errors.New(res.Status),
		}
	}
	return res.Body, nil
}

// BlobFetcher downloads a publicly readable blob without credentials.
type BlobFetcher struct {
	url    string
	client *blob.Client
}

func NewBlobFetcher(blobURL string) (*BlobFetcher, error) {
	opts := &blob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			// negative means exactly one try
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	}
	client, err := blob.NewClientWithNoCredential(blobURL, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "blob client for %q", blobURL)
	}
	return &BlobFetcher{url: blobURL, client: client}, nil
}

func (f *BlobFetcher) URL() string { return f.url }

func (f *BlobFetcher) Fetch(ctx context.Context) (io.ReadCloser, error) {
	res, err := f.client.DownloadStream(ctx, nil)
	if err != nil {
		dlErr := &DownloadError{URL: f.url, Err: err}
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			dlErr.StatusCode = respErr.StatusCode
		}
		return nil, dlErr
	}
	return res.Body, nil
}

// EnsureLocal makes sure localPath holds the artifact. An existing file is
// trusted as-is and no request is made. It reports whether a download happened.
func EnsureLocal(ctx context.Context, f Fetcher, localPath string) (bool, error) {
	_, err := os.Stat(localPath)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, errors.Wrapf(err, "stat %s", localPath)
	}

	body, err := f.Fetch(ctx)
	if err != nil {
		return false, err
	}
	defer body.Close()

	out, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return false, errors.Wrapf(err, "create %s", localPath)
	}
	defer out.Close()

	if _, err := io.Copy(out, body); err != nil {
		return false, &DownloadError{URL: f.URL(), Err: errors.Wrapf(err, "write %s", localPath)}
	}
	if err := out.Sync(); err != nil {
		return false, errors.Wrapf(err, "sync %s", localPath)
	}
	return true, nil
}
