// Package archive downloads observation archives and extracts them.
package archive

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultURL is the XMM-Newton Science Archive all-in-one download endpoint. {obsid} is replaced by
// the observation ID.
const DefaultURL = "https://nxsa.esac.esa.int/nxsa-sl/servlet/data-action-aio?obsno={obsid}"

const obsIDPlaceholder = "{obsid}"

var (
	ErrInvalidObservationID = errors.New("observation id must be 10 digits")
	ErrUnexpectedStatus     = errors.New("unexpected status code")
	ErrInvalidURL           = errors.New("url must contain " + obsIDPlaceholder)
)

var obsIDPattern = regexp.MustCompile(`^[0-9]{10}$`)

// ValidateObservationID checks the observation ID is ten digits, such as 0087940101.
func ValidateObservationID(obsID string) error {
	if !obsIDPattern.MatchString(obsID) {
		return errors.Wrapf(ErrInvalidObservationID, "%q", obsID)
	}

	return nil
}

// Client downloads observation archives over HTTP.
type Client struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

type Option func(c *Client)

// WithURL sets the URL template of the archive. It must contain {obsid}.
func WithURL(url string) Option {
	return func(c *Client) {
		c.url = url
	}
}

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithTimeout sets the timeout of a whole download.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http = &http.Client{Timeout: timeout}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the XMM-Newton Science Archive.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		url:    DefaultURL,
		http:   http.DefaultClient,
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if !strings.Contains(c.url, obsIDPlaceholder) {
		return nil, errors.Wrap(ErrInvalidURL, c.url)
	}

	return c, nil
}

// URL returns the download URL of the observation.
func (c *Client) URL(obsID string) string {
	return strings.ReplaceAll(c.url, obsIDPlaceholder, obsID)
}

// Download saves the archive of the observation as <destDir>/<obsID>.tar and returns its path. The
// file only appears once fully downloaded.
func (c *Client) Download(ctx context.Context, obsID, destDir string) (string, error) {
	err := ValidateObservationID(obsID)
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(destDir, 0o755)
	if err != nil {
		return "", errors.Wrapf(err, "unable to create %s", destDir)
	}

	url := c.URL(obsID)
	logger := c.logger.With(zap.String("obsid", obsID), zap.String("url", url))
	logger.Info("downloading archive")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrap(err, "unable to create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "unable to download %s", obsID)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", errors.Wrapf(ErrUnexpectedStatus, "download %s: %d", obsID, resp.StatusCode)
	}

	dest := filepath.Join(destDir, obsID+".tar")

	tmp, err := os.CreateTemp(destDir, "."+obsID+"-*.part")
	if err != nil {
		return "", errors.Wrap(err, "unable to create temporary file")
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, resp.Body)
	if err != nil {
		tmp.Close()

		return "", errors.Wrapf(err, "unable to download %s", obsID)
	}

	err = tmp.Close()
	if err != nil {
		return "", errors.Wrap(err, "unable to close temporary file")
	}

	err = os.Rename(tmp.Name(), dest)
	if err != nil {
		return "", errors.Wrapf(err, "unable to move archive to %s", dest)
	}

	logger.Info("archive downloaded", zap.String("path", dest), zap.Int64("bytes", written))

	return dest, nil
}

// Fetch downloads the archive of the observation into dir and extracts it there, including the
// archives nested inside it.
func (c *Client) Fetch(ctx context.Context, obsID, dir string) error {
	path, err := c.Download(ctx, obsID, dir)
	if err != nil {
		return err
	}

	files, err := Extract(path, dir)
	if err != nil {
		return err
	}

	c.logger.Info("archive extracted", zap.String("path", path), zap.Int("files", files))

	nested, err := ExtractNested(filepath.Join(dir, obsID))
	if err != nil {
		return err
	}

	if len(nested) > 0 {
		c.logger.Info("nested archives extracted", zap.Strings("archives", nested))
	}

	return nil
}
