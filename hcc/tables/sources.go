package tables

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials/stscreds"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"

	"github.com/seenhealth/hccinfhir/log"
)

// A Source delivers table files by base name. Implementations exist for the
// packaged data, a local directory, an S3 prefix, and an HTTPS base URL.
type Source interface {
	Fetch(ctx context.Context, name string) (io.ReadCloser, error)
	String() string
}

// LocalSource reads table files out of one directory.
type LocalSource struct {
	Dir string
}

func (s LocalSource) Fetch(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.Dir, name))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open table file")
	}
	return f, nil
}

func (s LocalSource) String() string {
	return "local:" + s.Dir
}

// S3Source reads table files from an S3 bucket under a key prefix.
// Endpoint and AssumeRoleArn are optional; the endpoint override is for
// localstack-style testing.
type S3Source struct {
	Bucket        string
	Prefix        string
	Endpoint      string
	AssumeRoleArn string
	// MaxRetries bounds the exponential backoff on downloads. Zero means
	// the default of 3.
	MaxRetries uint64
}

func (s *S3Source) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	sess, err := s.createSession()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create S3 session")
	}

	key := path.Join(s.Prefix, name)
	downloader := s3manager.NewDownloader(sess)

	retries := s.MaxRetries
	if retries == 0 {
		retries = 3
	}

	var buff *aws.WriteAtBuffer
	download := func() error {
		buff = &aws.WriteAtBuffer{}
		_, err := downloader.DownloadWithContext(ctx, buff, &s3.GetObjectInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			log.Tables.Warnf("failed to download s3://%s/%s, retrying: %s", s.Bucket, key, err)
		}
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), retries), ctx)
	if err := backoff.Retry(download, policy); err != nil {
		return nil, errors.Wrapf(err, "failed to download s3://%s/%s", s.Bucket, key)
	}

	return io.NopCloser(bytes.NewReader(buff.Bytes())), nil
}

func (s *S3Source) String() string {
	return "s3://" + s.Bucket + "/" + s.Prefix
}

func (s *S3Source) createSession() (*session.Session, error) {
	sess := session.Must(session.NewSession())

	config := aws.Config{
		Region: aws.String("us-east-1"),
	}

	if s.Endpoint != "" {
		config.S3ForcePathStyle = aws.Bool(true)
		config.Endpoint = &s.Endpoint
	}

	if s.AssumeRoleArn != "" {
		config.Credentials = stscreds.NewCredentials(sess, s.AssumeRoleArn)
	}

	return session.NewSessionWithOptions(session.Options{
		Config: config,
	})
}

// URLSource reads table files from an HTTPS base URL with a retrying
// client.
type URLSource struct {
	BaseURL string
	Client  *retryablehttp.Client
}

// NewURLSource builds a URLSource with retry and timeout defaults suited to
// startup table loading.
func NewURLSource(baseURL string) *URLSource {
	client := retryablehttp.NewClient()
	client.RetryMax = 4
	client.RetryWaitMax = 30 * time.Second
	client.HTTPClient.Timeout = 2 * time.Minute
	client.Logger = nil
	return &URLSource{BaseURL: baseURL, Client: client}
}

func (s *URLSource) Fetch(ctx context.Context, name string) (io.ReadCloser, error) {
	url := strings.TrimSuffix(s.BaseURL, "/") + "/" + name
	req, err := retryablehttp.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build request for %s", url)
	}
	req = req.WithContext(ctx)

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", url)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)
	}
	return resp.Body, nil
}

func (s *URLSource) String() string {
	return "url:" + s.BaseURL
}
