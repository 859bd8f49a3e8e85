package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"github.com/local/finsight/internal/filetype"
)

// Options bounds source downloads.
type Options struct {
	HTTPTimeout time.Duration
	MaxBytes    int64
}

func (o Options) withDefaults() Options {
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = 60 * time.Second
	}
	if o.MaxBytes <= 0 {
		o.MaxBytes = 64 << 20
	}
	return o
}

// ToTemp stages the PDF referenced by ref into a local temporary file and
// returns its path plus a cleanup func that removes it. Supported refs:
//   - http:// and https:// URLs (Content-Type must include application/pdf)
//   - s3://bucket/key
//   - file://path and plain filesystem paths (no copy; cleanup is a no-op)
//
// Every downloaded payload is magic-byte checked before it is accepted.
func ToTemp(ctx context.Context, ref string, opts Options) (string, func(), error) {
	opts = opts.withDefaults()
	noop := func() {}

	switch {
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		path, err := downloadHTTP(ctx, ref, opts)
		if err != nil {
			return "", noop, err
		}
		return path, func() { _ = os.Remove(path) }, nil
	case strings.HasPrefix(ref, "s3://"):
		path, err := downloadS3(ctx, ref)
		if err != nil {
			return "", noop, err
		}
		if err := filetype.EnsurePDF(path); err != nil {
			_ = os.Remove(path)
			return "", noop, err
		}
		return path, func() { _ = os.Remove(path) }, nil
	case strings.HasPrefix(ref, "file://"):
		ref = strings.TrimPrefix(ref, "file://")
		fallthrough
	default:
		if _, err := os.Stat(ref); err != nil {
			return "", noop, fmt.Errorf("source not found: %w", err)
		}
		if err := filetype.EnsurePDF(ref); err != nil {
			return "", noop, err
		}
		return ref, noop, nil
	}
}

func downloadHTTP(ctx context.Context, url string, opts Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.HTTPTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: http %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/pdf") {
		return "", fmt.Errorf("url does not serve a PDF (content-type %q)", ct)
	}

	f, err := os.CreateTemp("", "finsight-dl-*.pdf")
	if err != nil {
		return "", err
	}
	n, err := io.Copy(f, io.LimitReader(resp.Body, opts.MaxBytes+1))
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("saving download: %w", err)
	}
	if n > opts.MaxBytes {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("document exceeds %d byte limit", opts.MaxBytes)
	}
	if err := filetype.EnsurePDF(f.Name()); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	log.Info().Str("url", url).Int64("bytes", n).Msg("downloaded source pdf")
	return f.Name(), nil
}

func downloadS3(ctx context.Context, s3url string) (string, error) {
	path := strings.TrimPrefix(s3url, "s3://")
	slash := strings.Index(path, "/")
	if slash <= 0 {
		return "", fmt.Errorf("invalid s3 url: %s", s3url)
	}
	bucket := path[:slash]
	key := path[slash+1:]

	loadOpts := []func(*awscfg.LoadOptions) error{}
	if id, secret := os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"); id != "" && secret != "" {
		loadOpts = append(loadOpts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(id, secret, "")))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "finsight-s3-*.pdf")
	if err != nil {
		return "", err
	}
	dl := manager.NewDownloader(s3.NewFromConfig(cfg))
	if _, err := dl.Download(ctx, f, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("s3 download failed: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", err
	}
	log.Info().Str("bucket", bucket).Str("key", key).Msg("downloaded s3 pdf to temp")
	return f.Name(), nil
}
