package adapters

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"
)

// mavenRepository serves files relative to a maven repository root. Open
// reports false when the file does not exist.
type mavenRepository interface {
	String() string
	Open(ctx context.Context, rel string) (io.ReadCloser, bool, error)
}

type httpRepository struct {
	base string
	auth HTTPAuth
	cfg  httpRetryConfig
}

func (r httpRepository) String() string {
	return r.base
}

func (r httpRepository) Open(ctx context.Context, rel string) (io.ReadCloser, bool, error) {
	target := strings.TrimRight(r.base, "/") + "/" + strings.TrimLeft(rel, "/")
	resp, err := doRequest(ctx, target, r.auth, r.cfg)
	if err != nil {
		return nil, false, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, false, errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("repository request failed").
			WithCause(httpStatusError(resp.StatusCode, target))
	}
	return resp.Body, true, nil
}

type dirRepository struct {
	root string
}

func (r dirRepository) String() string {
	return r.root
}

func (r dirRepository) Open(ctx context.Context, rel string) (io.ReadCloser, bool, error) {
	file, err := os.Open(filepath.Join(r.root, filepath.FromSlash(rel)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return file, true, nil
}

// S3Options configures access to s3:// repositories.
type S3Options struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// HTTPOptions tunes the retrying HTTP transport.
type HTTPOptions struct {
	TimeoutSec   int
	Retries      int
	RetryDelayMs int
	Auth         HTTPAuth
}

// parseRepository maps a repository string onto its transport:
// http(s)://, s3://bucket/prefix, file:// or a plain directory.
func parseRepository(value string, httpOpts HTTPOptions, s3Opts S3Options) (mavenRepository, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("repository must not be empty")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Scheme == "" || len(parsed.Scheme) == 1 {
		return dirRepository{root: trimmed}, nil
	}
	switch parsed.Scheme {
	case "http", "https":
		return httpRepository{
			base: trimmed,
			auth: httpOpts.Auth,
			cfg:  normalizeHTTPConfig(httpOpts.TimeoutSec, httpOpts.Retries, httpOpts.RetryDelayMs),
		}, nil
	case "file":
		return dirRepository{root: parsed.Path}, nil
	case "s3":
		return newS3Repository(parsed.Host, strings.Trim(parsed.Path, "/"), s3Opts)
	default:
		return nil, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(fmt.Sprintf("unsupported repository scheme %q", parsed.Scheme))
	}
}

type mavenMetadata struct {
	XMLName    xml.Name `xml:"metadata"`
	GroupID    string   `xml:"groupId"`
	ArtifactID string   `xml:"artifactId"`
	Versioning struct {
		Latest   string   `xml:"latest"`
		Release  string   `xml:"release"`
		Versions []string `xml:"versions>version"`
	} `xml:"versioning"`
}

func parseMavenMetadata(data []byte) (mavenMetadata, error) {
	var metadata mavenMetadata
	if err := xml.Unmarshal(data, &metadata); err != nil {
		return mavenMetadata{}, errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg("invalid maven-metadata.xml").
			WithCause(err)
	}
	return metadata, nil
}
