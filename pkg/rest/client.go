package rest

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/glycoshape/glyco/pkg/api/types/auth"
	"github.com/glycoshape/glyco/pkg/api/types/progress"
	"github.com/glycoshape/glyco/pkg/api/types/reglyco"
	"github.com/glycoshape/glyco/pkg/buildtime"
	"github.com/glycoshape/glyco/pkg/config"
	gerr "github.com/glycoshape/glyco/pkg/errors"
	"github.com/glycoshape/glyco/pkg/utils"
	"github.com/google/uuid"
)

type GlycoClient interface {
	// InitProtein asks the backend to prepare a protein for Re-Glyco.
	//
	// Args
	//
	// - context.Context
	//
	// - string: UniProt id or PDB id. When isUpload is true, the filename returned by UploadProtein.
	//
	// - bool: true if protId refers an uploaded file.
	//
	// Returns
	//
	// - reglyco.InitResponse: glycosylation sites and glycans available for them
	//
	// - error
	InitProtein(ctx context.Context, protId string, isUpload bool) (reglyco.InitResponse, error)

	// UploadProtein sends a structure file and initializes it.
	//
	// Callers are responsible for checking the file type.
	UploadProtein(ctx context.Context, filename string, content io.Reader) (reglyco.InitResponse, error)

	// SubmitJob posts a Re-Glyco job.
	//
	// Returns
	//
	// - reglyco.JobResult: the result when the backend finishes at once,
	// or initial fields of the job. Absent fields are zero.
	//
	// - error
	SubmitJob(ctx context.Context, req reglyco.JobRequest) (reglyco.JobResult, error)

	// GetProgress fetches output/{jobId}/progress.json .
	GetProgress(ctx context.Context, jobId string) (progress.Document, error)

	// DownloadJob downloads all artifacts of a job as an archive.
	//
	// handler is called with the response stream. When handler returns an
	// error, downloading stops and the error is returned.
	DownloadJob(ctx context.Context, jobId string, handler func(Download) error) error

	// DownloadOutput downloads a file in the output space, {api}/output/{relpath} .
	DownloadOutput(ctx context.Context, relpath string, handler func(Download) error) error

	// OneShot posts payload to one of request/response tool endpoints.
	//
	// Returns raw JSON payload of the response.
	OneShot(ctx context.Context, endpoint Endpoint, payload any) ([]byte, error)

	// OneShotUpload posts a file to a tool endpoint taking a structure file.
	OneShotUpload(ctx context.Context, endpoint Endpoint, filename string, content io.Reader) ([]byte, error)

	// Search searches the glycan database.
	Search(ctx context.Context, query SearchQuery) ([]byte, error)

	// GlycanSVG renders a glycan as SVG.
	GlycanSVG(ctx context.Context, glycanId string) ([]byte, error)

	// DatabaseArtifact downloads {api}/database/{glycanId}/{name} .
	DatabaseArtifact(ctx context.Context, glycanId string, name string, handler func(Download) error) error

	Login(ctx context.Context, req auth.LoginRequest) (auth.Tokens, error)

	Register(ctx context.Context, req auth.RegisterRequest) (auth.Tokens, error)

	// Refresh exchanges the stored refresh token for new tokens, and stores them.
	Refresh(ctx context.Context) (auth.Tokens, error)

	// OutputURL is a URL of a file in the output space.
	OutputURL(relpath string) string
}

// Download is a response stream of a download.
type Download struct {
	Body io.Reader

	// -1 if unknown
	Size int64

	// suggested by the server. It can be empty.
	Filename string
}

type client struct {
	httpclient *http.Client
	api        string
	tokens     TokenStore
}

type clientOption struct {
	httpclient *http.Client
	cacerts    []string
	tokens     TokenStore
}

type Option func(*clientOption) *clientOption

// WithCA trusts base64 encoded PEM certificates in addition to the system ones.
func WithCA(b64cert ...string) Option {
	return func(co *clientOption) *clientOption {
		co.cacerts = append(co.cacerts, utils.Filter(b64cert, func(s string) bool { return s != "" })...)
		return co
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(co *clientOption) *clientOption {
		co.httpclient = hc
		return co
	}
}

// WithTokens lets the client authenticate with tokens in ts.
func WithTokens(ts TokenStore) Option {
	return func(co *clientOption) *clientOption {
		co.tokens = ts
		return co
	}
}

// create new client for the backend described by conf.
//
// # Return
//
// - GlycoClient: created client
//
// - error: If given config is invalid, config.ErrInvalidConfig is returned.
func NewClient(conf config.Config, options ...Option) (GlycoClient, error) {
	if err := conf.Verify(); err != nil {
		return nil, err
	}

	opt := &clientOption{}
	for _, o := range options {
		opt = o(opt)
	}

	httpclient := opt.httpclient
	if httpclient == nil {
		httpclient = new(http.Client)
	}
	if 0 < len(opt.cacerts) {
		hc, err := trustCa(httpclient, opt.cacerts)
		if err != nil {
			return nil, err
		}
		httpclient = hc
	}

	tokens := opt.tokens
	if tokens == nil {
		tokens = NewMemoryTokens(auth.Tokens{})
	}

	return &client{
		httpclient: httpclient,
		api:        conf.APIRoot(),
		tokens:     tokens,
	}, nil
}

// build URL with path
//
// Each path element is joined with exactly one slash.
func (c *client) apipath(path ...string) string {
	return JoinURL(c.api, path...)
}

func (c *client) OutputURL(relpath string) string {
	return c.apipath("output", relpath)
}

// JoinURL joins base and path elements with exactly one slash between them.
//
// Empty elements are skipped.
func JoinURL(base string, path ...string) string {
	elems := []string{strings.TrimRight(base, "/")}
	for _, p := range path {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		elems = append(elems, p)
	}
	return strings.Join(elems, "/")
}

// send a request, built by build.
//
// build is called again when the request should be retried.
// When the client has tokens, the request carries them as Bearer token.
// On 401, the client refreshes tokens once and retries once.
func (c *client) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	authorized := false
	if access, _ := c.tokens.Tokens(); access != "" {
		authorized = true
		if expired(access) {
			if _, err := c.Refresh(ctx); err != nil {
				return nil, err
			}
		}
	}

	resp, err := c.send(ctx, build)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || !authorized {
		return resp, nil
	}

	_, err = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, gerr.Transport(err)
	}
	if _, err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return c.send(ctx, build)
}

func (c *client) send(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (*http.Response, error) {
	req, err := build(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	req.Header.Set("User-Agent", buildtime.UserAgent())
	if access, _ := c.tokens.Tokens(); access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := c.httpclient.Do(req)
	if err != nil {
		return nil, gerr.Transport(err)
	}
	return resp, nil
}

func trustCa(hc *http.Client, cacerts []string) (*http.Client, error) {
	if len(cacerts) <= 0 {
		return hc, nil
	}

	transport := hc.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	tran, ok := transport.(*http.Transport)
	if !ok {
		return nil, fmt.Errorf("failed to add ca cert")
	}
	tran = tran.Clone()

	tcc := tran.TLSClientConfig.Clone()
	if tcc == nil {
		tcc = &tls.Config{}
	}

	rootcas := tcc.RootCAs
	if rootcas == nil {
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		rootcas = pool
		tcc.RootCAs = rootcas
	}
	for _, ca := range cacerts {
		bin, err := base64.StdEncoding.DecodeString(ca)
		if err != nil {
			return nil, err
		}

		if !rootcas.AppendCertsFromPEM(bin) {
			return nil, fmt.Errorf("failed to add cert")
		}
	}

	tran.TLSClientConfig = tcc
	newhc := *hc
	newhc.Transport = tran
	return &newhc, nil
}
