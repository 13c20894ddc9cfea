package mock

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"

	"github.com/glycoshape/glyco/pkg/api/types/auth"
	"github.com/glycoshape/glyco/pkg/api/types/progress"
	"github.com/glycoshape/glyco/pkg/api/types/reglyco"
	"github.com/glycoshape/glyco/pkg/rest"
)

type InitProteinArgs struct {
	ProtId   string
	IsUpload bool
}

type UploadProteinArgs struct {
	Filename string
	Content  []byte
}

type OneShotArgs struct {
	Endpoint rest.Endpoint
	Payload  any
}

type OneShotUploadArgs struct {
	Endpoint rest.Endpoint
	Filename string
	Content  []byte
}

type DatabaseArtifactArgs struct {
	GlycanId string
	Name     string
}

func New(t *testing.T) *mockGlycoClient {
	return &mockGlycoClient{t: t, API: "http://glyco.invalid"}
}

type mockGlycoClient struct {
	t  *testing.T
	mu sync.Mutex

	// base of OutputURL
	API string

	Impl struct {
		InitProtein      func(ctx context.Context, protId string, isUpload bool) (reglyco.InitResponse, error)
		UploadProtein    func(ctx context.Context, filename string, content io.Reader) (reglyco.InitResponse, error)
		SubmitJob        func(ctx context.Context, req reglyco.JobRequest) (reglyco.JobResult, error)
		GetProgress      func(ctx context.Context, jobId string) (progress.Document, error)
		DownloadJob      func(ctx context.Context, jobId string, handler func(rest.Download) error) error
		DownloadOutput   func(ctx context.Context, relpath string, handler func(rest.Download) error) error
		OneShot          func(ctx context.Context, endpoint rest.Endpoint, payload any) ([]byte, error)
		OneShotUpload    func(ctx context.Context, endpoint rest.Endpoint, filename string, content io.Reader) ([]byte, error)
		Search           func(ctx context.Context, query rest.SearchQuery) ([]byte, error)
		GlycanSVG        func(ctx context.Context, glycanId string) ([]byte, error)
		DatabaseArtifact func(ctx context.Context, glycanId string, name string, handler func(rest.Download) error) error
		Login            func(ctx context.Context, req auth.LoginRequest) (auth.Tokens, error)
		Register         func(ctx context.Context, req auth.RegisterRequest) (auth.Tokens, error)
		Refresh          func(ctx context.Context) (auth.Tokens, error)
	}
	Calls struct {
		InitProtein      []InitProteinArgs
		UploadProtein    []UploadProteinArgs
		SubmitJob        []reglyco.JobRequest
		GetProgress      []string
		DownloadJob      []string
		DownloadOutput   []string
		OneShot          []OneShotArgs
		OneShotUpload    []OneShotUploadArgs
		Search           []rest.SearchQuery
		GlycanSVG        []string
		DatabaseArtifact []DatabaseArtifactArgs
		Login            []auth.LoginRequest
		Register         []auth.RegisterRequest
		Refresh          int
	}
}

var _ rest.GlycoClient = &mockGlycoClient{}

// record runs f holding the lock, so that calls from goroutines can be recorded.
func (m *mockGlycoClient) record(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f()
}

func (m *mockGlycoClient) InitProtein(ctx context.Context, protId string, isUpload bool) (reglyco.InitResponse, error) {
	m.t.Helper()

	m.record(func() {
		m.Calls.InitProtein = append(m.Calls.InitProtein, InitProteinArgs{ProtId: protId, IsUpload: isUpload})
	})
	if m.Impl.InitProtein == nil {
		m.t.Fatal("InitProtein is not ready to be called")
	}
	return m.Impl.InitProtein(ctx, protId, isUpload)
}

func (m *mockGlycoClient) UploadProtein(ctx context.Context, filename string, content io.Reader) (reglyco.InitResponse, error) {
	m.t.Helper()

	buf, err := io.ReadAll(content)
	if err != nil {
		m.t.Fatal(err)
	}
	m.record(func() {
		m.Calls.UploadProtein = append(m.Calls.UploadProtein, UploadProteinArgs{Filename: filename, Content: buf})
	})
	if m.Impl.UploadProtein == nil {
		m.t.Fatal("UploadProtein is not ready to be called")
	}
	return m.Impl.UploadProtein(ctx, filename, bytes.NewReader(buf))
}

func (m *mockGlycoClient) SubmitJob(ctx context.Context, req reglyco.JobRequest) (reglyco.JobResult, error) {
	m.t.Helper()

	m.record(func() { m.Calls.SubmitJob = append(m.Calls.SubmitJob, req) })
	if m.Impl.SubmitJob == nil {
		m.t.Fatal("SubmitJob is not ready to be called")
	}
	return m.Impl.SubmitJob(ctx, req)
}

func (m *mockGlycoClient) GetProgress(ctx context.Context, jobId string) (progress.Document, error) {
	m.t.Helper()

	m.record(func() { m.Calls.GetProgress = append(m.Calls.GetProgress, jobId) })
	if m.Impl.GetProgress == nil {
		m.t.Fatal("GetProgress is not ready to be called")
	}
	return m.Impl.GetProgress(ctx, jobId)
}

func (m *mockGlycoClient) DownloadJob(ctx context.Context, jobId string, handler func(rest.Download) error) error {
	m.t.Helper()

	m.record(func() { m.Calls.DownloadJob = append(m.Calls.DownloadJob, jobId) })
	if m.Impl.DownloadJob == nil {
		m.t.Fatal("DownloadJob is not ready to be called")
	}
	return m.Impl.DownloadJob(ctx, jobId, handler)
}

func (m *mockGlycoClient) DownloadOutput(ctx context.Context, relpath string, handler func(rest.Download) error) error {
	m.t.Helper()

	m.record(func() { m.Calls.DownloadOutput = append(m.Calls.DownloadOutput, relpath) })
	if m.Impl.DownloadOutput == nil {
		m.t.Fatal("DownloadOutput is not ready to be called")
	}
	return m.Impl.DownloadOutput(ctx, relpath, handler)
}

func (m *mockGlycoClient) OneShot(ctx context.Context, endpoint rest.Endpoint, payload any) ([]byte, error) {
	m.t.Helper()

	m.record(func() {
		m.Calls.OneShot = append(m.Calls.OneShot, OneShotArgs{Endpoint: endpoint, Payload: payload})
	})
	if m.Impl.OneShot == nil {
		m.t.Fatal("OneShot is not ready to be called")
	}
	return m.Impl.OneShot(ctx, endpoint, payload)
}

func (m *mockGlycoClient) OneShotUpload(ctx context.Context, endpoint rest.Endpoint, filename string, content io.Reader) ([]byte, error) {
	m.t.Helper()

	buf, err := io.ReadAll(content)
	if err != nil {
		m.t.Fatal(err)
	}
	m.record(func() {
		m.Calls.OneShotUpload = append(
			m.Calls.OneShotUpload,
			OneShotUploadArgs{Endpoint: endpoint, Filename: filename, Content: buf},
		)
	})
	if m.Impl.OneShotUpload == nil {
		m.t.Fatal("OneShotUpload is not ready to be called")
	}
	return m.Impl.OneShotUpload(ctx, endpoint, filename, bytes.NewReader(buf))
}

func (m *mockGlycoClient) Search(ctx context.Context, query rest.SearchQuery) ([]byte, error) {
	m.t.Helper()

	m.record(func() { m.Calls.Search = append(m.Calls.Search, query) })
	if m.Impl.Search == nil {
		m.t.Fatal("Search is not ready to be called")
	}
	return m.Impl.Search(ctx, query)
}

func (m *mockGlycoClient) GlycanSVG(ctx context.Context, glycanId string) ([]byte, error) {
	m.t.Helper()

	m.record(func() { m.Calls.GlycanSVG = append(m.Calls.GlycanSVG, glycanId) })
	if m.Impl.GlycanSVG == nil {
		m.t.Fatal("GlycanSVG is not ready to be called")
	}
	return m.Impl.GlycanSVG(ctx, glycanId)
}

func (m *mockGlycoClient) DatabaseArtifact(ctx context.Context, glycanId string, name string, handler func(rest.Download) error) error {
	m.t.Helper()

	m.record(func() {
		m.Calls.DatabaseArtifact = append(
			m.Calls.DatabaseArtifact, DatabaseArtifactArgs{GlycanId: glycanId, Name: name},
		)
	})
	if m.Impl.DatabaseArtifact == nil {
		m.t.Fatal("DatabaseArtifact is not ready to be called")
	}
	return m.Impl.DatabaseArtifact(ctx, glycanId, name, handler)
}

func (m *mockGlycoClient) Login(ctx context.Context, req auth.LoginRequest) (auth.Tokens, error) {
	m.t.Helper()

	m.record(func() { m.Calls.Login = append(m.Calls.Login, req) })
	if m.Impl.Login == nil {
		m.t.Fatal("Login is not ready to be called")
	}
	return m.Impl.Login(ctx, req)
}

func (m *mockGlycoClient) Register(ctx context.Context, req auth.RegisterRequest) (auth.Tokens, error) {
	m.t.Helper()

	m.record(func() { m.Calls.Register = append(m.Calls.Register, req) })
	if m.Impl.Register == nil {
		m.t.Fatal("Register is not ready to be called")
	}
	return m.Impl.Register(ctx, req)
}

func (m *mockGlycoClient) Refresh(ctx context.Context) (auth.Tokens, error) {
	m.t.Helper()

	m.record(func() { m.Calls.Refresh += 1 })
	if m.Impl.Refresh == nil {
		m.t.Fatal("Refresh is not ready to be called")
	}
	return m.Impl.Refresh(ctx)
}

func (m *mockGlycoClient) OutputURL(relpath string) string {
	return rest.JoinURL(m.API, "output", relpath)
}
