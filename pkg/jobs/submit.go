package jobs

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/glycoshape/glyco/pkg/api/types/reglyco"
	gerr "github.com/glycoshape/glyco/pkg/errors"
	"github.com/glycoshape/glyco/pkg/rest"
)

// extensions of structure files the backend accepts.
var allowedExtensions = []string{".pdb", ".cif"}

const (
	MessageFileTypeNotAllowed = "File type not allowed."
	MessageNoProtein          = "protein is not specified"
	MessageNoGlycan           = "no glycan is selected"
)

// ValidateUpload checks filename can be uploaded as a structure.
func ValidateUpload(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, a := range allowedExtensions {
		if ext == a {
			return nil
		}
	}
	return gerr.Rejected(MessageFileTypeNotAllowed)
}

// Source is a protein to be glycosylated.
type Source struct {
	// UniProt id or PDB id. Ignored when Content is not nil.
	ProtID string

	// uploaded structure file
	Filename string
	Content  io.Reader
}

func (s Source) IsUpload() bool {
	return s.Content != nil
}

// Request is options of a Re-Glyco job.
type Request struct {
	// id of the protein. For uploaded structures, the filename given by Scan.
	ProtID   string
	IsUpload bool

	// residue key (reglyco.Site.Key) -> glycan id
	Glycans map[string]string

	EnsembleSize  int
	Wiggle        int
	EffortLevel   int
	CheckSteric   bool
	CalculateSASA bool
	OutputFormat  string

	// When empty, Submitter mints one.
	JobId string
}

// DefaultRequest returns a Request with the knobs set as the web form does.
func DefaultRequest() Request {
	return Request{
		Glycans:       map[string]string{},
		EnsembleSize:  1,
		Wiggle:        30,
		EffortLevel:   5,
		CheckSteric:   true,
		CalculateSASA: false,
		OutputFormat:  "PDB",
	}
}

// Validate checks presence of required fields.
//
// Values themselves are checked by the backend.
func (r Request) Validate() error {
	if strings.TrimSpace(r.ProtID) == "" {
		return gerr.Rejected(MessageNoProtein)
	}
	if r.IsUpload {
		if err := ValidateUpload(r.ProtID); err != nil {
			return err
		}
	}
	if len(r.Glycans) == 0 {
		return gerr.Rejected(MessageNoGlycan)
	}
	return nil
}

func (r Request) payload() reglyco.JobRequest {
	glycans := make(map[string]string, len(r.Glycans))
	for k, v := range r.Glycans {
		glycans[k] = v
	}
	return reglyco.JobRequest{
		JobId:         r.JobId,
		ProtID:        r.ProtID,
		IsUpload:      r.IsUpload,
		Glycans:       glycans,
		EnsembleSize:  r.EnsembleSize,
		Wiggle:        r.Wiggle,
		EffortLevel:   r.EffortLevel,
		CheckSteric:   r.CheckSteric,
		CalculateSASA: r.CalculateSASA,
		OutputFormat:  r.OutputFormat,
	}
}

// Submission is what the backend answered to a job request.
type Submission struct {
	// key for polling
	Handle string

	// result, or initial fields of it
	Result reglyco.JobResult

	// Generation of the submission.
	Generation uint64
}

// Submitter sends scan and job requests.
//
// Each call starts a new generation. When a response arrives after a newer
// call has started, it is discarded with an error of KindStale.
type Submitter struct {
	client rest.GlycoClient
	ids    *IDMinter

	mu         sync.Mutex
	generation uint64
	loading    bool
}

func NewSubmitter(client rest.GlycoClient, ids *IDMinter) *Submitter {
	if ids == nil {
		ids = NewIDMinter()
	}
	return &Submitter{client: client, ids: ids}
}

// Loading tells a call of the latest generation is in flight.
func (s *Submitter) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Generation returns the latest generation.
func (s *Submitter) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// begin starts a new generation and sets loading.
//
// The returned function settles the generation: it clears loading unless a
// newer generation has started.
func (s *Submitter) begin() (uint64, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation += 1
	s.loading = true
	gen := s.generation

	return gen, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if gen == s.generation {
			s.loading = false
		}
	}
}

// Scan initializes a protein and returns its glycosylation sites.
//
// Uploads of files other than .pdb or .cif are rejected without any request.
func (s *Submitter) Scan(ctx context.Context, src Source) (reglyco.InitResponse, error) {
	gen, settle := s.begin()
	defer settle()

	resp, err := func() (reglyco.InitResponse, error) {
		if src.IsUpload() {
			if err := ValidateUpload(src.Filename); err != nil {
				return reglyco.InitResponse{}, err
			}
			return s.client.UploadProtein(ctx, filepath.Base(src.Filename), src.Content)
		}
		if strings.TrimSpace(src.ProtID) == "" {
			return reglyco.InitResponse{}, gerr.Rejected(MessageNoProtein)
		}
		return s.client.InitProtein(ctx, strings.TrimSpace(src.ProtID), false)
	}()

	if !s.isLatest(gen) {
		return reglyco.InitResponse{}, gerr.Stale(gen)
	}
	return resp, err
}

// Submit posts a job once. It never retries.
func (s *Submitter) Submit(ctx context.Context, req Request) (Submission, error) {
	gen, settle := s.begin()
	defer settle()

	if err := req.Validate(); err != nil {
		return Submission{}, err
	}
	if req.JobId == "" {
		req.JobId = s.ids.Mint()
	}

	result, err := s.client.SubmitJob(ctx, req.payload())
	if !s.isLatest(gen) {
		return Submission{}, gerr.Stale(gen)
	}
	if err != nil {
		return Submission{}, err
	}

	handle := result.JobId
	if handle == "" {
		handle = req.JobId
	}
	return Submission{Handle: handle, Result: result, Generation: gen}, nil
}

func (s *Submitter) isLatest(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return gen == s.generation
}
