// Package fakeglyco is an in-process GlycoShape backend for tests.
//
// It serves the endpoints the client uses with scripted responses:
// proteins to be scanned, progress documents per job and tick, static files
// in the output space and the database, and token based authentication.
package fakeglyco

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glycoshape/glyco/pkg/api/types/auth"
	"github.com/glycoshape/glyco/pkg/api/types/progress"
	"github.com/glycoshape/glyco/pkg/api/types/reglyco"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Tick is a response of progress.json for one poll.
type Tick struct {
	// HTTP status. 0 means 200.
	Status int

	Document progress.Document
}

// Recorded is a request the server received.
type Recorded struct {
	Method        string
	Path          string
	RequestId     string
	Authorization string
}

type job struct {
	request reglyco.JobRequest
	result  reglyco.JobResult
	ticks   []Tick
	served  int
}

type Server struct {
	*httptest.Server

	t      *testing.T
	secret []byte

	mu       sync.Mutex
	proteins map[string]reglyco.InitResponse
	scripts  map[string][]Tick
	results  map[string]reglyco.JobResult
	jobs     map[string]*job
	files    map[string][]byte
	users    map[string]auth.User
	password map[string]string
	refresh  map[string]string
	revoked  time.Time
	ttl      time.Duration
	requests []Recorded

	requireAuth bool
}

type Option func(*Server) *Server

// RequireAuth makes /api/reglyco/* protected.
func RequireAuth() Option {
	return func(s *Server) *Server {
		s.requireAuth = true
		return s
	}
}

// WithAccessTTL sets lifetime of access tokens. Default is an hour.
func WithAccessTTL(d time.Duration) Option {
	return func(s *Server) *Server {
		s.ttl = d
		return s
	}
}

// New starts a fake server. It is closed when the test ends.
func New(t *testing.T, options ...Option) *Server {
	t.Helper()
	s := &Server{
		t:        t,
		secret:   []byte(uuid.NewString()),
		proteins: map[string]reglyco.InitResponse{},
		scripts:  map[string][]Tick{},
		results:  map[string]reglyco.JobResult{},
		jobs:     map[string]*job{},
		files:    map[string][]byte{},
		users:    map[string]auth.User{},
		password: map[string]string{},
		refresh:  map[string]string{},
		ttl:      time.Hour,
	}
	for _, o := range options {
		s = o(s)
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			s.mu.Lock()
			s.requests = append(s.requests, Recorded{
				Method:        req.Method,
				Path:          req.URL.Path,
				RequestId:     req.Header.Get("X-Request-Id"),
				Authorization: req.Header.Get("Authorization"),
			})
			s.mu.Unlock()
			return next(c)
		}
	})

	authApi := e.Group("/api/auth")
	authApi.POST("/login", s.login)
	authApi.POST("/register", s.register)
	authApi.POST("/refresh-token", s.refreshToken)

	reglycoApi := e.Group("/api/reglyco", s.authenticate)
	reglycoApi.POST("/init", s.init)
	reglycoApi.POST("/job", s.job)
	reglycoApi.GET("/download/:jobId", s.download)

	e.POST("/api/svg/:id", s.svg)
	e.POST("/api/search", s.search)
	e.POST("/api/:endpoint", s.oneshot)

	e.GET("/output/:jobId/progress.json", s.progress)
	e.GET("/output/*", s.static("output"))
	e.GET("/database/*", s.static("database"))

	return e
}

func reason(c echo.Context, status int, format string, args ...any) error {
	return c.JSON(status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// AddProtein registers a protein which can be scanned by its ProtID.
func (s *Server) AddProtein(ir reglyco.InitResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proteins[strings.ToUpper(ir.ProtID)] = ir
}

// Script sets responses of progress.json for jobs submitted with jobId.
//
// Each poll consumes one tick. The last tick is repeated.
func (s *Server) Script(jobId string, ticks ...Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[jobId] = ticks
	if j, ok := s.jobs[jobId]; ok {
		j.ticks = ticks
		j.served = 0
	}
}

// ScriptNext sets responses for the next job whose id is not scripted.
func (s *Server) ScriptNext(ticks ...Tick) {
	s.Script("", ticks...)
}

// Answer sets the response of POST /api/reglyco/job for jobId. Use "" for any job.
func (s *Server) Answer(jobId string, result reglyco.JobResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[jobId] = result
}

// PutFile places content at relpath, like "output/job1/out.pdb" or "database/G00001/G00001.json".
func (s *Server) PutFile(relpath string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[strings.Trim(relpath, "/")] = content
}

// AddUser registers a user who can log in.
func (s *Server) AddUser(email, password, name string) auth.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := auth.User{Id: uuid.NewString(), Email: email, Name: name}
	s.users[email] = u
	s.password[email] = password
	return u
}

// Issue mints tokens for a registered user.
func (s *Server) Issue(email string) auth.Tokens {
	s.t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	tokens, err := s.issue(email)
	if err != nil {
		s.t.Fatal(err)
	}
	return tokens
}

// Revoke invalidates all tokens issued so far. Refresh tokens are forgotten too.
func (s *Server) Revoke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bumpRevocation()
	s.refresh = map[string]string{}
}

// RevokeAccess invalidates access tokens issued so far, keeping refresh tokens.
func (s *Server) RevokeAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bumpRevocation()
}

// bumpRevocation moves the revocation point after every token issued so far.
//
// "iat" has a precision of a second, so the point is on a whole second.
// It should be called with lock.
func (s *Server) bumpRevocation() {
	next := time.Now().Truncate(time.Second).Add(time.Second)
	if !next.After(s.revoked) {
		next = s.revoked.Add(time.Second)
	}
	s.revoked = next
}

// Requests returns requests received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded{}, s.requests...)
}

// Submitted returns the job request received for jobId.
func (s *Server) Submitted(jobId string) (reglyco.JobRequest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobId]
	if !ok {
		return reglyco.JobRequest{}, false
	}
	return j.request, true
}

// Polls returns how many times progress.json of jobId is served.
func (s *Server) Polls(jobId string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[jobId]; ok {
		return j.served
	}
	return 0
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// issue should be called with lock.
func (s *Server) issue(email string) (auth.Tokens, error) {
	u, ok := s.users[email]
	if !ok {
		return auth.Tokens{}, fmt.Errorf("no such user: %s", email)
	}
	now := time.Now()
	if now.Before(s.revoked) {
		now = s.revoked
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.Id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	})
	access, err := token.SignedString(s.secret)
	if err != nil {
		return auth.Tokens{}, err
	}
	refresh := uuid.NewString()
	s.refresh[refresh] = email
	return auth.Tokens{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

func (s *Server) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.requireAuth {
			return next(c)
		}
		bearer, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
		if !ok {
			return reason(c, http.StatusUnauthorized, "no token")
		}
		cl := &claims{}
		if _, err := jwt.ParseWithClaims(bearer, cl, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method")
			}
			return s.secret, nil
		}); err != nil {
			return reason(c, http.StatusUnauthorized, "invalid token: %s", err)
		}

		s.mu.Lock()
		revoked := s.revoked
		s.mu.Unlock()
		if cl.IssuedAt == nil || cl.IssuedAt.Time.Before(revoked) {
			return reason(c, http.StatusUnauthorized, "token is revoked")
		}
		return next(c)
	}
}

func (s *Server) login(c echo.Context) error {
	req := auth.LoginRequest{}
	if err := c.Bind(&req); err != nil {
		return reason(c, http.StatusBadRequest, "broken request")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.password[req.Email]; !ok || pw != req.Password {
		return reason(c, http.StatusUnauthorized, "wrong credentials")
	}
	tokens, err := s.issue(req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

func (s *Server) register(c echo.Context) error {
	req := auth.RegisterRequest{}
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return reason(c, http.StatusBadRequest, "email and password are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[req.Email]; ok {
		return reason(c, http.StatusConflict, "%s is already registered", req.Email)
	}
	s.users[req.Email] = auth.User{Id: uuid.NewString(), Email: req.Email, Name: req.Name}
	s.password[req.Email] = req.Password
	tokens, err := s.issue(req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tokens)
}

func (s *Server) refreshToken(c echo.Context) error {
	req := auth.RefreshRequest{}
	if err := c.Bind(&req); err != nil {
		return reason(c, http.StatusBadRequest, "broken request")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email, ok := s.refresh[req.RefreshToken]
	if !ok {
		return reason(c, http.StatusUnauthorized, "refresh token is not known")
	}
	delete(s.refresh, req.RefreshToken)
	tokens, err := s.issue(email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tokens)
}

func (s *Server) init(c echo.Context) error {
	if strings.HasPrefix(c.Request().Header.Get("Content-Type"), "multipart/form-data") {
		fh, err := c.FormFile("pdbFile")
		if err != nil {
			return reason(c, http.StatusBadRequest, "pdbFile is required")
		}
		name := path.Base(fh.Filename)
		s.mu.Lock()
		defer s.mu.Unlock()
		if ir, ok := s.proteins[strings.ToUpper(name)]; ok {
			return c.JSON(http.StatusOK, ir)
		}
		return c.JSON(http.StatusOK, reglyco.InitResponse{
			ProtID:         name,
			Filename:       name,
			Sites:          []reglyco.Site{},
			Configurations: map[string][]string{},
		})
	}

	req := reglyco.InitRequest{}
	if err := c.Bind(&req); err != nil {
		return reason(c, http.StatusBadRequest, "broken request")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ir, ok := s.proteins[strings.ToUpper(req.ProtID)]
	if !ok {
		return reason(c, http.StatusNotFound, "%s is not found", req.ProtID)
	}
	return c.JSON(http.StatusOK, ir)
}

func (s *Server) job(c echo.Context) error {
	req := reglyco.JobRequest{}
	if err := c.Bind(&req); err != nil {
		return reason(c, http.StatusBadRequest, "broken request")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	jobId := req.JobId
	if jobId == "" {
		jobId = uuid.NewString()
	}

	result, ok := s.results[jobId]
	if !ok {
		result, ok = s.results[""]
	}
	if !ok {
		result = reglyco.JobResult{Output: jobId + "/output.pdb"}
	}
	result.JobId = jobId

	ticks, ok := s.scripts[jobId]
	if !ok {
		ticks = s.scripts[""]
	}
	s.jobs[jobId] = &job{request: req, result: result, ticks: ticks}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) progress(c echo.Context) error {
	jobId := c.Param("jobId")
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobId]
	if !ok || len(j.ticks) == 0 {
		return reason(c, http.StatusNotFound, "job %s is not found", jobId)
	}
	nth := j.served
	if len(j.ticks) <= nth {
		nth = len(j.ticks) - 1
	}
	j.served += 1

	tick := j.ticks[nth]
	if tick.Status != 0 && tick.Status != http.StatusOK {
		return reason(c, tick.Status, "scripted failure")
	}
	doc := tick.Document
	if doc.JobId == "" {
		doc.JobId = jobId
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) download(c echo.Context) error {
	jobId := c.Param("jobId")
	s.mu.Lock()
	content, ok := s.files[path.Join("download", jobId)]
	s.mu.Unlock()
	if !ok {
		return reason(c, http.StatusNotFound, "job %s is not found", jobId)
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.zip"`, jobId))
	return c.Blob(http.StatusOK, "application/zip", content)
}

func (s *Server) static(root string) echo.HandlerFunc {
	return func(c echo.Context) error {
		relpath := path.Join(root, c.Param("*"))
		s.mu.Lock()
		content, ok := s.files[relpath]
		s.mu.Unlock()
		if !ok {
			return reason(c, http.StatusNotFound, "%s is not found", relpath)
		}
		return c.Blob(http.StatusOK, http.DetectContentType(content), content)
	}
}

func (s *Server) svg(c echo.Context) error {
	id := c.Param("id")
	return c.Blob(http.StatusOK, "image/svg+xml", []byte(fmt.Sprintf(`<svg id="%s"></svg>`, id)))
}

func (s *Server) search(c echo.Context) error {
	q := map[string]any{}
	if err := c.Bind(&q); err != nil {
		return reason(c, http.StatusBadRequest, "broken request")
	}
	return c.JSON(http.StatusOK, map[string]any{"query": q, "results": []string{"G00001"}})
}

func (s *Server) oneshot(c echo.Context) error {
	endpoint := c.Param("endpoint")
	if strings.HasPrefix(c.Request().Header.Get("Content-Type"), "multipart/form-data") {
		fh, err := c.FormFile("pdbFile")
		if err != nil {
			return reason(c, http.StatusBadRequest, "pdbFile is required")
		}
		f, err := fh.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		n, err := io.Copy(io.Discard, f)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]any{"endpoint": endpoint, "filename": fh.Filename, "size": n})
	}

	payload := map[string]any{}
	if err := c.Bind(&payload); err != nil {
		return reason(c, http.StatusBadRequest, "broken request")
	}
	return c.JSON(http.StatusOK, map[string]any{"endpoint": endpoint, "payload": payload})
}
