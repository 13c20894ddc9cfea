package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/glycoshape/glyco/pkg/api/types/progress"
	"github.com/glycoshape/glyco/pkg/api/types/reglyco"
	gerr "github.com/glycoshape/glyco/pkg/errors"
)

// postJSON builds a request builder posting payload as JSON.
func (c *client) postJSON(url string, payload any) (func(context.Context) (*http.Request, error), error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	}, nil
}

// postFile builds a request builder posting content as a multipart form field.
//
// content is read at once, so that the request can be sent again.
func (c *client) postFile(url string, field string, filename string, content io.Reader) (func(context.Context) (*http.Request, error), error) {
	buf := new(bytes.Buffer)
	mw := multipart.NewWriter(buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, content); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	body := buf.Bytes()
	contentType := mw.FormDataContentType()

	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	}, nil
}

func (c *client) get(url string) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	}
}

func (c *client) InitProtein(ctx context.Context, protId string, isUpload bool) (reglyco.InitResponse, error) {
	build, err := c.postJSON(
		c.apipath("api", "reglyco", "init"),
		reglyco.InitRequest{ProtID: protId, IsUpload: isUpload},
	)
	if err != nil {
		return reglyco.InitResponse{}, err
	}
	return c.initProtein(ctx, build)
}

func (c *client) UploadProtein(ctx context.Context, filename string, content io.Reader) (reglyco.InitResponse, error) {
	build, err := c.postFile(c.apipath("api", "reglyco", "init"), "pdbFile", filename, content)
	if err != nil {
		return reglyco.InitResponse{}, err
	}
	return c.initProtein(ctx, build)
}

func (c *client) initProtein(ctx context.Context, build func(context.Context) (*http.Request, error)) (reglyco.InitResponse, error) {
	resp, err := c.do(ctx, build)
	if err != nil {
		return reglyco.InitResponse{}, err
	}
	defer resp.Body.Close()

	ir := reglyco.InitResponse{}
	if err := unmarshalJsonResponse(resp, &ir, MessageFor{
		Status4xx: "Wrong uniprot id or pdb id",
	}); err != nil {
		return reglyco.InitResponse{}, err
	}
	return ir, nil
}

func (c *client) SubmitJob(ctx context.Context, jr reglyco.JobRequest) (reglyco.JobResult, error) {
	build, err := c.postJSON(c.apipath("api", "reglyco", "job"), jr)
	if err != nil {
		return reglyco.JobResult{}, err
	}

	resp, err := c.do(ctx, build)
	if err != nil {
		return reglyco.JobResult{}, err
	}
	defer resp.Body.Close()

	payload, err := readPayload(resp, MessageFor{
		Status4xx: "job is rejected by server",
	})
	if err != nil {
		return reglyco.JobResult{}, err
	}

	result, err := reglyco.Decode(payload)
	if err != nil {
		return reglyco.JobResult{}, gerr.Malformed(err)
	}
	if result.JobId == "" {
		result.JobId = jr.JobId
	}
	return result, nil
}

func (c *client) GetProgress(ctx context.Context, jobId string) (progress.Document, error) {
	resp, err := c.do(ctx, c.get(c.apipath("output", jobId, "progress.json")))
	if err != nil {
		return progress.Document{}, err
	}
	defer resp.Body.Close()

	doc := progress.Document{}
	if err := unmarshalJsonResponse(resp, &doc, MessageFor{
		Status4xx: fmt.Sprintf("progress of job %s is not found", jobId),
	}); err != nil {
		return progress.Document{}, err
	}
	return doc, nil
}

func (c *client) DownloadJob(ctx context.Context, jobId string, handler func(Download) error) error {
	return c.download(
		ctx, c.apipath("api", "reglyco", "download", jobId), handler,
		MessageFor{Status4xx: fmt.Sprintf("job %s is not found", jobId)},
	)
}

func (c *client) DownloadOutput(ctx context.Context, relpath string, handler func(Download) error) error {
	return c.download(
		ctx, c.OutputURL(relpath), handler,
		MessageFor{Status4xx: fmt.Sprintf("%s is not found", relpath)},
	)
}

func (c *client) download(ctx context.Context, url string, handler func(Download) error, messageFor MessageFor) error {
	resp, err := c.do(ctx, c.get(url))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusError(resp, messageFor); err != nil {
		return err
	}

	return handler(Download{
		Body:     resp.Body,
		Size:     resp.ContentLength,
		Filename: filenameOf(resp),
	})
}

// filenameOf extracts filename from Content-Disposition header, if any.
func filenameOf(resp *http.Response) string {
	cd := resp.Header.Get("Content-Disposition")
	if cd == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(cd)
	if err != nil {
		return ""
	}
	return params["filename"]
}
