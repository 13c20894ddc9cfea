package rest

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Endpoint is a request/response tool endpoint under {api}/api/ .
type Endpoint string

const (
	EndpointUniprot        Endpoint = "uniprot"
	EndpointRCSB           Endpoint = "rcsb"
	EndpointUploadPDB      Endpoint = "upload_pdb"
	EndpointProcessUniprot Endpoint = "process_uniprot"
	EndpointProcessPDB     Endpoint = "process_pdb"
	EndpointProcessPDBSASA Endpoint = "process_pdb_sasa"
	EndpointOneUniprot     Endpoint = "one_uniprot"
	EndpointOneUniprotSASA Endpoint = "one_uniprot_sasa"
	EndpointOneshotPDB     Endpoint = "oneshot_pdb"
	EndpointOneshotSASA    Endpoint = "oneshot_sasa"
	EndpointScan           Endpoint = "scan"
	EndpointSearch         Endpoint = "search"
)

// Endpoints lists all tool endpoints.
var Endpoints = []Endpoint{
	EndpointUniprot, EndpointRCSB, EndpointUploadPDB,
	EndpointProcessUniprot, EndpointProcessPDB, EndpointProcessPDBSASA,
	EndpointOneUniprot, EndpointOneUniprotSASA,
	EndpointOneshotPDB, EndpointOneshotSASA,
	EndpointScan, EndpointSearch,
}

// ParseEndpoint returns an Endpoint named s.
func ParseEndpoint(s string) (Endpoint, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, e := range Endpoints {
		if string(e) == s {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown endpoint: %s", s)
}

// TakesFile tells the endpoint expects a structure file upload.
func (e Endpoint) TakesFile() bool {
	switch e {
	case EndpointUploadPDB, EndpointProcessPDB, EndpointProcessPDBSASA,
		EndpointOneshotPDB, EndpointOneshotSASA:
		return true
	default:
		return false
	}
}

// DevOnly tells the endpoint is available only with dev features.
func (e Endpoint) DevOnly() bool {
	return e == EndpointScan
}

func (c *client) OneShot(ctx context.Context, endpoint Endpoint, payload any) ([]byte, error) {
	build, err := c.postJSON(c.apipath("api", string(endpoint)), payload)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, build)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readPayload(resp, MessageFor{
		Status4xx: fmt.Sprintf("request to %s is rejected", endpoint),
	})
}

func (c *client) OneShotUpload(ctx context.Context, endpoint Endpoint, filename string, content io.Reader) ([]byte, error) {
	build, err := c.postFile(c.apipath("api", string(endpoint)), "pdbFile", filename, content)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, build)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readPayload(resp, MessageFor{
		Status4xx: fmt.Sprintf("upload to %s is rejected", endpoint),
	})
}

// SearchQuery is a payload of POST /api/search .
type SearchQuery struct {
	// free text, IUPAC, GlyTouCan id, ...
	Query string `json:"search_string"`

	// "text" by default. The backend also knows "wurcs", "glycoct" and "iupac".
	SearchType string `json:"search_type,omitempty"`
}

func (c *client) Search(ctx context.Context, query SearchQuery) ([]byte, error) {
	if query.SearchType == "" {
		query.SearchType = "text"
	}
	build, err := c.postJSON(c.apipath("api", "search"), query)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, build)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readPayload(resp, MessageFor{
		Status4xx: "search is rejected",
	})
}

func (c *client) GlycanSVG(ctx context.Context, glycanId string) ([]byte, error) {
	build, err := c.postJSON(c.apipath("api", "svg", glycanId), struct{}{})
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, build)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return readPayload(resp, MessageFor{
		Status4xx: fmt.Sprintf("glycan %s is not found", glycanId),
	})
}

func (c *client) DatabaseArtifact(ctx context.Context, glycanId string, name string, handler func(Download) error) error {
	return c.download(
		ctx, c.apipath("database", glycanId, name), handler,
		MessageFor{Status4xx: fmt.Sprintf("%s of glycan %s is not found", name, glycanId)},
	)
}
