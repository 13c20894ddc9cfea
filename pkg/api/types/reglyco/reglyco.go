package reglyco

import (
	"encoding/json"
	"strconv"
)

// InitRequest is a payload of POST /api/reglyco/init .
type InitRequest struct {
	ProtID   string `json:"protID"`
	IsUpload bool   `json:"isUpload"`
}

// Site is a residue which can carry a glycan.
type Site struct {
	ResidueID   int    `json:"residueID"`
	ResidueName string `json:"residueName"`
	Chain       string `json:"residueChain"`
}

// Key is how the site is referred in JobRequest.Glycans .
func (s Site) Key() string {
	if s.Chain == "" {
		return strconv.Itoa(s.ResidueID)
	}
	return strconv.Itoa(s.ResidueID) + "_" + s.Chain
}

// InitResponse is a result of POST /api/reglyco/init .
type InitResponse struct {
	ProtID   string `json:"protID"`
	Filename string `json:"filename,omitempty"`

	// candidate glycosylation sites.
	Sites []Site `json:"glycosylation_locations"`

	// available glycans per residue type (e.g. "ASN", "THR").
	Configurations map[string][]string `json:"glycanConfigurations"`

	// URL for the structure viewer.
	RequestURL string `json:"requestURL"`
}

// GlycansFor returns glycans available for the residue of site.
func (r InitResponse) GlycansFor(site Site) []string {
	return r.Configurations[site.ResidueName]
}

// JobRequest is a payload of POST /api/reglyco/job .
type JobRequest struct {
	JobId    string `json:"jobId"`
	ProtID   string `json:"protID"`
	IsUpload bool   `json:"isUpload"`

	// residue key (see Site.Key) -> glycan id
	Glycans map[string]string `json:"selectedGlycans"`

	EnsembleSize  int    `json:"ensembleSize"`
	Wiggle        int    `json:"wiggle"`
	EffortLevel   int    `json:"effortLevel"`
	CheckSteric   bool   `json:"checkSteric"`
	CalculateSASA bool   `json:"calculateSASA"`
	OutputFormat  string `json:"outputFormat"`
}

// ResidueSummary is a glycan assigned per residue in a result.
type ResidueSummary struct {
	Residue     string `json:"residue"`
	Glycan      string `json:"glycan"`
	ClashSolved bool   `json:"clash_solved"`
}

// JobResult is a result of a job, whether it is returned at once or later.
//
// All fields are optional. Paths are relative to {api}/output/ .
type JobResult struct {
	JobId   string           `json:"jobId,omitempty"`
	Output  string           `json:"output,omitempty"`
	Clash   bool             `json:"clash"`
	Box     string           `json:"box,omitempty"`
	Plot    string           `json:"plot,omitempty"`
	SASA    string           `json:"sasa,omitempty"`
	Log     string           `json:"log,omitempty"`
	Summary []ResidueSummary `json:"summary,omitempty"`
}

// Decode reads payload as JobResult, leniently.
//
// Fields with unexpected types are left zero instead of failing the whole
// payload. It fails only when the payload is not a JSON object.
func Decode(payload []byte) (JobResult, error) {
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return JobResult{}, err
	}

	r := JobResult{}
	str := func(key string, dest *string) {
		if raw, ok := fields[key]; ok {
			json.Unmarshal(raw, dest)
		}
	}
	str("jobId", &r.JobId)
	if r.JobId == "" {
		str("job_id", &r.JobId)
	}
	str("output", &r.Output)
	str("box", &r.Box)
	str("plot", &r.Plot)
	str("sasa", &r.SASA)
	str("log", &r.Log)
	if raw, ok := fields["clash"]; ok {
		json.Unmarshal(raw, &r.Clash)
	}
	if raw, ok := fields["summary"]; ok {
		entries := []json.RawMessage{}
		if err := json.Unmarshal(raw, &entries); err == nil {
			for _, e := range entries {
				s := ResidueSummary{}
				if err := json.Unmarshal(e, &s); err == nil {
					r.Summary = append(r.Summary, s)
				}
			}
		}
	}
	return r, nil
}
