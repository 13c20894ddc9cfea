package jobs

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/glycoshape/glyco/pkg/api/types/progress"
	"github.com/glycoshape/glyco/pkg/api/types/reglyco"
	"github.com/glycoshape/glyco/pkg/config"
	"github.com/glycoshape/glyco/pkg/rest"
)

const NotAvailable = "Not Available"

type Banner string

const (
	BannerSuccess Banner = "success"
	BannerWarning Banner = "warning"
	BannerError   Banner = "error"

	// job is not terminal yet.
	BannerRunning Banner = "running"
)

// Link is a downloadable artifact.
type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// View is a rendering of a job result.
//
// It is built from the last result and document only; nothing is carried
// over from previous views.
type View struct {
	Handle   string                   `json:"jobId"`
	Banner   Banner                   `json:"banner"`
	Message  string                   `json:"message"`
	Status   progress.Status          `json:"status,omitempty"`
	Progress int                      `json:"progress"`
	Viewer   string                   `json:"viewer,omitempty"`
	Links    []Link                   `json:"links"`
	Residues []reglyco.ResidueSummary `json:"residues"`
	Log      string                   `json:"log,omitempty"`
	Logs     []progress.Log           `json:"logs"`
	Images   []Link                   `json:"images"`
}

// Presenter builds Views with links into the output space of the backend.
type Presenter struct {
	api string
}

func NewPresenter(conf config.Config) *Presenter {
	return &Presenter{api: conf.APIRoot()}
}

// OutputURL is {api}/output/{relpath}, with exactly one slash at each joint.
func (p *Presenter) OutputURL(relpath string) string {
	return rest.JoinURL(p.api, "output", relpath)
}

// link returns URL of relpath. URLs already absolute are kept as is.
func (p *Presenter) link(relpath string) string {
	if strings.HasPrefix(relpath, "http://") || strings.HasPrefix(relpath, "https://") {
		return relpath
	}
	return p.OutputURL(relpath)
}

// Present renders result and doc.
//
// doc can be nil when the job is answered at once.
func (p *Presenter) Present(handle string, result reglyco.JobResult, doc *progress.Document) View {
	v := View{
		Handle:   handle,
		Links:    []Link{},
		Residues: []reglyco.ResidueSummary{},
		Logs:     []progress.Log{},
		Images:   []Link{},
		Log:      result.Log,
	}
	if v.Handle == "" {
		v.Handle = result.JobId
	}

	switch {
	case doc != nil && doc.Status == progress.Error:
		v.Banner = BannerError
		v.Message = "The job failed. See logs for details."
	case doc != nil && !doc.Status.Terminal():
		v.Banner = BannerRunning
		v.Message = fmt.Sprintf("The job is still running (%d%%).", doc.Progress)
	case result.Clash:
		v.Banner = BannerWarning
		v.Message = "Glycosylation finished with clashes. Check the residue summary."
	default:
		v.Banner = BannerSuccess
		v.Message = "Glycosylation finished successfully."
	}

	if doc != nil {
		v.Status = doc.Status
		v.Progress = doc.Progress
		v.Logs = append(v.Logs, doc.Logs...)
		for _, img := range doc.Images {
			if img.ImageURL == "" {
				continue
			}
			v.Images = append(v.Images, Link{Label: img.Caption, URL: p.link(img.ImageURL)})
		}
	}

	if result.Output != "" {
		v.Viewer = p.link(result.Output)
	}
	for _, a := range []struct {
		label string
		path  string
	}{
		{"structure", result.Output},
		{"box", result.Box},
		{"plot", result.Plot},
		{"sasa", result.SASA},
	} {
		if strings.Trim(a.path, "/ ") == "" {
			continue
		}
		v.Links = append(v.Links, Link{Label: a.label, URL: p.link(a.path)})
	}
	v.Residues = append(v.Residues, result.Summary...)
	return v
}

var textView = template.Must(template.New("view").Funcs(template.FuncMap{
	"na": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return NotAvailable
		}
		return s
	},
	"yesno": func(b bool) string {
		if b {
			return "yes"
		}
		return "no"
	},
	"upper": strings.ToUpper,
}).Parse(`[{{ upper (print .Banner) }}] {{ .Message }}
Job:      {{ na .Handle }}
Status:   {{ na (print .Status) }}{{ if .Status }} ({{ .Progress }}%){{ end }}
Viewer:   {{ na .Viewer }}
Downloads:
{{- range .Links }}
  {{ .Label }}: {{ .URL }}
{{- else }}
  {{ na "" }}
{{- end }}
Residues:
{{- range .Residues }}
  {{ na .Residue }}: {{ na .Glycan }} (clash solved: {{ yesno .ClashSolved }})
{{- else }}
  {{ na "" }}
{{- end }}
{{- if .Images }}
Images:
{{- range .Images }}
  {{ na .Label }}: {{ .URL }}
{{- end }}
{{- end }}
Log:
{{- range .Logs }}
  {{ .Timestamp }} {{ .Message }}
{{- else }}
  {{ na .Log }}
{{- end }}
`))

// WriteText writes v for terminals.
func WriteText(w io.Writer, v View) error {
	return textView.Execute(w, v)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(v)
}
