package scan_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/glycoshape/glyco/cmd/glyco/subcommands/common"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/internal/commandline"
	"github.com/glycoshape/glyco/cmd/glyco/subcommands/logger"
	reglyco_scan "github.com/glycoshape/glyco/cmd/glyco/subcommands/reglyco/scan"
	"github.com/glycoshape/glyco/pkg/api/types/reglyco"
	"github.com/glycoshape/glyco/pkg/config"
	gerr "github.com/glycoshape/glyco/pkg/errors"
	"github.com/glycoshape/glyco/pkg/jobs"
	"github.com/glycoshape/glyco/pkg/rest/mock"
)

func p27918() reglyco.InitResponse {
	return reglyco.InitResponse{
		ProtID: "P27918",
		Sites: []reglyco.Site{
			{ResidueID: 464, ResidueName: "THR", Chain: "A"},
			{ResidueID: 428, ResidueName: "ASN", Chain: "A"},
			{ResidueID: 12, ResidueName: "SER", Chain: "B"},
		},
		Configurations: map[string][]string{
			"ASN": {"G00001", "G00002"},
			"THR": {"G00003"},
		},
		RequestURL: "https://glycoshape.org/viewer/P27918",
	}
}

func TestScanCommand(t *testing.T) {
	t.Run("it lists sites of the protein", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.InitProtein = func(ctx context.Context, protId string, isUpload bool) (reglyco.InitResponse, error) {
			return p27918(), nil
		}

		cl, stdout, _ := commandline.New(
			"glyco reglyco scan", reglyco_scan.Flags{},
			map[string][]string{reglyco_scan.ARG_PROTEIN: {" P27918 "}},
		)
		err := reglyco_scan.Task()(
			context.Background(), logger.Null(),
			common.Session{Config: config.Default()}, client, cl, nil,
		)
		if err != nil {
			t.Fatal(err)
		}

		if len(client.Calls.InitProtein) != 1 {
			t.Fatalf("init is called %d times", len(client.Calls.InitProtein))
		}
		if c := client.Calls.InitProtein[0]; c.ProtId != "P27918" || c.IsUpload {
			t.Errorf("unexpected call: %+v", c)
		}

		expected := `Protein: P27918
Viewer: https://glycoshape.org/viewer/P27918
Sites:
  428_A ASN: G00001, G00002
  464_A THR: G00003
  12_B SER: Not Available
`
		if stdout.String() != expected {
			t.Errorf("unexpected output:\n===actual===\n%s\n===expected===\n%s", stdout.String(), expected)
		}
	})

	t.Run("it prints JSON with --json", func(t *testing.T) {
		client := mock.New(t)
		client.Impl.InitProtein = func(ctx context.Context, protId string, isUpload bool) (reglyco.InitResponse, error) {
			return p27918(), nil
		}
		cl, stdout, _ := commandline.New(
			"glyco reglyco scan", reglyco_scan.Flags{Json: true},
			map[string][]string{reglyco_scan.ARG_PROTEIN: {"P27918"}},
		)
		if err := reglyco_scan.Task()(
			context.Background(), logger.Null(),
			common.Session{Config: config.Default()}, client, cl, nil,
		); err != nil {
			t.Fatal(err)
		}
		actual := reglyco.InitResponse{}
		if err := json.Unmarshal([]byte(stdout.String()), &actual); err != nil {
			t.Fatal(err)
		}
		if actual.ProtID != "P27918" || len(actual.Sites) != 3 {
			t.Errorf("unexpected output: %+v", actual)
		}
	})

	t.Run("it uploads a structure file with --file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "mine.PDB")
		if err := os.WriteFile(path, []byte("ATOM"), 0o600); err != nil {
			t.Fatal(err)
		}

		client := mock.New(t)
		client.Impl.UploadProtein = func(ctx context.Context, filename string, content io.Reader) (reglyco.InitResponse, error) {
			return reglyco.InitResponse{ProtID: "mine", Filename: filename}, nil
		}
		cl, stdout, _ := commandline.New(
			"glyco reglyco scan", reglyco_scan.Flags{File: true},
			map[string][]string{reglyco_scan.ARG_PROTEIN: {path}},
		)
		if err := reglyco_scan.Task()(
			context.Background(), logger.Null(),
			common.Session{Config: config.Default()}, client, cl, nil,
		); err != nil {
			t.Fatal(err)
		}

		if len(client.Calls.UploadProtein) != 1 {
			t.Fatalf("upload is called %d times", len(client.Calls.UploadProtein))
		}
		if c := client.Calls.UploadProtein[0]; c.Filename != "mine.PDB" || string(c.Content) != "ATOM" {
			t.Errorf("unexpected upload: %+v", c)
		}
		if !strings.Contains(stdout.String(), "Uploaded as: mine.PDB") {
			t.Errorf("unexpected output:\n%s", stdout.String())
		}
		if !strings.Contains(stdout.String(), "(no glycosylation site found)") {
			t.Errorf("unexpected output:\n%s", stdout.String())
		}
	})

	t.Run("it rejects files other than .pdb and .cif without requests", func(t *testing.T) {
		client := mock.New(t)
		cl, _, _ := commandline.New(
			"glyco reglyco scan", reglyco_scan.Flags{File: true},
			map[string][]string{reglyco_scan.ARG_PROTEIN: {"no/such/structure.txt"}},
		)
		err := reglyco_scan.Task()(
			context.Background(), logger.Null(),
			common.Session{Config: config.Default()}, client, cl, nil,
		)
		if !errors.Is(err, gerr.ErrRejected) {
			t.Errorf("unexpected error: %v", err)
		}
		if err == nil || err.Error() != jobs.MessageFileTypeNotAllowed {
			t.Errorf("unexpected message: %v", err)
		}
		if len(client.Calls.UploadProtein) != 0 || len(client.Calls.InitProtein) != 0 {
			t.Errorf("requests are sent: %+v", client.Calls)
		}
	})

	t.Run("errors from the backend are returned", func(t *testing.T) {
		client := mock.New(t)
		expectedErr := gerr.Status(400, "Wrong uniprot id or pdb id", "")
		client.Impl.InitProtein = func(ctx context.Context, protId string, isUpload bool) (reglyco.InitResponse, error) {
			return reglyco.InitResponse{}, expectedErr
		}
		cl, stdout, _ := commandline.New(
			"glyco reglyco scan", reglyco_scan.Flags{},
			map[string][]string{reglyco_scan.ARG_PROTEIN: {"nope"}},
		)
		err := reglyco_scan.Task()(
			context.Background(), logger.Null(),
			common.Session{Config: config.Default()}, client, cl, nil,
		)
		if !errors.Is(err, gerr.ErrStatus) {
			t.Errorf("unexpected error: %v", err)
		}
		if stdout.Len() != 0 {
			t.Errorf("something is written: %s", stdout.String())
		}
	})
}
