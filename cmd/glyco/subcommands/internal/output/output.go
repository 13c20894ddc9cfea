// Package output writes responses of the backend to the terminal or files.
package output

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
)

// Payload writes resp. Valid JSON is indented unless raw.
func Payload(w io.Writer, resp []byte, raw bool) error {
	if !raw && json.Valid(resp) {
		buf := new(bytes.Buffer)
		if err := json.Indent(buf, bytes.TrimSpace(resp), "", "    "); err == nil {
			buf.WriteByte('\n')
			_, err := buf.WriteTo(w)
			return err
		}
	}
	_, err := w.Write(resp)
	return err
}

// Create opens dest for writing, making its directory. "-" means stdout.
func Create(dest string, stdout io.Writer) (io.WriteCloser, error) {
	if dest == "-" {
		return nopCloser{stdout}, nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), os.FileMode(0o777)); err != nil {
		return nil, err
	}
	return os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(0o666))
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
