package utils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/glycoshape/glyco/pkg/utils"
)

func TestSearchFileUpward(t *testing.T) {
	touch := func(t *testing.T, path string) {
		t.Helper()
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte{}, 0o600); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("the file in the directory is found", func(t *testing.T) {
		root := t.TempDir()
		expected := filepath.Join(root, "glycoenv")
		touch(t, expected)

		actual, err := utils.SearchFileUpward(root, "glycoenv")
		if err != nil {
			t.Fatal(err)
		}
		if actual != expected {
			t.Errorf("(actual, expected) = (%s, %s)", actual, expected)
		}
	})

	t.Run("the nearest file in ancestors is found", func(t *testing.T) {
		root := t.TempDir()
		touch(t, filepath.Join(root, "glycoenv"))
		expected := filepath.Join(root, "a", "glycoenv")
		touch(t, expected)
		from := filepath.Join(root, "a", "b", "c")
		if err := os.MkdirAll(from, 0o700); err != nil {
			t.Fatal(err)
		}

		actual, err := utils.SearchFileUpward(from, "glycoenv")
		if err != nil {
			t.Fatal(err)
		}
		if actual != expected {
			t.Errorf("(actual, expected) = (%s, %s)", actual, expected)
		}
	})

	t.Run("directories are skipped", func(t *testing.T) {
		root := t.TempDir()
		expected := filepath.Join(root, "glycoenv")
		touch(t, expected)
		from := filepath.Join(root, "a")
		if err := os.MkdirAll(filepath.Join(from, "glycoenv"), 0o700); err != nil {
			t.Fatal(err)
		}

		actual, err := utils.SearchFileUpward(from, "glycoenv")
		if err != nil {
			t.Fatal(err)
		}
		if actual != expected {
			t.Errorf("(actual, expected) = (%s, %s)", actual, expected)
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		_, err := utils.SearchFileUpward(t.TempDir(), "no-such-file-"+t.Name())
		if !errors.Is(err, utils.ErrSearchFile) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
