package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Level int    `yaml:"level"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRead_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "journal")
	path := writeFile(t, "name: ${SAMPLE_NAME}\n")

	s := sample{Level: 3}
	if err := Read(path, &s); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if s.Name != "journal" || s.Level != 3 {
		t.Errorf("sample = %+v", s)
	}
}

func TestRead_Malformed(t *testing.T) {
	path := writeFile(t, "name: [unclosed\n")
	var s sample
	if err := Read(path, &s); err == nil {
		t.Error("expected parse error")
	}
}

func TestReadIfExists(t *testing.T) {
	var s sample
	found, err := ReadIfExists(filepath.Join(t.TempDir(), "none.yaml"), &s)
	if err != nil || found {
		t.Errorf("missing file: found = %v, err = %v", found, err)
	}
	found, err = ReadIfExists("", &s)
	if err != nil || found {
		t.Errorf("empty name: found = %v, err = %v", found, err)
	}

	found, err = ReadIfExists(writeFile(t, "name: x\n"), &s)
	if err != nil || !found || s.Name != "x" {
		t.Errorf("found = %v, err = %v, sample = %+v", found, err, s)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(&sample{}); err == nil {
		t.Error("expected validation error")
	}
	if err := Validate(&sample{Name: "ok"}); err != nil {
		t.Errorf("Validate: %v", err)
	}
}
