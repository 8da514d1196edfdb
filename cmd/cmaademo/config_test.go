package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := parseConfig(nil, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != defaultConfig() {
		t.Errorf("parseConfig(nil) = %+v", cfg)
	}
}

func TestParseConfigFlags(t *testing.T) {
	cfg, err := parseConfig([]string{"-c", "-b", "-frames", "3", "-threshold", "0.1"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.CMAA || !cfg.Copy || cfg.Frames != 3 || cfg.EdgeThreshold != 0.1 {
		t.Errorf("config = %+v", cfg)
	}
}

func TestParseConfigProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.toml")
	profile := "cmaa = true\nframes = 8\nsize = 64\noutput = \"out\"\n"
	if err := os.WriteFile(path, []byte(profile), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := parseConfig([]string{"-config", path, "-frames", "2"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.CMAA || cfg.Size != 64 || cfg.Output != "out" {
		t.Errorf("profile not applied: %+v", cfg)
	}
	if cfg.Frames != 2 {
		t.Errorf("frames = %d, want the flag to win", cfg.Frames)
	}
}

func TestParseConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"-nope"}},
		{"zero frames", []string{"-frames", "0"}},
		{"tiny size", []string{"-size", "8"}},
		{"threshold", []string{"-threshold", "1.5"}},
		{"missing profile", []string{"-config", "does-not-exist.toml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseConfig(tt.args, io.Discard); err == nil {
				t.Error("parseConfig() succeeded")
			}
		})
	}
	if _, err := parseConfig([]string{"-nope"}, io.Discard); !errors.Is(err, errUsage) {
		t.Errorf("unknown flag error = %v, want errUsage", err)
	}
}
