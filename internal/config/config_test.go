package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsForMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if exists {
		t.Fatal("missing file reported as existing")
	}
	if resolved == "" {
		t.Fatal("resolved path empty")
	}
	if cfg.Paths.APIBind != defaultAPIBind {
		t.Fatalf("api_bind = %q, want default", cfg.Paths.APIBind)
	}
	if cfg.Transform.PreviewDuration != defaultPreviewDuration {
		t.Fatalf("preview_duration = %d, want default", cfg.Transform.PreviewDuration)
	}
	if !cfg.Retention.Enabled {
		t.Fatal("retention should default to enabled")
	}
	if !filepath.IsAbs(cfg.Paths.UploadDir) {
		t.Fatalf("upload dir not expanded: %q", cfg.Paths.UploadDir)
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
[paths]
api_bind = "127.0.0.1:9999"

[transform]
export_crf = 18
export_preset = "slow"

[retention]
max_age_hours = 6
sweep_interval_minutes = 10
`)

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !exists {
		t.Fatal("existing file reported as missing")
	}
	if cfg.Paths.APIBind != "127.0.0.1:9999" {
		t.Fatalf("api_bind = %q", cfg.Paths.APIBind)
	}
	if cfg.Transform.ExportCRF != 18 || cfg.Transform.ExportPreset != "slow" {
		t.Fatalf("transform overrides not applied: %+v", cfg.Transform)
	}
	if cfg.Transform.PreviewCRF != defaultPreviewCRF {
		t.Fatalf("unset preview_crf = %d, want default", cfg.Transform.PreviewCRF)
	}
	if cfg.Retention.MaxAge() != 6*time.Hour {
		t.Fatalf("MaxAge = %v", cfg.Retention.MaxAge())
	}
	if cfg.Retention.SweepInterval() != 10*time.Minute {
		t.Fatalf("SweepInterval = %v", cfg.Retention.SweepInterval())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "crf out of range",
			content: "[transform]\nexport_crf = 99\n",
			want:    "export_crf",
		},
		{
			name:    "preview too long",
			content: "[transform]\npreview_duration = 120\n",
			want:    "preview_duration",
		},
		{
			name:    "bad log format",
			content: "[logging]\nformat = \"xml\"\n",
			want:    "logging.format",
		},
		{
			name:    "negative timeout",
			content: "[transform]\njob_timeout_minutes = -5\n",
			want:    "job_timeout_minutes",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, _, _, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestJobTimeoutZeroDisables(t *testing.T) {
	path := writeConfig(t, "[transform]\njob_timeout_minutes = 0\n")
	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.JobTimeout() != 0 {
		t.Fatalf("JobTimeout = %v, want 0", cfg.JobTimeout())
	}
}

func TestBinaryFallbacks(t *testing.T) {
	cfg := Default()
	if cfg.FFmpegBinary() != "ffmpeg" {
		t.Fatalf("FFmpegBinary = %q", cfg.FFmpegBinary())
	}
	if cfg.FFprobeBinary() != "ffprobe" {
		t.Fatalf("FFprobeBinary = %q", cfg.FFprobeBinary())
	}
	cfg.Transform.FFmpegBinary = "/opt/ffmpeg/bin/ffmpeg"
	if cfg.FFmpegBinary() != "/opt/ffmpeg/bin/ffmpeg" {
		t.Fatalf("FFmpegBinary override = %q", cfg.FFmpegBinary())
	}
}

func TestExpandPathResolvesHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := ExpandPath("~/media")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if got != filepath.Join(home, "media") {
		t.Fatalf("ExpandPath = %q", got)
	}
}

func TestCreateSampleProducesLoadableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("create sample: %v", err)
	}
	if _, _, _, err := Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}
