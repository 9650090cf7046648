package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTransform(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	required := map[string]string{
		"paths.upload_dir": c.Paths.UploadDir,
		"paths.output_dir": c.Paths.OutputDir,
		"paths.work_dir":   c.Paths.WorkDir,
		"paths.log_dir":    c.Paths.LogDir,
	}
	for key, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must be set", key)
		}
	}
	if strings.TrimSpace(c.Paths.APIBind) == "" {
		return errors.New("paths.api_bind must be set")
	}
	return nil
}

func (c *Config) validateTransform() error {
	if c.Transform.PreviewDuration <= 0 || c.Transform.PreviewDuration > 60 {
		return errors.New("transform.preview_duration must be between 1 and 60 seconds")
	}
	if c.Transform.PreviewCRF < 0 || c.Transform.PreviewCRF > 51 {
		return errors.New("transform.preview_crf must be between 0 and 51")
	}
	if c.Transform.ExportCRF < 0 || c.Transform.ExportCRF > 51 {
		return errors.New("transform.export_crf must be between 0 and 51")
	}
	if c.Transform.JobTimeoutMinutes < 0 {
		return errors.New("transform.job_timeout_minutes must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
