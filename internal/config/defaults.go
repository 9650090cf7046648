package config

const (
	defaultUploadDir            = "~/.local/share/clipforge/uploads"
	defaultOutputDir            = "~/.local/share/clipforge/outputs"
	defaultWorkDir              = "~/.local/share/clipforge/work"
	defaultBgmDir               = "~/.local/share/clipforge/bgm"
	defaultLogDir               = "~/.local/share/clipforge/logs"
	defaultAPIBind              = "127.0.0.1:7580"
	defaultPreviewDuration      = 5
	defaultPreviewCRF           = 28
	defaultExportCRF            = 23
	defaultExportPreset         = "medium"
	defaultJobTimeoutMinutes    = 120
	defaultRetentionMaxAgeHours = 24
	defaultSweepIntervalMinutes = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			OutputDir: defaultOutputDir,
			WorkDir:   defaultWorkDir,
			BgmDir:    defaultBgmDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Transform: Transform{
			PreviewDuration:   defaultPreviewDuration,
			PreviewCRF:        defaultPreviewCRF,
			ExportCRF:         defaultExportCRF,
			ExportPreset:      defaultExportPreset,
			JobTimeoutMinutes: defaultJobTimeoutMinutes,
		},
		Retention: Retention{
			Enabled:              true,
			MaxAgeHours:          defaultRetentionMaxAgeHours,
			SweepIntervalMinutes: defaultSweepIntervalMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func (c *Config) normalize() error {
	pathFields := []*string{
		&c.Paths.UploadDir,
		&c.Paths.OutputDir,
		&c.Paths.WorkDir,
		&c.Paths.BgmDir,
		&c.Paths.LogDir,
	}
	for _, field := range pathFields {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	if c.Transform.PreviewDuration <= 0 {
		c.Transform.PreviewDuration = defaultPreviewDuration
	}
	if c.Transform.PreviewCRF <= 0 {
		c.Transform.PreviewCRF = defaultPreviewCRF
	}
	if c.Transform.ExportCRF <= 0 {
		c.Transform.ExportCRF = defaultExportCRF
	}
	if c.Transform.ExportPreset == "" {
		c.Transform.ExportPreset = defaultExportPreset
	}
	if c.Retention.MaxAgeHours <= 0 {
		c.Retention.MaxAgeHours = defaultRetentionMaxAgeHours
	}
	if c.Retention.SweepIntervalMinutes <= 0 {
		c.Retention.SweepIntervalMinutes = defaultSweepIntervalMinutes
	}
	return nil
}
