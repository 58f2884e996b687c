package config

const (
	defaultConfigPath         = "~/.config/bootstick/config.toml"
	projectConfigName         = "bootstick.toml"
	defaultImageDir           = "~/Downloads"
	defaultMinImageBytes      = 1 << 30
	defaultLabel              = "WIN11"
	defaultScheme             = "MBR"
	defaultVolumesDir         = "/Volumes"
	defaultSplitChunkMiB      = 3800
	defaultPrimaryPayload     = "sources/install.wim"
	defaultAlternativePayload = "sources/install.esd"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30

	// FAT32 cannot hold a file of 4 GiB or more.
	maxSplitChunkMiB = 4095
	maxLabelLength   = 11
)

// Environment variables consulted during normalization.
const (
	EnvImage  = "BOOTSTICK_ISO"
	EnvDevice = "BOOTSTICK_DISK"
	EnvAuto   = "BOOTSTICK_AUTO"
	EnvConfig = "BOOTSTICK_CONFIG"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Image: Image{
			Dir:           defaultImageDir,
			MinImageBytes: defaultMinImageBytes,
		},
		Device: Device{
			Label:      defaultLabel,
			Scheme:     defaultScheme,
			VolumesDir: defaultVolumesDir,
		},
		Transfer: Transfer{
			SplitChunkMiB:      defaultSplitChunkMiB,
			PrimaryPayload:     defaultPrimaryPayload,
			AlternativePayload: defaultAlternativePayload,
		},
		Tools: Tools{
			Diskutil:       "diskutil",
			Hdiutil:        "hdiutil",
			Rsync:          "rsync",
			Wimlib:         "wimlib-imagex",
			PackageManager: "brew",
			WimlibPackage:  "wimlib",
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
		Run: Run{
			LockDir: defaultLockDir(),
		},
	}
}
