package config

const (
	defaultConfigPath          = "~/.config/ripline/config.toml"
	defaultOutputDir           = "~/.local/share/ripline/output"
	defaultLogDir              = "~/.local/share/ripline/logs"
	defaultStateDir            = "~/.local/state/ripline"
	defaultAPIBind             = "127.0.0.1:7590"
	defaultOrigin              = "http://localhost:5173"
	defaultMakeMKVBinary       = "makemkvcon"
	defaultOpticalDrive        = "/dev/sr0"
	defaultHandBrakeBinary     = "HandBrakeCLI"
	defaultProfilesPath        = "~/.config/ripline/profiles"
	defaultEncodingEngine      = EngineHandBrake
	defaultTMDBLanguage        = "en-US"
	defaultTMDBBaseURL         = "https://api.themoviedb.org/3"
	defaultUploadPort          = 22
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultNotifyTimeout       = 10
	defaultCommandPollInterval = 2
	defaultCommandPollRetries  = 10
)

// Encode engines accepted by encoding.engine.
const (
	EngineHandBrake = "handbrake"
	EngineDrapto    = "drapto"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
			APIBind:   defaultAPIBind,
			Origin:    defaultOrigin,
		},
		MakeMKV: MakeMKV{
			Binary:       defaultMakeMKVBinary,
			OpticalDrive: defaultOpticalDrive,
		},
		HandBrake: HandBrake{
			Binary:       defaultHandBrakeBinary,
			ProfilesPath: defaultProfilesPath,
		},
		Encoding: Encoding{
			Engine: defaultEncodingEngine,
		},
		TMDB: TMDB{
			Language: defaultTMDBLanguage,
			BaseURL:  defaultTMDBBaseURL,
		},
		Upload: Upload{
			Port: defaultUploadPort,
		},
		Selection: Selection{
			Languages: []string{"eng"},
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			DiscDetected:   true,
			JobComplete:    true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
		Workflow: Workflow{
			CommandPollInterval: defaultCommandPollInterval,
			CommandPollRetries:  defaultCommandPollRetries,
		},
	}
}
