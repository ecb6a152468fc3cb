package config

// Repository config defaults.
const (
	DefaultChurnCutoff   = 14
	DefaultWeight        = 1.0
	DefaultMergeDefaults = true
	RepoConfigFile       = ".codealong.yml"
)

// Settings defaults.
const (
	DefaultWorkers      = 0
	DefaultBlameBackend = BlameBackendProcess
	DefaultOutputFormat = "json"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// Blame backends.
const (
	BlameBackendProcess = "process"
	BlameBackendNative  = "native"
)
