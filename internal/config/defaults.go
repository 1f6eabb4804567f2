package config

const (
	defaultDataDir              = "~/.local/share/ledgercast/data"
	defaultLogDir               = "~/.local/share/ledgercast/logs"
	defaultAPIBind              = "127.0.0.1:8319"
	defaultWorkerClaimInterval  = 1
	defaultWorkerStepInterval   = 750
	defaultSyncPollInterval     = 2
	defaultPollFailureThreshold = 3
	defaultPollBackoffMax       = 30
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Worker: Worker{
			ClaimInterval: defaultWorkerClaimInterval,
			StepInterval:  defaultWorkerStepInterval,
		},
		Sync: Sync{
			PollInterval:         defaultSyncPollInterval,
			PollFailureThreshold: defaultPollFailureThreshold,
			PollBackoffMax:       defaultPollBackoffMax,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
