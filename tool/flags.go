package tool

import "flag"

// Config holds runtime overrides from CLI flags.
type Config struct {
	Log              string
	UseConfigPath    string
	UsePort          int
	UseUploadFolder  string
	UseTempFolder    string
	UseScan          bool
	UseSendFiles     string // comma-separated paths: run as sending client instead of server
	UseSendTarget    string // base URL of the receiving server
	UseUploadContext string // routing context for the batch
}

// SetFlags parses CLI flags and returns the override config.
func SetFlags() Config {
	var cfg Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override server port")
	flag.StringVar(&cfg.UseUploadFolder, "useUploadFolder", "", "override durable upload folder")
	flag.StringVar(&cfg.UseTempFolder, "useTempFolder", "", "override primary temp folder")
	flag.BoolVar(&cfg.UseScan, "useScan", false, "enable virus scanning before transfer")
	flag.StringVar(&cfg.UseSendFiles, "useSendFiles", "", "comma-separated file paths to send (client mode)")
	flag.StringVar(&cfg.UseSendTarget, "useSendTarget", "", "target server base URL for client mode, e.g. http://127.0.0.1:53419")
	flag.StringVar(&cfg.UseUploadContext, "useUploadContext", "", "upload context used to route the batch")
	flag.Parse()
	return cfg
}
