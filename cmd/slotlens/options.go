package main

import (
	cli "github.com/jawher/mow.cli"
)

func initGlobalOptions(
	appLogLevel **string,
	configPath **string,
) {
	*appLogLevel = app.String(cli.StringOpt{
		Name:   "l log-level",
		Desc:   "Available levels: error, warn, info, debug.",
		EnvVar: "SLOTLENS_LOG_LEVEL",
		Value:  "info",
	})

	*configPath = app.String(cli.StringOpt{
		Name:   "c config",
		Desc:   "Path to a TOML, YAML or JSON config file.",
		EnvVar: "SLOTLENS_CONFIG",
		Value:  "",
	})
}

func initOutputOptions(
	cmd *cli.Cmd,
	output **string,
	showGaps **string,
) {
	*output = cmd.String(cli.StringOpt{
		Name:   "o output",
		Desc:   "Output format: table or json. Defaults to render.output of the config.",
		EnvVar: "SLOTLENS_OUTPUT",
		Value:  "",
	})

	*showGaps = cmd.String(cli.StringOpt{
		Name:   "gaps",
		Desc:   "Print slots that hold no variable.",
		EnvVar: "SLOTLENS_SHOW_GAPS",
		Value:  "",
	})
}

func initRegistryOptions(
	cmd *cli.Cmd,
	sourcifyURL **string,
) {
	*sourcifyURL = cmd.String(cli.StringOpt{
		Name:   "sourcify-url",
		Desc:   "Sourcify server URL. Defaults to registry.sourcify-url of the config.",
		EnvVar: "SLOTLENS_SOURCIFY_URL",
		Value:  "",
	})
}

func initCompareOptions(
	cmd *cli.Cmd,
	reportURL **string,
) {
	*reportURL = cmd.String(cli.StringOpt{
		Name:   "report-url",
		Desc:   "Upgrade-safety service endpoint. The builtin analyzer is used when empty.",
		EnvVar: "SLOTLENS_REPORT_URL",
		Value:  "",
	})
}

func initServeOptions(
	cmd *cli.Cmd,
	listenAddr **string,
	cacheBackend **string,
) {
	*listenAddr = cmd.String(cli.StringOpt{
		Name:   "listen",
		Desc:   "Address the HTTP API listens on. Defaults to api.address of the config.",
		EnvVar: "SLOTLENS_LISTEN",
		Value:  "",
	})

	*cacheBackend = cmd.String(cli.StringOpt{
		Name:   "cache",
		Desc:   "Layout cache backend: memory, redis or none. Defaults to cache.backend of the config.",
		EnvVar: "SLOTLENS_CACHE",
		Value:  "",
	})
}
