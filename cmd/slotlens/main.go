package main

import (
	"fmt"
	"os"

	cli "github.com/jawher/mow.cli"
	log "github.com/xlab/suplog"

	"github.com/InjectiveLabs/slotlens/cmd/slotlens/config"
)

var app = cli.App("slotlens", "Inspects the storage slot packing of upgradeable contracts and checks upgrade compatibility.")

var (
	appLogLevel *string
	configPath  *string

	appConfig config.Config
)

func main() {
	readEnv()
	initGlobalOptions(&appLogLevel, &configPath)

	app.Before = func() {
		log.DefaultLogger.SetLevel(logLevel(*appLogLevel))

		cfg, err := config.GetConfig(*configPath)
		if err != nil {
			log.WithError(err).Fatalln("failed to load config")
		}
		appConfig = cfg
	}

	app.Command("inspect", "Reconstructs and prints the slot packing of a storage layout file.", inspectCmd)
	app.Command("compare", "Checks whether a storage layout can upgrade another one.", compareCmd)
	app.Command("namespace", "Prints the ERC-7201 base slot of namespace ids.", namespaceCmd)
	app.Command("fetch", "Fetches and prints the storage layout of a verified contract.", fetchCmd)
	app.Command("chains", "Lists the chains of the verified-contract registry.", chainsCmd)
	app.Command("versions", "Lists solc releases and the features they support.", versionsCmd)
	app.Command("serve", "Starts the HTTP API.", serveCmd)
	app.Command("config", "Prints the effective configuration as TOML.", configCmd)

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
