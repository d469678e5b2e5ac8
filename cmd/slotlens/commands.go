package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cli "github.com/jawher/mow.cli"
	"github.com/pkg/errors"
	"github.com/xlab/closer"
	log "github.com/xlab/suplog"

	"github.com/InjectiveLabs/slotlens/api"
	"github.com/InjectiveLabs/slotlens/cache"
	"github.com/InjectiveLabs/slotlens/cmd/slotlens/config"
	"github.com/InjectiveLabs/slotlens/layout/assembler"
	"github.com/InjectiveLabs/slotlens/layout/compare"
	"github.com/InjectiveLabs/slotlens/layout/erc7201"
	"github.com/InjectiveLabs/slotlens/layout/packing"
	"github.com/InjectiveLabs/slotlens/layout/render"
	"github.com/InjectiveLabs/slotlens/layout/types"
	"github.com/InjectiveLabs/slotlens/registry/solcbin"
	"github.com/InjectiveLabs/slotlens/registry/sourcify"
	"github.com/InjectiveLabs/slotlens/workspace"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

// inspectCmd action reconstructs every region of a layout file and prints it.
//
// $ slotlens inspect layout.json
func inspectCmd(cmd *cli.Cmd) {
	var (
		output   *string
		showGaps *string
	)

	initOutputOptions(cmd, &output, &showGaps)
	region := cmd.StringOpt("r region", "", "Print only this region, the root name or a namespace key.")

	cmd.Spec = "[OPTIONS] FILE"
	file := cmd.StringArg("FILE", "", "Storage layout in JSON or YAML, - for stdin.")

	cmd.Action = func() {
		layout, err := loadLayout(*file)
		if err != nil {
			log.WithError(err).Fatalln("failed to load storage layout")
		}

		a := newAssembler("")
		if *region != "" {
			l, err := a.AssembleRegion(layout, *region)
			if err != nil {
				log.WithError(err).WithField("region", *region).Fatalln("failed to reconstruct region")
			}

			orShutdown(printLayouts([]types.RenderableLayout{l}, *output, *showGaps))
			return
		}

		regions := a.AssembleRegions(context.Background(), layout)
		if err := regions.Err(); err != nil {
			log.WithError(err).Warningln("some regions could not be reconstructed")
		}

		orShutdown(printLayouts(regions.Layouts(), *output, *showGaps))
	}
}

// compareCmd action checks whether DEST can upgrade ORIGIN, exits with 1 on findings.
//
// $ slotlens compare v1.json v2.json
func compareCmd(cmd *cli.Cmd) {
	var reportURL *string

	initCompareOptions(cmd, &reportURL)
	asJSON := cmd.BoolOpt("json", false, "Print the report as JSON.")

	cmd.Spec = "[OPTIONS] ORIGIN DEST"
	originFile := cmd.StringArg("ORIGIN", "", "Currently deployed storage layout.")
	destFile := cmd.StringArg("DEST", "", "Storage layout of the new implementation.")

	cmd.Action = func() {
		origin, err := loadLayout(*originFile)
		if err != nil {
			log.WithError(err).Fatalln("failed to load origin storage layout")
		}

		destination, err := loadLayout(*destFile)
		if err != nil {
			log.WithError(err).Fatalln("failed to load destination storage layout")
		}

		comparator := newComparator(orDefault(*reportURL, appConfig.Compare.ReportURL))

		report, err := comparator.Compare(context.Background(), origin, destination)
		if err != nil {
			log.WithError(err).Fatalln("failed to generate compatibility report")
		}

		if *asJSON {
			orShutdown(printJSON(report))
		} else {
			fmt.Println(report.String())
		}

		if !report.OK() {
			cli.Exit(1)
		}
	}
}

// namespaceCmd action prints the ERC-7201 base slot of each namespace id.
//
// $ slotlens namespace example.main
func namespaceCmd(cmd *cli.Cmd) {
	cmd.Spec = "ID..."
	ids := cmd.StringsArg("ID", nil, "Namespace ids, optionally in the erc7201:<id> form.")

	cmd.Action = func() {
		for _, id := range *ids {
			id = erc7201.NamespaceID(id)
			fmt.Printf("%s\t%s\n", erc7201.Key(id), erc7201.BaseSlot(id).Hex())
		}
	}
}

// fetchCmd action prints the reconstructed layout of a verified contract.
//
// $ slotlens fetch 1 0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2
func fetchCmd(cmd *cli.Cmd) {
	var (
		output      *string
		showGaps    *string
		sourcifyURL *string
	)

	initOutputOptions(cmd, &output, &showGaps)
	initRegistryOptions(cmd, &sourcifyURL)
	raw := cmd.BoolOpt("raw", false, "Print the storage layout as returned by the registry.")

	cmd.Spec = "[OPTIONS] CHAIN ADDRESS"
	chain := cmd.StringArg("CHAIN", "", "Chain id.")
	address := cmd.StringArg("ADDRESS", "", "Contract address.")

	cmd.Action = func() {
		chainID, err := strconv.ParseUint(*chain, 10, 64)
		if err != nil {
			log.WithError(err).Fatalln("invalid chain id")
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		store, err := newStore(ctx, appConfig.Cache)
		if err != nil {
			log.WithError(err).Warningln("layout cache unavailable, fetching without it")
			store = nil
		}
		if store != nil {
			defer store.Close()
		}

		fetcher := cache.NewFetcher(store, newRegistry(*sourcifyURL))

		entry, err := fetcher.Fetch(ctx, chainID, *address)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{
				"chain":   chainID,
				"address": *address,
			}).Fatalln("failed to fetch storage layout")
		}

		if *raw {
			orShutdown(printJSON(entry))
			return
		}

		layouts, err := newAssembler(entry.ContractName).Assemble(entry.StorageLayout)
		if err != nil {
			log.WithError(err).Fatalln("failed to reconstruct storage layout")
		}

		orShutdown(printLayouts(layouts, *output, *showGaps))
	}
}

// versionsCmd action lists solc releases, newest first, with the features each supports.
//
// $ slotlens versions --limit 10
func versionsCmd(cmd *cli.Cmd) {
	limit := cmd.IntOpt("n limit", 20, "Number of releases to print, 0 prints all.")

	cmd.Action = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		client := solcbin.NewClient(&solcbin.Config{
			ListURL: appConfig.Registry.SolcListURL,
		})

		releases, err := client.Releases(ctx)
		if err != nil {
			log.WithError(err).Fatalln("failed to list solc releases")
		}

		versions := solcbin.SortedVersions(releases)
		if *limit > 0 && len(versions) > *limit {
			versions = versions[:*limit]
		}

		for _, v := range versions {
			fmt.Printf("%s\tstorage-layout=%s\tvia-ir=%s\tnamespaces=%s\n",
				v,
				supported(solcbin.SupportsStorageLayout(v)),
				supported(solcbin.SupportsViaIR(v)),
				supported(solcbin.SupportsNamespaces(v)),
			)
		}

		fmt.Printf("\nEVM versions: %s\n", strings.Join(solcbin.EVMVersions, ", "))
	}
}

// chainsCmd action lists the chains known to the verified-contract registry.
//
// $ slotlens chains --all
func chainsCmd(cmd *cli.Cmd) {
	var sourcifyURL *string

	initRegistryOptions(cmd, &sourcifyURL)
	all := cmd.BoolOpt("a all", false, "Include chains the registry no longer supports.")

	cmd.Action = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		chains, err := newRegistry(*sourcifyURL).Chains(ctx)
		if err != nil {
			log.WithError(err).Fatalln("failed to list registry chains")
		}

		for _, c := range chains {
			if !c.Supported && !*all {
				continue
			}

			name := c.Title
			if name == "" {
				name = c.Name
			}
			fmt.Printf("%d\t%s\n", c.ChainID, name)
		}
	}
}

// serveCmd action runs the HTTP API until interrupted.
//
// $ slotlens serve --listen 0.0.0.0:8080
func serveCmd(cmd *cli.Cmd) {
	var (
		listenAddr   *string
		cacheBackend *string
		sourcifyURL  *string
		reportURL    *string
	)

	initServeOptions(cmd, &listenAddr, &cacheBackend)
	initRegistryOptions(cmd, &sourcifyURL)
	initCompareOptions(cmd, &reportURL)

	cmd.Action = func() {
		// ensure a clean exit
		defer closer.Close()

		cacheCfg := appConfig.Cache
		cacheCfg.Backend = orDefault(*cacheBackend, cacheCfg.Backend)

		store, err := newStore(context.Background(), cacheCfg)
		orShutdown(err)

		backend := config.CacheBackendNone
		if store != nil {
			backend = store.Backend()
			closer.Bind(func() {
				if err := store.Close(); err != nil {
					log.WithError(err).Warningln("failed to close layout cache")
				}
			})
		}

		a := newAssembler("")
		server := api.NewServer(&api.Config{
			ListenAddr:     orDefault(*listenAddr, appConfig.API.Address),
			AllowedOrigins: appConfig.API.AllowedOrigins,
			RequestTimeout: appConfig.API.RequestTimeout,
		},
			workspace.New(a),
			api.WithAssembler(a),
			api.WithFetcher(cache.NewFetcher(store, newRegistry(*sourcifyURL)), backend),
			api.WithReleases(solcbin.NewClient(&solcbin.Config{
				ListURL: appConfig.Registry.SolcListURL,
			})),
			api.WithComparator(newComparator(orDefault(*reportURL, appConfig.Compare.ReportURL))),
		)

		go func() {
			orShutdown(server.ListenAndServe())
		}()

		closer.Bind(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(ctx); err != nil {
				log.WithError(err).Warningln("failed to shut down HTTP API")
			}
		})

		closer.Hold()
	}
}

// configCmd action prints the effective configuration as a TOML file.
//
// $ slotlens config > slotlens.toml
func configCmd(cmd *cli.Cmd) {
	cmd.Action = func() {
		cfg := appConfig
		out, err := config.WriteTemplate(&cfg)
		orShutdown(err)

		fmt.Print(out)
	}
}

func newAssembler(rootName string) *assembler.Assembler {
	return assembler.New(
		assembler.WithRootName(rootName),
		assembler.WithReconstructor(packing.NewReconstructor(
			packing.WithMaxRows(appConfig.Render.MaxRows),
		)),
	)
}

func newRegistry(baseURL string) *sourcify.Client {
	return sourcify.NewClient(&sourcify.Config{
		BaseURL:  orDefault(baseURL, appConfig.Registry.SourcifyURL),
		Attempts: appConfig.Registry.Attempts,
		Delay:    appConfig.Registry.RetryDelay,
	})
}

func newComparator(reportURL string) *compare.Comparator {
	if reportURL == "" {
		return compare.NewComparator(compare.NewBuiltinAnalyzer())
	}

	return compare.NewComparator(compare.NewRemoteAnalyzer(&compare.RemoteConfig{
		URL:      reportURL,
		Attempts: appConfig.Compare.Attempts,
		Delay:    appConfig.Registry.RetryDelay,
	}))
}

func printLayouts(layouts []types.RenderableLayout, output, showGaps string) error {
	switch orDefault(output, appConfig.Render.Output) {
	case outputJSON:
		return printJSON(layouts)
	case outputTable:
		r := render.New(os.Stdout,
			render.WithGaps(toBool(showGaps, appConfig.Render.ShowGaps)),
			render.WithEmptyRegions(appConfig.Render.ShowEmpty),
		)
		return r.Render(layouts)
	default:
		return errors.Errorf("unknown output format %q", output)
	}
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func supported(err error) string {
	if err != nil {
		return "no"
	}
	return "yes"
}
