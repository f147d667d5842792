package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/railscope/railscope/internal/console"
	"github.com/railscope/railscope/internal/detect"
	"github.com/railscope/railscope/internal/domain"
	"github.com/railscope/railscope/internal/openapi"
	"github.com/railscope/railscope/internal/orchestrator"
	"github.com/railscope/railscope/internal/repo"
	"github.com/railscope/railscope/internal/report"
	"github.com/railscope/railscope/internal/vfs"
)

// Version is the release version, overridable at build time.
var Version = "dev"

const (
	outputFlag             = "output"
	formatFlag             = "format"
	showAllFlag            = "show-all"
	verboseFlag            = "verbose"
	quietFlag              = "quiet"
	includeConditionalFlag = "include-conditional"
	excludeEnginesFlag     = "exclude-engines"
	tokenFlag              = "token"
	failOnUnprotectedFlag  = "fail-on-unprotected"
)

var scanFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    outputFlag,
		Aliases: []string{"o"},
		Value:   "openapi-spec.yaml",
		Usage:   "Output file path for the OpenAPI document",
	},
	&cli.StringFlag{
		Name:  formatFlag,
		Value: "yaml",
		Usage: "Output format: yaml or json",
	},
	&cli.BoolFlag{
		Name:  showAllFlag,
		Usage: "Show all endpoints in the table, not only unprotected and unknown ones",
	},
	&cli.BoolFlag{
		Name:    verboseFlag,
		Aliases: []string{"v"},
		Usage:   "Enable debug logging",
	},
	&cli.BoolFlag{
		Name:    quietFlag,
		Aliases: []string{"q"},
		Usage:   "Only log warnings and errors",
	},
	&cli.BoolFlag{
		Name:  includeConditionalFlag,
		Usage: "Include env-conditional routes in the OpenAPI document",
	},
	&cli.BoolFlag{
		Name:  excludeEnginesFlag,
		Usage: "Drop mounted-engine endpoints from the OpenAPI document",
	},
	&cli.StringFlag{
		Name:    tokenFlag,
		EnvVars: []string{"GIT_TOKEN"},
		Usage:   "Git auth token for cloning private repos",
	},
	&cli.BoolFlag{
		Name:  failOnUnprotectedFlag,
		Usage: "Exit non-zero when unprotected endpoints are found",
	},
}

func main() {
	app := cli.NewApp()
	app.Name = "railscope"
	app.Version = Version
	app.Usage = "Discover API endpoints and auth coverage in a Rails codebase"
	app.ArgsUsage = "<source>"
	app.Flags = scanFlags
	app.Action = scanAction
	app.Commands = []*cli.Command{
		{
			Name:   "action",
			Usage:  "Run as a CI entrypoint, reading INPUT_* environment variables",
			Action: ciAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		exitCode := 1
		var ec cli.ExitCoder
		if errors.As(err, &ec) {
			exitCode = ec.ExitCode()
		}
		os.Exit(exitCode)
	}
}

func scanAction(c *cli.Context) error {
	source := c.Args().First()
	if source == "" {
		cli.ShowAppHelpAndExit(c, 1)
	}

	console.Init(c.Bool(verboseFlag), c.Bool(quietFlag))

	opts := domain.Options{
		IncludeConditional: c.Bool(includeConditionalFlag),
		ExcludeEngines:     c.Bool(excludeEnginesFlag),
		ShowAll:            c.Bool(showAllFlag),
	}

	resolved, err := runPipeline(c, source, c.String(tokenFlag), c.String(outputFlag), c.String(formatFlag), opts)
	if err != nil {
		return err
	}

	report.Print(os.Stdout, resolved, opts)

	if c.Bool(failOnUnprotectedFlag) {
		if n := countUnprotected(resolved); n > 0 {
			return cli.Exit(fmt.Sprintf("%d unprotected endpoints found", n), 2)
		}
	}
	return nil
}

// runPipeline resolves the source, analyzes it and writes the OpenAPI
// document, returning the resolved endpoints.
func runPipeline(c *cli.Context, source, token, output, format string, opts domain.Options) ([]domain.ResolvedEndpoint, error) {
	resolver := repo.NewResolver(source, token)
	defer resolver.Cleanup()

	root, err := resolver.Resolve(c.Context)
	if err != nil {
		return nil, err
	}
	console.Logger.Infof("repo resolved: %s", root)

	fsys := vfs.NewOS(root)

	isRails, railsVersion := detect.Rails(fsys)
	if !isRails {
		console.Logger.Warnf("rails gem not found in Gemfile; proceeding anyway (config/routes.rb exists)")
	} else if railsVersion != "" {
		console.Logger.Infof("rails detected: %s", railsVersion)
	}

	result, err := orchestrator.New().Analyze(fsys)
	if err != nil {
		return nil, err
	}
	console.Logger.Infof("discovered %d endpoints", len(result.Endpoints))

	for _, d := range result.Diagnostics {
		switch d.Severity {
		case domain.SeverityWarn, domain.SeverityFatal:
			console.Logger.Debugf("%s", d)
		}
	}

	doc := openapi.Build(result.Endpoints, openapi.Info{
		Title:        filepath.Base(root),
		RailsVersion: railsVersion,
	}, opts)

	if err := openapi.NewWriter().WriteFile(doc, format, output); err != nil {
		return nil, err
	}
	console.Logger.Infof("openapi document written to %s", output)

	return result.Endpoints, nil
}

func countUnprotected(endpoints []domain.ResolvedEndpoint) int {
	n := 0
	for _, e := range endpoints {
		if e.AuthStatus == domain.AuthUnprotected {
			n++
		}
	}
	return n
}
