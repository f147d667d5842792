package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/railscope/railscope/internal/console"
	"github.com/railscope/railscope/internal/domain"
	"github.com/railscope/railscope/internal/report"
)

// ciAction is the CI entrypoint. Inputs arrive as INPUT_* environment
// variables; results are appended to $GITHUB_OUTPUT and a markdown table to
// $GITHUB_STEP_SUMMARY.
func ciAction(c *cli.Context) error {
	v := viper.New()
	v.SetEnvPrefix("input")
	v.AutomaticEnv()
	v.SetDefault("source", ".")
	v.SetDefault("output", "openapi-spec.yaml")
	v.SetDefault("format", "yaml")

	console.Init(v.GetBool("verbose"), false)

	opts := domain.Options{
		IncludeConditional: v.GetBool("include_conditional"),
		ExcludeEngines:     v.GetBool("exclude_engines"),
		ShowAll:            v.GetBool("show_all"),
	}

	output := v.GetString("output")
	resolved, err := runPipeline(c, v.GetString("source"), v.GetString("token"), output, v.GetString("format"), opts)
	if err != nil {
		fmt.Printf("::error::%v\n", err)
		return cli.Exit("", 1)
	}

	unprotected := countUnprotected(resolved)
	writeOutput("spec_path", output)
	writeOutput("total_endpoints", fmt.Sprintf("%d", len(resolved)))
	writeOutput("unprotected_count", fmt.Sprintf("%d", unprotected))
	writeSummary(report.Markdown(resolved))

	if v.GetBool("fail_on_unprotected") && unprotected > 0 {
		return cli.Exit(fmt.Sprintf("%d unprotected endpoints found", unprotected), 2)
	}
	return nil
}

// writeOutput appends a key=value pair to the file $GITHUB_OUTPUT points at.
func writeOutput(key, value string) {
	path := os.Getenv("GITHUB_OUTPUT")
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s=%s\n", key, value)
}

// writeSummary appends markdown to the file $GITHUB_STEP_SUMMARY points at.
func writeSummary(markdown string) {
	path := os.Getenv("GITHUB_STEP_SUMMARY")
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprint(f, markdown)
}
