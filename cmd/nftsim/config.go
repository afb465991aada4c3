package main

import (
	"errors"
	"io"

	"github.com/jessevdk/go-flags"
)

const (
	scenarioSubCmd = "scenario"
	serveSubCmd    = "serve"
)

type configFlags struct {
	ConfigFile string `short:"c" long:"config" description:"Path to YAML configuration file"`
	TraceFile  string `long:"trace" description:"Write OpenTelemetry traces into the file"`
}

type scenarioConfig struct {
	Name string `short:"n" long:"name" description:"Run only the named scenario"`
	List bool   `short:"l" long:"list" description:"List the scenarios and exit"`
}

type serveConfig struct {
	Listen    string `short:"l" long:"listen" description:"Address the RPC server listens on, overrides the config file"`
	RedisAddr string `short:"r" long:"redis" description:"Redis address for idempotency keys, overrides the config file"`
}

type command struct {
	name     string
	global   *configFlags
	scenario *scenarioConfig
	serve    *serveConfig
}

var errHelp = errors.New("help requested")

func parseCommandLine(args []string, out io.Writer) (*command, error) {
	cmd := &command{global: &configFlags{}, scenario: &scenarioConfig{}, serve: &serveConfig{}}
	parser := flags.NewParser(cmd.global, flags.HelpFlag)
	parser.Name = "nftsim"

	if _, err := parser.AddCommand(scenarioSubCmd, "Run approval scenarios", "Runs the documented approval scenarios against a fresh ledger", cmd.scenario); err != nil {
		return nil, err
	}
	if _, err := parser.AddCommand(serveSubCmd, "Serve RPC API", "Serves the HTTP API of a ledger with the token contract deployed", cmd.serve); err != nil {
		return nil, err
	}

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			parser.WriteHelp(out)
			return nil, errHelp
		}
		return nil, err
	}
	cmd.name = parser.Command.Active.Name
	return cmd, nil
}
