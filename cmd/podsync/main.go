// Copyright 2024 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/juju/clock"
	"github.com/juju/loggo"

	"github.com/juju/podsync/cmd"
)

// loggingConfigEnvKey names the environment variable holding the default
// logging configuration.
const loggingConfigEnvKey = "PODSYNC_LOGGING_CONFIG"

func main() {
	ctx, err := cmd.DefaultContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR %v\n", err)
		os.Exit(2)
	}
	if err := loggo.ConfigureLoggers(os.Getenv(loggingConfigEnvKey)); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR parsing %s: %v\n", loggingConfigEnvKey, err)
	}
	os.Exit(cmd.Main(newFetchCommand(http.DefaultClient, clock.WallClock), ctx, os.Args[1:]))
}
