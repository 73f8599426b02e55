// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Command nesim drives the tick-based LAN simulator against a scripted
// instruction stream and a YAML configuration file, emitting one
// transcript per simulated device. Verb dispatch follows
// garnet/bin/dev_finder's main.go/list.go split: a subcommands.Command
// per verb, registered against the standard help/flags/commands trio.
package main

import (
	"context"
	"flag"
	"os"

	"github.com/google/subcommands"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&runCmd{}, "")

	flag.Parse()
	ctx := context.Background()
	os.Exit(int(subcommands.Execute(ctx)))
}
