// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/subcommands"

	"github.com/jmorgadov/nesim/config"
	"github.com/jmorgadov/nesim/instset"
	"github.com/jmorgadov/nesim/sim"
	"github.com/jmorgadov/nesim/transcript"
)

// runCmd is the "run" subcommand: load a config and an instruction
// script, drive the simulation to termination, and write one transcript
// per device into -out.
type runCmd struct {
	configPath string
	scriptPath string
	outDir     string
	seed       int64
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run a LAN simulation script" }
func (*runCmd) Usage() string {
	return "run -config <file> -script <file> [-out <dir>]\n\nRuns the tick-driven LAN simulator and writes per-device transcripts.\n"
}

func (cmd *runCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.configPath, "config", "", "path to the simulation's YAML configuration")
	f.StringVar(&cmd.scriptPath, "script", "", "path to the instruction script")
	f.StringVar(&cmd.outDir, "out", ".", "directory to write per-device transcripts into")
	f.Int64Var(&cmd.seed, "seed", time.Now().UnixNano(), "seed for the deterministic random source driving back-off and injected errors")
}

func (cmd *runCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := cmd.execute(); err != nil {
		log.Print(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (cmd *runCmd) execute() error {
	if cmd.configPath == "" || cmd.scriptPath == "" {
		return fmt.Errorf("run: -config and -script are required")
	}

	cfg, err := config.Load(cmd.configPath)
	if err != nil {
		return err
	}

	raw, err := ioutil.ReadFile(cmd.scriptPath)
	if err != nil {
		return fmt.Errorf("run: failed to read script %q: %v", cmd.scriptPath, err)
	}
	scheduled, err := instset.Parse(strings.Split(string(raw), "\n"))
	if err != nil {
		return fmt.Errorf("run: %v", err)
	}

	s, err := sim.New(cfg, cmd.seed)
	if err != nil {
		return err
	}
	s.Load(scheduled)

	if err := s.Run(); err != nil {
		return fmt.Errorf("run: simulation aborted: %v", err)
	}

	if err := os.MkdirAll(cmd.outDir, os.FileMode(0755)); err != nil {
		return fmt.Errorf("run: failed to create output directory %q: %v", cmd.outDir, err)
	}
	if err := transcript.WriteAll(cmd.outDir, s); err != nil {
		return fmt.Errorf("run: failed to write transcripts: %v", err)
	}
	return nil
}
