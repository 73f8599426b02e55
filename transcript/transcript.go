// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package transcript writes the per-device textual output files spec §6
// requires: a pipe-table device log for Hosts and Routers, a per-port
// bit table for Hubs and Switches, and the Host-only link/network-layer
// receipt records. File creation follows cmd/testrunner/main.go's
// os.Create + path.Join style rather than a templating library.
package transcript

import (
	"bufio"
	"fmt"
	"os"
	"path"

	"github.com/google/uuid"

	"github.com/jmorgadov/nesim/devices"
	"github.com/jmorgadov/nesim/sim"
)

// create opens name under dir for writing and returns a buffered writer
// wrapping it, along with a flush-then-close func the caller must defer.
func create(dir, name string) (*bufio.Writer, func() error, error) {
	f, err := os.Create(path.Join(dir, name))
	if err != nil {
		return nil, nil, fmt.Errorf("transcript: %v", err)
	}
	w := bufio.NewWriter(f)
	return w, func() error {
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}, nil
}

func writeHeader(w *bufio.Writer, runID uuid.UUID, name string) {
	fmt.Fprintf(w, "# run %s device %s\n", runID, name)
}

// writeDeviceLog renders entries as a "| time | device | action | info |"
// pipe table (spec §6, grounded on nesim's device.py.save_log).
func writeDeviceLog(dir, name string, runID uuid.UUID, entries []devices.LogEntry) error {
	w, done, err := create(dir, name+".txt")
	if err != nil {
		return err
	}
	writeHeader(w, runID, name)
	fmt.Fprintln(w, "| time | device | action | info |")
	fmt.Fprintln(w, "|------|--------|--------|------|")
	for _, e := range entries {
		fmt.Fprintf(w, "| %d | %s | %s | %s |\n", e.Tick, name, e.Action, e.Info)
	}
	return done()
}

// writePortTable renders table as a per-port "Rece . Sent" pipe table
// (spec §6, grounded on multiple_port_device.py.special_log).
func writePortTable(dir, name string, runID uuid.UUID, numPorts int, table []devices.PortTick) error {
	w, done, err := create(dir, name+".txt")
	if err != nil {
		return err
	}
	writeHeader(w, runID, name)

	fmt.Fprint(w, "| time ")
	for i := 1; i <= numPorts; i++ {
		fmt.Fprintf(w, "| %s_%d Rece | %s_%d Sent ", name, i, name, i)
	}
	fmt.Fprintln(w, "|")

	fmt.Fprint(w, "|------")
	for i := 0; i < numPorts; i++ {
		fmt.Fprint(w, "|-----------|-----------")
	}
	fmt.Fprintln(w, "|")

	for _, row := range table {
		fmt.Fprintf(w, "| %d ", row.Tick)
		for i := 0; i < numPorts; i++ {
			fmt.Fprintf(w, "| %s | %s ", row.Received[i], row.Sent[i])
		}
		fmt.Fprintln(w, "|")
	}
	return done()
}

// writeHostData renders a Host's link-layer receipt log ({name}_data.txt,
// spec §6): time, source MAC, hex payload, and an ERROR marker when the
// frame failed its error-detection check.
func writeHostData(dir, name string, runID uuid.UUID, records []devices.DataRecord) error {
	w, done, err := create(dir, name+"_data.txt")
	if err != nil {
		return err
	}
	writeHeader(w, runID, name)
	fmt.Fprintln(w, "| time | src mac | payload | status |")
	fmt.Fprintln(w, "|------|---------|---------|--------|")
	for _, r := range records {
		status := "OK"
		if r.Error {
			status = "ERROR"
		}
		fmt.Fprintf(w, "| %d | %04x | %x | %s |\n", r.Tick, r.SrcMAC, r.Payload, status)
	}
	return done()
}

// writeHostPayload renders a Host's network-layer receipt log
// ({name}_payload.txt, spec §6): time, source IP, protocol, hex payload.
func writeHostPayload(dir, name string, runID uuid.UUID, records []devices.PayloadRecord) error {
	w, done, err := create(dir, name+"_payload.txt")
	if err != nil {
		return err
	}
	writeHeader(w, runID, name)
	fmt.Fprintln(w, "| time | src ip | protocol | payload |")
	fmt.Fprintln(w, "|------|--------|----------|---------|")
	for _, r := range records {
		fmt.Fprintf(w, "| %d | %s | %d | %x |\n", r.Tick, r.SrcIP, r.Protocol, r.Payload)
	}
	return done()
}

// WriteAll emits every device's transcript file(s) for a finished
// Simulation into dir (spec §6 "Persistent output"). dir must already
// exist.
func WriteAll(dir string, s *sim.Simulation) error {
	runID := s.RunID()

	for _, h := range s.Hosts() {
		if err := writeDeviceLog(dir, h.Name(), runID, h.Log); err != nil {
			return err
		}
		if err := writeHostData(dir, h.Name(), runID, h.DataLog); err != nil {
			return err
		}
		if err := writeHostPayload(dir, h.Name(), runID, h.PayloadLog); err != nil {
			return err
		}
	}
	for _, r := range s.Routers() {
		if err := writeDeviceLog(dir, r.Name(), runID, r.Log); err != nil {
			return err
		}
	}
	for _, hub := range s.Hubs() {
		if err := writePortTable(dir, hub.Name(), runID, hub.NumPorts(), hub.Table); err != nil {
			return err
		}
	}
	for _, sw := range s.Switches() {
		if err := writePortTable(dir, sw.Name(), runID, sw.NumPorts(), sw.Table); err != nil {
			return err
		}
	}
	return nil
}
