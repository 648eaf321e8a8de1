// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Warden is an autonomous network-defense gateway for small wireless LANs:
// it watches who is on the network and what they send, scores behavior into
// per-device trust, and answers misbehavior with deception, containment,
// and rate-limiting at the packet filter.
package main

import (
	"fmt"
	"os"

	"grimm.is/warden/cmd"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"run"}
	}

	var err error
	switch args[0] {
	case "run":
		err = cmd.RunDaemon(args[1:])
	case "version":
		cmd.RunVersion()
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "warden: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: warden <command> [flags]

commands:
  run       start the gateway (default)
  version   print the build version
  help      show this help

run flags:
  -config   configuration file (default /etc/warden/warden.hcl)
  -debug    enable debug logging
  -sim      in-memory enforcement, no nftables mutations
`)
}
