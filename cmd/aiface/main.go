// aiface drives an animated face on networked displays from an MCP client.
//
// Usage:
//
//	aiface serve   [--display=<host:port>]... [--no-discovery] [--metrics-addr=<addr>]
//	aiface display [--listen=<addr>] [--instance=<name>] [--no-advertise]
//	aiface send    <host:port> --mood=<mood> [--intensity=<0..1>] | --reset
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
