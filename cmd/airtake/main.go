// Command airtake sends analytics events from the command line.
//
// Usage: airtake <command> [flags] [args]
//
// Exit codes:
//
//	0 = success
//	1 = error
//	2 = usage error
package main

import (
	"fmt"
	"io"
	"os"
)

const usageText = `airtake - send analytics events to Airtake

Usage:
  airtake <command> [flags] [args]

Commands:
  track <event>          Send a track event
  identify <actor-id>    Bind an actor to this device and send an identify event
  reset                  Forget the actor and issue a new device id
  capture <file.html>    Print the redacted snapshot of a page, or send it with --send
  inspect <snapshot>     Decode a snapshot back to markup ("-" reads stdin)

Flags (track, identify):
  --props <json>         Event properties as a JSON object
  --actor <id>           Set $actor_id (integers are sent as numbers)
  --device <id>          Set $device_id
  --url <url>            Set $current_url
  --referrer <url>       Set $referrer

Flags (capture):
  --send                 Send an auto_track event instead of printing
  --element <id>         id attribute of the interacted element
  --url <url>            Set $current_url

Configuration is read from AIRTAKE_* environment variables and the YAML file
named by AIRTAKE_CONFIG. AIRTAKE_TOKEN is required for commands that send.

Examples:
  airtake track purchase --actor 42 --props '{"plan":"pro"}'
  airtake identify user-1 --device '$device:3f1c'
  airtake capture page.html | airtake inspect -
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is the main entry point, separated for testability.
// Returns the exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return 2
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usageText)
		return 0
	case "track":
		return runTrack(rest, stdout, stderr)
	case "identify":
		return runIdentify(rest, stdout, stderr)
	case "reset":
		return runReset(rest, stdout, stderr)
	case "capture":
		return runCapture(rest, stdout, stderr)
	case "inspect":
		return runInspect(rest, stdin, stdout, stderr)
	}

	fmt.Fprintf(stderr, "Error: unknown command %q\n\n", cmd)
	fmt.Fprint(stderr, usageText)
	return 2
}
