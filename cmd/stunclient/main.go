// Command stunclient runs the RFC 3489 NAT discovery procedure against a
// STUN server and prints the classification and the trace of tests that
// produced it.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pion/logging"
	"github.com/urfave/cli"

	"github.com/maoxuli/stunclient/discovery"
)

func main() {
	app := cli.NewApp()
	app.Name = "stunclient"
	app.Usage = "discover the NAT or firewall behavior in front of this host"
	app.ArgsUsage = "<host>"
	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "port",
			Value: 3478,
			Usage: "STUN server port",
		},
		cli.IntFlag{
			Name:  "timeout",
			Value: 2000,
			Usage: "per-test timeout in milliseconds",
		},
		cli.BoolFlag{
			Name:  "verbose",
			Usage: "log each test at Info level; repeat handling is not cumulative, use -vv for Debug",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "log raw datagram traces at Debug level",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, red(err.Error()))
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.NewExitError("exactly one argument required: the STUN server host", 2)
	}
	host := c.Args().Get(0)
	port := c.Int("port")
	timeout := time.Duration(c.Int("timeout")) * time.Millisecond

	level := logging.LogLevelWarn
	if c.Bool("verbose") {
		level = logging.LogLevelInfo
	}
	if c.Bool("vv") {
		level = logging.LogLevelDebug
	}
	log := logging.NewDefaultLeveledLoggerForScope("stunclient", level, os.Stdout)

	engine := discovery.New(host, port, timeout, log)
	result, err := engine.Discover()
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("discovery failed: %v", err), 1)
	}

	printTrace(result.Trace)
	fmt.Println(colorizeOutcome(result.Outcome))
	return nil
}

func printTrace(trace discovery.Trace) {
	for _, step := range trace {
		status := red("no response")
		if step.Responded {
			status = green("response")
			if step.Mapped != nil {
				status = fmt.Sprintf("%s (mapped %s)", status, step.Mapped)
			}
		}
		fmt.Printf("%s to %s -> %s\n", cyan(step.Test), step.SentTo, status)
	}
}

func colorizeOutcome(o discovery.Outcome) string {
	label := o.String()
	switch o {
	case discovery.OpenInternet, discovery.FullConeNat:
		return green(label)
	case discovery.RestrictedConeNat, discovery.PortRestrictedConeNat:
		return yellow(label)
	default: // UdpBlocked, SymmetricUdpFirewall, SymmetricNat, Indeterminate
		return red(label)
	}
}
