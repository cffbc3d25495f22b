// mqtls opens verified TLS sessions to MQTT brokers.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"mqtls/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "mqtls: %v\n", err)
		os.Exit(1)
	}
}
