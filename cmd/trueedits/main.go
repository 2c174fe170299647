package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	if err == nil {
		return
	}
	// A stopped batch has already printed its summary.
	if !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "trueedits:", err)
	}
	os.Exit(1)
}
