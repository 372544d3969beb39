package cmd

import (
	"fmt"
	"io"
)

const banner = `
  ____                              _
 | __ ) _ __ _____      ___ __ (_) ___
 |  _ \| '__/ _ \ \ /\ / / '_ \| |/ _ \
 | |_) | | | (_) \ V  V /| | | | |  __/
 |____/|_|  \___/ \_/\_/ |_| |_|_|\___|

`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[33m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Signed-request authentication server - Version %s\x1b[0m\n\n", Version)
}
