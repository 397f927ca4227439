// healthpass はヘルスパスポートのAPIサーバーとSPAシェルを提供するコマンド。
package main

import (
	"fmt"
	"os"

	"github.com/healthpass/healthpass/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "healthpass: %v\n", err)
		os.Exit(1)
	}
}
