// tariffctl checks tariff files and prices consumption from the command line.
package main

import (
	"os"

	"github.com/NotCoffee418/esm_costs/cmd/tariffctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
