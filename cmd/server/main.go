package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/fx"

	"github.com/isdmx/tutorbox/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default: ./config.yaml if present)")
	writeConfig := flag.String("write-config", "", "write the default configuration to this path and exit")
	flag.Parse()

	if *writeConfig != "" {
		if err := config.WriteExample(*writeConfig); err != nil {
			fmt.Fprintf(os.Stderr, "write config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fx.New(appOptions(*configPath)).Run()
}
