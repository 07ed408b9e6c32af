package tool

import (
	"flag"

	"github.com/moyoez/speeder2raw-web/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConsoleConfig, "useConsoleConfig", "", "override console settings file path (default ./console.yaml)")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override tunnel group config file path")
	flag.StringVar(&cfg.UseScriptDir, "useScriptDir", "", "override directory holding restart.sh and friends")
	flag.StringVar(&cfg.UseClientOutDir, "useClientOutDir", "", "override directory where client bundles are generated")
	flag.StringVar(&cfg.UseWebDir, "useWebDir", "", "override web UI directory")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override listen port")
	flag.BoolVar(&cfg.UseLocalOnly, "useLocalOnly", false, "only accept API requests from localhost")
	flag.Parse()
	return cfg
}
