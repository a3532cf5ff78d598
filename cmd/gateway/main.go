// Command gateway is the thin wiring example run()/handle() were
// distilled from (original_source/micro/src/api/mod.rs): load config,
// build a Facade over the configured registry backend, and serve the
// API gateway until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	fit "github.com/source-build/go-crossgate"
	"github.com/source-build/go-crossgate/flog"
	"github.com/source-build/go-crossgate/gateway"
	"github.com/source-build/go-crossgate/mesh"

	_ "github.com/source-build/go-crossgate/registry/consulbackend"
	_ "github.com/source-build/go-crossgate/registry/etcdbackend"
	_ "github.com/source-build/go-crossgate/registry/mdnsbackend"
	_ "github.com/source-build/go-crossgate/registry/mongobackend"
	_ "github.com/source-build/go-crossgate/registry/nonebackend"
)

func main() {
	configFile := flag.String("config", "", "optional config file (yaml/json/toml, per viper.SetConfigFile)")
	flag.Parse()

	cfg, err := mesh.Load(*configFile, true)
	if err != nil {
		fit.Fatal("loading configuration: " + err.Error())
	}

	encoding := flog.ProductionEncoderConfig
	if cfg.Env == fit.EnvDevelopment {
		encoding = flog.DevelopmentEncoderConfig
	}

	logger := flog.New(flog.Options{
		LogLevel:          flog.InfoLevel,
		EncoderConfigType: encoding,
		Console:           true,
	})
	defer logger.Sync()

	cfg.Registry.Logger = logger.Logger()

	fit.InfoJSON(map[string]interface{}{
		"msg":           "starting crossgate api gateway",
		"env":           string(cfg.Env),
		"register_addr": cfg.Registry.Addr,
		"gateway_addr":  cfg.GatewayAddr,
	})

	if err := gateway.Run(context.Background(), cfg.Registry, cfg.GatewayAddr, nil, nil, logger.Logger()); err != nil {
		logger.Error("gateway exited with error", zap.Error(err))
		os.Exit(1)
	}
}
