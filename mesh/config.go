// Package mesh loads the process-level configuration every entry point
// needs before calling lifecycle.Init: which registry backend to dial,
// its address, the advertised-address override, and the environment the
// process is running in. It wires the teacher's own env.go/viper.go
// helpers rather than reinventing env parsing.
package mesh

import (
	"os"
	"strconv"

	fit "github.com/source-build/go-crossgate"
	"github.com/source-build/go-crossgate/registry"
)

// Config is the fully-resolved process configuration, ready to hand to
// lifecycle.Init/BackendServiceRun/WebServiceRun.
type Config struct {
	// Env is development or production (fit.GetProjectEnv("CROSSGATE_ENV")).
	Env fit.EnvType

	// Registry is REGISTER_ADDR/CROSSGATE_TTL, wrapped as registry.Config.
	// REGISTER_TYPE is not part of it; lifecycle.Init reads that variable
	// itself.
	Registry registry.Config

	// GatewayAddr is the address the gateway's http.Server binds (GATEWAY_ADDR,
	// default ":8080").
	GatewayAddr string
}

// defaultTTL is the lease length in seconds used when CROSSGATE_TTL is
// unset or not an integer.
const defaultTTL = 10

// Load resolves Config from environment variables. When file is non-empty
// it is first read into viper via fit.NewReadInConfig, and a read error is
// returned; the values in the file are not consulted when building Config.
// useFlags forwards to NewReadInConfig's isUseParam, binding pflag/flag
// command-line flags into viper.
func Load(file string, useFlags bool) (Config, error) {
	if file != "" {
		if err := fit.NewReadInConfig(file, useFlags); err != nil {
			return Config{}, err
		}
	}

	env := fit.GetProjectEnv("CROSSGATE_ENV")

	ttl := int64(defaultTTL)
	if v := os.Getenv("CROSSGATE_TTL"); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			ttl = parsed
		}
	}

	addr := os.Getenv("GATEWAY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	return Config{
		Env: env,
		Registry: registry.Config{
			Addr:       os.Getenv("REGISTER_ADDR"),
			TimeToLive: ttl,
		},
		GatewayAddr: addr,
	}, nil
}
