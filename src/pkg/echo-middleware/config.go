package echomw

import (
	"fmt"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"

	"synth-ocr/src/pkg/util"
)

type Config struct {
	Address             string `json:"address,omitempty"`
	Port                int    `json:"port,omitempty"`
	MiddlewareRateLimit int    `json:"middleware_rate_limit,omitempty"`
	MiddlewareBurst     int    `json:"middleware_burst,omitempty"`
	MaxTextLength       int    `json:"max_text_length,omitempty"`
	RequireToken        bool   `json:"require_token,omitempty"`
}

func DefaultValueConfig() Config {
	return Config{
		Address:             "127.0.0.1",
		Port:                8402,
		MiddlewareRateLimit: 5,
		MiddlewareBurst:     20,
		MaxTextLength:       200,
	}
}

/*
InitializeConfig returns localConfig with every missing value replaced by
its default. If localConfig is nil the default config is returned as is.
*/
func InitializeConfig(localConfig *Config) (cfg Config) {
	defaultConfig := DefaultValueConfig()

	if localConfig == nil {
		tl.Log(tl.Info, palette.Purple, "%s config is %s, keeping %s", "server", "not provided", "default server config")
		return defaultConfig
	}

	cfg = *localConfig
	tl.ApplyDefaults(&cfg, defaultConfig, func(field string, defVal any) {
		tl.Log(
			tl.Info, palette.Purple,
			"%s field is %s in %s configuration. Using default value: %v",
			field, "missing", util.GetPackageName(), tl.PrettyForStderr(defVal),
		)
	})

	tl.Log(tl.Info, palette.Green, "%s config was %s, using %s", "server", "provided", "local server config")
	tl.LogJSON(tl.Verbose, palette.CyanDim, fmt.Sprintf("%s configuration", util.GetPackageName()), cfg)
	return cfg
}

// ListenAddress is the host:port the server binds to.
func (c Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}
