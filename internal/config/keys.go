package config

import "strconv"

type keySpec struct {
	key     string
	env     string
	secret  bool
	extract func(cfg Config) string
}

var specs = []keySpec{
	{
		key: "app.name", env: "PREFS_APP_NAME",
		extract: func(cfg Config) string { return cfg.App.Name },
	},
	{
		key: "storage.data_dir", env: "PREFS_DATA_DIR",
		extract: func(cfg Config) string { return cfg.Storage.DataDir },
	},
	{
		key: "storage.backend", env: "PREFS_BACKEND",
		extract: func(cfg Config) string { return cfg.Storage.Backend },
	},
	{
		key: "storage.async_writes", env: "PREFS_ASYNC_WRITES",
		extract: func(cfg Config) string { return strconv.FormatBool(cfg.Storage.AsyncWrites) },
	},
	{
		key: "log.level", env: "PREFS_LOG_LEVEL",
		extract: func(cfg Config) string { return cfg.Log.Level },
	},
	{
		key: "log.verbose", env: "PREFS_VERBOSE_LOG",
		extract: func(cfg Config) string { return strconv.FormatBool(cfg.Log.Verbose) },
	},
	{
		key: "server.port", env: "PREFS_SERVER_PORT",
		extract: func(cfg Config) string { return strconv.Itoa(cfg.Server.Port) },
	},
	{
		key: "server.token", env: "PREFS_API_TOKEN",
		secret:  true,
		extract: func(cfg Config) string { return cfg.Server.Token },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}
