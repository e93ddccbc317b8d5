package config

import "github.com/skyfleet/skyfleet/infra/logger"

// LoggingConfig selects the level and output format of the service logs.
type LoggingConfig = logger.Config
