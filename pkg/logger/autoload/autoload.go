// Package autoload initializes the global logger from the LOG_* environment
// on import. Import it for its side effect from main.
package autoload

import (
	configx "github.com/tinyagents/tinyagents-bot/pkg/config"
	logx "github.com/tinyagents/tinyagents-bot/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
