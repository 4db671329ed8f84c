package handler

import (
	"github.com/Quote121/threaded-sockets/internal/app/chat"
	"github.com/Quote121/threaded-sockets/internal/configs"
)

// AppDeps holds what the operator handlers need.
type AppDeps struct {
	Server *chat.Server
	Config *configs.AppConfig
}
