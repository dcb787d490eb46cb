package handler

import (
	"github.com/garyxuan/lan-chat/internal/app/chat"
	"github.com/garyxuan/lan-chat/internal/app/storage"
	"github.com/garyxuan/lan-chat/internal/configs"
)

// AppDeps bundles the collaborators handlers need.
type AppDeps struct {
	Hub     *chat.Hub
	Config  *configs.AppConfig
	Storage storage.Service
}
