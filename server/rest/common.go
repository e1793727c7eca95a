package rest

import (
	"github.com/marcopiovanello/m3u8-dl/server/archiver"
	"github.com/marcopiovanello/m3u8-dl/server/config"
	"github.com/marcopiovanello/m3u8-dl/server/internal/orchestrator"
)

type ContainerArgs struct {
	Config  *config.Config
	Orch    *orchestrator.Orchestrator
	Archive *archiver.Archiver // nil when auto_archive is off
}

// Partial update of the runtime settings. Nil fields are left unchanged.
type SettingsPatch struct {
	SaveDir    *string `json:"save_dir"`
	ToolPath   *string `json:"tool_path"`
	AutoRemove *bool   `json:"auto_remove"`
}

type VersionResponse struct {
	Version string `json:"version"`
	Tool    string `json:"tool"`
	ToolErr string `json:"tool_error,omitempty"`
}
