package rest

import (
	"context"
	"errors"
	"log/slog"

	"github.com/marcopiovanello/m3u8-dl/server/archiver"
	"github.com/marcopiovanello/m3u8-dl/server/config"
	"github.com/marcopiovanello/m3u8-dl/server/internal"
	"github.com/marcopiovanello/m3u8-dl/server/internal/orchestrator"
	"github.com/marcopiovanello/m3u8-dl/server/sys"
)

// Set at build time with -ldflags "-X .../server/rest.CurrentVersion=...".
var CurrentVersion = "dev"

var ErrArchiveDisabled = errors.New("history is disabled, enable auto_archive")

type Service struct {
	cfg     *config.Config
	orch    *orchestrator.Orchestrator
	archive *archiver.Archiver
}

func NewService(cfg *config.Config, orch *orchestrator.Orchestrator, archive *archiver.Archiver) *Service {
	return &Service{
		cfg:     cfg,
		orch:    orch,
		archive: archive,
	}
}

func (s *Service) Exec(req internal.DownloadRequest) (string, error) {
	return s.orch.Submit(req.URL, req.Filename)
}

func (s *Service) Running(ctx context.Context) ([]internal.TaskSnapshot, error) {
	select {
	case <-ctx.Done():
		return nil, context.Canceled
	default:
		return s.orch.Tasks(), nil
	}
}

func (s *Service) Get(id string) (internal.TaskSnapshot, error) {
	return s.orch.Get(id)
}

func (s *Service) Cancel(id string) error {
	return s.orch.Cancel(id)
}

func (s *Service) Delete(id string) error {
	return s.orch.Delete(id)
}

func (s *Service) History(ctx context.Context, limit int) ([]archiver.Entry, error) {
	if s.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return s.archive.List(ctx, limit)
}

func (s *Service) Settings() config.DownloadsConfig {
	return s.cfg.Settings()
}

// UpdateSettings applies patch and writes it to the config file. When the
// file cannot be written the previous settings are put back. Running tasks
// keep the settings they were created with.
func (s *Service) UpdateSettings(patch SettingsPatch) (config.DownloadsConfig, error) {
	previous := s.cfg.Settings()

	updated := s.cfg.UpdateSettings(func(d *config.DownloadsConfig) {
		if patch.SaveDir != nil {
			d.SaveDir = *patch.SaveDir
		}
		if patch.ToolPath != nil {
			d.ToolPath = *patch.ToolPath
		}
		if patch.AutoRemove != nil {
			d.AutoRemove = *patch.AutoRemove
		}
	})

	if err := s.cfg.Save(); err != nil {
		if errors.Is(err, config.ErrNoConfigFile) {
			slog.Warn("settings changed in memory only", slog.Any("err", err))
			return updated, nil
		}

		slog.Error("failed to save settings, reverting", slog.Any("err", err))
		s.cfg.UpdateSettings(func(d *config.DownloadsConfig) { *d = previous })
		return previous, err
	}

	slog.Info("settings saved", slog.String("path", s.cfg.Path()))

	// same check the user gets at startup
	s.orch.CheckTool()

	return updated, nil
}

func (s *Service) GetVersion(ctx context.Context) VersionResponse {
	res := VersionResponse{Version: CurrentVersion}

	tool, err := sys.ResolveTool(s.cfg.Settings().ToolPath)
	if err != nil {
		res.ToolErr = err.Error()
		return res
	}

	v, err := sys.ToolVersion(ctx, tool)
	if err != nil {
		res.ToolErr = err.Error()
		return res
	}

	res.Tool = v
	return res
}
