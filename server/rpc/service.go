package rpc

import (
	"log/slog"

	"github.com/marcopiovanello/m3u8-dl/server/internal"
	"github.com/marcopiovanello/m3u8-dl/server/internal/orchestrator"
)

type Service struct {
	orch *orchestrator.Orchestrator
}

type Running []internal.TaskSnapshot

type NoArgs struct{}

// Exec submits a download.
// The result of the execution is the newly created task Id.
func (s *Service) Exec(args internal.DownloadRequest, result *string) error {
	id, err := s.orch.Submit(args.URL, args.Filename)
	if err != nil {
		return err
	}

	*result = id
	return nil
}

// Cancel requests the termination of the task with the given Id.
func (s *Service) Cancel(args string, result *struct{}) error {
	slog.Info("rpc cancel", slog.String("id", args))
	return s.orch.Cancel(args)
}

// Delete drops a finished task.
func (s *Service) Delete(args string, result *struct{}) error {
	return s.orch.Delete(args)
}

// Running returns a snapshot of every known task.
func (s *Service) Running(args NoArgs, running *Running) error {
	*running = s.orch.Tasks()
	return nil
}

// Progress retrieves the snapshot of a specific task given its Id.
func (s *Service) Progress(args internal.DownloadRequest, progress *internal.TaskSnapshot) error {
	snap, err := s.orch.Get(args.Id)
	if err != nil {
		return err
	}

	*progress = snap
	return nil
}
