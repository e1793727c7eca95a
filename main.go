package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/marcopiovanello/m3u8-dl/server"
	"github.com/marcopiovanello/m3u8-dl/server/config"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:           "m3u8-dl",
	Short:         "Download HLS streams to mp4 with ffmpeg",
	SilenceUsage:  true,
	SilenceErrors: true,
	// without a subcommand the server is started
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and RPC control surface",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd)
	},
}

var getCmd = &cobra.Command{
	Use:   "get <url> <filename>",
	Short: "Download a single stream and exit",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}

		if dir, _ := cmd.Flags().GetString("save-dir"); dir != "" {
			cfg.UpdateSettings(func(d *config.DownloadsConfig) { d.SaveDir = dir })
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := server.Download(ctx, cfg, args[0], args[1], func(s server.Snapshot) {
			fmt.Fprintf(os.Stderr, "\r%-12s %s", s.Status, s.StatusText)
		})
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return err
		}

		switch s.Status {
		case server.StatusDone:
			fmt.Println(s.OutputPath)
			return nil
		case server.StatusCancelled:
			return fmt.Errorf("download cancelled")
		default:
			return fmt.Errorf("download failed: %s", s.Error)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "conf", "./config.yml", "Config file path")

	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().String("host", "", "Address to listen on, or a unix socket path")
		c.Flags().Int("port", 0, "Port to listen on")
	}

	getCmd.Flags().StringP("save-dir", "o", "", "Directory the file is written to")

	rootCmd.AddCommand(serveCmd, getCmd)
}

func serve(cmd *cobra.Command) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"save_dir", cfg.Settings().SaveDir,
	)

	if err := server.Run(ctx, cfg); err != nil {
		return err
	}

	slog.Info("server exited cleanly")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
