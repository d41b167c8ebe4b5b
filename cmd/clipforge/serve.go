package main

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/media"
	"clipforge/internal/server"
	"clipforge/internal/streaming"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port int
	var importDir, importProject string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(a *app) error {
				if port > 0 {
					a.cfg.Server.Port = port
				}
				a.logger.Info().
					Str("version", api.Version).
					Str("storage", a.cfg.Storage.Backend).
					Msg("starting clipforge server")

				scanner := media.NewScanner(a.importer, a.logger)
				h := api.NewHandler(a.editor, streaming.NewHandler(a.blobs, a.logger), a.logger, a.cfg.Server.MaxUploadMB<<20)
				h.SetScanner(scanner)
				h.SetSettings(a.settings())
				srv := server.New(a.cfg, a.logger, h)

				runCtx := cmd.Context()
				if importDir != "" {
					go func() {
						files, err := scanner.ScanDir(runCtx, importProject, importDir)
						if err != nil {
							a.logger.Error().Err(err).Msg("initial import failed")
							return
						}
						a.logger.Info().Int("files", len(files)).Msg("initial import completed")
					}()
				}

				go func() {
					<-runCtx.Done()
					a.logger.Info().Msg("received shutdown signal")
					if err := srv.Shutdown(context.Background()); err != nil {
						a.logger.Error().Err(err).Msg("shutdown error")
					}
				}()

				err := srv.Start()
				a.logger.Info().Msg("server stopped")
				return err
			})
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override the configured port")
	cmd.Flags().StringVar(&importDir, "import", "", "Directory to import on startup")
	cmd.Flags().StringVar(&importProject, "project", "", "Project receiving --import")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if importDir != "" && strings.TrimSpace(importProject) == "" {
			return errors.New("--import requires --project")
		}
		return nil
	}
	return cmd
}
