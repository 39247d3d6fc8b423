package main

import (
	"context"
	"time"

	"github.com/containerd/log"
	"github.com/spf13/cobra"

	httpadapter "github.com/melih/whalesbook/internal/adapters/http"
	"github.com/melih/whalesbook/internal/schedule"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var noSchedule bool
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status API and run the update schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			runCtx := cmd.Context()
			if !noSchedule {
				s, err := schedule.New(runCtx, a.cfg.Schedule.Cron, a.cfg.BookList(), a.engine)
				if err != nil {
					return err
				}
				s.Start()
				defer func() { <-s.Stop().Done() }()
				log.G(runCtx).Infof("Scheduled %d books with %q", s.Entries(), a.cfg.Schedule.Cron)
			}

			// 3. Setup Framework (Fiber)
			handler := httpadapter.NewBookHandler(a.cfg, a.engine, a.runtime)
			var proxy *httpadapter.ProxyHandler
			if a.cfg.HTTP.Proxy.Enabled {
				proxy = httpadapter.NewProxyHandler(a.cfg, a.engine, a.cfg.HTTP.Proxy.BaseDomain)
			}
			server := httpadapter.NewApp(handler, proxy, a.recorder.Handler())

			addr := a.cfg.HTTP.Listen
			if listen != "" {
				addr = listen
			}

			// 4. Start Server
			errCh := make(chan error, 1)
			go func() {
				log.G(runCtx).Infof("Server starting on %s", addr)
				errCh <- server.Listen(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-runCtx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return server.ShutdownWithContext(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "Serve the API without scheduled updates")
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides http.listen)")
	return cmd
}

func newScheduleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run scheduled updates without the API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := schedule.New(cmd.Context(), a.cfg.Schedule.Cron, a.cfg.BookList(), a.engine)
			if err != nil {
				return err
			}
			s.Start()
			log.G(cmd.Context()).Infof("Scheduled %d books with %q", s.Entries(), a.cfg.Schedule.Cron)

			<-cmd.Context().Done()
			<-s.Stop().Done()
			return nil
		},
	}
}
