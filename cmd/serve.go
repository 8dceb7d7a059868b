package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lanceiro/radar-cli/internal/gate"
	"github.com/lanceiro/radar-cli/internal/model"
	"github.com/lanceiro/radar-cli/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the published notices over HTTP",
	Long:  "Read-only API over the publication gate: upcoming published notices with filters and pagination, single-notice detail with attachments, and the counterpart domain registry.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		pool, err := radarPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		addr := serveAddr
		if addr == "" {
			addr = fmt.Sprintf(":%d", cfg.Server.Port)
		}

		srv := &http.Server{
			Addr:    addr,
			Handler: buildRouter(store.New(pool), gate.New(pool)),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config port)")
	rootCmd.AddCommand(serveCmd)
}

// noticeReader is the slice of the store the read API needs.
type noticeReader interface {
	Get(ctx context.Context, externalID string) (*model.Notice, error)
	Attachments(ctx context.Context, externalID string) ([]model.Attachment, error)
	ListDomains(ctx context.Context, limit int) ([]model.CounterpartDomain, error)
}

// noticeLister runs the filtered listing query.
type noticeLister interface {
	List(ctx context.Context, f gate.Filter) (*gate.Page, error)
}

// buildRouter wires the read-only API routes.
func buildRouter(notices noticeReader, lister noticeLister) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/v1/notices", func(w http.ResponseWriter, r *http.Request) {
		page, err := lister.List(r.Context(), parseGateFilter(r))
		if err != nil {
			zap.L().Error("serve: list notices", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	r.Get("/api/v1/notices/{externalID}", func(w http.ResponseWriter, r *http.Request) {
		// External ids carry a slash, so clients send them percent-encoded
		// and the router hands the parameter back still escaped.
		externalID := chi.URLParam(r, "externalID")
		if unescaped, err := url.PathUnescape(externalID); err == nil {
			externalID = unescaped
		}

		n, err := notices.Get(r.Context(), externalID)
		if err != nil {
			zap.L().Error("serve: get notice", zap.String("external_id", externalID), zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		if n == nil {
			http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
			return
		}

		atts, err := notices.Attachments(r.Context(), externalID)
		if err != nil {
			zap.L().Error("serve: list attachments", zap.String("external_id", externalID), zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, noticeDetail{Notice: *n, Attachments: atts})
	})

	r.Get("/api/v1/domains", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 100
		}

		domains, err := notices.ListDomains(r.Context(), limit)
		if err != nil {
			zap.L().Error("serve: list domains", zap.Error(err))
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": domains})
	})

	return r
}

// noticeDetail is the single-notice response: the record plus its archived
// attachments.
type noticeDetail struct {
	model.Notice
	Attachments []model.Attachment `json:"attachments"`
}

// parseGateFilter maps query parameters onto the gate filter. Unparseable
// values are simply absent filters.
func parseGateFilter(r *http.Request) gate.Filter {
	q := r.URL.Query()

	f := gate.Filter{
		State: q.Get("state"),
		City:  q.Get("city"),
		Tag:   q.Get("tag"),
		Sort:  q.Get("sort"),
	}

	if v, err := strconv.ParseFloat(q.Get("min_value"), 64); err == nil {
		f.MinValue = &v
	}
	if v, err := strconv.ParseFloat(q.Get("max_value"), 64); err == nil {
		f.MaxValue = &v
	}
	if t, err := time.Parse("2006-01-02", q.Get("from")); err == nil {
		f.From = &t
	}
	if t, err := time.Parse("2006-01-02", q.Get("to")); err == nil {
		f.To = &t
	}

	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	return f
}

// writeJSON encodes v with the JSON content type.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs one line per request with status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
