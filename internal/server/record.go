package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tjfontaine/nextware/internal/pipeline"
	"github.com/tjfontaine/nextware/internal/storage"
)

const saveTimeout = 5 * time.Second

// RecordObserver returns a pipeline observer that saves one storage.Record per
// settled request and tags the request log with the outcome.
func RecordObserver(rec storage.Recorder, app string, logger *slog.Logger) pipeline.Observer {
	return func(r *http.Request, o pipeline.Outcome, code int, elapsed time.Duration) {
		AddLogField(r.Context(), "outcome", o.Status.String())

		record := &storage.Record{
			ID:         uuid.New().String(),
			RequestID:  GetRequestID(r.Context()),
			App:        app,
			Method:     r.Method,
			Path:       r.URL.Path,
			Outcome:    o.Status.String(),
			StatusCode: code,
			Duration:   elapsed,
		}
		if o.Err != nil {
			record.Error = fmt.Sprint(o.Err)
		}

		// The request context may already be done for abandoned requests.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), saveTimeout)
		defer cancel()
		if err := rec.Save(ctx, record); err != nil {
			logger.Error("failed to save dispatch record",
				slog.String("request_id", record.RequestID),
				slog.String("error", err.Error()),
			)
		}
	}
}
