package export

import (
	"context"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"buildcost/core/events"
	"buildcost/core/types"
	apperrors "buildcost/internal/errors"
	"buildcost/internal/logging"
)

// Exporter dispatches results to registered encoders and publishes the
// export lifecycle on the bus
type Exporter struct {
	mu       sync.RWMutex
	encoders map[Format]Encoder
	bus      *events.Bus
	logger   *zap.Logger
}

// NewExporter creates an exporter. With no encoders it registers CSV and
// American English text.
func NewExporter(bus *events.Bus, logger *zap.Logger, encoders ...Encoder) *Exporter {
	if len(encoders) == 0 {
		encoders = []Encoder{CSVEncoder{}, NewTextEncoder("en-US")}
	}
	e := &Exporter{
		encoders: make(map[Format]Encoder, len(encoders)),
		bus:      bus,
		logger:   logging.Component(logger, "export"),
	}
	for _, enc := range encoders {
		e.Register(enc)
	}
	return e
}

// Register adds or replaces the encoder for its format
func (e *Exporter) Register(enc Encoder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.encoders[enc.Format()] = enc
}

// Formats lists registered formats, sorted
func (e *Exporter) Formats() []Format {
	e.mu.RLock()
	defer e.mu.RUnlock()
	formats := make([]Format, 0, len(e.encoders))
	for f := range e.encoders {
		formats = append(formats, f)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// Export encodes result in format to w
func (e *Exporter) Export(ctx context.Context, w io.Writer, format Format, result *types.CalculationResult) error {
	id := ""
	if result != nil {
		id = result.CalculatorID
	}
	e.emit(events.ExportStarted, events.ExportPayload{CalculatorID: id, Format: string(format)})

	n, err := e.export(ctx, w, format, result)
	if err != nil {
		e.logger.Warn("export failed", zap.String("calculator", id), zap.String("format", string(format)), zap.Error(err))
		e.emit(events.ExportError, events.ExportPayload{CalculatorID: id, Format: string(format), Bytes: n, Err: err})
		return err
	}

	e.logger.Debug("export complete", zap.String("calculator", id), zap.String("format", string(format)), zap.Int("bytes", n))
	e.emit(events.ExportCompleted, events.ExportPayload{CalculatorID: id, Format: string(format), Bytes: n})
	return nil
}

func (e *Exporter) export(ctx context.Context, w io.Writer, format Format, result *types.CalculationResult) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if result == nil {
		return 0, apperrors.New(apperrors.TypeExport, "nothing to export; run a calculation first")
	}

	e.mu.RLock()
	enc, ok := e.encoders[format]
	e.mu.RUnlock()
	if !ok {
		return 0, apperrors.Newf(apperrors.TypeExport, "unsupported export format %q", format)
	}

	cw := &countingWriter{w: w}
	if err := enc.Encode(cw, Title(result), Rows(result)); err != nil {
		return cw.n, apperrors.Wrapf(apperrors.TypeExport, err, "encode %s", format)
	}
	return cw.n, nil
}

func (e *Exporter) emit(name events.Name, payload any) {
	if e.bus != nil {
		e.bus.Emit(name, payload)
	}
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
