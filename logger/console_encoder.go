package logger

import (
	"fmt"
	"math"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"

	colorTime   = "\x1b[38;5;245m" // Gray timestamps
	colorField  = "\x1b[38;5;109m" // Soft blue field keys
	colorWarnFg = "\x1b[38;5;214m" // Yellow
	colorErrFg  = "\x1b[38;5;167m" // Red
)

// consoleEncoder renders calm, compact console lines.
// Format: "13:04:35  Peer connected  id=a1b2c3 remote=127.0.0.1:52289"
type consoleEncoder struct {
	zapcore.Encoder // Embedded base encoder for field serialization
	noColor         bool
}

func newConsoleEncoder() *consoleEncoder {
	baseEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return &consoleEncoder{
		Encoder: baseEncoder,
		noColor: os.Getenv("NO_COLOR") != "",
	}
}

func (enc *consoleEncoder) Clone() zapcore.Encoder {
	return &consoleEncoder{
		Encoder: enc.Encoder.Clone(),
		noColor: enc.noColor,
	}
}

func (enc *consoleEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	final.AppendString(enc.paint(colorTime, ent.Time.Format("15:04:05")))

	// Level shown only when it carries signal
	if ent.Level != zapcore.InfoLevel && ent.Level != zapcore.DebugLevel {
		final.AppendString("  ")
		final.AppendString(enc.levelString(ent.Level))
	}

	final.AppendString("  ")
	final.AppendString(ent.Message)

	for _, field := range fields {
		final.AppendString("  ")
		final.AppendString(enc.paint(colorField, field.Key))
		final.AppendString("=")
		final.AppendString(fieldValue(field))
	}

	final.AppendString("\n")
	return final, nil
}

func (enc *consoleEncoder) levelString(level zapcore.Level) string {
	switch level {
	case zapcore.WarnLevel:
		return enc.paint(colorBold+colorWarnFg, "WARN")
	case zapcore.ErrorLevel:
		return enc.paint(colorBold+colorErrFg, "ERROR")
	default:
		return enc.paint(colorBold+colorErrFg, level.CapitalString())
	}
}

func (enc *consoleEncoder) paint(color, s string) string {
	if enc.noColor {
		return s
	}
	return color + s + colorReset
}

// fieldValue renders a zap field value without the JSON machinery
func fieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.BoolType:
		if field.Integer == 1 {
			return "true"
		}
		return "false"
	case zapcore.Float64Type:
		return fmt.Sprintf("%g", math.Float64frombits(uint64(field.Integer)))
	case zapcore.Float32Type:
		return fmt.Sprintf("%g", math.Float32frombits(uint32(field.Integer)))
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
		return fmt.Sprintf("%v", field.Interface)
	default:
		if field.Interface != nil {
			return fmt.Sprintf("%v", field.Interface)
		}
		return field.String
	}
}
