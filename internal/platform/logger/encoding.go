package logger

import (
	"strings"

	"github.com/nulzo/model-catalog/internal/cli"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

var bufPool = buffer.NewPool()

// coloredConsoleEncoder is zap's console encoder with the trailing JSON
// fields highlighted.
type coloredConsoleEncoder struct {
	zapcore.Encoder
}

func NewColoredConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &coloredConsoleEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

func (c *coloredConsoleEncoder) Clone() zapcore.Encoder {
	return &coloredConsoleEncoder{Encoder: c.Encoder.Clone()}
}

func (c *coloredConsoleEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	buf, err := c.Encoder.EncodeEntry(ent, fields)
	if err != nil {
		return nil, err
	}

	// The console encoder separates the header from the fields object with a tab.
	line := buf.String()
	split := strings.Index(line, "\t{")
	if split < 0 {
		return buf, nil
	}

	out := bufPool.Get()
	out.AppendString(line[:split+1])
	out.AppendString(cli.HighlightJSON(line[split+1:]))
	buf.Free()
	return out, nil
}
