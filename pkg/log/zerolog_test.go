package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{"", zerolog.InfoLevel, false},
		{"debug", zerolog.DebugLevel, false},
		{"WARN", zerolog.WarnLevel, false},
		{"loud", zerolog.NoLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewZerolog_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZerolog(Options{Level: "debug", Format: FormatJSON, Out: &buf})
	require.NoError(t, err)

	child := With(logger, String("store", "timeseries"))
	child.Info("artifact applied", Int("statements", 3), Err(errors.New("boom")))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "info", got["level"])
	assert.Equal(t, "artifact applied", got["message"])
	assert.Equal(t, "timeseries", got["store"])
	assert.Equal(t, float64(3), got["statements"])
	assert.Equal(t, "boom", got["error"])
}

func TestNewZerolog_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZerolog(Options{Level: "warn", Format: FormatJSON, Out: &buf})
	require.NoError(t, err)

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestNewZerolog_UnknownFormat(t *testing.T) {
	_, err := NewZerolog(Options{Format: "xml"})
	require.Error(t, err)
}

func TestWith_NestsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZerolog(Options{Format: FormatJSON, Out: &buf})
	require.NoError(t, err)

	l := With(With(logger, String("a", "1")), String("b", "2"))
	l.Info("nested")

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "1", got["a"])
	assert.Equal(t, "2", got["b"])
}
