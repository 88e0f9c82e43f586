package ulogger_test

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bsv-blockchain/outputcache/ulogger"
	"github.com/ordishs/gocore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ ulogger.Logger = (*ulogger.ZLoggerWrapper)(nil)
	_ ulogger.Logger = (*ulogger.GoCoreLogger)(nil)
	_ ulogger.Logger = (*ulogger.VerboseTestLogger)(nil)
	_ ulogger.Logger = ulogger.TestLogger{}
)

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level           string
		expectedOutputs map[string]bool
	}{
		{
			level: "DEBUG",
			expectedOutputs: map[string]bool{
				"DEBUG": true,
				"INFO":  true,
				"WARN":  true,
				"ERROR": true,
			},
		},
		{
			level: "INFO",
			expectedOutputs: map[string]bool{
				"DEBUG": false,
				"INFO":  true,
				"WARN":  true,
				"ERROR": true,
			},
		},
		{
			level: "WARN",
			expectedOutputs: map[string]bool{
				"DEBUG": false,
				"INFO":  false,
				"WARN":  true,
				"ERROR": true,
			},
		},
		{
			level: "ERROR",
			expectedOutputs: map[string]bool{
				"DEBUG": false,
				"INFO":  false,
				"WARN":  false,
				"ERROR": true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer

			logger := ulogger.NewZeroLogger("test", ulogger.WithWriter(&buf), ulogger.WithLevel(tt.level))

			logger.Debugf("debug message")
			logger.Infof("info message")
			logger.Warnf("warn message")
			logger.Errorf("error message")

			output := buf.String()

			for level, expected := range tt.expectedOutputs {
				msg := fmt.Sprintf("%s message", strings.ToLower(level))
				assert.Equal(t, expected, strings.Contains(output, msg), "level %s, message %q", tt.level, msg)
			}
		})
	}
}

func TestZeroLoggerLogLevel(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.NewZeroLogger("test", ulogger.WithWriter(&buf), ulogger.WithLevel("DEBUG"))
	assert.Equal(t, int(gocore.DEBUG), logger.LogLevel())

	logger.SetLogLevel("error")
	assert.Equal(t, int(gocore.ERROR), logger.LogLevel())

	logger.SetLogLevel("nonsense")
	assert.Equal(t, int(gocore.INFO), logger.LogLevel())
}

func TestZeroLoggerNewKeepsWriterAndLevel(t *testing.T) {
	var buf bytes.Buffer

	parent := ulogger.NewZeroLogger("parent", ulogger.WithWriter(&buf), ulogger.WithLevel("WARN"))
	child := parent.New("child")

	child.Infof("hidden")
	child.Warnf("shown by child")

	output := buf.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "shown by child")
	assert.Contains(t, output, "child")
}

func TestZeroLoggerDuplicate(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.NewZeroLogger("dup", ulogger.WithWriter(&buf), ulogger.WithLevel("INFO"))
	dup := logger.Duplicate(ulogger.WithLevel("ERROR"))

	dup.Warnf("not shown")
	logger.Warnf("shown by original")

	output := buf.String()
	assert.NotContains(t, output, "not shown")
	assert.Contains(t, output, "shown by original")
}

func TestNewPicksImplementation(t *testing.T) {
	var buf bytes.Buffer

	logger := ulogger.New("pick", ulogger.WithWriter(&buf))
	_, ok := logger.(*ulogger.ZLoggerWrapper)
	assert.True(t, ok)

	logger = ulogger.New("pick", ulogger.WithLoggerType(ulogger.TypeGoCore))
	_, ok = logger.(*ulogger.GoCoreLogger)
	assert.True(t, ok)
}

type fakeT struct {
	mu     sync.Mutex
	lines  []string
	fatals int
}

func (f *fakeT) Logf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, fmt.Sprintf(format, args...))
}

func (f *fakeT) Fatalf(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fatals++
	f.lines = append(f.lines, fmt.Sprintf(format, args...))
}

func TestVerboseTestLogger(t *testing.T) {
	ft := &fakeT{}

	logger := ulogger.NewVerboseTestLogger(ft)
	logger.Infof("hello %d", 1)

	child := logger.New("sql")
	child.Errorf("boom")
	child.Fatalf("fatal")

	require.Len(t, ft.lines, 3)
	assert.Equal(t, "[INFO] hello 1", ft.lines[0])
	assert.Equal(t, "[ERROR] [sql] boom", ft.lines[1])
	assert.Equal(t, "[FATAL] [sql] fatal", ft.lines[2])
	assert.Equal(t, 1, ft.fatals)
}

func TestVerboseTestLoggerConcurrency(t *testing.T) {
	ft := &fakeT{}
	logger := ulogger.NewVerboseTestLogger(ft)

	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()
			logger.Debugf("line %d", i)
		}(i)
	}

	wg.Wait()

	assert.Len(t, ft.lines, 10)
}

func TestGoCoreLoggerLevels(t *testing.T) {
	logger := ulogger.NewGoCoreLogger("gocore-parent", ulogger.WithLevel("WARN"))
	assert.Equal(t, int(gocore.WARN), logger.LogLevel())

	inherited := logger.New("gocore-inherited")
	assert.Equal(t, int(gocore.WARN), inherited.LogLevel())

	overridden := logger.New("gocore-overridden", ulogger.WithLevel("ERROR"))
	assert.Equal(t, int(gocore.ERROR), overridden.LogLevel())

	assert.Equal(t, logger.LogLevel(), logger.Duplicate().LogLevel())
}
