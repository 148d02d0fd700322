// Package logging sets up the shared logrus instance every component logs
// through: a custom formatter carrying the per-request correlation id, and
// optional file rotation via lumberjack.
package logging

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	setupOnce sync.Once
	writerMu  sync.Mutex
	fileOut   *lumberjack.Logger
)

// Formatter renders one line per entry:
// [2026-07-31 10:14:04] [a1b2c3d4] [info ] [orchestrator.go:52] message key=value...
type Formatter struct{}

var fieldOrder = []string{"provider", "credential_id", "model", "status", "latency", "method", "path", "error"}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *log.Entry) ([]byte, error) {
	buf := &bytes.Buffer{}
	if entry.Buffer != nil {
		buf = entry.Buffer
	}

	reqID := "--------"
	if id, ok := entry.Data[fieldRequestID].(string); ok && id != "" {
		reqID = id
	}

	level := entry.Level.String()
	if level == "warning" {
		level = "warn"
	}

	var fields []string
	for _, k := range fieldOrder {
		if v, ok := entry.Data[k]; ok {
			fields = append(fields, fmt.Sprintf("%s=%v", k, v))
		}
	}
	fieldsStr := ""
	if len(fields) > 0 {
		fieldsStr = " " + strings.Join(fields, " ")
	}

	message := strings.TrimRight(entry.Message, "\r\n")
	timestamp := entry.Time.Format("2006-01-02 15:04:05")
	if entry.Caller != nil {
		fmt.Fprintf(buf, "[%s] [%s] [%-5s] [%s:%d] %s%s\n", timestamp, reqID, level, filepath.Base(entry.Caller.File), entry.Caller.Line, message, fieldsStr)
	} else {
		fmt.Fprintf(buf, "[%s] [%s] [%-5s] %s%s\n", timestamp, reqID, level, message, fieldsStr)
	}
	return buf.Bytes(), nil
}

const fieldRequestID = "request_id"

// Setup wires the shared logrus instance once per process: the custom
// formatter, caller reporting, the parsed log level, and Gin's own internal
// logger redirected into the same stream so HTTP access lines and request
// logs interleave in one place.
func Setup(level string) {
	setupOnce.Do(func() {
		log.SetOutput(os.Stdout)
		log.SetReportCaller(true)
		log.SetFormatter(&Formatter{})

		gin.DefaultWriter = log.StandardLogger().Writer()
		gin.DefaultErrorWriter = log.StandardLogger().WriterLevel(log.ErrorLevel)
		gin.DebugPrintFunc = func(format string, values ...interface{}) {
			log.StandardLogger().Infof(strings.TrimRight(format, "\r\n"), values...)
		}
	})
	if lvl, err := log.ParseLevel(level); err == nil {
		log.SetLevel(lvl)
	}
}

// ConfigureFileOutput switches the global log destination to a rotating
// file under dir when toFile is true, or back to stdout otherwise. Safe to
// call again on config hot-reload.
func ConfigureFileOutput(toFile bool, dir string) error {
	writerMu.Lock()
	defer writerMu.Unlock()

	if !toFile {
		if fileOut != nil {
			_ = fileOut.Close()
			fileOut = nil
		}
		log.SetOutput(os.Stdout)
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("logging: create log directory: %w", err)
	}
	if fileOut != nil {
		_ = fileOut.Close()
	}
	fileOut = &lumberjack.Logger{
		Filename:   filepath.Join(dir, "pollux.log"),
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	}
	log.SetOutput(fileOut)
	return nil
}
