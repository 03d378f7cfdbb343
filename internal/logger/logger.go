package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

var Logger *logrus.Logger

// Initialize sets up the logger with proper configuration
func Initialize() {
	Logger = logrus.New()

	// Set log level based on environment
	logLevel := os.Getenv("LOG_LEVEL")
	var level logrus.Level
	switch logLevel {
	case "DEBUG":
		level = logrus.DebugLevel
	case "INFO":
		level = logrus.InfoLevel
	case "WARN":
		level = logrus.WarnLevel
	case "ERROR":
		level = logrus.ErrorLevel
	default:
		level = logrus.InfoLevel
	}

	Logger.SetLevel(level)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	// Application logs go to a file when LOG_DIR is set, stdout otherwise
	logsDir := os.Getenv("LOG_DIR")
	if logsDir != "" {
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			fmt.Printf("Failed to create logs directory: %v\n", err)
			return
		}
		logFile, err := os.OpenFile(
			fmt.Sprintf("%s/docurisk.log", logsDir),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND,
			0666,
		)
		if err != nil {
			fmt.Printf("Failed to open log file: %v\n", err)
			return
		}
		Logger.SetOutput(logFile)
	}

	Logger.WithFields(logrus.Fields{
		"log_level": level.String(),
	}).Info("Logging system initialized")
}

// GetLogger returns the configured logger instance
func GetLogger() *logrus.Logger {
	if Logger == nil {
		Initialize()
	}
	return Logger
}

// Entry is a contextualized logger that takes extra fields per call, same
// shape as the package-level convenience functions.
type Entry struct {
	entry *logrus.Entry
}

func (e *Entry) with(fields map[string]interface{}) *logrus.Entry {
	if fields == nil {
		return e.entry
	}
	return e.entry.WithFields(fields)
}

func (e *Entry) Debug(msg string, fields map[string]interface{}) {
	e.with(fields).Debug(msg)
}

func (e *Entry) Info(msg string, fields map[string]interface{}) {
	e.with(fields).Info(msg)
}

func (e *Entry) Warn(msg string, fields map[string]interface{}) {
	e.with(fields).Warn(msg)
}

func (e *Entry) Error(msg string, fields map[string]interface{}) {
	e.with(fields).Error(msg)
}

// WithJob creates a logger with job context
func WithJob(jobID string) *Entry {
	return &Entry{entry: GetLogger().WithFields(logrus.Fields{
		"job_id":    jobID,
		"component": "orchestrator",
	})}
}

// WithDocument creates a logger with document context
func WithDocument(jobID, document string) *Entry {
	return &Entry{entry: GetLogger().WithFields(logrus.Fields{
		"job_id":    jobID,
		"document":  document,
		"component": "pipeline",
	})}
}

// WithAI creates a logger with AI-invocation context
func WithAI(jobID, document string, unit, totalUnits int) *Entry {
	return &Entry{entry: GetLogger().WithFields(logrus.Fields{
		"job_id":      jobID,
		"document":    document,
		"unit":        unit,
		"total_units": totalUnits,
		"component":   "ai_invoker",
	})}
}

// Log levels convenience functions (with fields)
func Debug(msg string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	GetLogger().WithFields(fields).Debug(msg)
}

func Info(msg string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	GetLogger().WithFields(fields).Info(msg)
}

func Warn(msg string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	GetLogger().WithFields(fields).Warn(msg)
}

func Error(msg string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	GetLogger().WithFields(fields).Error(msg)
}

func Fatal(msg string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	GetLogger().WithFields(fields).Fatal(msg)
}
