package irc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var rootLogger *zap.SugaredLogger

// InitLogger configures the process-wide logger. Output goes to stdout as
// [YYYY-MM-DD HH:MM:SS] [LEVEL] [CATEGORY] message, with a colored level
// token. Verbose enables DEBUG.
func InitLogger(verbose bool) {
	config := zap.NewProductionConfig()
	config.Encoding = "console"
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("[2006-01-02 15:04:05]")
	config.DisableStacktrace = !verbose

	if verbose {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	l, err := config.Build()
	if err != nil {
		panic(err)
	}

	zap.ReplaceGlobals(l)
	zap.RedirectStdLog(l)
	rootLogger = l.Sugar()
}

func getLogger() *zap.SugaredLogger {
	if rootLogger == nil {
		InitLogger(false)
	}
	return rootLogger
}

// Category loggers

func logConnection() *zap.SugaredLogger { return getLogger().Named("Connection") }
func logAuth() *zap.SugaredLogger       { return getLogger().Named("Auth") }
func logCommand() *zap.SugaredLogger    { return getLogger().Named("Command") }
func logChannel() *zap.SugaredLogger    { return getLogger().Named("Channel") }
func logPermission() *zap.SugaredLogger { return getLogger().Named("Permission") }
func logNetwork() *zap.SugaredLogger    { return getLogger().Named("Network") }
func logSystem() *zap.SugaredLogger     { return getLogger().Named("System") }
