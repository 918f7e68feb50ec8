package logger

import (
	"log"
	"log/syslog"
	"os"
	"path/filepath"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/metrico/brokerlog/reader/config"
	"github.com/sirupsen/logrus"
)

type LogInfo logrus.Fields

var RLogs *rotatelogs.RotateLogs
var Logger = logrus.New()

// InitLogger configures Logger from config.Cloki LOG_SETTINGS.
func InitLogger() {
	settings := &config.Cloki.Setting.LOG_SETTINGS
	if settings.Json {
		Logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		Logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}

	if settings.Stdout {
		Logger.SetOutput(os.Stdout)
		log.SetOutput(os.Stdout)
	}

	/* log level default */
	if settings.Level == "" {
		settings.Level = "error"
	}
	SetLoggerLevel(settings.Level)

	Logger.Info("init logging system")

	if !settings.Stdout && !settings.SysLog {
		configureLocalFileSystemHook()
	} else if !settings.Stdout {
		configureSyslogHook()
	}
}

func SetLoggerLevel(loglevelString string) {
	if logLevel, err := logrus.ParseLevel(loglevelString); err == nil {
		Logger.SetLevel(logLevel)
	} else {
		Logger.Error("Couldn't parse loglevel", loglevelString)
		Logger.SetLevel(logrus.ErrorLevel)
	}
}

func configureLocalFileSystemHook() {
	logPath := config.Cloki.Setting.LOG_SETTINGS.Path
	logName := config.Cloki.Setting.LOG_SETTINGS.Name
	if logName == "" {
		logName = "brokerlog.log"
	}
	var err error

	if configPath := os.Getenv("WEBAPPLOGPATH"); configPath != "" {
		logPath = configPath
	}
	if configName := os.Getenv("WEBAPPLOGNAME"); configName != "" {
		logName = configName
	}

	fileLogExtension := filepath.Ext(logName)
	fileLogBase := strings.TrimSuffix(logName, fileLogExtension)

	RLogs, err = rotatelogs.New(
		filepath.Join(logPath, fileLogBase+"_%Y%m%d%H%M"+fileLogExtension),
		rotatelogs.WithLinkName(filepath.Join(logPath, logName)),
		rotatelogs.WithMaxAge(time.Duration(config.Cloki.Setting.LOG_SETTINGS.MaxAgeDays)*24*time.Hour),
		rotatelogs.WithRotationTime(time.Duration(config.Cloki.Setting.LOG_SETTINGS.RotationHours)*time.Hour),
	)
	if err != nil {
		Logger.Println("Local file system hook initialize fail")
		return
	}

	Logger.SetOutput(RLogs)
	log.SetOutput(RLogs)
}

func configureSyslogHook() {
	Logger.Println("Init syslog...")

	syslogger, err := syslog.New(syslogPriority(config.Cloki.Setting.LOG_SETTINGS.SysLogLevel), "brokerlog")
	if err != nil {
		Logger.Println("Unable to connect to syslog:", err)
		return
	}

	Logger.SetOutput(syslogger)
	log.SetOutput(syslogger)
}

func syslogPriority(name string) syslog.Priority {
	switch strings.TrimPrefix(strings.ToUpper(name), "LOG_") {
	case "EMERG":
		return syslog.LOG_EMERG
	case "ALERT":
		return syslog.LOG_ALERT
	case "CRIT":
		return syslog.LOG_CRIT
	case "ERR":
		return syslog.LOG_ERR
	case "WARNING":
		return syslog.LOG_WARNING
	case "NOTICE":
		return syslog.LOG_NOTICE
	case "DEBUG":
		return syslog.LOG_DEBUG
	}
	return syslog.LOG_INFO
}

func WithFields(fields LogInfo) *logrus.Entry {
	return Logger.WithFields(logrus.Fields(fields))
}

func Info(args ...interface{}) {
	Logger.Info(args...)
}

func Warning(args ...interface{}) {
	Logger.Warning(args...)
}

func Error(args ...interface{}) {
	Logger.Error(args...)
}

func Debug(args ...interface{}) {
	Logger.Debug(args...)
}
