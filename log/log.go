package log

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/astaxie/beego/logs"
	"github.com/pkg/errors"

	"github.com/copernet/chainstate/conf"
)

const logFileName = "debug.log"

var (
	moduleLock sync.RWMutex
	mapModule  = make(map[string]struct{})
)

type logConfig struct {
	Filename string `json:"filename"`
	Level    int    `json:"level,omitempty"`
	Rotate   bool   `json:"rotate,omitempty"`
	Daily    bool   `json:"daily,omitempty"`
	MaxDays  int64  `json:"maxdays,omitempty"`
	MaxLines int    `json:"maxlines,omitempty"`
	MaxSize  int    `json:"maxsize,omitempty"`
}

func init() {
	logs.EnableFuncCallDepth(true)
	logs.SetLogFuncCallDepth(3)
}

// Init configures logging from cfg.Log.
func Init(cfg *conf.Configuration) error {
	return InitLogger(cfg.Log.Dir, cfg.Log.Level, cfg.Log.Module)
}

// InitLogger replaces the current outputs. An empty dir logs to the
// console, otherwise to a daily rotated debug.log inside dir.
func InitLogger(dir, strLevel string, modules []string) error {
	if !validLogLevel(strLevel) {
		return fmt.Errorf("mismatch the logLevel %s", strLevel)
	}
	level := GetLevel(strLevel)

	logs.Reset()
	logs.SetLevel(level)
	if dir == "" {
		if err := logs.SetLogger(logs.AdapterConsole); err != nil {
			return errors.Wrap(err, "set console logger")
		}
	} else {
		config, err := json.Marshal(logConfig{
			Filename: filepath.Join(dir, logFileName),
			Rotate:   true,
			Daily:    true,
			Level:    level,
		})
		if err != nil {
			return err
		}
		if err := logs.SetLogger(logs.AdapterFile, string(config)); err != nil {
			return errors.Wrapf(err, "set file logger in %s", dir)
		}
	}

	SetModules(modules)
	return nil
}

// SetModules replaces the set of modules whose Print calls are emitted.
func SetModules(modules []string) {
	m := make(map[string]struct{}, len(modules))
	for _, item := range modules {
		m[item] = struct{}{}
	}
	moduleLock.Lock()
	mapModule = m
	moduleLock.Unlock()
}

func IsIncludeModule(module string) bool {
	moduleLock.RLock()
	_, ok := mapModule[module]
	moduleLock.RUnlock()
	return ok
}

// Print logs format at level when module is enabled.
func Print(module string, level string, format string, reason ...interface{}) {
	if !IsIncludeModule(module) {
		return
	}
	format = "[" + module + "] " + format
	switch strings.ToLower(level) {
	case "emergency":
		logs.Emergency(format, reason...)
	case "alert":
		logs.Alert(format, reason...)
	case "critical":
		logs.Critical(format, reason...)
	case "error":
		logs.Error(format, reason...)
	case "warn", "warning":
		logs.Warn(format, reason...)
	case "notice":
		logs.Notice(format, reason...)
	case "info", "informational":
		logs.Info(format, reason...)
	default:
		logs.Debug(format, reason...)
	}
}

// Flush blocks until buffered messages reach every output.
func Flush() {
	logs.GetBeeLogger().Flush()
}

func Emergency(format string, reason ...interface{}) {
	logs.Emergency(format, reason...)
}

func Alert(format string, reason ...interface{}) {
	logs.Alert(format, reason...)
}

func Critical(format string, reason ...interface{}) {
	logs.Critical(format, reason...)
}

func Error(format string, reason ...interface{}) {
	logs.Error(format, reason...)
}

func Warn(format string, reason ...interface{}) {
	logs.Warn(format, reason...)
}

func Notice(format string, reason ...interface{}) {
	logs.Notice(format, reason...)
}

func Info(format string, reason ...interface{}) {
	logs.Info(format, reason...)
}

func Debug(format string, reason ...interface{}) {
	logs.Debug(format, reason...)
}

func Trace(format string, reason ...interface{}) {
	logs.Trace(format, reason...)
}
