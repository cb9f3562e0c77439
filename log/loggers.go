package log

import (
	"fmt"
	"time"
)

func (sl *SubLogger) stage(header, data string) {
	if sl == nil || sl.output == nil {
		return
	}
	fmt.Fprintf(sl.output, "%s%s%s%s[%s]%s%s\n",
		time.Now().Format(timestampFormat), spacer, header, spacer, sl.name, spacer, data)
}

// Info takes a pointer subLogger struct and string, logs at info level
func Info(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	if sl == nil || !sl.Levels.Info {
		return
	}
	sl.stage("[INFO]", data)
}

// Infof takes a pointer subLogger struct, format string and args, logs at info level
func Infof(sl *SubLogger, data string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if sl == nil || !sl.Levels.Info {
		return
	}
	sl.stage("[INFO]", fmt.Sprintf(data, v...))
}

// Debug takes a pointer subLogger struct and string, logs at debug level
func Debug(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	if sl == nil || !sl.Levels.Debug {
		return
	}
	sl.stage("[DEBUG]", data)
}

// Debugf takes a pointer subLogger struct, format string and args, logs at debug level
func Debugf(sl *SubLogger, data string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if sl == nil || !sl.Levels.Debug {
		return
	}
	sl.stage("[DEBUG]", fmt.Sprintf(data, v...))
}

// Warn takes a pointer subLogger struct and string, logs at warn level
func Warn(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	if sl == nil || !sl.Levels.Warn {
		return
	}
	sl.stage("[WARN]", data)
}

// Warnf takes a pointer subLogger struct, format string and args, logs at warn level
func Warnf(sl *SubLogger, data string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if sl == nil || !sl.Levels.Warn {
		return
	}
	sl.stage("[WARN]", fmt.Sprintf(data, v...))
}

// Error takes a pointer subLogger struct and string, logs at error level
func Error(sl *SubLogger, data string) {
	mu.RLock()
	defer mu.RUnlock()
	if sl == nil || !sl.Levels.Error {
		return
	}
	sl.stage("[ERROR]", data)
}

// Errorf takes a pointer subLogger struct, format string and args, logs at error level
func Errorf(sl *SubLogger, data string, v ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if sl == nil || !sl.Levels.Error {
		return
	}
	sl.stage("[ERROR]", fmt.Sprintf(data, v...))
}
