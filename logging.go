package zaffi

import (
    "encoding/json"
    "fmt"
    "io"
    "log"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "sync/atomic"
    "time"
)

// RFC 5424 log levels
const (
    LOG_EMERG = iota
    LOG_ALERT
    LOG_CRIT
    LOG_ERR
    LOG_WARNING
    LOG_NOTICE
    LOG_INFO
    LOG_DEBUG
)

// LogRequest represents a single queued logging request
type LogRequest struct {
    Message   string
    Fields    map[string]any // snapshot taken at request time
    IsJSON    bool           // format at time of request
    Level     int
    Timestamp time.Time
    done      chan struct{} // set on flush markers only
}

var (
    logMu            sync.Mutex
    logQueue         chan LogRequest
    logWorkerRunning bool
    logMinLevel      = LOG_WARNING
    logJSON          bool
    logOut           io.Writer = os.Stderr
    logFile          *os.File // opened by SetLogFile, closed when replaced
    logQueueSize     = 256
    queueFullWarned  atomic.Bool
)

// logLevelToString converts log level number to string name
func logLevelToString(level int) string {
    switch level {
    case LOG_EMERG:
        return "emerg"
    case LOG_ALERT:
        return "alert"
    case LOG_CRIT:
        return "crit"
    case LOG_ERR:
        return "error"
    case LOG_WARNING:
        return "warn"
    case LOG_NOTICE:
        return "notice"
    case LOG_INFO:
        return "info"
    case LOG_DEBUG:
        return "debug"
    default:
        return "unknown"
    }
}

// ParseLogLevel accepts a level name or its number.
func ParseLogLevel(s string) (int, error) {
    s = strings.ToLower(strings.TrimSpace(s))
    for l := LOG_EMERG; l <= LOG_DEBUG; l++ {
        if s == logLevelToString(l) || s == fmt.Sprint(l) {
            return l, nil
        }
    }
    switch s {
    case "err":
        return LOG_ERR, nil
    case "warning":
        return LOG_WARNING, nil
    }
    return 0, fmt.Errorf("unknown log level '%s'", s)
}

// SetLogLevel sets the least severe level which is still written.
func SetLogLevel(level int) {
    logMu.Lock()
    logMinLevel = level
    logMu.Unlock()
}

// SetLogJSON switches between plain text and JSON lines.
func SetLogJSON(on bool) {
    logMu.Lock()
    logJSON = on
    logMu.Unlock()
}

// SetLogOutput redirects log output. Pending requests are flushed first.
func SetLogOutput(w io.Writer) {
    setLogWriter(w, nil)
}

// setLogWriter swaps the destination and closes a file left by SetLogFile.
func setLogWriter(w io.Writer, f *os.File) {
    FlushLogging()
    logMu.Lock()
    old := logFile
    logOut, logFile = w, f
    logMu.Unlock()
    if old != nil && old != f {
        old.Close()
    }
}

// SetLogFile appends log output to the named file.
func SetLogFile(path string) error {
    if strings.HasPrefix(path, "~/") {
        home, err := os.UserHomeDir()
        if err != nil {
            return fmt.Errorf("cannot expand ~ in path: %w", err)
        }
        path = filepath.Join(home, path[2:])
    }
    dir := filepath.Dir(path)
    if _, err := os.Stat(dir); os.IsNotExist(err) {
        if err := os.MkdirAll(dir, 0755); err != nil {
            return fmt.Errorf("cannot create directory %s: %w", dir, err)
        }
    }
    f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
    if err != nil {
        return fmt.Errorf("cannot write to log file %s: %w", path, err)
    }
    setLogWriter(f, f)
    return nil
}

// startLogWorker starts the background logging worker. Caller holds logMu.
func startLogWorker() {
    if logWorkerRunning {
        return
    }
    logQueue = make(chan LogRequest, logQueueSize)
    logWorkerRunning = true
    queueFullWarned.Store(false)

    go func(q chan LogRequest) {
        for request := range q {
            if request.done != nil {
                close(request.done)
                continue
            }
            processLogRequest(request)
        }
    }(logQueue)
}

// queueLogRequest sends a log request to the worker
func queueLogRequest(request LogRequest) {
    logMu.Lock()
    if !logWorkerRunning {
        startLogWorker()
    }
    q := logQueue
    logMu.Unlock()

    select {
    case q <- request:
        queueFullWarned.Store(false)
    case <-time.After(100 * time.Millisecond):
        if queueFullWarned.CompareAndSwap(false, true) {
            writeLine(fmt.Sprintf("WARNING: logging queue full (size: %d)", logQueueSize))
        }
        q <- request
    }
}

// FlushLogging blocks until every request queued so far has been written.
func FlushLogging() {
    logMu.Lock()
    running := logWorkerRunning
    q := logQueue
    logMu.Unlock()
    if !running {
        return
    }
    done := make(chan struct{})
    q <- LogRequest{done: done}
    <-done
}

func processLogRequest(request LogRequest) {
    if request.IsJSON {
        entry := make(map[string]any, len(request.Fields)+3)
        for k, v := range request.Fields {
            entry[k] = v
        }
        entry["message"] = request.Message
        entry["timestamp"] = request.Timestamp.Format(time.RFC3339)
        entry["level"] = logLevelToString(request.Level)
        b, err := json.Marshal(entry)
        if err == nil {
            writeLine(string(b))
            return
        }
    }

    var sb strings.Builder
    sb.WriteString(request.Timestamp.Format("2006/01/02 15:04:05 "))
    sb.WriteString(strings.ToUpper(logLevelToString(request.Level)))
    sb.WriteString(": ")
    sb.WriteString(request.Message)
    for _, k := range sortedKeys(request.Fields) {
        fmt.Fprintf(&sb, " %s=%v", k, request.Fields[k])
    }
    writeLine(sb.String())
}

func writeLine(s string) {
    logMu.Lock()
    w := logOut
    logMu.Unlock()
    if _, err := io.WriteString(w, s+"\n"); err != nil {
        log.Println(err)
    }
}

// logEvent queues a message at level with optional structured fields.
func logEvent(level int, fields map[string]any, format string, args ...any) {
    logMu.Lock()
    minLevel, asJSON := logMinLevel, logJSON
    logMu.Unlock()
    if level > minLevel {
        return
    }
    var fieldsCopy map[string]any
    if len(fields) > 0 {
        fieldsCopy = make(map[string]any, len(fields))
        for k, v := range fields {
            fieldsCopy[k] = v
        }
    }
    queueLogRequest(LogRequest{
        Message:   fmt.Sprintf(format, args...),
        Fields:    fieldsCopy,
        IsJSON:    asJSON,
        Level:     level,
        Timestamp: time.Now(),
    })
}

func logDebug(fields map[string]any, format string, args ...any) {
    logEvent(LOG_DEBUG, fields, format, args...)
}

func logInfo(fields map[string]any, format string, args ...any) {
    logEvent(LOG_INFO, fields, format, args...)
}

func logError(fields map[string]any, format string, args ...any) {
    logEvent(LOG_ERR, fields, format, args...)
}
