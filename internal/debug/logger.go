package debug

import (
	"fmt"
	"sync"
	"time"
)

// Logger is the centralised, component-tagged logging system shared by
// every subsystem in the core. Components are opt-in: by default nothing
// is logged, which keeps the hot CPU/scheduler loop free of overhead
// unless a caller (typically cmd/spectrum -d) turns a component on.
type Logger struct {
	entries    []LogEntry
	entriesMu  sync.RWMutex
	maxEntries int
	writeIndex int
	entryCount int

	componentEnabled map[Component]bool
	componentMu      sync.RWMutex

	minLevel LogLevel
	levelMu  sync.RWMutex

	logChan  chan LogEntry
	shutdown chan struct{}
	wg       sync.WaitGroup
}

// NewLogger creates a logger with a circular buffer of at least 100 entries.
func NewLogger(maxEntries int) *Logger {
	if maxEntries < 100 {
		maxEntries = 100
	}

	l := &Logger{
		entries:          make([]LogEntry, maxEntries),
		maxEntries:       maxEntries,
		componentEnabled: make(map[Component]bool),
		minLevel:         LogLevelInfo,
		logChan:          make(chan LogEntry, 1000),
		shutdown:         make(chan struct{}),
	}

	for _, c := range []Component{
		ComponentCPU, ComponentMemory, ComponentVideo, ComponentKeyboard,
		ComponentTape, ComponentAudio, ComponentULA, ComponentSnapshot, ComponentSystem,
	} {
		l.componentEnabled[c] = false
	}

	l.wg.Add(1)
	go l.processLogs()

	return l
}

func (l *Logger) processLogs() {
	defer l.wg.Done()
	for {
		select {
		case entry := <-l.logChan:
			l.addEntry(entry)
		case <-l.shutdown:
			for {
				select {
				case entry := <-l.logChan:
					l.addEntry(entry)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) addEntry(entry LogEntry) {
	l.entriesMu.Lock()
	defer l.entriesMu.Unlock()

	l.entries[l.writeIndex] = entry
	l.writeIndex = (l.writeIndex + 1) % l.maxEntries
	if l.entryCount < l.maxEntries {
		l.entryCount++
	}
}

// Log records a message for a component at a level, subject to that
// component being enabled and the level meeting the logger's floor.
func (l *Logger) Log(component Component, level LogLevel, message string, data map[string]interface{}) {
	l.componentMu.RLock()
	enabled := l.componentEnabled[component]
	l.componentMu.RUnlock()
	if !enabled {
		return
	}

	l.levelMu.RLock()
	minLevel := l.minLevel
	l.levelMu.RUnlock()
	if level < minLevel {
		return
	}

	entry := LogEntry{Timestamp: time.Now(), Component: component, Level: level, Message: message, Data: data}

	select {
	case l.logChan <- entry:
	default:
		// channel full: drop rather than block the emulation thread
	}
}

// Logf is Log with fmt.Sprintf formatting.
func (l *Logger) Logf(component Component, level LogLevel, format string, args ...interface{}) {
	l.Log(component, level, fmt.Sprintf(format, args...), nil)
}

// SetComponentEnabled turns logging for a component on or off.
func (l *Logger) SetComponentEnabled(component Component, enabled bool) {
	l.componentMu.Lock()
	defer l.componentMu.Unlock()
	l.componentEnabled[component] = enabled
}

// IsComponentEnabled reports whether a component currently logs.
func (l *Logger) IsComponentEnabled(component Component) bool {
	l.componentMu.RLock()
	defer l.componentMu.RUnlock()
	return l.componentEnabled[component]
}

// SetMinLevel sets the minimum level that will be recorded.
func (l *Logger) SetMinLevel(level LogLevel) {
	l.levelMu.Lock()
	defer l.levelMu.Unlock()
	l.minLevel = level
}

// GetEntries returns a copy of all buffered entries, oldest first.
func (l *Logger) GetEntries() []LogEntry {
	l.entriesMu.RLock()
	defer l.entriesMu.RUnlock()

	if l.entryCount == 0 {
		return []LogEntry{}
	}

	entries := make([]LogEntry, l.entryCount)
	if l.entryCount < l.maxEntries {
		copy(entries, l.entries[:l.entryCount])
	} else {
		for i := 0; i < l.entryCount; i++ {
			idx := (l.writeIndex + i) % l.maxEntries
			entries[i] = l.entries[idx]
		}
	}
	return entries
}

// GetRecentEntries returns at most the last count entries.
func (l *Logger) GetRecentEntries(count int) []LogEntry {
	all := l.GetEntries()
	if count >= len(all) {
		return all
	}
	return all[len(all)-count:]
}

// Clear empties the buffer without disabling any component.
func (l *Logger) Clear() {
	l.entriesMu.Lock()
	defer l.entriesMu.Unlock()
	l.entryCount = 0
	l.writeIndex = 0
}

// Shutdown drains pending entries and stops the background goroutine.
func (l *Logger) Shutdown() {
	close(l.shutdown)
	l.wg.Wait()
}
