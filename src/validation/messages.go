package validation

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// MessageSource resolves human readable messages for error codes.
type MessageSource interface {
	GetMessage(code string, args []any) (string, bool)
}

// MapMessageSource is a MessageSource backed by an in-memory code table.
// Messages use {0}, {1}, ... placeholders for their arguments.
type MapMessageSource struct {
	mu       sync.RWMutex
	messages map[string]string
}

// NewMapMessageSource copies messages into a new source.
func NewMapMessageSource(messages map[string]string) *MapMessageSource {
	m := &MapMessageSource{messages: make(map[string]string, len(messages))}
	for k, v := range messages {
		m.messages[k] = v
	}
	return m
}

// Put adds or replaces the message for code.
func (m *MapMessageSource) Put(code, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[code] = message
}

func (m *MapMessageSource) GetMessage(code string, args []any) (string, bool) {
	m.mu.RLock()
	msg, ok := m.messages[code]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	return FormatMessage(msg, args), true
}

// ResolveMessage returns the message for the first code of err that the
// source knows, falling back to the error's default message.
func ResolveMessage(source MessageSource, err ObjectError) string {
	if source != nil {
		for _, code := range err.Codes {
			if msg, ok := source.GetMessage(code, err.Args); ok {
				return msg
			}
		}
	}
	return FormatMessage(err.DefaultMessage, err.Args)
}

// FormatMessage replaces {n} placeholders with the matching argument.
func FormatMessage(pattern string, args []any) string {
	if len(args) == 0 || !strings.Contains(pattern, "{") {
		return pattern
	}
	pairs := make([]string, 0, 2*len(args))
	for i, arg := range args {
		pairs = append(pairs, "{"+strconv.Itoa(i)+"}", fmt.Sprint(arg))
	}
	return strings.NewReplacer(pairs...).Replace(pattern)
}
