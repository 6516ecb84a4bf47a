package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLogLevels(t *testing.T) {
	// Создаем буфер для захвата вывода
	var buf bytes.Buffer
	logger := NewWithWriter(DEBUG, FormatConsole, &buf)

	// Тестируем все уровни
	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error %s", "message")

	output := buf.String()

	// Проверяем, что все сообщения присутствуют
	for _, want := range []string{
		"[DEBUG]\tdebug message",
		"[INFO]\tinfo message",
		"[WARN]\twarn message",
		"[ERROR]\terror message",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("%q not found in %q", want, output)
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(ERROR, FormatConsole, &buf)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	output := buf.String()

	// Проверяем, что только ERROR сообщения присутствуют
	if strings.Contains(output, "[DEBUG]") {
		t.Error("DEBUG message should be filtered out")
	}
	if strings.Contains(output, "[INFO]") {
		t.Error("INFO message should be filtered out")
	}
	if strings.Contains(output, "[WARN]") {
		t.Error("WARN message should be filtered out")
	}
	if !strings.Contains(output, "[ERROR]\terror message") {
		t.Error("ERROR message not found")
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(ERROR, FormatConsole, &buf)

	logger.Info("hidden")
	logger.SetLevel(DEBUG)
	logger.Info("visible")

	if logger.GetLevel() != DEBUG {
		t.Errorf("Expected DEBUG, got %v", logger.GetLevel())
	}
	output := buf.String()
	if strings.Contains(output, "hidden") {
		t.Error("message logged before SetLevel should be filtered out")
	}
	if !strings.Contains(output, "visible") {
		t.Error("message logged after SetLevel not found")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(INFO, FormatJSON, &buf)
	logger.Warn("catalog refresh failed: %v", "timeout")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["level"] != "WARN" {
		t.Errorf("Expected level WARN, got %v", entry["level"])
	}
	if entry["msg"] != "catalog refresh failed: timeout" {
		t.Errorf("Unexpected msg %v", entry["msg"])
	}
	if _, ok := entry["ts"]; !ok {
		t.Error("timestamp not found")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{"info", INFO},
		{"INFO", INFO},
		{"warn", WARN},
		{"WARN", WARN},
		{"warning", WARN},
		{"WARNING", WARN},
		{"error", ERROR},
		{"ERROR", ERROR},
		{"invalid", INFO}, // по умолчанию INFO
		{"", INFO},        // по умолчанию INFO
	}

	for _, test := range tests {
		result := ParseLogLevel(test.input)
		if result != test.expected {
			t.Errorf("ParseLogLevel(%q) = %v, expected %v", test.input, result, test.expected)
		}
	}
}

func TestGlobalLogger(t *testing.T) {
	// Сохраняем оригинальный логгер
	originalLogger := globalLogger
	defer func() {
		globalLogger = originalLogger
	}()

	var buf bytes.Buffer
	globalLogger = NewWithWriter(WARN, FormatConsole, &buf)

	// Тестируем глобальные функции
	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")

	output := buf.String()

	// Проверяем фильтрацию
	if strings.Contains(output, "[DEBUG]") {
		t.Error("DEBUG message should be filtered out")
	}
	if strings.Contains(output, "[INFO]") {
		t.Error("INFO message should be filtered out")
	}
	if !strings.Contains(output, "[WARN]\twarn message") {
		t.Error("WARN message not found")
	}
	if !strings.Contains(output, "[ERROR]\terror message") {
		t.Error("ERROR message not found")
	}
	if GetGlobalLevel() != WARN {
		t.Errorf("Expected global level WARN, got %v", GetGlobalLevel())
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DEBUG, "DEBUG"},
		{INFO, "INFO"},
		{WARN, "WARN"},
		{ERROR, "ERROR"},
		{LogLevel(999), "UNKNOWN"},
	}

	for _, test := range tests {
		result := test.level.String()
		if result != test.expected {
			t.Errorf("LogLevel(%d).String() = %q, expected %q", test.level, result, test.expected)
		}
	}
}
