package main

import (
	"fmt"
	"log/slog"
	"strings"
)

type logLevelFlag struct {
	value slog.Level
}

func (l logLevelFlag) String() string {
	return l.value.String()
}

func (l *logLevelFlag) Set(value string) error {
	v, err := parseLogLevel(value)
	if err != nil {
		return err
	}
	l.value = v
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	m := map[string]slog.Level{"DEBUG": slog.LevelDebug, "INFO": slog.LevelInfo, "WARN": slog.LevelWarn, "ERROR": slog.LevelError}
	v, ok := m[strings.ToUpper(s)]
	if !ok {
		return 0, fmt.Errorf("unknown log level: %s", s)
	}
	return v, nil
}
