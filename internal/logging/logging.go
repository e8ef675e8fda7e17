// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present log-bouncer contributors.

// Package logging constructs the structured logger shared by every
// component. A single logger is built once at startup by cmd/log-bouncer,
// handed to the supervisor, and passed to each component's constructor
// rather than referenced as a package global.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a SugaredLogger: JSON-encoded when json is true, human-readable
// console encoding otherwise.
func New(json bool) (*zap.SugaredLogger, error) {
	var cfg zap.Config
	if json {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
