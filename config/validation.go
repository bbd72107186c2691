package config

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/spiral-modules/dbal/database/types"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = validate.RegisterValidation("dialect", func(fl validator.FieldLevel) bool {
			_, err := types.ParseDialect(fl.Field().String())
			return err == nil
		})
	})
	return validate
}

// Validate checks cfg and returns ValidationErrors listing every problem found.
func Validate(cfg *Config) error {
	var out ValidationErrors

	if err := structValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config validation failed: %w", err)
		}
		for _, fe := range verrs {
			out = append(out, toConfigError(fe))
		}
	}

	if cfg.Default != "" && len(cfg.Databases) > 0 {
		if _, ok := cfg.Databases[cfg.Default]; !ok {
			aliases := cfg.Aliases()
			sort.Strings(aliases)
			out = append(out, NewInvalidFieldError("default", fmt.Sprintf("alias %q is not configured", cfg.Default), aliases))
		}
	}

	if len(out) == 0 {
		return nil
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// toConfigError turns "Config.databases[primary].driver" into the koanf path
// "databases.primary.driver" and picks a message per tag.
func toConfigError(fe validator.FieldError) *ConfigError {
	field := fieldPath(fe.Namespace())

	switch fe.Tag() {
	case "required":
		return NewMissingFieldError(field, envKey(field), field)
	case "min", "required_if":
		return NewMissingFieldError(field, envKey(field), field)
	case "gte", "lte":
		return NewInvalidFieldError(field, fmt.Sprintf("value %v out of range (%s %s)", fe.Value(), fe.Tag(), fe.Param()), nil)
	case "dialect":
		valid := make([]string, 0, len(types.Dialects()))
		for _, d := range types.Dialects() {
			valid = append(valid, d.String())
		}
		return NewInvalidFieldError(field, fmt.Sprintf("unsupported driver %q", fe.Value()), valid)
	case "oneof":
		return NewInvalidFieldError(field, fmt.Sprintf("invalid value %q", fe.Value()), strings.Fields(fe.Param()))
	case "timezone":
		return NewInvalidFieldError(field, fmt.Sprintf("unknown timezone %q", fe.Value()), nil)
	default:
		return NewInvalidFieldError(field, fmt.Sprintf("failed %s validation", fe.Tag()), nil)
	}
}

func fieldPath(namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	}
	namespace = strings.ReplaceAll(namespace, "[", ".")
	return strings.ReplaceAll(namespace, "]", "")
}
