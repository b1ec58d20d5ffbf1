// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	maxEnvironmentKeyValueParts = 2
	minQuotedValueLength        = 2
)

var (
	errExpectedPointerToStruct = errors.New("expected a pointer to a struct")
	errUnsupportedSliceType    = errors.New("unsupported slice type")
	errUnsupportedFieldType    = errors.New("unsupported field type")
)

var durationType = reflect.TypeOf(time.Duration(0))

// envTag is the parsed form of an `env:"NAME[,overwrite]"` struct tag.
type envTag struct {
	name      string
	overwrite bool
}

func parseEnvTag(tag string) envTag {
	parts := strings.Split(tag, ",")

	return envTag{name: parts[0], overwrite: slices.Contains(parts[1:], "overwrite")}
}

// readEnv walks the struct pointed to by spec and assigns every field tagged
// with `env` from the environment.
//
// Fields without the overwrite option are only assigned when still zero.
func readEnv(spec any) error {
	structValue := reflect.ValueOf(spec)
	if structValue.Kind() != reflect.Ptr {
		return fmt.Errorf("%w, got %s", errExpectedPointerToStruct, structValue.Kind())
	}

	structValue = structValue.Elem()
	if structValue.Kind() != reflect.Struct {
		return fmt.Errorf("%w, got a pointer to %s", errExpectedPointerToStruct, structValue.Kind())
	}

	structType := structValue.Type()

	for fieldIndex := range structValue.NumField() {
		field := structValue.Field(fieldIndex)
		fieldType := structType.Field(fieldIndex)

		rawTag := fieldType.Tag.Get("env")
		if rawTag == "" || fieldType.Anonymous {
			if field.Kind() == reflect.Struct && field.CanAddr() {
				if err := readEnv(field.Addr().Interface()); err != nil {
					return err
				}
			}

			continue
		}

		tag := parseEnvTag(rawTag)

		envValue, exists := os.LookupEnv(tag.name)
		if !exists || !field.CanSet() {
			continue
		}

		if !tag.overwrite && !field.IsZero() {
			continue
		}

		if err := setFieldValue(field, fieldType.Name, tag.name, envValue); err != nil {
			return err
		}
	}

	return nil
}

// setFieldValue parses envValue according to the kind of field.
func setFieldValue(field reflect.Value, fieldName, envVarName, envValue string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == durationType {
			parsedDuration, err := time.ParseDuration(envValue)
			if err != nil {
				return fmt.Errorf("failed to parse duration for %s from env var %s (%s): %w",
					fieldName, envVarName, envValue, err)
			}

			field.SetInt(int64(parsedDuration))

			return nil
		}

		intValue, err := strconv.ParseInt(envValue, 10, 64)
		if err != nil {
			return fmt.Errorf("failed to parse int for %s from env var %s (%s): %w",
				fieldName, envVarName, envValue, err)
		}

		field.SetInt(intValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(envValue)
		if err != nil {
			return fmt.Errorf("failed to parse bool for %s from env var %s (%s): %w",
				fieldName, envVarName, envValue, err)
		}

		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("%w for field %s", errUnsupportedSliceType, fieldName)
		}

		field.Set(reflect.ValueOf(splitList(envValue)))
	default:
		return fmt.Errorf("%w for field %s: %s", errUnsupportedFieldType, fieldName, field.Kind())
	}

	return nil
}

// splitList splits a comma separated value, dropping empty items.
func splitList(value string) []string {
	items := strings.Split(value, ",")
	out := make([]string, 0, len(items))

	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}

// useDotEnv loads environment variables from a .env file in the working
// directory, falling back to the directory of the binary.
//
// A missing file is not an error.
func useDotEnv() error {
	if cwd, err := os.Getwd(); err == nil {
		loaded, err := tryLoadDotEnv(filepath.Join(cwd, ".env"))
		if loaded || err != nil {
			return err
		}
	} else {
		log.Warn().
			Err(err).
			Msg("Could not get current working directory")
	}

	dir := "."
	if exe, err := os.Executable(); err == nil {
		dir = filepath.Dir(exe)
	}

	_, err := tryLoadDotEnv(filepath.Join(dir, ".env"))

	return err
}

// tryLoadDotEnv parses the .env file at envPath and exports every variable
// that is not already set.
//
// It reports whether a file was found.
func tryLoadDotEnv(envPath string) (bool, error) {
	// #nosec G304 - envPath is the working or binary directory
	data, err := os.ReadFile(envPath)
	if os.IsNotExist(err) {
		log.Debug().
			Str("path", envPath).
			Msg("No .env file found, skipping")

		return false, nil
	}

	if err != nil {
		log.Warn().
			Err(err).
			Str("path", envPath).
			Msg("Could not read .env file")

		return false, nil
	}

	for lineNumber, rawLine := range strings.Split(string(data), "\n") {
		line := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rawLine), "export "))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", maxEnvironmentKeyValueParts)
		if len(parts) != maxEnvironmentKeyValueParts {
			log.Warn().
				Str("path", envPath).
				Int("line", lineNumber+1).
				Msg("Invalid format in .env file")

			continue
		}

		key, value := strings.TrimSpace(parts[0]), unquote(strings.TrimSpace(parts[1]))

		if _, set := os.LookupEnv(key); set {
			continue
		}

		if err := os.Setenv(key, value); err != nil {
			return true, fmt.Errorf("could not set %s from %s: %w", key, envPath, err)
		}
	}

	log.Info().
		Str("path", envPath).
		Msg("Loaded configuration from .env file")

	return true, nil
}

func unquote(value string) string {
	if len(value) >= minQuotedValueLength &&
		value[0] == value[len(value)-1] &&
		(value[0] == '"' || value[0] == '\'') {
		return value[1 : len(value)-1]
	}

	return value
}
