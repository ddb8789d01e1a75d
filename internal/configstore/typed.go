package configstore

import (
	"strconv"
	"strings"
	"time"
)

// Int resolves key and parses it as a base-10 integer.
func (s *ConfigStore) Int(key string) (int, error) {
	return parseValue(s, key, strconv.Atoi)
}

// Bool resolves key and parses it with strconv.ParseBool.
func (s *ConfigStore) Bool(key string) (bool, error) {
	return parseValue(s, key, strconv.ParseBool)
}

// Float resolves key and parses it as a float64.
func (s *ConfigStore) Float(key string) (float64, error) {
	return parseValue(s, key, func(v string) (float64, error) {
		return strconv.ParseFloat(v, 64)
	})
}

// Duration resolves key and parses it with time.ParseDuration.
func (s *ConfigStore) Duration(key string) (time.Duration, error) {
	return parseValue(s, key, time.ParseDuration)
}

func parseValue[T any](s *ConfigStore, key string, parse func(string) (T, error)) (T, error) {
	var zero T

	rv, ok := s.Get(key)
	if !ok {
		return zero, missingKey(key)
	}

	value, err := parse(strings.TrimSpace(rv.Value))
	if err != nil {
		return zero, &Error{Kind: KindInvalidValue, Key: rv.Key, Source: rv.Source, Err: err}
	}
	return value, nil
}
