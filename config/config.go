package config

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v2"
)

const (
	KeySerialPort = "serial_port"
	KeyName       = "name"
	KeyMinVolume  = "min_volume"
	KeyMaxVolume  = "max_volume"
	KeySources    = "sources"
	KeySoundModes = "soundmode"
	KeyUniqueID   = "unique_id"
)

const (
	DefaultName      = "Marantz Receiver"
	DefaultMinVolume = -71
	DefaultMaxVolume = -1
)

// Mapping pairs a receiver code with its display name.
type Mapping struct {
	Code string
	Name string
}

// Mappings keeps codes in configured order. Codes are unique; display
// names may repeat.
type Mappings []Mapping

// Lookup returns the display name configured for code.
func (ms Mappings) Lookup(code string) (string, bool) {
	for _, m := range ms {
		if m.Code == code {
			return m.Name, true
		}
	}
	return "", false
}

// set replaces the name of an existing code in place, or appends.
func (ms Mappings) set(code, name string) Mappings {
	for i := range ms {
		if ms[i].Code == code {
			ms[i].Name = name
			return ms
		}
	}
	return append(ms, Mapping{Code: code, Name: name})
}

// Config is the validated configuration of one receiver.
type Config struct {
	SerialPort string
	Name       string
	MinVolume  int
	MaxVolume  int
	Sources    Mappings
	SoundModes Mappings
	UniqueID   string
}

// FieldError reports a configuration key that failed validation.
type FieldError struct {
	Key    string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid config for [%s]: %s", e.Key, e.Reason)
}

func fieldErrorf(key string, format string, args ...interface{}) error {
	return &FieldError{Key: key, Reason: fmt.Sprintf(format, args...)}
}

// Default returns a Config with every optional key defaulted and no serial port.
func Default() Config {
	return Config{
		Name:       DefaultName,
		MinVolume:  DefaultMinVolume,
		MaxVolume:  DefaultMaxVolume,
		Sources:    Mappings{},
		SoundModes: Mappings{},
	}
}

// Load reads a YAML configuration file, applies environment overrides and
// validates the result.
func Load(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config %s: %w", filename, err)
	}
	// MapSlice keeps the order of the source and sound mode mappings
	var doc yaml.MapSlice
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Config{}, fmt.Errorf("unable to parse config %s: %w", filename, err)
	}
	raw := make(map[string]interface{}, len(doc))
	for _, item := range doc {
		key, err := toString("", item.Key)
		if err != nil {
			return Config{}, fmt.Errorf("unable to parse config %s: invalid key %v", filename, item.Key)
		}
		raw[key] = item.Value
	}
	applyEnvOverrides(raw)
	return Parse(raw)
}

func applyEnvOverrides(raw map[string]interface{}) {
	if port := os.Getenv("MARANTZ_SERIAL_PORT"); port != "" {
		raw[KeySerialPort] = port
	}
	if name := os.Getenv("MARANTZ_NAME"); name != "" {
		raw[KeyName] = name
	}
}

// Parse validates a raw configuration mapping and fills in defaults.
// min_volume < max_volume is deliberately not checked.
func Parse(raw map[string]interface{}) (Config, error) {
	// sorted so the reported key is stable when several are unknown
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch k {
		case KeySerialPort, KeyName, KeyMinVolume, KeyMaxVolume, KeySources, KeySoundModes, KeyUniqueID:
		default:
			return Config{}, fieldErrorf(k, "extra keys not allowed")
		}
	}

	cfg := Default()

	v, ok := raw[KeySerialPort]
	if !ok {
		return Config{}, fieldErrorf(KeySerialPort, "required key not provided")
	}
	port, err := toString(KeySerialPort, v)
	if err != nil {
		return Config{}, err
	}
	if port == "" {
		return Config{}, fieldErrorf(KeySerialPort, "must not be empty")
	}
	cfg.SerialPort = port

	if v, ok := raw[KeyName]; ok {
		if cfg.Name, err = toString(KeyName, v); err != nil {
			return Config{}, err
		}
	}
	if v, ok := raw[KeyMinVolume]; ok {
		if cfg.MinVolume, err = toInt(KeyMinVolume, v); err != nil {
			return Config{}, err
		}
	}
	if v, ok := raw[KeyMaxVolume]; ok {
		if cfg.MaxVolume, err = toInt(KeyMaxVolume, v); err != nil {
			return Config{}, err
		}
	}
	if v, ok := raw[KeySources]; ok {
		if cfg.Sources, err = toMappings(KeySources, v); err != nil {
			return Config{}, err
		}
	}
	if v, ok := raw[KeySoundModes]; ok {
		if cfg.SoundModes, err = toMappings(KeySoundModes, v); err != nil {
			return Config{}, err
		}
	}
	if v, ok := raw[KeyUniqueID]; ok {
		if cfg.UniqueID, err = toString(KeyUniqueID, v); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}

// toString accepts strings and scalars that have an obvious text form.
func toString(key string, v interface{}) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case int:
		return strconv.Itoa(s), nil
	case int64:
		return strconv.FormatInt(s, 10), nil
	case uint64:
		return strconv.FormatUint(s, 10), nil
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(s), nil
	case nil:
		return "", fieldErrorf(key, "string value is None")
	}
	return "", fieldErrorf(key, "expected str, got %T", v)
}

// toInt accepts integers only; floats are rejected even when whole.
func toInt(key string, v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			return 0, fieldErrorf(key, "value %d out of range", n)
		}
		return int(n), nil
	case uint64:
		if n > math.MaxInt {
			return 0, fieldErrorf(key, "value %d out of range", n)
		}
		return int(n), nil
	case float64:
		return 0, fieldErrorf(key, "expected int, got %v", n)
	}
	return 0, fieldErrorf(key, "expected int, got %T", v)
}

// toMappings keeps the order of a yaml.MapSlice. Go maps carry no order, so
// their entries are sorted by code.
func toMappings(key string, v interface{}) (Mappings, error) {
	out := Mappings{}
	switch m := v.(type) {
	case nil:
		return out, nil
	case yaml.MapSlice:
		for _, item := range m {
			code, err := toString(key, item.Key)
			if err != nil {
				return nil, err
			}
			name, err := toString(key+"."+code, item.Value)
			if err != nil {
				return nil, err
			}
			out = out.set(code, name)
		}
		return out, nil
	case map[string]string:
		for _, code := range sortedCodes(m) {
			out = out.set(code, m[code])
		}
		return out, nil
	case map[string]interface{}:
		for _, code := range sortedCodes(m) {
			name, err := toString(key+"."+code, m[code])
			if err != nil {
				return nil, err
			}
			out = out.set(code, name)
		}
		return out, nil
	case map[interface{}]interface{}:
		byCode := make(map[string]interface{}, len(m))
		for k, val := range m {
			code, err := toString(key, k)
			if err != nil {
				return nil, err
			}
			byCode[code] = val
		}
		return toMappings(key, byCode)
	}
	return nil, fieldErrorf(key, "expected a dictionary, got %T", v)
}

func sortedCodes[V any](m map[string]V) []string {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
